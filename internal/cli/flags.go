package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that mirror flags
const EnvPrefix = "FILESAGE"

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVar(
		&flags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/filesage/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&flags.Verbose,
		"verbose",
		"v",
		false,
		"log debug output to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&flags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// newViper returns a viper instance reading FILESAGE_* variables.
// FILESAGE_LOG_LEVEL sets --log-level.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// bindEnv copies environment values into the flags of cmd that were not
// set on the command line
func bindEnv(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			return
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		value := v.GetString(f.Name)
		if f.Value.Type() == "stringArray" || f.Value.Type() == "stringSlice" {
			for _, item := range strings.Split(value, ",") {
				if err := cmd.Flags().Set(f.Name, strings.TrimSpace(item)); err != nil {
					bindErr = fmt.Errorf("invalid %s_%s: %w", EnvPrefix, envName(f.Name), err)
					return
				}
			}
			return
		}
		if err := cmd.Flags().Set(f.Name, value); err != nil {
			bindErr = fmt.Errorf("invalid %s_%s: %w", EnvPrefix, envName(f.Name), err)
		}
	})
	return bindErr
}

func envName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
