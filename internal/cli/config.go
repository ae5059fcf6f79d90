package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdejongh/filesage/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand(globals *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the filesage configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand(globals))
	cmd.AddCommand(newConfigInitCommand(globals))

	return cmd
}

func newConfigShowCommand(globals *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(globals)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCommand(globals *GlobalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globals.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if _, err := config.LoadFromFile(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
