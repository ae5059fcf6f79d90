package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/models"
)

// CompareFlags holds the flags shared by compare and batch
type CompareFlags struct {
	Policies           []string
	Confirm            string
	LocalMethod        string
	EnforceContentType bool
	PreferPartial      bool
	Timeout            string
	Retries            int
	Backoff            string
	PartialChunk       int64
	StreamChunk        int
	Bandwidth          string
	TempDir            string
	Progress           bool
	Output             string
	ReportFile         string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

// addCompareFlags registers the comparison flags on cmd
func addCompareFlags(cmd *cobra.Command, f *CompareFlags) {
	cmd.Flags().StringArrayVarP(&f.Policies, "policy", "P", nil, "comparison policy, repeatable and evaluated in order (e.g. content-length, etag=TOKEN, stream-hash)")
	cmd.Flags().StringVar(&f.Confirm, "confirm", "", "confirmation mode: first-success, all")
	cmd.Flags().StringVar(&f.LocalMethod, "local-method", "", "local pair method: auto, digest")
	cmd.Flags().BoolVar(&f.EnforceContentType, "enforce-content-type", false, "fail when the remote content type disagrees with the local file kind")
	cmd.Flags().BoolVar(&f.PreferPartial, "prefer-partial", false, "hash only the first and last chunk")
	cmd.Flags().StringVar(&f.Timeout, "timeout", "", "timeout per remote request (e.g. \"30s\")")
	cmd.Flags().IntVar(&f.Retries, "retries", -1, "retries per remote request (default from config)")
	cmd.Flags().StringVar(&f.Backoff, "backoff", "", "retry backoff: none, exponential")
	cmd.Flags().Int64Var(&f.PartialChunk, "partial-chunk", 0, "partial hash chunk size in bytes")
	cmd.Flags().IntVar(&f.StreamChunk, "stream-chunk", 0, "stream read chunk size in bytes")
	cmd.Flags().StringVarP(&f.Bandwidth, "bandwidth", "b", "", "bandwidth limit for remote bodies (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringVar(&f.TempDir, "temp-dir", "", "directory for downloaded artifacts")
	cmd.Flags().BoolVar(&f.Progress, "progress", false, "show progress bars for remote bodies")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&f.ReportFile, "report-file", "", "also write the result to a file")

	cmd.Flags().StringVar(&f.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&f.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig loads configuration from file or returns default
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals.ConfigFile != "" {
		return config.LoadFromFile(globals.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config, f *CompareFlags, globals *GlobalFlags) error {
	if len(f.Policies) > 0 {
		policies, err := models.ParsePolicies(f.Policies)
		if err != nil {
			return err
		}
		cfg.Policies = policies
	}

	if f.Confirm != "" {
		cfg.Confirmation = models.ConfirmationMode(f.Confirm)
	}
	if f.LocalMethod != "" {
		cfg.LocalMethod = models.LocalMethod(f.LocalMethod)
	}
	if f.EnforceContentType {
		cfg.EnforceContentType = true
	}
	if f.PreferPartial {
		cfg.Hashing.PreferPartial = true
	}

	// Network
	if f.Timeout != "" {
		timeout, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Network.Timeout = timeout
	}
	if f.Retries >= 0 {
		cfg.Network.MaxRetries = f.Retries
	}
	if f.Backoff != "" {
		cfg.Network.Backoff = f.Backoff
	}
	if f.Bandwidth != "" {
		limit, err := parseBandwidth(f.Bandwidth)
		if err != nil {
			return err
		}
		cfg.Network.BandwidthLimit = limit
	}

	// Chunk sizes
	if f.PartialChunk > 0 {
		cfg.Hashing.PartialChunkSize = f.PartialChunk
	}
	if f.StreamChunk > 0 {
		cfg.Hashing.StreamChunkSize = f.StreamChunk
	}
	if f.TempDir != "" {
		cfg.TempDir = f.TempDir
	}

	// Output
	if f.Output != "" {
		cfg.Output.Format = f.Output
	}
	if f.Progress {
		cfg.Output.Progress = true
	}
	if globals.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Logging
	if f.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = f.LogFile
	}
	if f.LogFormat != "" {
		cfg.Logging.Format = f.LogFormat
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if globals.Verbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}

	return cfg.Validate()
}

// parseBandwidth parses a byte rate such as "512K", "10M" or "1G"
func parseBandwidth(s string) (int64, error) {
	value := strings.ToUpper(strings.TrimSpace(s))
	value = strings.TrimSuffix(value, "/S")
	value = strings.TrimSuffix(value, "B")

	multiplier := int64(1)
	if n := len(value); n > 0 {
		switch value[n-1] {
		case 'K':
			multiplier = 1024
		case 'M':
			multiplier = 1024 * 1024
		case 'G':
			multiplier = 1024 * 1024 * 1024
		}
		if multiplier > 1 {
			value = value[:n-1]
		}
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid bandwidth limit: %s (e.g. \"10M\", \"1G\")", s)
	}
	return int64(n * float64(multiplier)), nil
}
