package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/filesage/pkg/compare"
	"github.com/sdejongh/filesage/pkg/output"
)

// NewCompareCommand creates the compare command
func NewCompareCommand(globals *GlobalFlags) *cobra.Command {
	flags := &CompareFlags{}

	cmd := &cobra.Command{
		Use:   "compare <local> <local-or-url>",
		Short: "Verify that two files are byte-identical",
		Long: `Compare a local file with another local file or with an HTTP(S) resource.

Local pairs are compared directly. Remote resources are checked with the
configured policies in order, from cheap metadata checks to full downloads.

Exit status is 0 when the files match, 1 when they differ and 2 when the
comparison could not be completed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, flags, globals)
		},
	}

	addCompareFlags(cmd, flags)
	return cmd
}

func runCompare(cmd *cobra.Command, args []string, flags *CompareFlags, globals *GlobalFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig(globals)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cfg, flags, globals); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := []compare.Option{compare.WithConfig(cfg), compare.WithLogger(logger)}
	if cfg.Output.Progress && output.IsTerminal(cmd.ErrOrStderr()) {
		opts = append(opts, compare.WithProgress(output.NewProgress(cmd.ErrOrStderr()).Track))
	}

	report, _ := compare.Compare(ctx, args[0], args[1], opts...)

	if !cfg.Output.Quiet || report.Status.ExitCode() != 0 {
		if err := formatter.Report(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	// Write report file if requested
	if flags.ReportFile != "" {
		if err := output.WriteReportFile(formatter, flags.ReportFile, report); err != nil {
			return err
		}
	}

	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
