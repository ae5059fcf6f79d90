package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/filesage/pkg/batch"
	"github.com/sdejongh/filesage/pkg/output"
)

// BatchFlags holds batch command flags
type BatchFlags struct {
	CompareFlags
	Manifest string
	Parallel int
}

// NewBatchCommand creates the batch command
func NewBatchCommand(globals *GlobalFlags) *cobra.Command {
	flags := &BatchFlags{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Verify every pair listed in a manifest",
		Long: `Compare the pairs listed in a YAML manifest in parallel.

  pairs:
    - local: ./dist/app.tar.gz
      remote: https://example.com/app.tar.gz
      policies: [content-length, stream-hash]

Exit status is 0 when every pair matches, 2 when any comparison could not be
completed and 1 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, flags, globals)
		},
	}

	cmd.Flags().StringVarP(&flags.Manifest, "manifest", "m", "", "manifest file (required)")
	cmd.MarkFlagRequired("manifest")
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", 0, "number of parallel comparisons (default from config)")
	addCompareFlags(cmd, &flags.CompareFlags)

	return cmd
}

func runBatch(cmd *cobra.Command, flags *BatchFlags, globals *GlobalFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	manifest, err := batch.LoadManifest(flags.Manifest)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(globals)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.Parallel > 0 {
		cfg.Performance.MaxWorkers = flags.Parallel
	}
	// Bars from parallel comparisons would interleave
	flags.Progress = false
	if err := applyFlagsToConfig(cfg, &flags.CompareFlags, globals); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg.Output.Progress = false

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	summary := batch.NewRunner(cfg, logger).Run(ctx, manifest)

	if !cfg.Output.Quiet || summary.ExitCode() != 0 {
		if err := formatter.Summary(cmd.OutOrStdout(), summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if flags.ReportFile != "" {
		if err := output.WriteSummaryFile(formatter, flags.ReportFile, summary); err != nil {
			return err
		}
	}

	if code := summary.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
