package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sdejongh/filesage/pkg/compare"
	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/logging"
	"github.com/sdejongh/filesage/pkg/models"
)

// Status is the aggregate result of a batch run
type Status string

const (
	// StatusSuccess means every pair matched
	StatusSuccess Status = "success"
	// StatusPartial means some pairs matched and some did not
	StatusPartial Status = "partial"
	// StatusFailed means no pair matched
	StatusFailed Status = "failed"
)

// Summary collects the reports of a batch run, in manifest order
type Summary struct {
	Reports    []*models.Report
	Matched    int
	Mismatched int
	Errored    int
	Duration   time.Duration
	Status     Status
}

// ExitCode returns 0 when every pair matched, 2 when any comparison could
// not complete and 1 otherwise
func (s *Summary) ExitCode() int {
	switch {
	case s.Errored > 0:
		return 2
	case s.Mismatched > 0:
		return 1
	default:
		return 0
	}
}

// Runner compares the pairs of a manifest through a bounded worker pool
type Runner struct {
	cfg        *config.Config
	logger     logging.Logger
	opts       []compare.Option
	maxWorkers int
	semaphore  chan struct{}
}

// NewRunner creates a runner. cfg is snapshotted per pair; opts are passed
// to every comparison.
func NewRunner(cfg *config.Config, logger logging.Logger, opts ...compare.Option) *Runner {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	maxWorkers := cfg.Performance.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Runner{
		cfg:        cfg,
		logger:     logger,
		opts:       opts,
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Run compares every pair and returns the aggregated summary. Pairs not
// started before ctx is cancelled are reported as errors.
func (r *Runner) Run(ctx context.Context, m *Manifest) *Summary {
	start := time.Now()
	reports := make([]*models.Report, len(m.Pairs))

	r.logger.Info(ctx, "batch started", logging.Fields{"pairs": len(m.Pairs), "workers": r.maxWorkers})

	var wg sync.WaitGroup
	for i := range m.Pairs {
		select {
		case r.semaphore <- struct{}{}:
		case <-ctx.Done():
			reports[i] = cancelled(m.Pairs[i], ctx.Err())
			continue
		}

		wg.Add(1)
		go func(index int, pair Pair) {
			defer wg.Done()
			defer func() { <-r.semaphore }()

			opts := append([]compare.Option{compare.WithConfig(r.pairConfig(pair)), compare.WithLogger(r.logger)}, r.opts...)
			report, _ := compare.Compare(ctx, pair.Local, pair.Remote, opts...)
			reports[index] = report
		}(i, m.Pairs[i])
	}
	wg.Wait()

	summary := summarize(reports)
	summary.Duration = time.Since(start)

	r.logger.Info(ctx, "batch completed", logging.Fields{
		"status":     string(summary.Status),
		"matched":    summary.Matched,
		"mismatched": summary.Mismatched,
		"errored":    summary.Errored,
	})
	return summary
}

// pairConfig returns the snapshot used for one pair
func (r *Runner) pairConfig(pair Pair) *config.Config {
	cfg := r.cfg.Clone()
	if len(pair.Policies) > 0 {
		cfg.Policies = append([]models.Policy(nil), pair.Policies...)
	}
	return cfg
}

func cancelled(pair Pair, err error) *models.Report {
	return &models.Report{
		Local:  pair.Local,
		Other:  pair.Remote,
		Status: models.StatusError,
		Kind:   "cancelled",
		Error:  err.Error(),
	}
}

func summarize(reports []*models.Report) *Summary {
	s := &Summary{Reports: reports}
	for _, r := range reports {
		switch r.Status {
		case models.StatusMatch:
			s.Matched++
		case models.StatusMismatch:
			s.Mismatched++
		default:
			s.Errored++
		}
	}

	switch {
	case s.Matched == len(reports):
		s.Status = StatusSuccess
	case s.Matched == 0:
		s.Status = StatusFailed
	default:
		s.Status = StatusPartial
	}
	return s
}
