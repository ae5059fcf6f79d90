package compare

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/filesage/internal/platform"
	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/logging"
	"github.com/sdejongh/filesage/pkg/models"
	"github.com/sdejongh/filesage/pkg/remote"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

type options struct {
	cfg      *config.Config
	logger   logging.Logger
	fs       storage.Backend
	client   *remote.Client
	progress remote.ProgressFunc
}

// Option configures a single Compare call
type Option func(*options)

// WithConfig uses cfg instead of the current process default
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFilesystem sets the local storage backend
func WithFilesystem(fs storage.Backend) Option {
	return func(o *options) { o.fs = fs }
}

// WithClient sets the HTTP client; by default one is built from the config
func WithClient(client *remote.Client) Option {
	return func(o *options) { o.client = client }
}

// WithProgress reports streamed and downloaded bodies to fn
func WithProgress(fn remote.ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// Compare checks whether a and b are byte-identical. b is compared as a
// remote resource when it is an http(s) URL, otherwise both are local paths.
// The returned report is always non-nil; err is nil only on a match.
func Compare(ctx context.Context, a, b string, opts ...Option) (*models.Report, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Defaults().Current()
	}
	if o.logger == nil {
		o.logger = logging.NewNullLogger()
	}
	if o.fs == nil {
		o.fs = storage.NewLocal()
	}

	start := time.Now()
	id := uuid.NewString()
	logger := o.logger.WithFields(logging.Fields{"comparison": id})

	report, err := run(ctx, a, b, &o, logger)
	report.ID = id
	report.StartTime = start
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(start)
	finish(report, err)

	if err != nil {
		logger.Error(ctx, "comparison failed", err, logging.Fields{"a": a, "b": b, "status": string(report.Status)})
	} else {
		logger.Info(ctx, "comparison matched", logging.Fields{"a": a, "b": b, "duration": report.Duration.String()})
	}
	return report, err
}

func run(ctx context.Context, a, b string, o *options, logger logging.Logger) (*models.Report, error) {
	resA, resB := platform.ParseResource(a), platform.ParseResource(b)
	report := &models.Report{Local: a, Other: b, Remote: resB.Remote}

	if err := o.cfg.Validate(); err != nil {
		return report, xerrors.Wrap(xerrors.KindConfiguration, err, "")
	}
	if resA.Remote {
		return report, xerrors.E(xerrors.KindConfiguration, "first resource must be a local path, got %s", a)
	}

	if !resB.Remote {
		method, err := CompareLocal(ctx, o.fs, resA.Path(), resB.Path(), o.cfg)
		report.Method = method
		return report, err
	}

	client := o.client
	if client == nil {
		client = remote.NewClientFromConfig(o.cfg, logger)
	}
	if o.progress != nil {
		client = client.WithProgress(o.progress)
	}

	engine := NewEngine(o.fs, client, logger, o.cfg)
	rep, err := engine.CompareRemote(ctx, resA.Path(), b)
	rep.Local = a
	return rep, err
}

func finish(report *models.Report, err error) {
	switch {
	case err == nil:
		report.Status = models.StatusMatch
		return
	case xerrors.IsMismatch(err):
		report.Status = models.StatusMismatch
	default:
		report.Status = models.StatusError
	}
	report.Kind = xerrors.KindOf(err).String()
	report.Error = err.Error()
}
