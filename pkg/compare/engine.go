package compare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/filesage/internal/platform"
	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/logging"
	"github.com/sdejongh/filesage/pkg/models"
	"github.com/sdejongh/filesage/pkg/remote"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// Engine evaluates the configured policy list for a local/remote pair
type Engine struct {
	fs     storage.Backend
	client *remote.Client
	logger logging.Logger
	cfg    *config.Config
}

// NewEngine creates an engine. cfg is read but never modified.
func NewEngine(fs storage.Backend, client *remote.Client, logger logging.Logger, cfg *config.Config) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{fs: fs, client: client, logger: logger, cfg: cfg}
}

// pair is the state shared by the policies of one comparison
type pair struct {
	local string
	url   string
	info  *storage.FileInfo
	meta  *remote.Metadata
}

// CompareRemote walks the policy list for localPath against url. The report
// lists every evaluated policy even when an error is returned.
func (e *Engine) CompareRemote(ctx context.Context, localPath, url string) (*models.Report, error) {
	report := &models.Report{Local: localPath, Other: url, Remote: true, Method: "policies"}

	info, err := e.fs.Stat(ctx, localPath)
	if err != nil {
		return report, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if info.IsDir {
		return report, xerrors.E(xerrors.KindConfiguration, "%s is a directory", localPath)
	}

	meta, err := e.client.FetchMetadata(ctx, url, nil)
	if err != nil {
		return report, err
	}
	report.RemoteInfo = &models.RemoteInfo{Length: meta.Length, ETag: meta.ETag, ContentType: meta.ContentType}

	p := &pair{local: localPath, url: url, info: info, meta: meta}

	if e.cfg.EnforceContentType && meta.ContentType != "" {
		remoteKind := ClassifyContentType(meta.ContentType)
		localKind := ClassifyPath(localPath)
		if remoteKind != localKind {
			return report, &xerrors.Error{
				Kind:     xerrors.KindTypeMismatch,
				Local:    localPath,
				Remote:   url,
				Expected: string(localKind),
				Actual:   string(remoteKind) + " (" + meta.ContentType + ")",
			}
		}
	}

	if len(e.cfg.Policies) == 0 {
		return report, &xerrors.Error{Kind: xerrors.KindNoPolicyConfirmed, Local: localPath, Remote: url, Detail: "policy list is empty"}
	}

	for _, policy := range e.cfg.Policies {
		start := time.Now()
		e.logger.Debug(ctx, "evaluating policy", logging.Fields{"policy": policy.String(), "url": url})

		outcome, detail, err := e.evaluate(ctx, policy, p)
		result := models.PolicyResult{
			Policy:   policy,
			Outcome:  outcome,
			Detail:   detail,
			Duration: time.Since(start),
		}
		if err != nil {
			err = annotate(err, policy, p)
			result.Outcome = models.OutcomeFailed
			result.Error = err.Error()
		}
		report.Policies = append(report.Policies, result)

		e.logger.Info(ctx, "policy evaluated", logging.Fields{
			"policy":   policy.String(),
			"outcome":  string(result.Outcome),
			"duration": result.Duration.String(),
		})

		if err != nil {
			return report, err
		}
		if outcome == models.OutcomeConfirmed && e.cfg.Confirmation == models.ConfirmFirstSuccess {
			return report, nil
		}
	}

	if e.cfg.Confirmation == models.ConfirmAll && report.Confirmed() > 0 {
		return report, nil
	}
	return report, &xerrors.Error{
		Kind:   xerrors.KindNoPolicyConfirmed,
		Local:  localPath,
		Remote: url,
		Detail: fmt.Sprintf("%d policies evaluated, none confirmed equality", len(report.Policies)),
	}
}

// annotate fills in the policy and resource context of a failure
func annotate(err error, policy models.Policy, p *pair) error {
	var xe *xerrors.Error
	if !errors.As(err, &xe) {
		return &xerrors.Error{Kind: xerrors.KindInternal, Policy: policy.String(), Local: p.local, Remote: p.url, Err: err}
	}
	if xe.Policy == "" {
		xe.Policy = string(policy.Kind)
	}
	if xe.Local == "" {
		xe.Local = p.local
	}
	if xe.Remote == "" {
		xe.Remote = p.url
	}
	return err
}

func (e *Engine) evaluate(ctx context.Context, policy models.Policy, p *pair) (models.Outcome, string, error) {
	switch policy.Kind {
	case models.PolicyContentLength:
		return e.contentLength(p)
	case models.PolicyETag:
		return e.etag(ctx, policy, p)
	case models.PolicyPartialHash:
		return e.partialHash(ctx, p)
	case models.PolicyStreamHash:
		return e.streamHash(ctx, p)
	case models.PolicyStreamBufferCompare:
		if err := StreamCompare(ctx, e.fs, p.local, e.client, p.url, e.cfg.Hashing.StreamChunkSize); err != nil {
			return models.OutcomeFailed, "", err
		}
		return models.OutcomeConfirmed, "streams identical", nil
	case models.PolicyDownloadBuffer:
		return e.downloadBuffer(ctx, p)
	case models.PolicyDownloadHash:
		return e.downloadHash(ctx, p)
	default:
		return models.OutcomeFailed, "", xerrors.E(xerrors.KindConfiguration, "unknown policy %q", policy.Kind)
	}
}

func (e *Engine) contentLength(p *pair) (models.Outcome, string, error) {
	if p.meta.Length < 0 {
		return models.OutcomeInconclusive, "remote length not declared", nil
	}
	if p.meta.Length != p.info.Size {
		return models.OutcomeFailed, "", &xerrors.Error{
			Kind:     xerrors.KindLengthMismatch,
			Expected: strconv.FormatInt(p.info.Size, 10),
			Actual:   strconv.FormatInt(p.meta.Length, 10),
		}
	}
	return models.OutcomeConfirmed, fmt.Sprintf("%d bytes", p.info.Size), nil
}

func (e *Engine) etag(ctx context.Context, policy models.Policy, p *pair) (models.Outcome, string, error) {
	if policy.ETag == "" {
		return models.OutcomeFailed, "", xerrors.E(xerrors.KindConfiguration, "etag policy requires an expected token")
	}

	header := http.Header{}
	header.Set("If-None-Match", remote.QuoteETag(policy.ETag))
	meta, err := e.client.FetchMetadata(ctx, p.url, header)
	if err != nil {
		return models.OutcomeFailed, "", err
	}

	if meta.NotModified {
		return models.OutcomeConfirmed, "not modified", nil
	}
	if meta.ETag != "" && remote.NormalizeETag(meta.ETag) == remote.NormalizeETag(policy.ETag) {
		return models.OutcomeConfirmed, "etag matches", nil
	}
	return models.OutcomeFailed, "", &xerrors.Error{
		Kind:     xerrors.KindTokenMismatch,
		Expected: policy.ETag,
		Actual:   meta.ETag,
	}
}

func (e *Engine) partialHash(ctx context.Context, p *pair) (models.Outcome, string, error) {
	chunk := e.cfg.Hashing.PartialChunkSize

	var local, rem Digest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		local, err = FileDigest(gctx, e.fs, p.local, true, chunk)
		return err
	})
	g.Go(func() (err error) {
		rem, err = RemotePartialDigest(gctx, e.client, p.url, chunk, p.meta.Length)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, remote.ErrRangeUnsupported) {
			return models.OutcomeInconclusive, err.Error(), nil
		}
		return models.OutcomeFailed, "", err
	}

	return digestOutcome(local, rem)
}

func (e *Engine) streamHash(ctx context.Context, p *pair) (models.Outcome, string, error) {
	partial := e.cfg.Hashing.PreferPartial
	chunk := e.cfg.Hashing.PartialChunkSize

	var local, rem Digest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		local, err = SmartDigest(gctx, e.fs, p.local, e.cfg)
		return err
	})
	g.Go(func() (err error) {
		rem, err = RemoteStreamDigest(gctx, e.client, p.url, partial, chunk)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.OutcomeFailed, "", err
	}

	return digestOutcome(local, rem)
}

func digestOutcome(local, rem Digest) (models.Outcome, string, error) {
	if local != rem {
		return models.OutcomeFailed, "", &xerrors.Error{
			Kind:     xerrors.KindDigestMismatch,
			Expected: local.String(),
			Actual:   rem.String(),
		}
	}
	return models.OutcomeConfirmed, "sha256 " + local.String(), nil
}

func (e *Engine) downloadBuffer(ctx context.Context, p *pair) (models.Outcome, string, error) {
	var outcome models.Outcome
	var detail string
	err := e.withArtifact(ctx, p, func(path string) error {
		comparator := NewBinaryComparator(e.fs, e.cfg.Hashing.StreamChunkSize)
		if err := comparator.Compare(ctx, p.local, path); err != nil {
			var xe *xerrors.Error
			if errors.As(err, &xe) {
				// Report the URL rather than the temporary path
				xe.Remote = p.url
			}
			return err
		}
		outcome, detail = models.OutcomeConfirmed, "downloaded content identical"
		return nil
	})
	if err != nil {
		return models.OutcomeFailed, "", err
	}
	return outcome, detail, nil
}

func (e *Engine) downloadHash(ctx context.Context, p *pair) (models.Outcome, string, error) {
	var outcome models.Outcome
	var detail string
	err := e.withArtifact(ctx, p, func(path string) error {
		var local, downloaded Digest
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			local, err = SmartDigest(gctx, e.fs, p.local, e.cfg)
			return err
		})
		g.Go(func() (err error) {
			downloaded, err = SmartDigest(gctx, e.fs, path, e.cfg)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		var err error
		outcome, detail, err = digestOutcome(local, downloaded)
		return err
	})
	if err != nil {
		return models.OutcomeFailed, "", err
	}
	return outcome, detail, nil
}

// withArtifact downloads the remote body into a temporary artifact, runs fn
// on its path and always releases the artifact. A release failure is logged
// and never replaces the result of fn.
func (e *Engine) withArtifact(ctx context.Context, p *pair, fn func(path string) error) error {
	artifact, err := e.fs.CreateArtifact(ctx, e.cfg.TempDir, platform.ParseResource(p.url).BaseName())
	if err != nil {
		return err
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			e.logger.Warn(ctx, "failed to release temporary artifact", logging.Fields{
				"path":  artifact.Path(),
				"error": err.Error(),
			})
		}
	}()

	if _, err := e.client.Download(ctx, p.url, artifact); err != nil {
		return err
	}
	if err := artifact.Sync(); err != nil {
		return err
	}

	e.logger.Debug(ctx, "downloaded remote body", logging.Fields{"url": p.url, "path": artifact.Path()})
	return fn(artifact.Path())
}
