package compare

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// DigestComparator compares files by SmartDigest, computing both in parallel
type DigestComparator struct {
	fs  storage.Backend
	cfg *config.Config
}

// NewDigestComparator creates a digest comparator
func NewDigestComparator(fs storage.Backend, cfg *config.Config) *DigestComparator {
	return &DigestComparator{fs: fs, cfg: cfg}
}

// Compare reports differing digests as a ContentMismatch
func (c *DigestComparator) Compare(ctx context.Context, a, b string) error {
	var digestA, digestB Digest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		digestA, err = SmartDigest(gctx, c.fs, a, c.cfg)
		return err
	})
	g.Go(func() (err error) {
		digestB, err = SmartDigest(gctx, c.fs, b, c.cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if digestA == digestB {
		return nil
	}
	return &xerrors.Error{
		Kind:     xerrors.KindContentMismatch,
		Variant:  xerrors.VariantDigest,
		Local:    a,
		Remote:   b,
		Expected: digestA.String(),
		Actual:   digestB.String(),
	}
}

// Name returns the comparator name
func (c *DigestComparator) Name() string {
	if c.cfg.Hashing.PreferPartial {
		return "partial-digest"
	}
	return "digest"
}
