package compare

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// TextComparator compares files as decoded text
type TextComparator struct {
	fs storage.Backend
}

// NewTextComparator creates a text comparator
func NewTextComparator(fs storage.Backend) *TextComparator {
	return &TextComparator{fs: fs}
}

// Compare reads both files and reports the first differing line
func (c *TextComparator) Compare(ctx context.Context, a, b string) error {
	var dataA, dataB []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dataA, err = c.fs.ReadFile(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		dataB, err = c.fs.ReadFile(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	textA, textB := string(dataA), string(dataB)
	if textA == textB {
		return nil
	}

	return &xerrors.Error{
		Kind:    xerrors.KindContentMismatch,
		Variant: xerrors.VariantText,
		Local:   a,
		Remote:  b,
		Detail:  fmt.Sprintf("first difference on line %d", firstDifferentLine(dataA, dataB)),
	}
}

// Name returns the comparator name
func (c *TextComparator) Name() string {
	return "text"
}

// firstDifferentLine returns the 1-based line number of the first difference
func firstDifferentLine(a, b []byte) int {
	i := firstDifference(a[:min(len(a), len(b))], b[:min(len(a), len(b))])
	if i < 0 {
		i = min(len(a), len(b))
	}
	return bytes.Count(a[:i], []byte("\n")) + 1
}
