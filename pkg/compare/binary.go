package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// divergence describes where two byte sources stop agreeing
type divergence struct {
	// Offset is the first differing byte, or where the shorter source ended
	Offset int64
	// Length is set when one source ended before the other
	Length bool
	// Shorter is 0 or 1, the index of the source that ended first
	Shorter int
}

// sideError identifies which source failed to read
type sideError struct {
	side int
	err  error
}

func (e *sideError) Error() string { return e.err.Error() }
func (e *sideError) Unwrap() error { return e.err }

// diffReaders advances both readers in lockstep, one chunk per side per
// step, reading the two chunks concurrently. It stops at the first chunk
// that differs. A nil divergence means the sources are identical.
func diffReaders(ctx context.Context, a, b io.Reader, bufA, bufB []byte) (*divergence, error) {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var na, nb int
		var g errgroup.Group
		g.Go(func() error {
			var err error
			na, err = readChunk(a, bufA)
			return sideErr(0, err)
		})
		g.Go(func() error {
			var err error
			nb, err = readChunk(b, bufB)
			return sideErr(1, err)
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		common := min(na, nb)
		if i := firstDifference(bufA[:common], bufB[:common]); i >= 0 {
			return &divergence{Offset: offset + int64(i)}, nil
		}
		if na != nb {
			shorter := 0
			if nb < na {
				shorter = 1
			}
			return &divergence{Offset: offset + int64(common), Length: true, Shorter: shorter}, nil
		}
		offset += int64(na)

		// A short chunk on both sides means both are exhausted
		if na < len(bufA) {
			return nil, nil
		}
	}
}

func sideErr(side int, err error) error {
	if err == nil {
		return nil
	}
	return &sideError{side: side, err: err}
}

// readChunk fills buf unless the reader is exhausted first
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}

func firstDifference(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}

// BinaryComparator compares files byte by byte in fixed-size chunks
type BinaryComparator struct {
	fs         storage.Backend
	bufferSize int
	bufferPool *sync.Pool
}

// NewBinaryComparator creates a new byte-by-byte comparator
func NewBinaryComparator(fs storage.Backend, bufferSize int) *BinaryComparator {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &BinaryComparator{
		fs:         fs,
		bufferSize: bufferSize,
		bufferPool: newBufferPool(bufferSize),
	}
}

// Compare reports the first differing byte offset as a ContentMismatch
func (c *BinaryComparator) Compare(ctx context.Context, a, b string) error {
	fileA, err := c.fs.Open(ctx, a)
	if err != nil {
		return err
	}
	defer fileA.Close()

	fileB, err := c.fs.Open(ctx, b)
	if err != nil {
		return err
	}
	defer fileB.Close()

	bufA := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufA)
	bufB := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufB)

	div, err := diffReaders(ctx, fileA, fileB, *bufA, *bufB)
	if err != nil {
		return fmt.Errorf("failed to compare files: %w", err)
	}
	if div == nil {
		return nil
	}

	return &xerrors.Error{
		Kind:    xerrors.KindContentMismatch,
		Variant: xerrors.VariantBinary,
		Local:   a,
		Remote:  b,
		Detail:  describe(div, [2]string{a, b}),
	}
}

// Name returns the comparator name
func (c *BinaryComparator) Name() string {
	return "binary"
}

// describe renders div; names label the two sources in diffReaders order
func describe(div *divergence, names [2]string) string {
	if !div.Length {
		return fmt.Sprintf("first difference at byte offset %d", div.Offset)
	}
	return fmt.Sprintf("%s ended at byte %d", names[div.Shorter], div.Offset)
}
