package compare

import (
	"context"
	"sync"
)

// Comparator checks two local files for equality. A nil error means the
// files are identical; a difference is reported as an *xerrors.Error.
type Comparator interface {
	// Compare compares the files at a and b
	Compare(ctx context.Context, a, b string) error

	// Name returns the name of the comparison method
	Name() string
}

const defaultBufferSize = 64 * 1024

func newBufferPool(size int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// readBuffers is shared by digest computations
var readBuffers = newBufferPool(defaultBufferSize)
