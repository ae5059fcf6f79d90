package compare

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/models"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// LocalComparator picks the comparator for a local pair. With the auto
// method the first path's extension decides between text and binary.
func LocalComparator(fs storage.Backend, path string, cfg *config.Config) Comparator {
	if cfg.LocalMethod == models.LocalDigest {
		return NewDigestComparator(fs, cfg)
	}
	if ClassifyPath(path) == KindText {
		return NewTextComparator(fs)
	}
	return NewBinaryComparator(fs, cfg.Hashing.StreamChunkSize)
}

// CompareLocal compares two local files. Differing sizes fail with a
// SizeMismatch before any content is read. It returns the comparator name.
func CompareLocal(ctx context.Context, fs storage.Backend, a, b string, cfg *config.Config) (string, error) {
	infoA, err := fs.Stat(ctx, a)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", a, err)
	}
	infoB, err := fs.Stat(ctx, b)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", b, err)
	}
	if infoA.IsDir || infoB.IsDir {
		return "", xerrors.E(xerrors.KindConfiguration, "directories cannot be compared")
	}

	if infoA.Size != infoB.Size {
		return "size", &xerrors.Error{
			Kind:     xerrors.KindSizeMismatch,
			Local:    a,
			Remote:   b,
			Expected: strconv.FormatInt(infoA.Size, 10),
			Actual:   strconv.FormatInt(infoB.Size, 10),
		}
	}

	comparator := LocalComparator(fs, a, cfg)
	return comparator.Name(), comparator.Compare(ctx, a, b)
}
