package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
)

// Artifact is a temporary local copy of a remote body.
// It is owned by the caller that created it and must be released.
type Artifact struct {
	owner *Local
	file  billy.File
	path  string

	once       sync.Once
	releaseErr error
}

// ArtifactName derives a name unique across concurrent callers:
// nanosecond timestamp, random UUID, then the sanitized base name.
func ArtifactName(base string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString(), sanitizeBase(base))
}

func sanitizeBase(base string) string {
	base = filepath.Base(base)
	if base == "." || base == string(filepath.Separator) {
		return "remote"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '?' || r == '*' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, base)
	if base == "" {
		return "remote"
	}
	if len(base) > 128 {
		base = base[len(base)-128:]
	}
	return base
}

// CreateArtifact creates a uniquely named file under dir
func (l *Local) CreateArtifact(ctx context.Context, dir, base string) (*Artifact, error) {
	if err := l.MkdirAll(ctx, dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	full, err := l.resolve(dir)
	if err != nil {
		return nil, err
	}

	path := l.fs.Join(full, ArtifactName(base))
	file, err := l.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	return &Artifact{owner: l, file: file, path: path}, nil
}

// Path returns the artifact location on the backend
func (a *Artifact) Path() string {
	return a.path
}

// Write implements io.Writer
func (a *Artifact) Write(p []byte) (int, error) {
	return a.file.Write(p)
}

// Reset discards any content written so far
func (a *Artifact) Reset() error {
	if err := a.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate artifact: %w", err)
	}
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind artifact: %w", err)
	}
	return nil
}

// Sync closes the write handle so the content is visible to readers
func (a *Artifact) Sync() error {
	if err := a.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	return nil
}

// Release closes the artifact and deletes it from its backend. It is safe
// to call more than once.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		closeErr := a.file.Close()
		if closeErr != nil && errors.Is(closeErr, os.ErrClosed) {
			closeErr = nil
		}
		if err := a.owner.Delete(context.Background(), a.path); err != nil {
			a.releaseErr = fmt.Errorf("failed to remove artifact %s: %w", a.path, err)
		} else if closeErr != nil {
			a.releaseErr = fmt.Errorf("failed to close artifact %s: %w", a.path, closeErr)
		}
	})
	return a.releaseErr
}
