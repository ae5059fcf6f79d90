package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Local is a go-billy backed storage backend
type Local struct {
	fs billy.Filesystem
	// hostPaths resolves relative paths against the working directory
	hostPaths bool
}

// NewLocal creates a backend over the host filesystem
func NewLocal() *Local {
	return &Local{
		fs:        osfs.New(string(filepath.Separator)),
		hostPaths: true,
	}
}

// NewMemory creates a backend over an in-memory filesystem
func NewMemory() *Local {
	return NewWithFilesystem(memfs.New())
}

// NewWithFilesystem wraps an arbitrary billy filesystem
func NewWithFilesystem(fs billy.Filesystem) *Local {
	return &Local{fs: fs}
}

// Filesystem returns the underlying billy filesystem
func (l *Local) Filesystem() billy.Filesystem {
	return l.fs
}

func (l *Local) resolve(path string) (string, error) {
	if !l.hostPaths {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &FileInfo{
		Path:        full,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		Permissions: uint32(info.Mode().Perm()),
	}, nil
}

// Open opens a file for reading
func (l *Local) Open(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := l.fs.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ReadFile reads the whole file
func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := util.ReadFile(l.fs, full)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes a file. A missing file is not an error.
func (l *Local) Delete(ctx context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := l.fs.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := l.fs.MkdirAll(full, perm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
