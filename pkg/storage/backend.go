package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a local file
type FileInfo struct {
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	Permissions uint32
}

// File is an open local file supporting sequential and ranged reads
type File interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Name() string
}

// Backend defines the filesystem operations the comparators need
type Backend interface {
	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Open opens a file for sequential and ranged reads
	Open(ctx context.Context, path string) (File, error)

	// ReadFile reads a whole file into memory
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// CreateArtifact creates a uniquely named temporary file in dir. The
	// artifact removes itself from the backend on Release.
	CreateArtifact(ctx context.Context, dir, base string) (*Artifact, error)
}
