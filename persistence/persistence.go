package persistence

import (
	"context"
	"errors"
	"io"
)

var (
	ErrSnapshotNotFound       = errors.New("snapshot not found")
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

type Config struct {
	Enabled     bool        `yaml:"enabled"`
	Path        string      `yaml:"path"`
	Compression Compression `yaml:"compression"`
}

type Persister interface {
	Persist(w io.Writer) error
}

type Restorer interface {
	Restore(r io.Reader) error
}

// Store keeps the latest snapshot of an index.
type Store interface {
	Save(ctx context.Context, src Persister) error
	Load(ctx context.Context, dst Restorer) error
	Exists() bool
}
