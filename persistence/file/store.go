package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/flarexio/kdvector/persistence"
)

// NewFileStore keeps the snapshot in a single file. Saves go to a temporary
// file in the same directory which then replaces the snapshot by rename, so a
// crash mid-save leaves the previous snapshot intact.
func NewFileStore(cfg persistence.Config) (persistence.Store, error) {
	switch cfg.Compression {
	case "":
		cfg.Compression = persistence.CompressionNone

	case persistence.CompressionNone, persistence.CompressionZstd, persistence.CompressionLZ4:

	default:
		return nil, persistence.ErrUnsupportedCompression
	}

	return &store{
		path:        cfg.Path,
		compression: cfg.Compression,
	}, nil
}

type store struct {
	path        string
	compression persistence.Compression
}

func (s *store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *store) Save(ctx context.Context, src persistence.Persister) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}

	tmp := f.Name()

	if err := s.write(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

func (s *store) write(w io.Writer, src persistence.Persister) error {
	switch s.compression {
	case persistence.CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}

		if err := src.Persist(enc); err != nil {
			enc.Close()
			return err
		}

		return enc.Close()

	case persistence.CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := src.Persist(zw); err != nil {
			zw.Close()
			return err
		}

		return zw.Close()

	default:
		return src.Persist(w)
	}
}

func (s *store) Load(ctx context.Context, dst persistence.Restorer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistence.ErrSnapshotNotFound
		}

		return err
	}
	defer f.Close()

	switch s.compression {
	case persistence.CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer dec.Close()

		return dst.Restore(dec)

	case persistence.CompressionLZ4:
		return dst.Restore(lz4.NewReader(f))

	default:
		return dst.Restore(f)
	}
}
