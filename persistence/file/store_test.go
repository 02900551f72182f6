package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarexio/kdvector/index"
	"github.com/flarexio/kdvector/persistence"
)

func TestFileStoreRoundTrip(t *testing.T) {
	compressions := []persistence.Compression{
		"",
		persistence.CompressionNone,
		persistence.CompressionZstd,
		persistence.CompressionLZ4,
	}

	for _, compression := range compressions {
		t.Run(string(compression), func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			path := filepath.Join(t.TempDir(), "snapshots", "index.bin")

			store, err := NewFileStore(persistence.Config{
				Enabled:     true,
				Path:        path,
				Compression: compression,
			})
			require.NoError(t, err)

			assert.False(store.Exists())

			idx := index.New(3)
			for i := 0; i < 50; i++ {
				f := float32(i)
				idx.Insert([]float32{f, -f, f * 0.5}, "chunk "+strconv.Itoa(i))
			}

			require.NoError(t, store.Save(ctx, idx))
			assert.True(store.Exists())

			restored := index.New(1)
			require.NoError(t, store.Load(ctx, restored))

			assert.Equal(idx.Size(), restored.Size())
			assert.Equal(idx.Query([]float32{3, -3, 1.5}, 4), restored.Query([]float32{3, -3, 1.5}, 4))

			meta, ok := restored.Metadata(49)
			assert.True(ok)
			assert.Equal("chunk 49", meta)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(entries, 1, "temporary files are cleaned up")
		})
	}
}

func TestFileStoreUncompressedMatchesIndexStream(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.bin")

	store, err := NewFileStore(persistence.Config{Path: path})
	require.NoError(t, err)

	idx := index.New(2)
	idx.Insert([]float32{1, 2}, "a")

	require.NoError(t, store.Save(ctx, idx))

	var want bytes.Buffer
	require.NoError(t, idx.Persist(&want))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), got)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(persistence.Config{
		Path: filepath.Join(t.TempDir(), "missing.bin"),
	})
	require.NoError(t, err)

	err = store.Load(context.Background(), index.New(2))
	assert.ErrorIs(t, err, persistence.ErrSnapshotNotFound)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	store, err := NewFileStore(persistence.Config{Path: path})
	require.NoError(t, err)

	idx := index.New(2)
	idx.Insert([]float32{1, 1}, "keep")

	err = store.Load(context.Background(), idx)
	assert.ErrorIs(err, index.ErrDeserialize)
	assert.Equal(1, idx.Size())
}

func TestUnsupportedCompression(t *testing.T) {
	_, err := NewFileStore(persistence.Config{Compression: "brotli"})
	assert.ErrorIs(t, err, persistence.ErrUnsupportedCompression)
}
