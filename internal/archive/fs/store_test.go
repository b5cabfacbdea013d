package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/endotrace/endotrace/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, archive.DriverFilesystem, s.Driver())

	t.Run("Put then Get", func(t *testing.T) {
		info, err := s.Put(ctx, "inventory/2025/a.pdf", strings.NewReader("%PDF-1.3"), archive.PutOptions{
			ContentType: "application/pdf",
			Metadata:    map[string]string{"generated_by": "bob"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(8), info.Size)

		got, rc, err := s.Get(ctx, "inventory/2025/a.pdf")
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.3", string(body))
		assert.Equal(t, "application/pdf", got.ContentType)
		assert.Equal(t, "bob", got.Metadata["generated_by"])
	})

	t.Run("Put refuses to overwrite", func(t *testing.T) {
		_, err := s.Put(ctx, "inventory/2025/a.pdf", strings.NewReader("x"), archive.PutOptions{})
		assert.Error(t, err)
	})

	t.Run("Get missing key", func(t *testing.T) {
		_, _, err := s.Get(ctx, "inventory/missing.pdf")
		assert.ErrorIs(t, err, archive.ErrNotFound)
	})

	t.Run("Invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "   ", "../escape.pdf", "/abs.pdf", "a.pdf.meta", "inventory/"} {
			_, err := s.Put(ctx, key, strings.NewReader("x"), archive.PutOptions{})
			assert.ErrorIs(t, err, archive.ErrInvalidKey, key)

			_, _, err = s.Get(ctx, key)
			assert.ErrorIs(t, err, archive.ErrInvalidKey, key)
		}
	})

	t.Run("Directories are not documents", func(t *testing.T) {
		_, _, err := s.Get(ctx, "inventory/2025")
		assert.ErrorIs(t, err, archive.ErrNotFound)

		existed, err := s.Delete(ctx, "inventory/2025")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("List filters by prefix", func(t *testing.T) {
		_, err := s.Put(ctx, "sterilisation/b.pdf", strings.NewReader("b"), archive.PutOptions{})
		require.NoError(t, err)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		inv, err := s.List(ctx, "inventory/")
		require.NoError(t, err)
		require.Len(t, inv, 1)
		assert.Equal(t, "inventory/2025/a.pdf", inv[0].Key)
	})

	t.Run("Delete", func(t *testing.T) {
		existed, err := s.Delete(ctx, "sterilisation/b.pdf")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = s.Delete(ctx, "sterilisation/b.pdf")
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := New(root)
	require.NoError(t, err)

	st, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	_, err = New("")
	assert.Error(t, err)
}
