package storage

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	t.Run("Save And Get", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "a/b/file.txt", strings.NewReader("hello")))

		f, err := s.Get(ctx, "a/b/file.txt")
		require.NoError(t, err)
		defer f.Close()
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))
	})

	t.Run("Save Overwrites Without Leftovers", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "over.txt", strings.NewReader("first")))
		require.NoError(t, s.Save(ctx, "over.txt", strings.NewReader("second")))

		b, err := os.ReadFile(filepath.Join(dir, "over.txt"))
		require.NoError(t, err)
		assert.Equal(t, "second", string(b))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file %s left behind", e.Name())
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := s.Get(ctx, "nope.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Rejects Traversal", func(t *testing.T) {
		err := s.Save(ctx, "../escape.txt", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath)
		_, err = s.Get(ctx, "a/../../escape.txt")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "gone.txt", strings.NewReader("x")))
		require.NoError(t, s.Delete(ctx, "gone.txt"))
		require.NoError(t, s.Delete(ctx, "gone.txt"), "deleting twice is not an error")
		_, err := s.Get(ctx, "gone.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestImageProcessor_FramePNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	p := NewImageProcessor()

	t.Run("Frames On White Canvas", func(t *testing.T) {
		r, err := p.FramePNG(src, 100, 10)
		require.NoError(t, err)
		img, err := png.Decode(r)
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
		cr, _, _, _ := img.At(2, 2).RGBA()
		assert.Equal(t, uint32(0xffff), cr, "margin is white")
		mr, _, _, _ := img.At(50, 50).RGBA()
		assert.Equal(t, uint32(0), mr, "content is preserved")
	})

	t.Run("Margin Too Large", func(t *testing.T) {
		_, err := p.FramePNG(src, 20, 10)
		assert.Error(t, err)
	})
}
