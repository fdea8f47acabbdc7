package util

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLoadDirectoryImageFilesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.jpg", "b.png", "a.PNG", "notes.txt", "frame-1.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o700))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"frame-1.webp", "frame-2.jpg", "frame-10.jpg", "a.PNG", "b.png"}, names)
	assert.Equal(t, 10, files[2].Frame)
	assert.Equal(t, -1, files[3].Frame)
}

func TestLoadDirectoryImageFilesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSaveAndReadImage(t *testing.T) {
	dir := t.TempDir()
	src := solid(8, 6, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	for _, name := range []string{"out.png", "out.webp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveImage(path, src))

			img, err := (ImageFile{Path: path}).Open()
			require.NoError(t, err)
			assert.Equal(t, 8, img.Bounds().Dx())
			assert.Equal(t, 6, img.Bounds().Dy())

			r, g, b, _ := img.At(4, 3).RGBA()
			assert.InDelta(t, 200, r>>8, 12)
			assert.InDelta(t, 10, g>>8, 12)
			assert.InDelta(t, 10, b>>8, 12)
		})
	}
}

func TestReadImageErrors(t *testing.T) {
	_, err := ReadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	_, err = ReadImage(bad)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("img", "street_detected.jpg"), OutputPath(filepath.Join("img", "street.jpg"), ""))
	assert.Equal(t, filepath.Join("out", "street_detected.png"), OutputPath("street.png", "out"))
}
