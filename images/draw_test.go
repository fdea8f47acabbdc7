package images

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func TestClassPalette(t *testing.T) {
	palette := ClassPalette(6)
	require.Len(t, palette, 6)

	// Hue 0 is pure red, hue 120 pure green, hue 240 pure blue.
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, palette[0])
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, palette[2])
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, palette[4])

	assert.Equal(t, palette, ClassPalette(6), "palette must be deterministic")
	assert.Nil(t, ClassPalette(0))
}

func TestStrokeThicknessAndFontSize(t *testing.T) {
	assert.Equal(t, 2, StrokeThickness(416, 416, 416))
	assert.Equal(t, 7, StrokeThickness(1920, 1080, 416))
	assert.Equal(t, 1, StrokeThickness(100, 100, 416))
	assert.Equal(t, 1, StrokeThickness(100, 100, 0))

	assert.Equal(t, 12.0, LabelFontSize(416))
	assert.Equal(t, 58.0, LabelFontSize(1920))
	assert.Equal(t, 1.0, LabelFontSize(10))
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "dog 0.87", FormatLabel("dog", 0.8712))
}

func TestDrawDetectionsLeavesSourceUntouched(t *testing.T) {
	src := solidImage(200, 160, color.RGBA{0, 0, 0, 255})
	before := ComputeImageChecksum(src)

	out := DrawDetections(src, []Label{{
		Box:   Rect{X1: 40, Y1: 50, X2: 120, Y2: 130},
		Class: 0,
		Text:  "person 0.91",
	}}, DrawOptions{Palette: ClassPalette(3), InputWidth: 416})

	require.NotNil(t, out)
	assert.Equal(t, before, ComputeImageChecksum(src), "source pixels must not change")
	assert.NotEqual(t, before, ComputeImageChecksum(out), "output should carry the drawing")
	assert.Equal(t, src.Bounds(), out.Bounds())

	// The grown box starts at (35, 45); its outline uses the class 0 color.
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(35, 90))
	// The interior of the box is untouched.
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(80, 90))
}

func TestDrawDetectionsWithoutLabelsCopies(t *testing.T) {
	src := solidImage(32, 32, color.RGBA{10, 20, 30, 255})

	out := DrawDetections(src, nil, DrawOptions{})

	assert.Equal(t, ComputeImageChecksum(src), ComputeImageChecksum(out))
	assert.NotSame(t, src, out)
}

func TestComputeImageChecksum(t *testing.T) {
	a := solidImage(8, 8, color.RGBA{1, 2, 3, 255})
	b := solidImage(8, 8, color.RGBA{1, 2, 3, 255})
	c := solidImage(8, 8, color.RGBA{3, 2, 1, 255})

	assert.Equal(t, ComputeImageChecksum(a), ComputeImageChecksum(b))
	assert.NotEqual(t, ComputeImageChecksum(a), ComputeImageChecksum(c))
	assert.Equal(t, "empty", ComputeImageChecksum(image.NewRGBA(image.Rectangle{})))
}
