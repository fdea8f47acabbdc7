package images

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultBoxMargin is how far each drawn box is grown beyond the detected box, in pixels.
const DefaultBoxMargin = 5

var labelFont *truetype.Font

// init sets up the font used for labels.
func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Label is a single box to draw along with its class index and caption.
type Label struct {
	// Box is in the pixel coordinates of the image being drawn on.
	Box Rect
	// Class selects the palette color.
	Class int
	// Text is the caption drawn above the box.
	Text string
}

// DrawOptions controls how labels are rendered.
type DrawOptions struct {
	// Palette maps class index to color; see ClassPalette.
	Palette []color.RGBA
	// InputWidth is the network input width; stroke thickness is (w+h)/InputWidth.
	InputWidth int
	// Margin grows every box on each side. Zero means DefaultBoxMargin; negative disables.
	Margin int
	// FontSize overrides the size derived from the image width when positive.
	FontSize float64
}

// ClassPalette spreads numClasses hues evenly around the HSV wheel at full saturation and
// value, so the same class always gets the same color.
//
// Arguments:
//   - numClasses: The number of classes to generate colors for.
//
// Returns:
//   - []color.RGBA: One opaque color per class index.
func ClassPalette(numClasses int) []color.RGBA {
	if numClasses <= 0 {
		return nil
	}
	colors := make([]color.RGBA, numClasses)
	for k := range colors {
		c := colorful.Hsv(360*float64(k)/float64(numClasses), 1, 1)
		colors[k] = color.RGBA{
			R: uint8(c.R * 255),
			G: uint8(c.G * 255),
			B: uint8(c.B * 255),
			A: 255,
		}
	}
	return colors
}

// FormatLabel returns the caption used for a detection, e.g. "dog 0.87".
func FormatLabel(name string, score float32) string {
	return fmt.Sprintf("%s %.2f", name, score)
}

// StrokeThickness returns the box outline thickness for an image of the given size.
func StrokeThickness(width, height, inputWidth int) int {
	if inputWidth <= 0 {
		return 1
	}
	return max(1, (width+height)/inputWidth)
}

// LabelFontSize returns the caption font size for an image of the given width.
func LabelFontSize(width int) float64 {
	return math.Max(1, math.Floor(3e-2*float64(width)+0.5))
}

// DrawDetections renders labeled boxes onto a copy of img.
//
// Each box is outlined with a stroke of StrokeThickness pixels in its class color. The
// caption sits on a filled background of the same color, above the box when there is
// room and just inside its top edge otherwise. The source image is never modified.
//
// Arguments:
//   - img: The image to annotate.
//   - labels: The boxes to draw, in img pixel coordinates.
//   - opts: Rendering options.
//
// Returns:
//   - *image.RGBA: The annotated copy.
func DrawDetections(img image.Image, labels []Label, opts DrawOptions) *image.RGBA {
	canvas := CloneRGBA(img)
	if len(labels) == 0 {
		return canvas
	}

	width := canvas.Bounds().Dx()
	height := canvas.Bounds().Dy()

	margin := opts.Margin
	if margin == 0 {
		margin = DefaultBoxMargin
	} else if margin < 0 {
		margin = 0
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = LabelFontSize(width)
	}

	thickness := StrokeThickness(width, height, opts.InputWidth)

	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: fontSize}))

	for _, l := range labels {
		c := classColor(opts.Palette, l.Class)

		top := math.Max(0, math.Floor(float64(l.Box.Y1)-float64(margin)+0.5))
		left := math.Max(0, math.Floor(float64(l.Box.X1)-float64(margin)+0.5))
		bottom := math.Min(float64(height), math.Floor(float64(l.Box.Y2)+float64(margin)+0.5))
		right := math.Min(float64(width), math.Floor(float64(l.Box.X2)+float64(margin)+0.5))
		if right <= left || bottom <= top {
			continue
		}

		dc.SetColor(c)
		drawFrame(dc, left, top, right, bottom, float64(thickness))

		if l.Text == "" {
			continue
		}

		textW, textH := dc.MeasureString(l.Text)
		originY := top + 1
		if top-textH >= 0 {
			originY = top - textH
		}

		dc.SetColor(c)
		dc.DrawRectangle(left, originY, textW, textH)
		dc.Fill()

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(l.Text, left, originY, 0, 1)
	}

	return canvas
}

// drawFrame fills the four edges of a rectangle outline of the given thickness.
func drawFrame(dc *gg.Context, left, top, right, bottom, thickness float64) {
	w := right - left
	h := bottom - top
	t := math.Min(thickness, math.Min(w, h)/2)
	if t < 1 {
		t = 1
	}

	dc.DrawRectangle(left, top, w, t)
	dc.DrawRectangle(left, bottom-t, w, t)
	dc.DrawRectangle(left, top, t, h)
	dc.DrawRectangle(right-t, top, t, h)
	dc.Fill()
}

func classColor(palette []color.RGBA, class int) color.RGBA {
	if class < 0 || class >= len(palette) {
		return color.RGBA{R: 0, G: 255, B: 0, A: 255}
	}
	return palette[class]
}
