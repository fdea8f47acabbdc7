// Package preprocess - letterboxing and tensor conversion for detection models.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// LetterboxGray is the neutral fill used to pad letterboxed images.
var LetterboxGray = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// ModelConfig defines preprocessing configuration for a specific model.
type ModelConfig struct {
	// Name of the model for debugging purposes.
	Name string
	// InputWidth is the expected width of the model input.
	InputWidth int
	// InputHeight is the expected height of the model input.
	InputHeight int
	// NormalizationType defines how to normalize pixel values.
	NormalizationType NormalizationType
	// ChannelOrder defines the channel ordering (CHW or HWC).
	ChannelOrder ChannelOrder
	// ColorMode defines the channel order within a pixel (RGB or BGR).
	ColorMode ColorMode
	// KeepAspectRatio if true, maintains aspect ratio with letterboxing.
	KeepAspectRatio bool
	// LetterboxColor is the color used for letterbox padding (default LetterboxGray).
	LetterboxColor color.Color
	// Interpolation is the resampling filter used when scaling.
	Interpolation resize.InterpolationFunction
}

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
)

// ChannelOrder defines the ordering of image channels.
type ChannelOrder int

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW ChannelOrder = iota
	// ChannelOrderHWC is Height-Width-Channel ordering.
	ChannelOrderHWC
)

// ColorMode defines the color space of the image.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
)

// LetterboxInfo records how a source image was placed on the model canvas so the
// transform can be inverted later.
type LetterboxInfo struct {
	// SourceWidth and SourceHeight are the original image dimensions.
	SourceWidth  int `json:"source_width"  yaml:"source_width"`
	SourceHeight int `json:"source_height" yaml:"source_height"`
	// Width and Height are the canvas (model input) dimensions.
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
	// ScaleX and ScaleY map source pixels to canvas pixels.
	ScaleX float64 `json:"scale_x" yaml:"scale_x"`
	ScaleY float64 `json:"scale_y" yaml:"scale_y"`
	// PadX and PadY are the offsets of the scaled content on the canvas.
	PadX int `json:"pad_x" yaml:"pad_x"`
	PadY int `json:"pad_y" yaml:"pad_y"`
}

// ContentRect returns the region of the canvas covered by the scaled source image.
func (l LetterboxInfo) ContentRect() image.Rectangle {
	w := int(float64(l.SourceWidth)*l.ScaleX + 0.5)
	h := int(float64(l.SourceHeight)*l.ScaleY + 0.5)
	return image.Rect(l.PadX, l.PadY, l.PadX+w, l.PadY+h)
}

// PreprocessingResult contains the preprocessed image data and metadata.
type PreprocessingResult struct {
	// Data is the preprocessed float32 tensor data.
	Data []float32
	// Shape is the tensor shape including the batch dimension, [1, C, H, W] or [1, H, W, C].
	Shape []int64
	// Letterbox describes the geometric transform that was applied.
	Letterbox LetterboxInfo
	// Canvas is the resized (and padded) image the tensor was built from.
	Canvas *image.RGBA
}

// Preprocessor handles image preprocessing for detection models.
type Preprocessor struct {
	config *ModelConfig
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The model-specific preprocessing configuration.
//
// Returns:
//   - A configured Preprocessor instance.
//
// @example
//
//	preprocessor := NewPreprocessor(GetYOLOv4Config(416))
func NewPreprocessor(config *ModelConfig) *Preprocessor {
	if config.LetterboxColor == nil {
		config.LetterboxColor = LetterboxGray
	}
	return &Preprocessor{config: config}
}

// Config returns the configuration the preprocessor was built with.
func (p *Preprocessor) Config() ModelConfig {
	return *p.config
}

// Letterbox resizes img into a width x height canvas without distorting it.
//
// The image is scaled by min(width/iw, height/ih) and pasted in the center of a canvas
// filled with fill; the shorter dimension is padded evenly on both sides.
//
// Arguments:
//   - img: The source image.
//   - width, height: The canvas dimensions.
//   - fill: The padding color.
//   - interp: The resampling filter.
//
// Returns:
//   - *image.RGBA: The canvas, exactly width x height.
//   - LetterboxInfo: The scale and offset needed to invert the transform.
//   - error: If the source or target is empty.
func Letterbox(
	img image.Image,
	width, height int,
	fill color.Color,
	interp resize.InterpolationFunction,
) (*image.RGBA, LetterboxInfo, error) {
	if img == nil {
		return nil, LetterboxInfo{}, errors.New("image is nil")
	}
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, LetterboxInfo{}, errors.Errorf("invalid image dimensions: %dx%d", srcW, srcH)
	}
	if width <= 0 || height <= 0 {
		return nil, LetterboxInfo{}, errors.Errorf("invalid target dimensions: %dx%d", width, height)
	}

	scale := min(float64(width)/float64(srcW), float64(height)/float64(srcH))
	newW := max(1, min(width, int(float64(srcW)*scale)))
	newH := max(1, min(height, int(float64(srcH)*scale)))

	padX := (width - newW) / 2
	padY := (height - newH) / 2

	resized := resize.Resize(uint(newW), uint(newH), img, interp)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{fill}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(padX, padY, padX+newW, padY+newH), resized, resized.Bounds().Min, draw.Src)

	return canvas, LetterboxInfo{
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Width:        width,
		Height:       height,
		ScaleX:       float64(newW) / float64(srcW),
		ScaleY:       float64(newH) / float64(srcH),
		PadX:         padX,
		PadY:         padY,
	}, nil
}

// Stretch resizes img to exactly width x height, ignoring aspect ratio.
func Stretch(
	img image.Image,
	width, height int,
	interp resize.InterpolationFunction,
) (*image.RGBA, LetterboxInfo, error) {
	if img == nil {
		return nil, LetterboxInfo{}, errors.New("image is nil")
	}
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, LetterboxInfo{}, errors.Errorf("invalid image dimensions: %dx%d", srcW, srcH)
	}
	if width <= 0 || height <= 0 {
		return nil, LetterboxInfo{}, errors.Errorf("invalid target dimensions: %dx%d", width, height)
	}

	resized := resize.Resize(uint(width), uint(height), img, interp)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), resized, resized.Bounds().Min, draw.Src)

	return canvas, LetterboxInfo{
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Width:        width,
		Height:       height,
		ScaleX:       float64(width) / float64(srcW),
		ScaleY:       float64(height) / float64(srcH),
	}, nil
}

// Preprocess letterboxes img and converts it into the model's input tensor.
//
// Arguments:
//   - img: The input image to preprocess.
//
// Returns:
//   - PreprocessingResult containing the preprocessed tensor and metadata.
//   - error if preprocessing fails.
//
// @example
//
//	result, err := preprocessor.Preprocess(frame)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tensor := result.Data
func (p *Preprocessor) Preprocess(img image.Image) (*PreprocessingResult, error) {
	var (
		canvas *image.RGBA
		info   LetterboxInfo
		err    error
	)
	if p.config.KeepAspectRatio {
		canvas, info, err = Letterbox(img, p.config.InputWidth, p.config.InputHeight,
			p.config.LetterboxColor, p.config.Interpolation)
	} else {
		canvas, info, err = Stretch(img, p.config.InputWidth, p.config.InputHeight, p.config.Interpolation)
	}
	if err != nil {
		return nil, errors.Wrap(err, "resize failed")
	}

	tensor := p.imageToTensor(canvas)
	p.normalize(tensor)

	var shape []int64
	if p.config.ChannelOrder == ChannelOrderCHW {
		shape = []int64{1, 3, int64(p.config.InputHeight), int64(p.config.InputWidth)}
	} else {
		shape = []int64{1, int64(p.config.InputHeight), int64(p.config.InputWidth), 3}
	}

	return &PreprocessingResult{
		Data:      tensor,
		Shape:     shape,
		Letterbox: info,
		Canvas:    canvas,
	}, nil
}

// imageToTensor converts an RGBA canvas to a float32 tensor in the configured layout.
func (p *Preprocessor) imageToTensor(img *image.RGBA) []float32 {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	plane := width * height
	tensor := make([]float32, plane*3)

	idx := 0
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			r := float32(row[x*4])
			g := float32(row[x*4+1])
			b := float32(row[x*4+2])

			ch0, ch1, ch2 := r, g, b
			if p.config.ColorMode == ColorModeBGR {
				ch0, ch1, ch2 = b, g, r
			}

			if p.config.ChannelOrder == ChannelOrderCHW {
				i := y*width + x
				tensor[i] = ch0
				tensor[plane+i] = ch1
				tensor[2*plane+i] = ch2
			} else {
				tensor[idx] = ch0
				tensor[idx+1] = ch1
				tensor[idx+2] = ch2
				idx += 3
			}
		}
	}

	return tensor
}

// normalize applies normalization to the tensor in place.
func (p *Preprocessor) normalize(tensor []float32) {
	if p.config.NormalizationType == NormalizeZeroToOne {
		for i := range tensor {
			tensor[i] /= 255.0
		}
	}
}

// GetYOLOv4Config returns a standard configuration for YOLOv4 models.
//
// Arguments:
//   - inputSize: The input size (typically 416, 512, or 608).
//
// Returns:
//   - A configured ModelConfig for YOLOv4.
//
// @example
// config := GetYOLOv4Config(416)
// preprocessor := NewPreprocessor(config)
func GetYOLOv4Config(inputSize int) *ModelConfig {
	return &ModelConfig{
		Name:              "yolov4",
		InputWidth:        inputSize,
		InputHeight:       inputSize,
		NormalizationType: NormalizeZeroToOne,
		ChannelOrder:      ChannelOrderCHW,
		ColorMode:         ColorModeRGB,
		KeepAspectRatio:   true,
		LetterboxColor:    LetterboxGray,
		Interpolation:     resize.Bicubic,
	}
}
