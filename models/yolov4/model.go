// Package yolov4 - YOLOv4 model.
package yolov4

import (
	"image"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/model/preprocess"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
)

// Strides are the downsampling factors of the three heads, coarsest first.
var Strides = []int{32, 16, 8}

// Default graph tensor names of a YOLOv4 ONNX export.
var (
	DefaultInputs  = []string{"input"}
	DefaultOutputs = []string{"output_32", "output_16", "output_8"}
)

// Options is the options for the YOLOv4 model.
type Options struct {
	Name        model.Name             `json:"name" yaml:"name"`
	Family      model.Family           `json:"family" yaml:"family"`
	Path        string                 `json:"path" yaml:"path"`
	NMS         *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Inputs      []string               `json:"inputs" yaml:"inputs"`
	Outputs     []string               `json:"outputs" yaml:"outputs"`
	InputWidth  int                    `json:"input_width" yaml:"input_width"`
	InputHeight int                    `json:"input_height" yaml:"input_height"`
	NumClasses  int                    `json:"num_classes" yaml:"num_classes"`
	Anchors     Anchors                `json:"anchors" yaml:"anchors"`
}

// YOLOv4 is the instance of the YOLOv4 model.
type YOLOv4 struct {
	options      Options
	preprocessor *preprocess.Preprocessor
}

// Options returns the options for the YOLOv4 model.
//
// Returns:
//   - The options for the YOLOv4 model.
func (m *YOLOv4) Options() model.BaseModel {
	return model.BaseModel{
		Name:         m.options.Name,
		Family:       m.options.Family,
		Path:         m.options.Path,
		InputWidth:   m.options.InputWidth,
		InputHeight:  m.options.InputHeight,
		NumClasses:   m.options.NumClasses,
		Inputs:       m.options.Inputs,
		Outputs:      m.options.Outputs,
		OutputShapes: m.OutputShapes(),
	}
}

// Anchors returns the anchor groups, coarsest scale first.
func (m *YOLOv4) Anchors() Anchors {
	return m.options.Anchors
}

// OutputShapes returns the expected shape of each head, [1, A*(5+C), H/s, W/s].
func (m *YOLOv4) OutputShapes() [][]int64 {
	shapes := make([][]int64, len(m.options.Anchors))
	channels := int64(m.options.Anchors.PerScale() * (5 + m.options.NumClasses))
	for i := range shapes {
		stride := Strides[min(i, len(Strides)-1)]
		shapes[i] = []int64{
			1,
			channels,
			int64(m.options.InputHeight / stride),
			int64(m.options.InputWidth / stride),
		}
	}
	return shapes
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
func NewModel(args model.NewModelArgs) (*YOLOv4, error) {
	if args.InputWidth <= 0 || args.InputHeight <= 0 {
		return nil, errors.Errorf("NewModel requires a positive input size, got %dx%d", args.InputWidth, args.InputHeight)
	}
	if args.InputWidth%32 != 0 || args.InputHeight%32 != 0 {
		return nil, errors.Errorf("input size %dx%d must be a multiple of 32", args.InputWidth, args.InputHeight)
	}
	if args.NumClasses <= 0 {
		return nil, errors.New("NewModel requires at least one class")
	}

	anchors := Anchors(args.Anchors)
	if len(anchors) == 0 {
		anchors = DefaultAnchors()
	}
	if len(anchors) != NumScales {
		return nil, errors.Errorf("NewModel requires %d anchor groups, got %d", NumScales, len(anchors))
	}
	for _, group := range anchors {
		if len(group) == 0 || len(group) != anchors.PerScale() {
			return nil, errors.New("every anchor group must have the same, non-zero size")
		}
	}

	nms := postprocess.DefaultNMSConfig()
	if args.NMS != nil {
		copied := *args.NMS
		nms = &copied
	}
	nms.NumClasses = args.NumClasses

	inputs := args.Inputs
	if len(inputs) == 0 {
		inputs = DefaultInputs
	}
	outputs := args.Outputs
	if len(outputs) == 0 {
		outputs = DefaultOutputs
	}

	config := preprocess.GetYOLOv4Config(args.InputWidth)
	config.InputHeight = args.InputHeight

	return &YOLOv4{
		options: Options{
			Name:        model.ModelNameYOLOv4,
			Family:      model.ModelFamilyYOLO,
			Path:        args.Path,
			NMS:         nms,
			Inputs:      inputs,
			Outputs:     outputs,
			InputWidth:  args.InputWidth,
			InputHeight: args.InputHeight,
			NumClasses:  args.NumClasses,
			Anchors:     anchors,
		},
		preprocessor: preprocess.NewPreprocessor(config),
	}, nil
}

// PreProcess letterboxes img into the network input tensor.
func (m *YOLOv4) PreProcess(img image.Image) (*preprocess.PreprocessingResult, error) {
	return m.preprocessor.Preprocess(img)
}
