// Package model - Definitions shared by every detection model.
package model

import (
	"image"

	"github.com/nvr-ai/go-yolo/models/model/preprocess"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO Family = "coco"
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
	// ModelFamilyVOC is the Pascal VOC model family.
	ModelFamilyVOC Family = "voc"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv4 is the name of the YOLOv4 model.
	ModelNameYOLOv4 Name = "yolov4"
)

// Anchor is a reference box shape, in input pixels, that a detection head predicts
// offsets against.
type Anchor struct {
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Tensor is a raw network output.
type Tensor struct {
	// Shape is the tensor shape, e.g. [1, 255, 13, 13].
	Shape []int
	// Data is the row-major tensor data.
	Data []float32
}

// BaseModel describes the inputs and outputs of a model.
type BaseModel struct {
	Name        Name
	Family      Family
	Path        string
	InputWidth  int
	InputHeight int
	NumClasses  int
	// Inputs and Outputs are the graph tensor names.
	Inputs  []string
	Outputs []string
	// OutputShapes is the expected shape of each output, in the order of Outputs.
	OutputShapes [][]int64
}

// Model converts images into network inputs and network outputs into detections.
type Model interface {
	Options() BaseModel
	PreProcess(img image.Image) (*preprocess.PreprocessingResult, error)
	PostProcess(outputs []Tensor, letterbox preprocess.LetterboxInfo) ([]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name        Name                   `json:"name" yaml:"name"`
	Path        string                 `json:"path" yaml:"path"`
	NMS         *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Family      Family                 `json:"family" yaml:"family"`
	Inputs      []string               `json:"inputs" yaml:"inputs"`
	Outputs     []string               `json:"outputs" yaml:"outputs"`
	InputWidth  int                    `json:"input_width" yaml:"input_width"`
	InputHeight int                    `json:"input_height" yaml:"input_height"`
	NumClasses  int                    `json:"num_classes" yaml:"num_classes"`
	// Anchors holds one group of anchors per output scale, coarsest scale first.
	Anchors [][]Anchor `json:"anchors" yaml:"anchors"`
}
