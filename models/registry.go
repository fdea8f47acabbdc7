package models

import (
	"fmt"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov4"
)

// NewModel creates a new detection model instance based on the specified model name.
//
// This factory function is the entry point for model creation, routing requests to the
// model-specific constructors behind the shared model.Model interface.
//
// Arguments:
//   - args: Configuration parameters specifying the model type, input size and classes.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if model creation fails or the model name is unsupported.
//
// Example:
//
// ```go
//
//	detectionModel, err := NewModel(model.NewModelArgs{
//	    Name:        model.ModelNameYOLOv4,
//	    Path:        "model_data/yolov4.onnx",
//	    InputWidth:  416,
//	    InputHeight: 416,
//	    NumClasses:  80,
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLOv4, "":
		m, err := yolov4.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
