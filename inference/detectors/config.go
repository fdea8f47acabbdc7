// Package detectors - YOLOv4 detector: model bundle loading, detection and rendering.
package detectors

import (
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
)

// Config represents the configuration of a Detector.
type Config struct {
	// ModelPath is the weights file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// ClassesPath is the class list file. Empty uses the 80 COCO classes.
	ClassesPath string `json:"classes_path" yaml:"classes_path"`
	// AnchorsPath is the anchor file. Empty uses the YOLOv4 COCO anchors.
	AnchorsPath string `json:"anchors_path" yaml:"anchors_path"`
	// InputSize is the square network input size, a multiple of 32.
	InputSize int `json:"image_size" yaml:"image_size"`
	// ConfidenceThreshold filters detections whose combined score is not above it.
	ConfidenceThreshold float32 `json:"confidence" yaml:"confidence"`
	// IoUThreshold controls Non-Maximum Suppression.
	IoUThreshold float32 `json:"iou" yaml:"iou"`
	// Backend selects the runtime.
	Backend inference.BackendKind `json:"backend" yaml:"backend"`
	// UseCUDA runs the network on the GPU.
	UseCUDA bool `json:"cuda" yaml:"cuda"`
	// InputNames and OutputNames override the graph tensor names.
	InputNames  []string `json:"input_names" yaml:"input_names"`
	OutputNames []string `json:"output_names" yaml:"output_names"`
	// Provider tunes the ONNX Runtime session.
	Provider providers.Config `json:"provider" yaml:"provider"`
	// NMSWorkers suppresses classes in parallel when greater than one.
	NMSWorkers int `json:"nms_workers" yaml:"nms_workers"`
	// MaxDetections caps the detections per image when positive.
	MaxDetections int `json:"max_detections" yaml:"max_detections"`
	// RelevantClasses lists class names to keep (empty = all classes).
	RelevantClasses []string `json:"relevant_classes" yaml:"relevant_classes"`
}

// DefaultConfig returns the stock YOLOv4 configuration.
//
// Returns:
//   - Config: Defaults matching the model_data layout.
//
// @example
// config := DefaultConfig()
// config.UseCUDA = true
// detector, err := New(config, logger)
func DefaultConfig() Config {
	return Config{
		ModelPath:           "model_data/yolov4.onnx",
		ClassesPath:         "model_data/coco_classes.txt",
		AnchorsPath:         "model_data/yolo_anchors.txt",
		InputSize:           416,
		ConfidenceThreshold: 0.2,
		IoUThreshold:        0.2,
		Backend:             inference.BackendONNXRuntime,
		Provider:            providers.DefaultConfig(),
	}
}
