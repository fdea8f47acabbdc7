// Package config - Application configuration loaded from YAML and command line flags.
package config

import (
	"os"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration. Every field is optional in the YAML file;
// missing fields keep their Default value.
type Config struct {
	ModelPath      string                    `json:"model_path" yaml:"model_path"`
	ClassesPath    string                    `json:"classes_path" yaml:"classes_path"`
	AnchorsPath    string                    `json:"anchors_path" yaml:"anchors_path"`
	Confidence     float32                   `json:"confidence" yaml:"confidence"`
	IoU            float32                   `json:"iou" yaml:"iou"`
	ImageSize      int                       `json:"image_size" yaml:"image_size"`
	CUDA           bool                      `json:"cuda" yaml:"cuda"`
	Backend        inference.BackendKind     `json:"backend" yaml:"backend"`
	Provider       providers.ProviderBackend `json:"provider" yaml:"provider"`
	LibraryPath    string                    `json:"library_path" yaml:"library_path"`
	InputName      string                    `json:"input_name" yaml:"input_name"`
	OutputNames    []string                  `json:"output_names" yaml:"output_names"`
	IntraOpThreads int                       `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int                       `json:"inter_op_threads" yaml:"inter_op_threads"`
	Warmup         int                       `json:"warmup" yaml:"warmup"`
	NMSWorkers     int                       `json:"nms_workers" yaml:"nms_workers"`
	MaxDetections  int                       `json:"max_detections" yaml:"max_detections"`
	Classes        []string                  `json:"classes" yaml:"classes"`
	LogLevel       string                    `json:"log_level" yaml:"log_level"`
}

// Default returns the stock configuration: a 416 input, 0.2 thresholds and the
// model_data bundle next to the binary.
func Default() Config {
	provider := providers.DefaultConfig()
	return Config{
		ModelPath:      "./model_data/yolov4.onnx",
		ClassesPath:    "./model_data/coco_classes.txt",
		AnchorsPath:    "./model_data/yolo_anchors.txt",
		Confidence:     0.2,
		IoU:            0.2,
		ImageSize:      416,
		Backend:        inference.BackendONNXRuntime,
		Provider:       providers.CPUProviderBackend,
		IntraOpThreads: provider.IntraOpNumThreads,
		InterOpThreads: provider.InterOpNumThreads,
		LogLevel:       "info",
	}
}

// Load reads a YAML file and overlays it on Default.
//
// Arguments:
//   - path: The YAML file. Empty returns Default.
//
// Returns:
//   - Config: The merged configuration, not yet validated.
//   - error: If the file cannot be read or parsed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// Validate rejects values the detector cannot run with.
func (c Config) Validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Errorf("confidence %v must be within [0, 1]", c.Confidence)
	}
	if c.IoU < 0 || c.IoU > 1 {
		return errors.Errorf("iou %v must be within [0, 1]", c.IoU)
	}
	if c.ImageSize <= 0 || c.ImageSize%32 != 0 {
		return errors.Errorf("image_size %d must be a positive multiple of 32", c.ImageSize)
	}
	if !c.Backend.Valid() {
		return errors.Errorf("unknown backend %q, want one of %v", c.Backend, inference.Backends)
	}
	if _, err := providers.OptionsFor(c.Provider); err != nil {
		return err
	}
	if c.ModelPath == "" {
		return errors.New("model_path is required")
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 || c.Warmup < 0 {
		return errors.New("thread counts and warmup must not be negative")
	}
	if c.NMSWorkers < 0 || c.MaxDetections < 0 {
		return errors.New("nms_workers and max_detections must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel; empty means info.
func (c Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// Detector maps the configuration onto the detector configuration.
func (c Config) Detector() detectors.Config {
	provider := providers.DefaultConfig()
	provider.Backend = c.Provider
	provider.LibraryPath = c.LibraryPath
	provider.IntraOpNumThreads = c.IntraOpThreads
	provider.InterOpNumThreads = c.InterOpThreads
	provider.Warmup = c.Warmup

	var inputs []string
	if c.InputName != "" {
		inputs = []string{c.InputName}
	}

	return detectors.Config{
		ModelPath:           c.ModelPath,
		ClassesPath:         c.ClassesPath,
		AnchorsPath:         c.AnchorsPath,
		InputSize:           c.ImageSize,
		ConfidenceThreshold: c.Confidence,
		IoUThreshold:        c.IoU,
		Backend:             c.Backend,
		UseCUDA:             c.CUDA,
		InputNames:          inputs,
		OutputNames:         c.OutputNames,
		Provider:            provider,
		NMSWorkers:          c.NMSWorkers,
		MaxDetections:       c.MaxDetections,
		RelevantClasses:     c.Classes,
	}
}
