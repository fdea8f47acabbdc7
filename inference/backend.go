package inference

import (
	"context"
	"time"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
)

// Output is one raw network output tensor.
type Output = model.Tensor

// Backend runs the forward pass of a network.
type Backend interface {
	// Forward runs the network on a [1, 3, H, W] input tensor and returns its raw outputs.
	Forward(ctx context.Context, input []float32) ([]Output, error)
	// Name identifies the backend for logging.
	Name() string
	// Close releases native resources.
	Close() error
}

// Config describes the network to load and where to run it.
type Config struct {
	// Kind selects the runtime.
	Kind BackendKind `json:"kind" yaml:"kind"`
	// ModelPath is the weights file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputWidth and InputHeight are the network input size.
	InputWidth  int `json:"input_width" yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// InputNames and OutputNames are graph tensor names. OpenCV falls back to the
	// unconnected output layers when OutputNames is empty.
	InputNames  []string `json:"input_names" yaml:"input_names"`
	OutputNames []string `json:"output_names" yaml:"output_names"`
	// OutputShapes sizes the preallocated ONNX Runtime output tensors.
	OutputShapes [][]int64 `json:"output_shapes" yaml:"output_shapes"`
	// UseCUDA runs on the GPU: the CUDA provider for ONNX Runtime, the CUDA target for OpenCV.
	UseCUDA bool `json:"cuda" yaml:"cuda"`
	// Provider tunes the ONNX Runtime session.
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// Metrics are running totals of forward passes.
type Metrics struct {
	InferenceCount int64
	TotalTime      time.Duration
	LastTime       time.Duration
}

// Average returns the mean forward pass time.
func (m Metrics) Average() time.Duration {
	if m.InferenceCount == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.InferenceCount)
}

// Throughput returns forward passes per second at the average time.
func (m Metrics) Throughput() float64 {
	avg := m.Average()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

func (m *Metrics) record(d time.Duration) {
	m.InferenceCount++
	m.TotalTime += d
	m.LastTime = d
}

// NewBackend creates the backend selected by cfg.Kind.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - Backend: The loaded backend.
//   - error: If the kind is unknown or the model cannot be loaded.
func NewBackend(cfg Config) (Backend, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, errors.Errorf("invalid input size %dx%d", cfg.InputWidth, cfg.InputHeight)
	}

	switch cfg.Kind {
	case BackendONNXRuntime, "":
		return NewONNXRuntimeBackend(cfg)
	case BackendOpenCV:
		return NewOpenCVBackend(cfg)
	default:
		return nil, errors.Errorf("unsupported backend: %s", cfg.Kind)
	}
}

func inputShape(cfg Config) []int64 {
	return []int64{1, 3, int64(cfg.InputHeight), int64(cfg.InputWidth)}
}

func checkInput(cfg Config, input []float32) error {
	want := 3 * cfg.InputWidth * cfg.InputHeight
	if len(input) != want {
		return errors.Errorf("input has %d values, want %d for a 1x3x%dx%d tensor",
			len(input), want, cfg.InputHeight, cfg.InputWidth)
	}
	return nil
}
