package inference

import (
	"context"
	"sync"
	"time"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/pkg/errors"
)

// ONNXRuntimeBackend runs a model through an ONNX Runtime session with preallocated
// tensors. Forward calls are serialized.
type ONNXRuntimeBackend struct {
	cfg      Config
	provider providers.ExecutionProvider
	session  *providers.Session
	metrics  Metrics
	mu       sync.Mutex
}

// NewONNXRuntimeBackend loads the model into an ONNX Runtime session.
//
// Arguments:
//   - cfg: The backend configuration; InputNames, OutputNames and OutputShapes are required.
//
// Returns:
//   - *ONNXRuntimeBackend: The backend.
//   - error: If the provider is misconfigured or the session cannot be created.
func NewONNXRuntimeBackend(cfg Config) (*ONNXRuntimeBackend, error) {
	if len(cfg.InputNames) != 1 {
		return nil, errors.Errorf("expected exactly one input name, got %d", len(cfg.InputNames))
	}
	if len(cfg.OutputNames) == 0 || len(cfg.OutputNames) != len(cfg.OutputShapes) {
		return nil, errors.Errorf("%d output names but %d output shapes", len(cfg.OutputNames), len(cfg.OutputShapes))
	}

	providerCfg := cfg.Provider
	if cfg.UseCUDA && (providerCfg.Backend == "" || providerCfg.Backend == providers.CPUProviderBackend) {
		providerCfg.Backend = providers.CUDAProviderBackend
		providerCfg.Options = nil
	}
	if err := providerCfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid provider configuration")
	}

	provider, err := providers.NewProvider(providerCfg.Options)
	if err != nil {
		return nil, err
	}

	session, err := providers.NewSession(provider, providerCfg, providers.NewSessionArgs{
		ModelPath:    cfg.ModelPath,
		InputNames:   cfg.InputNames,
		OutputNames:  cfg.OutputNames,
		InputShapes:  [][]int64{inputShape(cfg)},
		OutputShapes: cfg.OutputShapes,
	})
	if err != nil {
		return nil, err
	}

	cfg.Provider = providerCfg
	return &ONNXRuntimeBackend{cfg: cfg, provider: provider, session: session}, nil
}

// Name returns "onnxruntime/<provider>".
func (b *ONNXRuntimeBackend) Name() string {
	return string(BackendONNXRuntime) + "/" + string(b.provider.Backend())
}

// Forward copies input into the session input tensor, runs the session and copies the
// outputs out.
func (b *ONNXRuntimeBackend) Forward(ctx context.Context, input []float32) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInput(b.cfg, input); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, errors.New("backend is closed")
	}

	copy(b.session.Inputs[0].GetData(), input)

	start := time.Now()
	if err := b.session.Run(); err != nil {
		return nil, errors.Wrap(err, "onnxruntime run failed")
	}
	b.metrics.record(time.Since(start))

	outputs := make([]Output, len(b.session.Outputs))
	for i, t := range b.session.Outputs {
		dims := t.GetShape()
		shape := make([]int, len(dims))
		for k, d := range dims {
			shape[k] = int(d)
		}
		data := t.GetData()
		outputs[i] = Output{Shape: shape, Data: append([]float32(nil), data...)}
	}
	return outputs, nil
}

// Metrics returns a snapshot of the forward pass statistics.
func (b *ONNXRuntimeBackend) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// Close destroys the session and its tensors.
func (b *ONNXRuntimeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	return err
}
