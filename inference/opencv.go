package inference

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// OpenCVBackend runs a model through the OpenCV DNN module.
type OpenCVBackend struct {
	cfg         Config
	net         gocv.Net
	outputNames []string
	metrics     Metrics
	mu          sync.Mutex
	closed      bool
}

// NewOpenCVBackend loads the model with gocv.ReadNet.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - *OpenCVBackend: The backend.
//   - error: If the model is missing or cannot be loaded.
func NewOpenCVBackend(cfg Config) (*OpenCVBackend, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, errors.Errorf("failed to load model: %s", cfg.ModelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if cfg.UseCUDA {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "error setting preferable backend")
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "error setting preferable target")
	}

	names := cfg.OutputNames
	if len(names) == 0 {
		names = unconnectedOutputNames(&net)
	}
	if len(names) == 0 {
		net.Close()
		return nil, errors.New("failed to get output layer names from model")
	}

	return &OpenCVBackend{cfg: cfg, net: net, outputNames: names}, nil
}

func unconnectedOutputNames(net *gocv.Net) []string {
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		name := layer.GetName()
		layer.Close()
		if name != "_input" {
			names = append(names, name)
		}
	}
	return names
}

// Name returns "opencv/cpu" or "opencv/cuda".
func (b *OpenCVBackend) Name() string {
	if b.cfg.UseCUDA {
		return string(BackendOpenCV) + "/cuda"
	}
	return string(BackendOpenCV) + "/cpu"
}

// OutputNames returns the layers read on every forward pass.
func (b *OpenCVBackend) OutputNames() []string {
	return b.outputNames
}

// Forward wraps input in a 4D blob, runs the net and copies out every output layer.
func (b *OpenCVBackend) Forward(ctx context.Context, input []float32) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInput(b.cfg, input); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("backend is closed")
	}

	raw := float32Bytes(input)
	blob, err := gocv.NewMatWithSizesFromBytes(
		[]int{1, 3, b.cfg.InputHeight, b.cfg.InputWidth}, gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input blob")
	}
	defer blob.Close()

	inputName := ""
	if len(b.cfg.InputNames) > 0 {
		inputName = b.cfg.InputNames[0]
	}

	start := time.Now()
	b.net.SetInput(blob, inputName)
	mats := b.net.ForwardLayers(b.outputNames)
	b.metrics.record(time.Since(start))

	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()

	outputs := make([]Output, len(mats))
	for i, m := range mats {
		data, err := m.DataPtrFloat32()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read output %s", b.outputNames[i])
		}
		outputs[i] = Output{Shape: m.Size(), Data: append([]float32(nil), data...)}
	}
	return outputs, nil
}

// Metrics returns a snapshot of the forward pass statistics.
func (b *OpenCVBackend) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// Close releases the network.
func (b *OpenCVBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.net.Close()
}

// float32Bytes encodes values in the host (little endian) layout OpenCV expects.
func float32Bytes(values []float32) []byte {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return raw
}
