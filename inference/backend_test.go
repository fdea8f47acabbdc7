package inference

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendValidation(t *testing.T) {
	_, err := NewBackend(Config{Kind: BackendONNXRuntime, InputWidth: 416, InputHeight: 416})
	assert.Error(t, err, "model path is required")

	_, err = NewBackend(Config{Kind: BackendONNXRuntime, ModelPath: "m.onnx"})
	assert.Error(t, err, "input size is required")

	_, err = NewBackend(Config{Kind: "tensorflow", ModelPath: "m.onnx", InputWidth: 416, InputHeight: 416})
	assert.Error(t, err)
}

func TestNewONNXRuntimeBackendValidation(t *testing.T) {
	_, err := NewBackend(Config{
		Kind:        BackendONNXRuntime,
		ModelPath:   "m.onnx",
		InputWidth:  416,
		InputHeight: 416,
		InputNames:  []string{"input"},
		OutputNames: []string{"a", "b", "c"},
	})
	assert.Error(t, err, "output shapes must match output names")
}

func TestNewOpenCVBackendMissingModel(t *testing.T) {
	_, err := NewBackend(Config{
		Kind:        BackendOpenCV,
		ModelPath:   filepath.Join(t.TempDir(), "missing.onnx"),
		InputWidth:  416,
		InputHeight: 416,
	})
	assert.Error(t, err)
}

func TestBackendKind(t *testing.T) {
	assert.True(t, BackendONNXRuntime.Valid())
	assert.True(t, BackendOpenCV.Valid())
	assert.False(t, BackendKind("torch").Valid())
}

func TestCheckInput(t *testing.T) {
	cfg := Config{InputWidth: 32, InputHeight: 64}
	assert.NoError(t, checkInput(cfg, make([]float32, 3*32*64)))
	assert.Error(t, checkInput(cfg, make([]float32, 32*64)))
	assert.Equal(t, []int64{1, 3, 64, 32}, inputShape(cfg))
}

func TestMetrics(t *testing.T) {
	var m Metrics
	assert.Zero(t, m.Average())
	assert.Zero(t, m.Throughput())

	m.record(10 * time.Millisecond)
	m.record(30 * time.Millisecond)

	assert.Equal(t, int64(2), m.InferenceCount)
	assert.Equal(t, 20*time.Millisecond, m.Average())
	assert.Equal(t, 30*time.Millisecond, m.LastTime)
	assert.InDelta(t, 50.0, m.Throughput(), 1e-9)
}

func TestFloat32Bytes(t *testing.T) {
	raw := float32Bytes([]float32{1, -0.5})
	require.Len(t, raw, 8)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(raw[0:])))
	assert.Equal(t, float32(-0.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])))
}
