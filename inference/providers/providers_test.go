package providers

import (
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		options ProviderOptions
		backend ProviderBackend
	}{
		{nil, CPUProviderBackend},
		{CPUOptions{}, CPUProviderBackend},
		{CUDAOptions{DeviceID: 1}, CUDAProviderBackend},
		{CoreMLOptions{}, CoreMLProviderBackend},
		{OpenVINOOptions{DeviceType: "GPU"}, OpenVINOProviderBackend},
	}

	for _, c := range cases {
		p, err := NewProvider(c.options)
		require.NoError(t, err)
		assert.Equal(t, c.backend, p.Backend())
	}
}

func TestOptionsFor(t *testing.T) {
	opts, err := OptionsFor(CUDAProviderBackend)
	require.NoError(t, err)
	assert.IsType(t, CUDAOptions{}, opts)

	opts, err = OptionsFor("")
	require.NoError(t, err)
	assert.IsType(t, CPUOptions{}, opts)

	_, err = OptionsFor("tpu")
	assert.Error(t, err)
}

func TestCUDAOptionsMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 2, GPUMemLimit: 1 << 30, UseTF32: true}.Map()

	assert.Equal(t, "2", m["device_id"])
	assert.Equal(t, "1073741824", m["gpu_mem_limit"])
	assert.Equal(t, "1", m["use_tf32"])
	assert.Equal(t, "0", m["do_copy_in_default_stream"])
	assert.NotContains(t, m, "prefer_nhwc")
}

func TestOpenVINOOptionsMap(t *testing.T) {
	m := OpenVINOOptions{DeviceType: "CPU", Precision: model.PrecisionFP32, NumOfThreads: 4}.Map()

	assert.Equal(t, map[string]string{
		"device_type":    "CPU",
		"precision":      "FP32",
		"num_of_threads": "4",
	}, m)
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, CoreMLFlagUseCPUOnly|CoreMLFlagCreateMLProgram, CoreMLOptions{CPUOnly: true, MLProgram: true}.Flags())
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.IsType(t, CPUOptions{}, c.Options)
	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended), c.GraphOptimizationLevel)

	c = Config{Backend: CUDAProviderBackend, Options: CoreMLOptions{}}
	assert.Error(t, c.Validate(), "options must match the backend")

	c = Config{Backend: "tpu"}
	assert.Error(t, c.Validate())

	c = Config{Backend: CPUProviderBackend, IntraOpNumThreads: -1}
	assert.Error(t, c.Validate())
}

func TestGetSharedLibPathOverride(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/onnxruntime/lib/libonnxruntime.so")
	assert.Equal(t, "/opt/onnxruntime/lib/libonnxruntime.so", GetSharedLibPath())
}

func TestNewSessionValidatesArgs(t *testing.T) {
	_, err := NewSession(NewCPUProvider(CPUOptions{}), DefaultConfig(), NewSessionArgs{
		ModelPath:   "model.onnx",
		InputNames:  []string{"input"},
		InputShapes: nil,
	})
	assert.Error(t, err)

	_, err = NewSession(NewCPUProvider(CPUOptions{}), DefaultConfig(), NewSessionArgs{
		ModelPath:    filepath.Join(t.TempDir(), "missing.onnx"),
		InputNames:   []string{"input"},
		InputShapes:  [][]int64{{1, 3, 416, 416}},
		OutputNames:  []string{"output"},
		OutputShapes: [][]int64{{1, 255, 13, 13}},
	})
	assert.Error(t, err, "missing model file")
}
