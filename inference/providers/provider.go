// Package providers - ONNX Runtime execution providers and session construction.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend identifies the provider.
	Backend() ProviderBackend
	// Options returns the provider-specific configuration.
	Options() ProviderOptions
	// Apply registers the provider on the session options.
	Apply(options *ort.SessionOptions) error
}

// NewProvider creates a new provider based on the required backend.
//
// Arguments:
//   - options: The options for the provider; the concrete type selects the backend.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the options type is not supported.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case nil:
		return NewCPUProvider(CPUOptions{}), nil
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case CoreMLOptions:
		return NewCoreMLProvider(opts), nil
	case OpenVINOOptions:
		return NewOpenVINOProvider(opts), nil
	case CUDAOptions:
		return NewCUDAProvider(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider options type: %T", opts)
	}
}

// OptionsFor returns the default options for a backend name.
//
// Arguments:
//   - backend: The backend name, e.g. "cuda".
//
// Returns:
//   - ProviderOptions: Zero-value options of the matching type.
//   - error: If the backend is unknown.
func OptionsFor(backend ProviderBackend) (ProviderOptions, error) {
	switch backend {
	case "", CPUProviderBackend:
		return CPUOptions{}, nil
	case CUDAProviderBackend:
		return CUDAOptions{}, nil
	case CoreMLProviderBackend:
		return CoreMLOptions{}, nil
	case OpenVINOProviderBackend:
		return OpenVINOOptions{DeviceType: "CPU"}, nil
	default:
		return nil, fmt.Errorf("no matching provider backend registered: %s", backend)
	}
}
