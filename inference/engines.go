// Package inference - Forward-pass backends for detection models.
package inference

// BackendKind is the runtime that executes the network.
type BackendKind string

const (
	// BackendONNXRuntime runs ONNX models through the onnxruntime library.
	BackendONNXRuntime BackendKind = "onnxruntime"
	// BackendOpenCV runs models through the OpenCV DNN module.
	BackendOpenCV BackendKind = "opencv"
)

// Backends is a list of all supported backends
var Backends = []BackendKind{BackendONNXRuntime, BackendOpenCV}

// Valid reports whether k names a supported backend.
func (k BackendKind) Valid() bool {
	for _, b := range Backends {
		if b == k {
			return true
		}
	}
	return false
}
