package providers

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var environmentMu sync.Mutex

// Session represents a model session from the onnxruntime with its preallocated tensors.
type Session struct {
	Session *ort.AdvancedSession
	Inputs  []*ort.Tensor[float32]
	Outputs []*ort.Tensor[float32]
}

// Run executes the session on whatever is currently in the input tensors.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
//
// Returns:
//   - error: An error if the native session could not be destroyed.
func (s *Session) Close() error {
	for _, input := range s.Inputs {
		input.Destroy()
	}
	s.Inputs = nil

	for _, output := range s.Outputs {
		output.Destroy()
	}
	s.Outputs = nil

	if s.Session != nil {
		err := s.Session.Destroy()
		s.Session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}

	return nil
}

// NewSessionArgs represents the arguments for creating a new ONNX Runtime session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// InputNames and OutputNames are the graph tensor names.
	InputNames  []string
	OutputNames []string
	// InputShapes and OutputShapes size the preallocated tensors, one per name.
	InputShapes  [][]int64
	OutputShapes [][]int64
}

// InitializeEnvironment loads the ONNX Runtime shared library once per process.
//
// Arguments:
//   - libPath: The shared library path; empty uses GetSharedLibPath.
//
// Returns:
//   - error: If the library is missing or fails to initialize.
func InitializeEnvironment(libPath string) error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath == "" {
		libPath = GetSharedLibPath()
	}
	if libPath == "" {
		return errors.New("no ONNX Runtime library path for this platform, set " + LibraryPathEnv)
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	// Point ONNX Runtime to the exact shared library path (overrides default search).
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Tensor allocation: fixed-shape buffers for input and output data.
//  3. Session options: threading, graph optimization level, execution provider.
//  4. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - provider: The execution provider for the session.
//   - config: Library path and session tuning.
//   - args: The model path and tensor layout.
//
// Returns:
//   - *Session: The native session and its tensors. The caller must Close it.
//   - error: An error if the session creation fails.
func NewSession(provider ExecutionProvider, config Config, args NewSessionArgs) (*Session, error) {
	if len(args.InputNames) != len(args.InputShapes) {
		return nil, errors.Errorf("%d input names but %d input shapes", len(args.InputNames), len(args.InputShapes))
	}
	if len(args.OutputNames) != len(args.OutputShapes) {
		return nil, errors.Errorf("%d output names but %d output shapes", len(args.OutputNames), len(args.OutputShapes))
	}
	if _, err := os.Stat(args.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", args.ModelPath)
	}

	if err := InitializeEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	s := &Session{}

	for _, shape := range args.InputShapes {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "error creating input tensor")
		}
		s.Inputs = append(s.Inputs, t)
	}

	for _, shape := range args.OutputShapes {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "error creating output tensor")
		}
		s.Outputs = append(s.Outputs, t)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if err := configureOptions(options, provider, config); err != nil {
		s.Close()
		return nil, err
	}

	inputs := make([]ort.Value, len(s.Inputs))
	for i, t := range s.Inputs {
		inputs[i] = t
	}
	outputs := make([]ort.Value, len(s.Outputs))
	for i, t := range s.Outputs {
		outputs[i] = t
	}

	session, err := ort.NewAdvancedSession(args.ModelPath, args.InputNames, args.OutputNames, inputs, outputs, options)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", args.ModelPath)
	}
	s.Session = session

	for i := 0; i < config.Warmup; i++ {
		if err := s.Run(); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "warmup run failed")
		}
	}

	return s, nil
}

func configureOptions(options *ort.SessionOptions, provider ExecutionProvider, config Config) error {
	if config.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			return errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if config.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			return errors.Wrap(err, "error setting inter-op threads")
		}
	}
	if config.GraphOptimizationLevel != 0 {
		if err := options.SetGraphOptimizationLevel(config.GraphOptimizationLevel); err != nil {
			return errors.Wrap(err, "error setting graph optimization level")
		}
	}
	if provider != nil {
		if err := provider.Apply(options); err != nil {
			return err
		}
	}
	return nil
}
