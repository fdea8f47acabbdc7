package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config selects an execution provider and the session level tuning knobs.
type Config struct {
	// Backend specifies the execution provider to use.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// Options contains provider-specific configuration options. Nil uses the backend defaults.
	Options ProviderOptions `json:"-" yaml:"-"`
	// LibraryPath is the ONNX Runtime shared library. Empty uses GetSharedLibPath.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level" yaml:"graph_optimization_level"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero lets the runtime decide.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
	// Warmup defines how many inference runs to perform during initialization.
	Warmup int `json:"warmup" yaml:"warmup"`
}

// DefaultConfig returns a CPU configuration with extended graph optimizations.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.Backend = CUDAProviderBackend
func DefaultConfig() Config {
	return Config{
		Backend:                CPUProviderBackend,
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableExtended,
		IntraOpNumThreads:      max(1, runtime.NumCPU()/2),
		InterOpNumThreads:      1,
	}
}

// Validate checks the configuration and fills in default provider options.
//
// Returns:
//   - error: If the backend is unknown, the options do not match it, or a count is negative.
func (c *Config) Validate() error {
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	if c.Warmup < 0 {
		return errors.New("warmup must not be negative")
	}
	defaults, err := OptionsFor(c.Backend)
	if err != nil {
		return err
	}
	if c.Options == nil {
		c.Options = defaults
		return nil
	}
	provider, err := NewProvider(c.Options)
	if err != nil {
		return err
	}
	if c.Backend != "" && provider.Backend() != c.Backend {
		return errors.Errorf("options of type %T do not belong to backend %s", c.Options, c.Backend)
	}
	return nil
}
