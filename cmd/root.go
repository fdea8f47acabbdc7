// Package cmd - Command line interface for image, directory and video detection.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the state shared by the subcommands once the root command has parsed its flags.
type app struct {
	configPath string
	flags      config.Config
	cfg        config.Config
	logger     *zap.SugaredLogger
	// newDetector is replaced in tests.
	newDetector func(detectors.Config, *zap.SugaredLogger) (*detectors.Detector, error)
}

// NewLogger builds a console logger with ISO8601 timestamps.
//
// Arguments:
//   - level: The minimum level written.
//   - w: The destination, usually stderr.
//
// Returns:
//   - *zap.SugaredLogger: The logger.
func NewLogger(level zapcore.Level, w zapcore.WriteSyncer) *zap.SugaredLogger {
	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), w, level)
	return zap.New(core).Sugar()
}

func newApp() *app {
	return &app{
		flags:       config.Default(),
		logger:      zap.NewNop().Sugar(),
		newDetector: detectors.New,
	}
}

// NewRootCommand creates the go-yolo command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "go-yolo",
		Short:         "YOLOv4 object detection for images, directories and video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML configuration file")
	f.StringVar(&a.flags.ModelPath, "model", a.flags.ModelPath, "model weights file")
	f.StringVar(&a.flags.ClassesPath, "classes", a.flags.ClassesPath, "class names file, one per line")
	f.StringVar(&a.flags.AnchorsPath, "anchors", a.flags.AnchorsPath, "anchors file")
	f.Float32Var(&a.flags.Confidence, "confidence", a.flags.Confidence, "minimum objectness x class score")
	f.Float32Var(&a.flags.IoU, "iou", a.flags.IoU, "non-max suppression IoU threshold")
	f.IntVar(&a.flags.ImageSize, "image-size", a.flags.ImageSize, "network input size, a multiple of 32")
	f.BoolVar(&a.flags.CUDA, "cuda", a.flags.CUDA, "run the network on the GPU")
	f.StringVar((*string)(&a.flags.Backend), "backend", string(a.flags.Backend), "runtime: onnxruntime or opencv")
	f.StringVar((*string)(&a.flags.Provider), "provider", string(a.flags.Provider),
		"onnxruntime execution provider: cpu, cuda, coreml or openvino")
	f.StringVar(&a.flags.LibraryPath, "library-path", a.flags.LibraryPath,
		"onnxruntime shared library (default: $"+providers.LibraryPathEnv+" or ./third_party)")
	f.StringVar(&a.flags.LogLevel, "log-level", a.flags.LogLevel, "debug, info, warn or error")

	root.AddCommand(newImageCommand(a), newDirCommand(a), newVideoCommand(a), newBenchmarkCommand(a))
	return root
}

// setup loads the config file and applies the flags that were set explicitly on top of it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	overrides := []struct {
		name  string
		apply func()
	}{
		{"model", func() { cfg.ModelPath = a.flags.ModelPath }},
		{"classes", func() { cfg.ClassesPath = a.flags.ClassesPath }},
		{"anchors", func() { cfg.AnchorsPath = a.flags.AnchorsPath }},
		{"confidence", func() { cfg.Confidence = a.flags.Confidence }},
		{"iou", func() { cfg.IoU = a.flags.IoU }},
		{"image-size", func() { cfg.ImageSize = a.flags.ImageSize }},
		{"cuda", func() { cfg.CUDA = a.flags.CUDA }},
		{"backend", func() { cfg.Backend = inference.BackendKind(a.flags.Backend) }},
		{"provider", func() { cfg.Provider = a.flags.Provider }},
		{"library-path", func() { cfg.LibraryPath = a.flags.LibraryPath }},
		{"log-level", func() { cfg.LogLevel = a.flags.LogLevel }},
	}
	for _, o := range overrides {
		if changed(o.name) {
			o.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = NewLogger(level, zapcore.Lock(os.Stderr))
	a.logger.Debugw("configuration loaded", "config", a.configPath, "model", cfg.ModelPath,
		"backend", cfg.Backend, "cuda", cfg.CUDA, "image_size", cfg.ImageSize)
	return nil
}

func (a *app) detector() (*detectors.Detector, error) {
	return a.newDetector(a.cfg.Detector(), a.logger)
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		logger := NewLogger(zapcore.ErrorLevel, zapcore.Lock(os.Stderr))
		logger.Errorw("go-yolo failed", "error", err)
		_ = logger.Sync()
	}
	return err
}
