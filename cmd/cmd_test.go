package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var errStub = errors.New("stub detector")

// stubApp records the detector configuration instead of loading a model.
func stubApp(got *detectors.Config) *app {
	a := newApp()
	a.newDetector = func(cfg detectors.Config, _ *zap.SugaredLogger) (*detectors.Detector, error) {
		*got = cfg
		return nil, errStub
	}
	return a
}

func TestPromptPath(t *testing.T) {
	var out bytes.Buffer
	path, err := promptPath(strings.NewReader("  street.jpg \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "street.jpg", path)
	assert.Equal(t, ImagePrompt, out.String())

	path, err = promptPath(strings.NewReader("no-newline.png"), &out)
	require.NoError(t, err)
	assert.Equal(t, "no-newline.png", path)

	_, err = promptPath(strings.NewReader("\n"), &out)
	assert.Error(t, err)
}

func TestPrintDetections(t *testing.T) {
	var out bytes.Buffer
	printDetections(&out, []detectors.Detection{
		{Box: images.Rect{X1: 10.6, Y1: 20, X2: 110, Y2: 220.9}, ClassName: "dog", Score: 0.873},
	})
	assert.Equal(t, "dog 0.87 (10, 20) (110, 220)\n", out.String())
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	var got detectors.Config
	root := newRootCommand(stubApp(&got))
	root.SetArgs([]string{"--image-size", "400", "image", "street.jpg"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 32")
}

func TestRootFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "go-yolo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("confidence: 0.5\niou: 0.3\nbackend: opencv\n"), 0o600))

	var got detectors.Config
	root := newRootCommand(stubApp(&got))
	root.SetArgs([]string{
		"--config", cfgPath,
		"--iou", "0.45",
		"--cuda",
		"--model", "weights.onnx",
		"--log-level", "error",
		"image", filepath.Join(dir, "street.jpg"),
	})
	err := root.Execute()
	require.ErrorIs(t, err, errStub)

	assert.Equal(t, float32(0.5), got.ConfidenceThreshold)
	assert.Equal(t, float32(0.45), got.IoUThreshold)
	assert.Equal(t, inference.BackendOpenCV, got.Backend)
	assert.True(t, got.UseCUDA)
	assert.Equal(t, "weights.onnx", got.ModelPath)
	assert.Equal(t, 416, got.InputSize)
}

func TestDirRequiresImages(t *testing.T) {
	var got detectors.Config
	root := newRootCommand(stubApp(&got))
	root.SetArgs([]string{"dir", t.TempDir()})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images found")
}

func TestVideoLoadsDetector(t *testing.T) {
	var got detectors.Config
	root := newRootCommand(stubApp(&got))
	root.SetArgs([]string{"--image-size", "608", "video", "clip.mp4"})
	require.ErrorIs(t, root.Execute(), errStub)
	assert.Equal(t, 608, got.InputSize)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zapcore.WarnLevel, zapcore.AddSync(&buf))
	logger.Infow("hidden")
	logger.Warnw("shown", "key", "value")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "value")
}

func TestBenchmarkRejectsBadFlags(t *testing.T) {
	var got detectors.Config
	root := newRootCommand(stubApp(&got))
	root.SetArgs([]string{"benchmark", "--resolutions", "huge"})
	assert.Error(t, root.Execute())

	root = newRootCommand(stubApp(&got))
	root.SetArgs([]string{"benchmark", "--formats", "heic"})
	assert.Error(t, root.Execute())

	root = newRootCommand(stubApp(&got))
	root.SetArgs([]string{"benchmark", "--resolutions", "640x480", "--formats", "png"})
	assert.ErrorIs(t, root.Execute(), errStub)
}

func TestImageShowsResultByDefault(t *testing.T) {
	cmd := newImageCommand(newApp())
	show := cmd.Flags().Lookup("show")
	require.NotNil(t, show)
	assert.Equal(t, "true", show.DefValue)

	require.NoError(t, cmd.Flags().Parse([]string{"--show=false"}))
	assert.Equal(t, "false", show.Value.String())
}
