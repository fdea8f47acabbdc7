package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"image"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDetector struct {
	calls atomic.Int64
	fail  bool
	sizes []image.Point
}

func (d *countingDetector) Detect(_ context.Context, img image.Image) ([]detectors.Detection, error) {
	d.calls.Add(1)
	d.sizes = append(d.sizes, img.Bounds().Size())
	if d.fail {
		return nil, errors.New("detect failed")
	}
	return []detectors.Detection{{ClassName: "person", Score: 0.9}}, nil
}

var small = images.Resolution{Name: "tiny", Width: 64, Height: 36}

func TestGenerateScenarios(t *testing.T) {
	scenarios := GenerateScenarios(images.CameraResolutions[:2],
		[]images.ImageFormat{images.FormatJPEG, images.FormatWebP}, 5, 1)
	require.Len(t, scenarios, 4)
	assert.Equal(t, "nHD/jpeg", scenarios[0].Name)
	assert.Equal(t, "nHD/webp", scenarios[1].Name)
	assert.Equal(t, images.FormatWebP, scenarios[1].ImageFormat)
	assert.Equal(t, 5, scenarios[3].Iterations)
	assert.Equal(t, 1, scenarios[3].WarmupRuns)

	def := NewScenarioBuilder("default").Build()
	assert.Equal(t, 100, def.Iterations)
	assert.Equal(t, images.FormatJPEG, def.ImageFormat)
}

func TestRunScenario(t *testing.T) {
	for _, format := range []images.ImageFormat{images.FormatJPEG, images.FormatPNG, images.FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			det := &countingDetector{}
			suite := NewSuite(det, SyntheticFrame(128, 72), t.TempDir(), nil)

			scenario := NewScenarioBuilder("s").WithResolution(small).WithImageFormat(format).
				WithIterations(3).WithWarmupRuns(2).Build()
			metrics, err := suite.RunScenario(context.Background(), scenario)
			require.NoError(t, err)

			assert.Equal(t, int64(5), det.calls.Load())
			assert.Equal(t, image.Pt(64, 36), det.sizes[0])
			assert.Equal(t, 3, metrics.DetectionCount)
			assert.Zero(t, metrics.ErrorRate)
			assert.Greater(t, metrics.FrameBytes, 0)
			assert.Greater(t, metrics.FramesPerSecond, 0.0)
		})
	}
}

func TestRunScenarioErrors(t *testing.T) {
	det := &countingDetector{fail: true}
	suite := NewSuite(det, nil, t.TempDir(), nil)

	scenario := NewScenarioBuilder("s").WithResolution(small).WithIterations(4).WithWarmupRuns(0).Build()
	metrics, err := suite.RunScenario(context.Background(), scenario)
	require.NoError(t, err)
	assert.Equal(t, 1.0, metrics.ErrorRate)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("none").WithResolution(small).WithIterations(0).Build())
	assert.Error(t, err)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("zero").WithIterations(1).Build())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = suite.RunScenario(ctx, scenario)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAllAndSave(t *testing.T) {
	det := &countingDetector{}
	dir := t.TempDir()
	suite := NewSuite(det, SyntheticFrame(96, 54), dir, nil)
	suite.AddScenario(
		NewScenarioBuilder("a").WithResolution(small).WithIterations(2).WithWarmupRuns(0).Build(),
		NewScenarioBuilder("bad").WithResolution(small).WithImageFormat("heic").WithIterations(2).Build(),
		NewScenarioBuilder("b").WithResolution(small).WithImageFormat(images.FormatPNG).WithIterations(2).WithWarmupRuns(0).Build(),
	)

	results, err := suite.RunAllScenarios(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Scenario.Name)
	assert.Equal(t, "b", results[1].Scenario.Name)

	jsonPath, csvPath, err := suite.SaveResults()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jsonPath, dir))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded []PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, SummaryHeader, rows[0])
	assert.Equal(t, "64x36", rows[1][1])
}
