package detectors

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend returns constant logits shaped like the three YOLOv4 heads.
type fakeBackend struct {
	size       int
	numClasses int
	fill       float32
	// hot sets one anchor of the stride 32 head to a confident class 0 detection.
	hot    bool
	hotRow int
	hotCol int
	err    error
	calls  int
	closed bool
}

func (f *fakeBackend) Forward(_ context.Context, input []float32) ([]inference.Output, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(input) != 3*f.size*f.size {
		return nil, errors.Errorf("unexpected input length %d", len(input))
	}

	attrs := 5 + f.numClasses
	channels := 3 * attrs
	outputs := make([]inference.Output, 0, 3)
	// Smallest grid last, so the detector has to match heads by size.
	for _, stride := range []int{8, 16, 32} {
		grid := f.size / stride
		data := make([]float32, channels*grid*grid)
		for i := range data {
			data[i] = f.fill
		}
		if f.hot && stride == 32 {
			at := func(c int) int { return c*grid*grid + f.hotRow*grid + f.hotCol }
			data[at(0)] = 0
			data[at(1)] = 0
			data[at(2)] = 0
			data[at(3)] = 0
			data[at(4)] = 10
			data[at(5)] = 10
		}
		outputs = append(outputs, inference.Output{Shape: []int{1, channels, grid, grid}, Data: data})
	}
	return outputs, nil
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func blackImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func newTestDetector(t *testing.T, backend *fakeBackend, mutate func(*Config)) *Detector {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	classes := models.NewOutputClassSet(model.ModelFamilyYOLO, models.YOLOClasses.Names())
	d, err := NewWithBackend(cfg, classes, nil, backend, nil)
	require.NoError(t, err)
	return d
}

func TestDetectAndDrawNoDetections(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, fill: -10}
	d := newTestDetector(t, backend, nil)

	src := blackImage(416, 416)
	before := images.ComputeImageChecksum(src)

	out, detections, err := d.DetectAndDraw(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, detections)
	assert.Equal(t, before, images.ComputeImageChecksum(out))
	assert.Same(t, src, out.(*image.RGBA))
	assert.Equal(t, 1, backend.calls)
}

func TestDetectSingleObject(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, fill: -10, hot: true, hotRow: 6, hotCol: 6}
	d := newTestDetector(t, backend, nil)

	detections, err := d.Detect(context.Background(), blackImage(416, 416))
	require.NoError(t, err)
	require.Len(t, detections, 1)

	det := detections[0]
	assert.Equal(t, 0, det.Class)
	assert.Equal(t, "person", det.ClassName)
	assert.Greater(t, det.Score, float32(0.99))

	// Cell (6, 6) of the 13x13 head centers at 208; anchor 0 of that head is 142x110.
	assert.InDelta(t, 137, det.Box.X1, 0.5)
	assert.InDelta(t, 153, det.Box.Y1, 0.5)
	assert.InDelta(t, 279, det.Box.X2, 0.5)
	assert.InDelta(t, 263, det.Box.Y2, 0.5)
	assert.Equal(t, "person 1.00", det.Label())
}

func TestDetectMapsToSourcePixels(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, fill: -10, hot: true, hotRow: 6, hotCol: 6}
	d := newTestDetector(t, backend, nil)

	// 832x832 letterboxes at scale 0.5 without padding, so boxes double.
	detections, err := d.Detect(context.Background(), blackImage(832, 832))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.InDelta(t, 274, detections[0].Box.X1, 1)
	assert.InDelta(t, 558, detections[0].Box.X2, 1)
}

func TestDetectAndDrawLeavesSourceUntouched(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, fill: -10, hot: true, hotRow: 6, hotCol: 6}
	d := newTestDetector(t, backend, nil)

	src := blackImage(416, 416)
	before := images.ComputeImageChecksum(src)

	out, detections, err := d.DetectAndDraw(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, before, images.ComputeImageChecksum(src))
	assert.NotEqual(t, before, images.ComputeImageChecksum(out))
	assert.Equal(t, src.Bounds(), out.Bounds())

	// The frame's left edge sits 5px left of the box at x=132; class 0 is red.
	edge := color.RGBAModel.Convert(out.At(133, 208)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, edge)
}

func TestDetectRelevantClasses(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, fill: -10, hot: true, hotRow: 6, hotCol: 6}
	d := newTestDetector(t, backend, func(c *Config) {
		c.RelevantClasses = []string{"dog", "not-a-class"}
	})

	detections, err := d.Detect(context.Background(), blackImage(416, 416))
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestDetectBackendError(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80, err: errors.New("boom")}
	d := newTestDetector(t, backend, nil)

	src := blackImage(64, 64)
	out, detections, err := d.DetectAndDraw(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forward pass failed")
	assert.Nil(t, detections)
	assert.Same(t, src, out.(*image.RGBA))

	_, err = d.Detect(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewWithBackendValidation(t *testing.T) {
	classes := models.NewOutputClassSet(model.ModelFamilyYOLO, []string{"a"})
	backend := &fakeBackend{size: 416, numClasses: 1}

	_, err := NewWithBackend(DefaultConfig(), nil, nil, backend, nil)
	assert.Error(t, err)

	_, err = NewWithBackend(DefaultConfig(), classes, nil, nil, nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.InputSize = 400
	_, err = NewWithBackend(cfg, classes, nil, backend, nil)
	assert.Error(t, err)
}

func TestInfoAndClose(t *testing.T) {
	backend := &fakeBackend{size: 416, numClasses: 80}
	d := newTestDetector(t, backend, nil)

	info := d.Info()
	assert.Equal(t, model.ModelNameYOLOv4, info.Model)
	assert.Equal(t, "fake", info.Backend)
	assert.Equal(t, 416, info.InputSize)
	assert.Equal(t, 80, info.NumClasses)
	assert.Len(t, info.Anchors, 3)
	assert.Equal(t, 80, d.Classes().Len())

	require.NoError(t, d.Close())
	assert.True(t, backend.closed)
}

func TestNewMissingFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClassesPath = "does/not/exist.txt"
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ClassesPath = ""
	cfg.AnchorsPath = "does/not/exist.txt"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
