package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference/detectors"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detector is the part of detectors.Detector the suite exercises.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]detectors.Detection, error)
}

// Suite manages and executes benchmark scenarios.
type Suite struct {
	detector  Detector
	source    image.Image
	outputDir string
	logger    *zap.SugaredLogger

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - detector: The detector under test.
//   - source: The frame every scenario is resized from; nil uses a synthetic gradient.
//   - outputDir: Where SaveResults writes.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *Suite: The suite, without scenarios.
func NewSuite(detector Detector, source image.Image, outputDir string, logger *zap.SugaredLogger) *Suite {
	if source == nil {
		source = SyntheticFrame(1920, 1080)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Suite{
		detector:  detector,
		source:    source,
		outputDir: outputDir,
		logger:    logger,
	}
}

// SyntheticFrame returns a diagonal gradient, a stand-in when no sample frame is given.
func SyntheticFrame(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * x / max(1, width-1)),
				G: uint8(255 * y / max(1, height-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// AddScenario adds a scenario to the suite.
func (s *Suite) AddScenario(scenarios ...Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenarios...)
}

// EncodeFrame resizes the source frame to the scenario resolution and encodes it.
func (s *Suite) EncodeFrame(scenario Scenario) ([]byte, error) {
	r := scenario.Resolution
	if r.Width <= 0 || r.Height <= 0 {
		return nil, errors.Errorf("scenario %s has invalid resolution %dx%d", scenario.Name, r.Width, r.Height)
	}
	frame := imaging.Resize(s.source, r.Width, r.Height, imaging.Linear)

	var buf bytes.Buffer
	if err := images.Encode(&buf, frame, scenario.ImageFormat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunScenario decodes and detects the scenario's frame Iterations times.
//
// Arguments:
//   - ctx: Stops the scenario early when cancelled.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: Timings split into decode and detect.
//   - error: If the frame cannot be prepared or ctx is cancelled.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s needs at least one iteration", scenario.Name)
	}

	frame, err := s.EncodeFrame(scenario)
	if err != nil {
		return nil, err
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := s.processFrame(ctx, frame); err != nil {
			s.logger.Debugw("warmup failed", "scenario", scenario.Name, "error", err)
		}
	}

	metrics := &PerformanceMetrics{
		Scenario:   scenario,
		Timestamp:  time.Now(),
		FrameBytes: len(frame),
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	failures := 0
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decodeStart := time.Now()
		img, _, err := image.Decode(bytes.NewReader(frame))
		metrics.DecodeDuration += time.Since(decodeStart)
		if err != nil {
			failures++
			continue
		}

		detectStart := time.Now()
		detections, err := s.detector.Detect(ctx, img)
		metrics.DetectDuration += time.Since(detectStart)
		if err != nil {
			failures++
			continue
		}
		metrics.DetectionCount += len(detections)
	}
	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.FramesPerSecond = float64(scenario.Iterations) / secs
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	return metrics, nil
}

func (s *Suite) processFrame(ctx context.Context, frame []byte) (int, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode frame")
	}
	detections, err := s.detector.Detect(ctx, img)
	return len(detections), err
}

// RunAllScenarios runs every scenario in order. A failing scenario is logged and skipped.
//
// Returns:
//   - []PerformanceMetrics: The results of the scenarios that ran.
//   - error: If ctx is cancelled.
func (s *Suite) RunAllScenarios(ctx context.Context) ([]PerformanceMetrics, error) {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if ctx.Err() != nil {
			return s.Results(), ctx.Err()
		}
		if err != nil {
			s.logger.Warnw("scenario failed", "scenario", scenario.Name, "error", err)
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.logger.Infow("scenario completed",
			"scenario", scenario.Name,
			"fps", fmt.Sprintf("%.2f", metrics.FramesPerSecond),
			"decode", metrics.MeanDecode(),
			"detect", metrics.MeanDetect(),
			"frame_bytes", metrics.FrameBytes,
			"detections", metrics.DetectionCount,
		)
	}
	return s.Results(), nil
}

// Results returns a copy of the collected results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// SaveResults writes the results as JSON and a CSV summary into the output directory.
//
// Returns:
//   - string: The JSON file path.
//   - string: The CSV file path.
//   - error: If a file cannot be written.
func (s *Suite) SaveResults() (string, string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	jsonPath := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	csvPath := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "failed to write results file")
	}
	if err := writeSummaryCSV(csvPath, results); err != nil {
		return "", "", errors.Wrap(err, "failed to write summary file")
	}

	s.logger.Infow("benchmark results saved", "json", jsonPath, "csv", csvPath)
	return jsonPath, csvPath, nil
}

// SummaryHeader is the header row of the CSV summary.
var SummaryHeader = []string{
	"scenario", "resolution", "format", "fps", "decode_ms", "detect_ms", "frame_bytes",
	"alloc_mb", "detections", "error_rate",
}

func writeSummaryCSV(path string, results []PerformanceMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(SummaryHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			string(r.Scenario.ImageFormat),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.MeanDecode().Microseconds())/1e3, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MeanDetect().Microseconds())/1e3, 'f', 3, 64),
			strconv.Itoa(r.FrameBytes),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1<<20), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
