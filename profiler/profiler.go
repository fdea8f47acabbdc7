// Package profiler - Runtime and pipeline timing reports for long running detection loops.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsCollector is polled on every sample for gauge values, such as the smoothed FPS.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// CollectorFunc adapts a function to MetricsCollector.
type CollectorFunc func() map[string]float64

// CollectMetrics calls f.
func (f CollectorFunc) CollectMetrics() map[string]float64 {
	return f()
}

// Options configures a Profiler.
type Options struct {
	// ReportInterval is how often a report is logged (default: 5s).
	ReportInterval time.Duration
	// SampleInterval is how often memory stats and collectors are sampled (default: 500ms).
	SampleInterval time.Duration
	// Window is the number of recent values kept per metric and operation (default: 300).
	Window int
}

// Profiler keeps rolling statistics of named operations (frame, detect) and metrics, and
// logs them periodically through zap.
type Profiler struct {
	opts   Options
	logger *zap.SugaredLogger

	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	startTime  time.Time
	memStats   runtime.MemStats
	lastNumGC  uint32
	metrics    map[string]*series
	operations map[string]*series
	collectors []MetricsCollector
}

// series is a rolling window of float samples with lifetime min, max and count.
type series struct {
	window []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

func (s *series) add(v float64, limit int) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
	s.window = append(s.window, v)
	s.sum += v
	if len(s.window) > limit {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

func (s *series) mean() float64 {
	if len(s.window) == 0 {
		return 0
	}
	return s.sum / float64(len(s.window))
}

// Stat summarizes one metric or operation. Operation values are in seconds.
type Stat struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Snapshot is a point in time view of the profiler.
type Snapshot struct {
	Uptime     time.Duration   `json:"uptime"`
	Goroutines int             `json:"goroutines"`
	HeapAlloc  uint64          `json:"heap_alloc"`
	NumGC      uint32          `json:"num_gc"`
	Metrics    map[string]Stat `json:"metrics"`
	Operations map[string]Stat `json:"operations"`
}

// New creates a profiler. Start must be called for periodic reports.
//
// Arguments:
//   - opts: Intervals and window size; zero values use the defaults.
//   - logger: The report sink; nil disables reporting.
//
// Returns:
//   - *Profiler: The profiler.
func New(opts Options, logger *zap.SugaredLogger) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 5 * time.Second
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 500 * time.Millisecond
	}
	if opts.Window <= 0 {
		opts.Window = 300
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Profiler{
		opts:       opts,
		logger:     logger,
		startTime:  time.Now(),
		metrics:    make(map[string]*series),
		operations: make(map[string]*series),
	}
}

// Start launches the sampling and reporting goroutine. Calling Start twice is a no-op.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.startTime = time.Now()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		sample := time.NewTicker(p.opts.SampleInterval)
		defer sample.Stop()
		report := time.NewTicker(p.opts.ReportInterval)
		defer report.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sample.C:
				p.sample()
			case <-report.C:
				p.Report()
			}
		}
	}()
}

// Stop ends the background goroutine and logs a final report.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	p.wg.Wait()
	p.Report()
}

// AddMetricsCollector registers a collector polled on every sample.
func (p *Profiler) AddMetricsCollector(collector MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, collector)
}

// RecordMetric records one value of a named metric.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(p.metrics, name, value)
}

// StartOperation begins timing a named operation.
//
// Returns:
//   - func(): Records the elapsed time when called.
//
// @example
// done := profiler.StartOperation("detect")
// detections, err := detector.Detect(ctx, img)
// done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records one completed run of a named operation.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(p.operations, name, d.Seconds())
}

func (p *Profiler) record(into map[string]*series, name string, value float64) {
	s, ok := into[name]
	if !ok {
		s = &series{window: make([]float64, 0, p.opts.Window)}
		into[name] = s
	}
	s.add(value, p.opts.Window)
}

func (p *Profiler) sample() {
	p.mu.Lock()
	collectors := append([]MetricsCollector(nil), p.collectors...)
	runtime.ReadMemStats(&p.memStats)
	p.mu.Unlock()

	// Collectors may call back into the profiler, so they run unlocked.
	for _, c := range collectors {
		for name, value := range c.CollectMetrics() {
			p.RecordMetric(name, value)
		}
	}
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	runtime.ReadMemStats(&p.memStats)
	snap := Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  p.memStats.HeapAlloc,
		NumGC:      p.memStats.NumGC,
		Metrics:    make(map[string]Stat, len(p.metrics)),
		Operations: make(map[string]Stat, len(p.operations)),
	}
	for name, s := range p.metrics {
		snap.Metrics[name] = Stat{Mean: s.mean(), Min: s.min, Max: s.max, Count: s.count}
	}
	for name, s := range p.operations {
		snap.Operations[name] = Stat{Mean: s.mean(), Min: s.min, Max: s.max, Count: s.count}
	}
	return snap
}

// Report logs the current statistics at info level.
func (p *Profiler) Report() {
	snap := p.Snapshot()

	p.mu.Lock()
	newGC := snap.NumGC - p.lastNumGC
	p.lastNumGC = snap.NumGC
	p.mu.Unlock()

	fields := []interface{}{
		"uptime", snap.Uptime.Truncate(time.Millisecond),
		"goroutines", snap.Goroutines,
		"heap", FormatBytes(snap.HeapAlloc),
		"gc", newGC,
	}
	for _, name := range sortedKeys(snap.Operations) {
		s := snap.Operations[name]
		fields = append(fields, name, fmt.Sprintf("avg=%v min=%v max=%v n=%d",
			seconds(s.Mean), seconds(s.Min), seconds(s.Max), s.Count))
	}
	for _, name := range sortedKeys(snap.Metrics) {
		s := snap.Metrics[name]
		fields = append(fields, name, fmt.Sprintf("avg=%.2f min=%.2f max=%.2f", s.Mean, s.Min, s.Max))
	}
	p.logger.Infow("profile", fields...)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Truncate(time.Microsecond)
}

func sortedKeys(m map[string]Stat) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatBytes formats a byte count with binary units, e.g. "1.5 KB".
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
