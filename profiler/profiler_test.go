package profiler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordMetricWindow(t *testing.T) {
	p := New(Options{Window: 2}, nil)
	p.RecordMetric("fps", 1)
	p.RecordMetric("fps", 5)
	p.RecordMetric("fps", 3)

	stat := p.Snapshot().Metrics["fps"]
	assert.InDelta(t, 4.0, stat.Mean, 1e-9)
	assert.Equal(t, 1.0, stat.Min)
	assert.Equal(t, 5.0, stat.Max)
	assert.Equal(t, int64(3), stat.Count)
}

func TestStartOperation(t *testing.T) {
	p := New(Options{}, nil)
	done := p.StartOperation("detect")
	time.Sleep(2 * time.Millisecond)
	done()
	p.RecordDuration("detect", 10*time.Millisecond)

	stat := p.Snapshot().Operations["detect"]
	assert.Equal(t, int64(2), stat.Count)
	assert.GreaterOrEqual(t, stat.Min, 0.002)
	assert.InDelta(t, 0.010, stat.Max, 1e-9)
}

func TestReportLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(Options{}, zap.New(core).Sugar())
	p.RecordDuration("frame", 40*time.Millisecond)
	p.RecordMetric("fps", 25)

	p.Report()

	entries := logs.FilterMessage("profile").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "frame")
	assert.Contains(t, fields, "fps")
	assert.Contains(t, fields["frame"], "n=1")
}

func TestStartStopCollects(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(Options{SampleInterval: time.Millisecond, ReportInterval: time.Hour}, zap.New(core).Sugar())
	p.AddMetricsCollector(CollectorFunc(func() map[string]float64 {
		return map[string]float64{"queue": 7}
	}))

	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return p.Snapshot().Metrics["queue"].Count > 0
	}, time.Second, time.Millisecond)
	p.Stop()
	p.Stop()

	assert.Equal(t, 7.0, p.Snapshot().Metrics["queue"].Mean)
	assert.Equal(t, 1, logs.FilterMessage("profile").Len())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2<<20))
}
