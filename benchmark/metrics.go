package benchmark

import "time"

// PerformanceMetrics captures the results of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	DecodeDuration  time.Duration `json:"decode_duration"`
	DetectDuration  time.Duration `json:"detect_duration"`
	FramesPerSecond float64       `json:"frames_per_second"`
	FrameBytes      int           `json:"frame_bytes"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	DetectionCount  int           `json:"detection_count"`
	ErrorRate       float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage over a scenario.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// MeanDecode returns the average decode time per frame.
func (m PerformanceMetrics) MeanDecode() time.Duration {
	return perFrame(m.DecodeDuration, m.Scenario.Iterations)
}

// MeanDetect returns the average detection time per frame.
func (m PerformanceMetrics) MeanDetect() time.Duration {
	return perFrame(m.DetectDuration, m.Scenario.Iterations)
}

func perFrame(d time.Duration, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return d / time.Duration(n)
}
