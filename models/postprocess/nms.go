// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold        float32 // Overlap above which a lower-scored box is suppressed.
	ConfidenceThreshold float32 // Combined score a candidate must exceed to be considered.
	NumClasses          int     // Candidates with a class outside [0, NumClasses) are dropped.
	NumWorkers          int     // Number of goroutines suppressing classes in parallel.
	MaxDetections       int     // If positive, keep only this many highest scoring results.
}

// DefaultNMSConfig returns the 0.2 confidence and 0.2 IoU thresholds used by YOLOv4.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{IoUThreshold: 0.2, ConfidenceThreshold: 0.2}
}

// NonMaxSuppression filters candidates by confidence and suppresses overlaps within each
// class.
//
// Boxes of different classes never suppress each other. The returned slice is ordered by
// class index, then by descending score.
//
// Arguments:
//   - candidates: Decoded candidates from every output scale.
//   - config: NMS configuration, DefaultNMSConfig when nil.
//
// Returns:
//   - The surviving detections, or nil when nothing survives.
func NonMaxSuppression(candidates []Candidate, config *NMSConfig) []Result {
	if len(candidates) == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	byClass := make(map[int][]Result)
	for _, c := range candidates {
		if c.Class < 0 || (config.NumClasses > 0 && c.Class >= config.NumClasses) {
			continue
		}
		score := c.Score()
		if !(score > config.ConfidenceThreshold) {
			continue
		}
		byClass[c.Class] = append(byClass[c.Class], Result{Box: c.Box, Score: score, Class: c.Class})
	}
	if len(byClass) == 0 {
		return nil
	}

	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	kept := make([][]Result, len(classes))
	suppress := func(i int) {
		group := byClass[classes[i]]
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].Score > group[b].Score
		})
		kept[i] = ApplyGreedyNMS(group, config)
	}

	if config.NumWorkers > 1 && len(classes) > 1 {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < min(config.NumWorkers, len(classes)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					suppress(i)
				}
			}()
		}
		for i := range classes {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	} else {
		for i := range classes {
			suppress(i)
		}
	}

	var results []Result
	for _, group := range kept {
		results = append(results, group...)
	}

	if config.MaxDetections > 0 && len(results) > config.MaxDetections {
		results = topByScore(results, config.MaxDetections)
	}

	return results
}

// topByScore keeps the n highest scoring results, preserving class-then-score order.
func topByScore(results []Result, n int) []Result {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].Score > results[order[b]].Score
	})
	order = order[:n]
	sort.Ints(order)

	top := make([]Result, 0, n)
	for _, i := range order {
		top = append(top, results[i])
	}
	return top
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: NMS configuration; only IoUThreshold is used.
//
// Returns:
//   - Filtered slice of detections.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}

			// Suppress if IoU exceeds threshold
			if images.CalculateIoU(anchor.Box, detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
