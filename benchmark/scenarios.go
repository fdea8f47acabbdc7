// Package benchmark - Detector throughput across camera resolutions and image formats.
package benchmark

import (
	"fmt"

	"github.com/nvr-ai/go-yolo/images"
)

// Scenario is one benchmark configuration: frames of a given size and encoding.
type Scenario struct {
	Name        string             `json:"name" yaml:"name"`
	Resolution  images.Resolution  `json:"resolution" yaml:"resolution"`
	ImageFormat images.ImageFormat `json:"image_format" yaml:"image_format"`
	Iterations  int                `json:"iterations" yaml:"iterations"`
	WarmupRuns  int                `json:"warmup_runs" yaml:"warmup_runs"`
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder with 100 iterations, 10 warmup runs and JPEG frames.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:        name,
			ImageFormat: images.FormatJPEG,
			Iterations:  100,
			WarmupRuns:  10,
		},
	}
}

// WithResolution sets the frame size.
func (sb *ScenarioBuilder) WithResolution(r images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = r
	return sb
}

// WithImageFormat sets the frame encoding.
func (sb *ScenarioBuilder) WithImageFormat(format images.ImageFormat) *ScenarioBuilder {
	sb.scenario.ImageFormat = format
	return sb
}

// WithIterations sets the number of timed iterations.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of untimed iterations.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// GenerateScenarios returns the cross product of resolutions and formats.
//
// Arguments:
//   - resolutions: The frame sizes.
//   - formats: The encodings.
//   - iterations: Timed iterations per scenario.
//   - warmups: Untimed iterations per scenario.
//
// Returns:
//   - []Scenario: One scenario per pair, named e.g. "HD 720p/jpeg".
func GenerateScenarios(resolutions []images.Resolution, formats []images.ImageFormat, iterations, warmups int) []Scenario {
	scenarios := make([]Scenario, 0, len(resolutions)*len(formats))
	for _, r := range resolutions {
		for _, f := range formats {
			scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("%s/%s", r.Name, f)).
				WithResolution(r).
				WithImageFormat(f).
				WithIterations(iterations).
				WithWarmupRuns(warmups).
				Build())
		}
	}
	return scenarios
}
