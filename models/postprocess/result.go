// Package postprocess - Postprocessing utilities for models.
package postprocess

import "github.com/nvr-ai/go-yolo/images"

// Candidate is a decoded box before suppression.
type Candidate struct {
	// Box is in corner form, in letterboxed input pixel coordinates.
	Box images.Rect
	// Objectness is the probability that the box contains any object.
	Objectness float32
	// ClassScore is the best per-class probability.
	ClassScore float32
	// Class is the index of the best class.
	Class int
}

// Score returns the combined confidence, objectness times class score.
func (c Candidate) Score() float32 {
	return c.Objectness * c.ClassScore
}

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}
