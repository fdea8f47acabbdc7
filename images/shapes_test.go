package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
		},
		{
			name:     "Small overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{90, 90, 190, 190},
			expected: 0.005025, // 100 / 19900
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
		},
		{
			name:     "Fractional coordinates",
			r1:       Rect{0.5, 0.5, 10.5, 10.5},
			r2:       Rect{5.5, 0.5, 15.5, 10.5},
			expected: 50.0 / 150.0,
		},
		{
			name:     "Degenerate box",
			r1:       Rect{10, 10, 10, 10},
			r2:       Rect{0, 0, 20, 20},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 0.001)

			// IoU(A, B) must equal IoU(B, A).
			assert.InDelta(t, result, CalculateIoU(tt.r2, tt.r1), 1e-6)
		})
	}
}

func TestRectFromCenter(t *testing.T) {
	r := RectFromCenter(50, 40, 20, 10)

	assert.Equal(t, Rect{X1: 40, Y1: 35, X2: 60, Y2: 45}, r)
	assert.InDelta(t, 20, r.Width(), 1e-6)
	assert.InDelta(t, 10, r.Height(), 1e-6)
	assert.InDelta(t, 200, r.Area(), 1e-6)
}

func TestRectClampAndRound(t *testing.T) {
	r := Rect{X1: -12.2, Y1: 3.4, X2: 700.9, Y2: 99.5}

	clamped := r.Clamp(640, 480)
	assert.Equal(t, Rect{X1: 0, Y1: 3.4, X2: 640, Y2: 99.5}, clamped)

	assert.Equal(t, image.Rect(0, 3, 640, 100), clamped.ToRectangle())
}

func TestRectInvertedHasNoArea(t *testing.T) {
	r := Rect{X1: 10, Y1: 10, X2: 5, Y2: 5}

	assert.Zero(t, r.Width())
	assert.Zero(t, r.Height())
	assert.Zero(t, r.Area())
}
