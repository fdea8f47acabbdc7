package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping exercises the early return for disjoint boxes.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	r1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	r2 := Rect{X1: 200, Y1: 200, X2: 300, Y2: 300}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(r1, r2)
	}
}

// BenchmarkIoU_PartialOverlap exercises the full intersection path.
func BenchmarkIoU_PartialOverlap(b *testing.B) {
	r1 := Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}
	r2 := Rect{X1: 100, Y1: 100, X2: 200, Y2: 200}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(r1, r2)
	}
}

// BenchmarkIoU_RandomPairs mimics the candidate pairs seen during suppression of a
// 416x416 frame.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rects := make([]Rect, 1024)
	for i := range rects {
		cx := rng.Float32() * 416
		cy := rng.Float32() * 416
		rects[i] = RectFromCenter(cx, cy, 10+rng.Float32()*200, 10+rng.Float32()*200)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rects[i%len(rects)], rects[(i*7+3)%len(rects)])
	}
}
