package yolov4

import (
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model/preprocess"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// CorrectBox maps a box from the letterboxed frame back to source image pixels, clamped
// to the source bounds.
func CorrectBox(box images.Rect, info preprocess.LetterboxInfo) images.Rect {
	sx := float32(info.ScaleX)
	sy := float32(info.ScaleY)
	if sx <= 0 || sy <= 0 {
		return box.Clamp(float32(info.SourceWidth), float32(info.SourceHeight))
	}
	px := float32(info.PadX)
	py := float32(info.PadY)

	return images.Rect{
		X1: (box.X1 - px) / sx,
		Y1: (box.Y1 - py) / sy,
		X2: (box.X2 - px) / sx,
		Y2: (box.Y2 - py) / sy,
	}.Clamp(float32(info.SourceWidth), float32(info.SourceHeight))
}

// CorrectBoxes inverts the letterbox transform for every result.
//
// Arguments:
//   - results: Detections in letterboxed input pixels.
//   - info: The transform applied during preprocessing.
//
// Returns:
//   - A new slice with boxes in source image pixels.
func CorrectBoxes(results []postprocess.Result, info preprocess.LetterboxInfo) []postprocess.Result {
	if results == nil {
		return nil
	}
	corrected := make([]postprocess.Result, len(results))
	for i, r := range results {
		r.Box = CorrectBox(r.Box, info)
		corrected[i] = r
	}
	return corrected
}
