// Package yolov4 - postprocess YOLOv4 model outputs.
package yolov4

import (
	"sort"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/model/preprocess"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
)

// PostProcess postprocesses the outputs of the YOLOv4 model.
//
// Each head is decoded with its anchor group, the candidates of all heads are merged and
// suppressed per class, and the survivors are mapped back to source image pixels.
// Heads are matched to anchor groups by grid size, so the output order does not matter.
//
// Arguments:
//   - outputs: The three raw head outputs.
//   - letterbox: The transform applied to the input image.
//
// Returns:
//   - A slice of postprocessed results in source image pixels; nil if nothing survives.
//   - An error if the outputs do not match the model.
func (m *YOLOv4) PostProcess(outputs []model.Tensor, letterbox preprocess.LetterboxInfo) ([]postprocess.Result, error) {
	anchors := m.options.Anchors
	if len(outputs) != len(anchors) {
		return nil, errors.Errorf("expected %d outputs, got %d", len(anchors), len(outputs))
	}

	ordered := make([]model.Tensor, len(outputs))
	copy(ordered, outputs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return gridWidth(ordered[i]) < gridWidth(ordered[j])
	})

	var candidates []postprocess.Candidate
	for i, out := range ordered {
		predictions, err := DecodeBox(out.Data, out.Shape, anchors[i], m.options.NumClasses,
			m.options.InputWidth, m.options.InputHeight)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode output %d", i)
		}
		for _, p := range predictions {
			candidates = append(candidates, p.Candidate())
		}
	}

	results := postprocess.NonMaxSuppression(candidates, m.options.NMS)
	if len(results) == 0 {
		return nil, nil
	}

	return CorrectBoxes(results, letterbox), nil
}

func gridWidth(t model.Tensor) int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[len(t.Shape)-1]
}
