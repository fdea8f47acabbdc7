package yolov4

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Prediction is one decoded anchor box, in letterboxed input pixels.
type Prediction struct {
	CX, CY, W, H float32
	Objectness   float32
	ClassScores  []float32
}

// Candidate converts the prediction to a corner-form candidate carrying its best class.
func (p Prediction) Candidate() postprocess.Candidate {
	best := 0
	for k, s := range p.ClassScores {
		if s > p.ClassScores[best] {
			best = k
		}
	}
	var score float32
	if len(p.ClassScores) > 0 {
		score = p.ClassScores[best]
	}
	return postprocess.Candidate{
		Box:        images.RectFromCenter(p.CX, p.CY, p.W, p.H),
		Objectness: p.Objectness,
		ClassScore: score,
		Class:      best,
	}
}

// Sigmoid is the logistic function.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// DecodeBox decodes one YOLO head output into anchor box predictions.
//
// The feature map has A*(5+C) channels; for anchor a the channels are tx, ty, tw, th,
// objectness, then C class logits. For cell (i, j):
//
//	cx = (sigmoid(tx) + j) * strideX
//	cy = (sigmoid(ty) + i) * strideY
//	w  = exp(tw) * anchor.Width
//	h  = exp(th) * anchor.Height
//
// Arguments:
//   - output: The raw head output, shape [1, A*(5+C), gh, gw] or [A*(5+C), gh, gw].
//   - shape: The shape of output.
//   - anchors: The anchors of this head, in input pixels.
//   - numClasses: The number of classes C.
//   - inputWidth, inputHeight: The network input size.
//
// Returns:
//   - []Prediction: One prediction per anchor and cell, ordered anchor, row, column.
//   - error: If the shape does not match the anchors and class count.
func DecodeBox(
	output []float32,
	shape []int,
	anchors []model.Anchor,
	numClasses int,
	inputWidth, inputHeight int,
) ([]Prediction, error) {
	dims := shape
	if len(dims) == 4 {
		if dims[0] != 1 {
			return nil, errors.Errorf("only batch size 1 is supported, got %d", dims[0])
		}
		dims = dims[1:]
	}
	if len(dims) != 3 {
		return nil, errors.Errorf("expected a 3 or 4 dimensional output, got shape %v", shape)
	}

	numAnchors := len(anchors)
	attrs := 5 + numClasses
	channels, gridH, gridW := dims[0], dims[1], dims[2]
	if numAnchors == 0 || channels != numAnchors*attrs {
		return nil, errors.Errorf("output has %d channels, want %d anchors x (5 + %d classes)",
			channels, numAnchors, numClasses)
	}
	if gridH <= 0 || gridW <= 0 {
		return nil, errors.Errorf("invalid grid size %dx%d", gridW, gridH)
	}
	if len(output) != channels*gridH*gridW {
		return nil, errors.Errorf("output has %d values, shape %v needs %d", len(output), shape, channels*gridH*gridW)
	}

	dense := tensor.New(tensor.WithShape(channels, gridH, gridW), tensor.WithBacking(output))
	data, err := native.Tensor3F32(dense)
	if err != nil {
		return nil, errors.Wrap(err, "can't view YOLO head output as a 3D tensor")
	}

	strideX := float32(inputWidth) / float32(gridW)
	strideY := float32(inputHeight) / float32(gridH)

	predictions := make([]Prediction, 0, numAnchors*gridH*gridW)
	for a, anchor := range anchors {
		channel := a * attrs
		for i := 0; i < gridH; i++ {
			for j := 0; j < gridW; j++ {
				scores := make([]float32, numClasses)
				for k := range scores {
					scores[k] = Sigmoid(data[channel+5+k][i][j])
				}
				predictions = append(predictions, Prediction{
					CX:          (Sigmoid(data[channel][i][j]) + float32(j)) * strideX,
					CY:          (Sigmoid(data[channel+1][i][j]) + float32(i)) * strideY,
					W:           math32.Exp(data[channel+2][i][j]) * anchor.Width,
					H:           math32.Exp(data[channel+3][i][j]) * anchor.Height,
					Objectness:  Sigmoid(data[channel+4][i][j]),
					ClassScores: scores,
				})
			}
		}
	}

	return predictions, nil
}
