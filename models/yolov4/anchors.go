package yolov4

import (
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
)

// NumScales is the number of detection heads in a YOLOv4 network.
const NumScales = 3

// Anchors holds one group of anchors per output scale. Group 0 belongs to the coarsest
// (stride 32) output.
type Anchors [][]model.Anchor

// Flatten returns every anchor across all groups, in group order.
func (a Anchors) Flatten() []model.Anchor {
	var out []model.Anchor
	for _, group := range a {
		out = append(out, group...)
	}
	return out
}

// PerScale returns the number of anchors in each group.
func (a Anchors) PerScale() int {
	if len(a) == 0 {
		return 0
	}
	return len(a[0])
}

// DefaultAnchors returns the YOLOv4 COCO anchors for a 416/608 input.
func DefaultAnchors() Anchors {
	return GroupAnchors([]float32{12, 16, 19, 36, 40, 28, 36, 75, 76, 55, 72, 146, 142, 110, 192, 243, 459, 401}, NumScales)
}

// GroupAnchors splits a flat w,h list into numScales groups.
//
// Anchor files list the smallest anchors first while the network emits the coarsest grid
// first, so the groups are reversed.
//
// Arguments:
//   - values: Flat list of width, height pairs.
//   - numScales: The number of groups to produce.
//
// Returns:
//   - Anchors: The grouped anchors, largest group first.
func GroupAnchors(values []float32, numScales int) Anchors {
	pairs := len(values) / 2
	perScale := pairs / numScales
	groups := make(Anchors, numScales)
	for g := 0; g < numScales; g++ {
		group := make([]model.Anchor, perScale)
		for k := range group {
			i := (g*perScale + k) * 2
			group[k] = model.Anchor{Width: values[i], Height: values[i+1]}
		}
		groups[numScales-1-g] = group
	}
	return groups
}

// ParseAnchors reads an anchor file: numbers separated by commas and/or whitespace,
// taken as width, height pairs.
//
// Arguments:
//   - r: The anchor file contents.
//   - numScales: The number of output scales to group the anchors into.
//
// Returns:
//   - Anchors: The grouped anchors.
//   - error: If a value is not a number or the count cannot be grouped evenly.
func ParseAnchors(r io.Reader, numScales int) (Anchors, error) {
	if numScales <= 0 {
		return nil, errors.Errorf("invalid number of scales: %d", numScales)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read anchors")
	}

	fields := strings.FieldsFunc(string(raw), func(c rune) bool {
		return c == ',' || unicode.IsSpace(c)
	})

	values := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid anchor value %q", f)
		}
		if v <= 0 {
			return nil, errors.Errorf("anchor value must be positive, got %v", v)
		}
		values = append(values, float32(v))
	}

	if len(values) == 0 {
		return nil, errors.New("anchor file is empty")
	}
	if len(values)%(2*numScales) != 0 {
		return nil, errors.Errorf("%d anchor values cannot be split into %d scales of width,height pairs",
			len(values), numScales)
	}

	return GroupAnchors(values, numScales), nil
}

// LoadAnchors reads and parses an anchor file from disk.
func LoadAnchors(path string, numScales int) (Anchors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open anchors file %s", path)
	}
	defer f.Close()

	anchors, err := ParseAnchors(f, numScales)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse anchors file %s", path)
	}
	return anchors, nil
}
