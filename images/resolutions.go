package images

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AspectRatio represents a camera aspect ratio by name (e.g., "16:9").
type AspectRatio string

const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// Resolution is a named frame size.
type Resolution struct {
	Name        string      `json:"name" yaml:"name"`
	AspectRatio AspectRatio `json:"aspect_ratio" yaml:"aspect_ratio"`
	Width       int         `json:"width" yaml:"width"`
	Height      int         `json:"height" yaml:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/1e4) / 100
}

// String returns e.g. "HD 720p (1280x720, 0.92MP)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// CameraResolutions are common surveillance camera frame sizes, smallest first.
var CameraResolutions = []Resolution{
	{Name: "nHD", AspectRatio: AspectRatio169, Width: 640, Height: 360},
	{Name: "VGA", AspectRatio: AspectRatio43, Width: 640, Height: 480},
	{Name: "qHD 540p", AspectRatio: AspectRatio169, Width: 960, Height: 540},
	{Name: "HD 720p", AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	{Name: "1MP (5:4)", AspectRatio: AspectRatio54, Width: 1280, Height: 1024},
	{Name: "2MP (4:3)", AspectRatio: AspectRatio43, Width: 1600, Height: 1200},
	{Name: "Full HD 1080p", AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
	{Name: "QHD 1440p", AspectRatio: AspectRatio169, Width: 2560, Height: 1440},
	{Name: "6MP (3:2)", AspectRatio: AspectRatio32, Width: 3072, Height: 2048},
	{Name: "4K UHD", AspectRatio: AspectRatio169, Width: 3840, Height: 2160},
}

// LookupResolution finds a camera resolution by name.
func LookupResolution(name string) (Resolution, bool) {
	for _, r := range CameraResolutions {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Resolution{}, false
}

// ParseResolution accepts a camera resolution name or a "WIDTHxHEIGHT" size.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if r, ok := LookupResolution(s); ok {
		return r, nil
	}
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return Resolution{}, errors.Errorf("invalid resolution %q, want a name or WIDTHxHEIGHT", s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return Resolution{}, errors.Errorf("invalid resolution %q, want a name or WIDTHxHEIGHT", s)
	}
	return Resolution{Name: fmt.Sprintf("%dx%d", width, height), Width: width, Height: height}, nil
}

// HighestResolutionWithin returns the largest camera resolution fitting in width x height.
func HighestResolutionWithin(width, height int) (Resolution, bool) {
	var (
		best  Resolution
		found bool
	)
	for _, r := range CameraResolutions {
		if r.Width <= width && r.Height <= height && (!found || r.Width*r.Height > best.Width*best.Height) {
			best = r
			found = true
		}
	}
	return best, found
}
