// Package util - Image file discovery, decoding and saving.
package util

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	// Registers the WebP decoder with image.Decode.
	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the number in the file name, e.g. 12 for "frame-12.jpg", or -1.
	Frame int
}

// Open decodes the image file.
func (f ImageFile) Open() (image.Image, error) {
	return ReadImage(f.Path)
}

// LoadDirectoryImageFiles lists the image files of a directory.
//
// Numbered files ("frame-12.jpg", "12.png") come first in frame order, followed by the
// rest in name order.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The image files, not decoded.
// - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := images.FormatFromPath(entry.Name()); err != nil {
			continue
		}
		files = append(files, ImageFile{
			Path:  filepath.Join(dir, entry.Name()),
			Frame: frameNumber(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if (a.Frame >= 0) != (b.Frame >= 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return files, nil
}

func frameNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.TrimPrefix(stem, "frame-")
	frame, err := strconv.Atoi(stem)
	if err != nil || frame < 0 {
		return -1
	}
	return frame
}

// ReadImage decodes an image file, applying its EXIF orientation. WebP is supported
// alongside the standard formats.
func ReadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %s", path)
	}
	return img, nil
}

// SaveImage encodes img with the format implied by the path extension.
func SaveImage(path string, img image.Image) error {
	format, err := images.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := images.Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// OutputPath returns "<dir>/<name>_detected<ext>" for an input image path. An empty dir
// keeps the input's directory.
func OutputPath(input, dir string) string {
	ext := filepath.Ext(input)
	name := strings.TrimSuffix(filepath.Base(input), ext) + "_detected" + ext
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}
