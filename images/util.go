package images

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/draw"
)

// ToRGBA returns img as an *image.RGBA anchored at the origin, copying only when needed.
//
// Arguments:
//   - img: The image to convert.
//
// Returns:
//   - *image.RGBA: An RGBA view of img whose bounds start at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) && rgba.Stride == 4*rgba.Bounds().Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// CloneRGBA returns a fresh RGBA copy of img so callers can draw without touching the source.
func CloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ComputeImageChecksum generates a deterministic checksum of an image's pixels to verify
// idempotency.
//
// Arguments:
//   - img: The image to compute checksum for.
//
// Returns:
//   - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := ComputeImageChecksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func ComputeImageChecksum(img image.Image) string {
	if img == nil || img.Bounds().Empty() {
		return "empty"
	}

	rgba := ToRGBA(img)
	hash := md5.New()
	hash.Write(rgba.Pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
