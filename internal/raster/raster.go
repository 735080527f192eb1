// Package raster turns captured scans into grayscale images at the
// resolution a template was authored for.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	xdraw "golang.org/x/image/draw"
)

var ErrEmptyImage = errors.New("empty image")

// Decode reads a PNG, JPEG, GIF, TIFF or BMP scan and returns its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode scan: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Gray reduces img to luminance with its origin moved to (0,0).
// A *image.Gray already anchored at the origin is returned as is.
func Gray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// Normalize returns img in grayscale, resampled from dpi to refDPI.
// A non-positive dpi means the scan is already at refDPI.
func Normalize(img image.Image, dpi, refDPI float64) *image.Gray {
	g := Gray(img)
	if dpi <= 0 || refDPI <= 0 || math.Abs(dpi-refDPI) < 1e-6 {
		return g
	}
	f := refDPI / dpi
	w := int(math.Round(float64(g.Bounds().Dx()) * f))
	h := int(math.Round(float64(g.Bounds().Dy()) * f))
	if w < 1 || h < 1 {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), g, g.Bounds(), xdraw.Src, nil)
	return out
}
