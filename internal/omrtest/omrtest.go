// Package omrtest renders synthetic answer sheets for tests.
package omrtest

import (
	"image"
	"image/color"
	"math"

	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

// Template returns a one-page, rows×4 template with 16px bubbles at 100 DPI.
func Template(id string, rows int) *sheet.Template {
	t, err := sheet.FromDescriptor(sheet.Descriptor{
		ID:             id,
		ReferenceDPI:   100,
		BubbleDiameter: 16,
		Options:        []string{"A", "B", "C", "D"},
		Pages: []sheet.Page{{
			Anchors: []sheet.Point{{X: 30, Y: 30}},
			Grid:    sheet.Grid{OriginX: 80, OriginY: 80, Rows: rows, Columns: 4, SpacingX: 40, SpacingY: 30},
		}},
		PageSpec: sheet.PageSpec{NumeroPaginas: sheet.Num(1)},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Sheet describes what to draw on a synthetic page.
type Sheet struct {
	Width, Height int
	DX, DY        int
	// Marks maps a page-local question index to the option columns to fill.
	Marks map[int][]int
	// Shade is the fill gray level, 0 when unset.
	Shade uint8
	// Noise adds a deterministic speckle of the given amplitude.
	Noise uint8
}

// Render draws the outlines of every bubble in layout shifted by (DX, DY),
// fills the marked ones and returns the page.
func Render(layout sheet.Layout, s Sheet) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	r := layout.Radius
	for q, row := range layout.Bubbles {
		filled := map[int]bool{}
		for _, o := range s.Marks[q] {
			filled[o] = true
		}
		for o, p := range row {
			cx := int(math.Round(p.X)) + s.DX
			cy := int(math.Round(p.Y)) + s.DY
			disc(img, cx, cy, 0.85*r, 1.05*r, 0)
			if filled[o] {
				disc(img, cx, cy, 0, 0.75*r, s.Shade)
			}
		}
	}
	if s.Noise > 0 {
		speckle(img, s.Noise)
	}
	return img
}

func disc(img *image.Gray, cx, cy int, inner, outer float64, v uint8) {
	reach := int(math.Ceil(outer))
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= inner && d <= outer && image.Pt(x, y).In(img.Bounds()) {
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
}

// speckle perturbs pixels with a fixed linear congruential sequence so that
// renders are reproducible.
func speckle(img *image.Gray, amp uint8) {
	seed := uint32(1)
	for i, v := range img.Pix {
		seed = seed*1664525 + 1013904223
		n := int(seed>>24) % (int(amp) + 1)
		if v > 127 {
			img.Pix[i] = uint8(int(v) - n)
		} else {
			img.Pix[i] = uint8(int(v) + n)
		}
	}
}
