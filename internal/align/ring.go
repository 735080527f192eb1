package align

import (
	"image"
	"math"

	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

// Sampling annuli, as fractions of the bubble radius. The band covers the
// printed outline, the surround the paper just outside it. Neither reaches
// the bubble interior, so pencil fills do not move the registration.
const (
	bandInner     = 0.8
	bandOuter     = 1.1
	surroundInner = 1.3
	surroundOuter = 1.7

	minRadius = 2.0
)

// ring holds pixel offsets, pre-multiplied by the image stride, of the band
// and surround annuli around a bubble centre.
type ring struct {
	band, surround []int
	reach          int
}

func newRing(radius float64, stride int) ring {
	r := math.Max(radius, minRadius)
	reach := int(math.Ceil(surroundOuter * r))
	var rg ring
	rg.reach = reach
	for oy := -reach; oy <= reach; oy++ {
		for ox := -reach; ox <= reach; ox++ {
			d := math.Hypot(float64(ox), float64(oy)) / r
			switch {
			case d >= bandInner && d <= bandOuter:
				rg.band = append(rg.band, oy*stride+ox)
			case d >= surroundInner && d <= surroundOuter:
				rg.surround = append(rg.surround, oy*stride+ox)
			}
		}
	}
	return rg
}

// field is the per-call view of one image and one page layout. Coordinates
// are relative to the image bounds' origin.
type field struct {
	pix     []uint8
	stride  int
	w, h    int
	centres []image.Point
	ring    ring
}

func newField(img *image.Gray, layout sheet.Layout) field {
	b := img.Bounds()
	f := field{
		pix:    img.Pix,
		stride: img.Stride,
		w:      b.Dx(),
		h:      b.Dy(),
		ring:   newRing(layout.Radius, img.Stride),
	}
	f.centres = make([]image.Point, 0, layout.Count())
	for _, row := range layout.Bubbles {
		for _, p := range row {
			f.centres = append(f.centres, image.Pt(int(math.Round(p.X)), int(math.Round(p.Y))))
		}
	}
	return f
}

// score sums the outline contrast of every bubble shifted by (dx, dy).
// Bubbles are visited in template order, so the sum is reproducible.
// ok is false when any footprint leaves the image.
func (f field) score(dx, dy int) (total float64, ok bool) {
	reach := f.ring.reach
	for _, c := range f.centres {
		x, y := c.X+dx, c.Y+dy
		if x-reach < 0 || y-reach < 0 || x+reach >= f.w || y+reach >= f.h {
			return 0, false
		}
		base := y*f.stride + x
		band := mean(f.pix, base, f.ring.band)
		sur := mean(f.pix, base, f.ring.surround)
		if d := sur - band; d > 0 {
			total += d / 255
		}
	}
	return total, true
}

func mean(pix []uint8, base int, offsets []int) float64 {
	if len(offsets) == 0 {
		return 0
	}
	var sum uint64
	for _, o := range offsets {
		sum += uint64(pix[base+o])
	}
	return float64(sum) / float64(len(offsets))
}
