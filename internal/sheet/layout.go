package sheet

import "math"

// Layout is one page of a template resolved into pixel coordinates.
type Layout struct {
	Page          int
	FirstQuestion int
	Radius        float64
	Options       []string
	// Bubbles[q][o] is the centre of option o of the page's q-th question.
	Bubbles [][]Point
	Anchors []Point
}

// Rect is an axis-aligned box in pixel coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Count is the number of bubbles on the page.
func (l Layout) Count() int {
	n := 0
	for _, row := range l.Bubbles {
		n += len(row)
	}
	return n
}

// Extents is the bounding box of all bubble centres padded by margin, and of
// the anchor points.
func (l Layout) Extents(margin float64) Rect {
	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	grow := func(p Point, m float64) {
		r.MinX = math.Min(r.MinX, p.X-m)
		r.MinY = math.Min(r.MinY, p.Y-m)
		r.MaxX = math.Max(r.MaxX, p.X+m)
		r.MaxY = math.Max(r.MaxY, p.Y+m)
	}
	for _, row := range l.Bubbles {
		for _, p := range row {
			grow(p, margin)
		}
	}
	for _, p := range l.Anchors {
		grow(p, 0)
	}
	return r
}

// Shift moves the box by (dx, dy).
func (r Rect) Shift(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// Within reports whether r fits inside a w×h image.
func (r Rect) Within(w, h int) bool {
	return r.MinX >= 0 && r.MinY >= 0 && r.MaxX < float64(w) && r.MaxY < float64(h)
}

// Descriptor turns t back into its authoring shape with the resolved page
// count pinned in numeroPaginas.
func (t *Template) Descriptor() Descriptor {
	return Descriptor{
		ID:             t.ID,
		Version:        t.Version,
		ReferenceDPI:   t.ReferenceDPI,
		BubbleDiameter: t.BubbleDiameter,
		Options:        append([]string(nil), t.Options...),
		Pages:          clonePages(t.Pages),
		PageSpec:       PageSpec{NumeroPaginas: Num(float64(t.PageCount))},
	}
}
