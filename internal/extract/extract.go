// Package extract reads the marked option of every question on an aligned
// page.
package extract

import (
	"fmt"
	"image"
	"iter"
	"math"
	"slices"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

type Status string

const (
	Marked    Status = "marked"
	None      Status = "none"
	Ambiguous Status = "ambiguous"
)

// Answer is the reading of one question slot.
type Answer struct {
	Question int    `json:"question"`
	Option   string `json:"option,omitempty"` // set only when Status is Marked
	Status   Status `json:"status"`
	// Confidence is the darkness gap between the darkest and second darkest option.
	Confidence float64 `json:"confidence"`
	// Darkness per option in template order, 0 (paper) to 1 (black).
	Darkness []float64 `json:"darkness"`
}

// Selected is the chosen option label, or "none"/"ambiguous".
func (a Answer) Selected() string {
	if a.Status == Marked {
		return a.Option
	}
	return string(a.Status)
}

const (
	DefaultFillThreshold = 0.45
	DefaultInnerRatio    = 0.6
)

type Option func(*config)

type config struct {
	FillThreshold float64 // darkness at or above which a bubble counts as filled
	InnerRatio    float64 // sampled disc radius as a fraction of the bubble radius
}

func WithFillThreshold(v float64) Option { return func(c *config) { c.FillThreshold = v } }
func WithInnerRatio(v float64) Option    { return func(c *config) { c.InnerRatio = v } }

type Extractor struct {
	cfg config
}

func New(opts ...Option) *Extractor {
	cfg := config{FillThreshold: DefaultFillThreshold, InnerRatio: DefaultInnerRatio}
	for _, o := range opts {
		o(&cfg)
	}
	return &Extractor{cfg: cfg}
}

// Answers lazily yields one Answer per question of layout, in template
// order, sampling bubbles shifted by the alignment offset. Pixels outside
// the image read as paper; use Extract to reject such geometry up front.
func (x *Extractor) Answers(img *image.Gray, layout sheet.Layout, res align.Result) iter.Seq[Answer] {
	disc := discOffsets(math.Max(1, x.cfg.InnerRatio*layout.Radius))
	return func(yield func(Answer) bool) {
		for q, row := range layout.Bubbles {
			dark := make([]float64, len(row))
			for o, p := range row {
				cx := int(math.Round(p.X)) + res.DX
				cy := int(math.Round(p.Y)) + res.DY
				dark[o] = darkness(img, cx, cy, disc)
			}
			if !yield(x.classify(layout.FirstQuestion+q, layout.Options, dark)) {
				return
			}
		}
	}
}

// Extract collects Answers after checking that every sampled disc lies
// inside the image.
func (x *Extractor) Extract(img *image.Gray, layout sheet.Layout, res align.Result) ([]Answer, error) {
	reach := math.Ceil(math.Max(1, x.cfg.InnerRatio*layout.Radius)) + 1
	b := img.Bounds()
	ext := layout.Extents(reach).Shift(float64(res.DX), float64(res.DY))
	if !ext.Within(b.Dx(), b.Dy()) {
		return nil, fmt.Errorf("extract page %d: %w", layout.Page, &align.BoundsError{Extents: ext, Width: b.Dx(), Height: b.Dy()})
	}
	return slices.Collect(x.Answers(img, layout, res)), nil
}

func (x *Extractor) classify(question int, options []string, dark []float64) Answer {
	a := Answer{Question: question, Status: None, Darkness: dark}
	filled := 0
	for i, d := range dark {
		if d >= x.cfg.FillThreshold {
			filled++
			a.Option = options[i]
		}
	}
	switch {
	case filled == 1:
		a.Status = Marked
	case filled > 1:
		a.Status = Ambiguous
		a.Option = ""
	}
	a.Confidence = separation(dark)
	return a
}

// separation is darkest minus second darkest, or the darkest alone when
// there is a single option.
func separation(dark []float64) float64 {
	first, second := 0.0, 0.0
	for _, d := range dark {
		switch {
		case d > first:
			first, second = d, first
		case d > second:
			second = d
		}
	}
	return first - second
}

func discOffsets(r float64) []image.Point {
	reach := int(math.Ceil(r))
	var out []image.Point
	for oy := -reach; oy <= reach; oy++ {
		for ox := -reach; ox <= reach; ox++ {
			if math.Hypot(float64(ox), float64(oy)) <= r {
				out = append(out, image.Pt(ox, oy))
			}
		}
	}
	return out
}

// darkness is 1 - mean/255 over the disc at (cx, cy), coordinates relative
// to the image origin.
func darkness(img *image.Gray, cx, cy int, disc []image.Point) float64 {
	b := img.Bounds()
	var sum, n uint64
	for _, o := range disc {
		x, y := cx+o.X, cy+o.Y
		if x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
			sum += 255
		} else {
			sum += uint64(img.Pix[y*img.Stride+x])
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 - float64(sum)/float64(n)/255
}
