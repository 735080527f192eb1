// Package align registers a scanned page against its template by searching
// the translation that best matches the printed bubble outlines.
package align

import (
	"image"
	"math"
	"runtime"

	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

// DefaultMinConfidence is the lowest confidence Align accepts.
const DefaultMinConfidence = 0.2

// Result maps template coordinates onto the image: image = template + (DX, DY).
type Result struct {
	DX         int     `json:"dx"`
	DY         int     `json:"dy"`
	MatchScore float64 `json:"matchScore"`
	Confidence float64 `json:"confidence"`
	Candidates int     `json:"candidates"`
}

type Option func(*config)

type config struct {
	Workers       int
	MinConfidence float64
	CoarseStride  int // 0 derives it from the bubble diameter
}

func WithWorkers(n int) Option           { return func(c *config) { c.Workers = n } }
func WithMinConfidence(v float64) Option { return func(c *config) { c.MinConfidence = v } }
func WithCoarseStride(px int) Option     { return func(c *config) { c.CoarseStride = px } }

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	cfg config
}

func New(opts ...Option) *Engine {
	cfg := config{
		Workers:       runtime.GOMAXPROCS(0),
		MinConfidence: DefaultMinConfidence,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg}
}

// Align searches the offset that maps layout onto img within the bounds of
// p. The result does not depend on the worker count.
func (e *Engine) Align(img *image.Gray, layout sheet.Layout, p profile.Profile) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	f := newField(img, layout)
	ext := layout.Extents(float64(f.ring.reach+1)).Shift(float64(p.OffsetX), float64(p.OffsetY))
	if len(f.centres) == 0 || !ext.Within(f.w, f.h) {
		return Result{}, &BoundsError{Extents: ext, Width: f.w, Height: f.h}
	}

	stride := e.stride(layout)
	coarse := coarseCandidates(p, stride)
	e.evaluate(f, coarse)
	seed, ok := best(coarse)
	if !ok {
		return Result{}, &FailedError{MinConfidence: e.cfg.MinConfidence}
	}

	radius := int(math.Ceil(p.LocalSearchRatio * float64(stride)))
	fine := refineCandidates(p, seed, max(1, radius))
	e.evaluate(f, fine)

	win, _ := best(append(coarse, fine...))
	res := Result{
		DX:         win.dx,
		DY:         win.dy,
		MatchScore: win.score,
		Confidence: confidence(win.score, len(f.centres)),
		Candidates: len(coarse) + len(fine),
	}
	if res.Confidence < e.cfg.MinConfidence {
		return Result{}, &FailedError{Best: res, MinConfidence: e.cfg.MinConfidence}
	}
	return res, nil
}

func (e *Engine) stride(layout sheet.Layout) int {
	if e.cfg.CoarseStride > 0 {
		return e.cfg.CoarseStride
	}
	return max(1, int(math.Round(layout.Radius/2)))
}

// confidence normalises a score by its ceiling: full black-on-white
// contrast at every bubble.
func confidence(score float64, bubbles int) float64 {
	if bubbles == 0 || score <= 0 {
		return 0
	}
	return math.Min(1, score/float64(bubbles))
}
