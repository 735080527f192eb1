package align

import (
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-omr/internal/profile"
)

// Scores closer than this are ties and fall through to the offset ordering.
const scoreTolerance = 1e-9

// candidates per worker task
const chunkSize = 32

type candidate struct {
	dx, dy int
	score  float64
	valid  bool
}

// coarseCandidates covers [-AlignRange, AlignRange]×[-VertRange, VertRange]
// around the profile offset: zero, every multiple of stride inside the
// range, and both range ends.
func coarseCandidates(p profile.Profile, stride int) []candidate {
	xs := axis(p.AlignRange, stride)
	ys := axis(p.VertRange, stride)
	out := make([]candidate, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, candidate{dx: p.OffsetX + x, dy: p.OffsetY + y})
		}
	}
	return out
}

func axis(limit, stride int) []int {
	vals := []int{0}
	for v := stride; v < limit; v += stride {
		vals = append(vals, v, -v)
	}
	if limit > 0 {
		vals = append(vals, limit, -limit)
	}
	slices.Sort(vals)
	return vals
}

// refineCandidates is the 1px neighbourhood of radius r around seed, kept
// inside the profile's search window.
func refineCandidates(p profile.Profile, seed candidate, r int) []candidate {
	loX, hiX := p.OffsetX-p.AlignRange, p.OffsetX+p.AlignRange
	loY, hiY := p.OffsetY-p.VertRange, p.OffsetY+p.VertRange
	var out []candidate
	for y := max(loY, seed.dy-r); y <= min(hiY, seed.dy+r); y++ {
		for x := max(loX, seed.dx-r); x <= min(hiX, seed.dx+r); x++ {
			if x == seed.dx && y == seed.dy {
				continue
			}
			out = append(out, candidate{dx: x, dy: y})
		}
	}
	return out
}

// evaluate scores every candidate in place. Each task owns a disjoint slice
// of cands, so no locking is needed and results do not depend on scheduling.
func (e *Engine) evaluate(f field, cands []candidate) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for lo := 0; lo < len(cands); lo += chunkSize {
		part := cands[lo:min(lo+chunkSize, len(cands))]
		g.Go(func() error {
			for i := range part {
				part[i].score, part[i].valid = f.score(part[i].dx, part[i].dy)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// best returns the highest scoring valid candidate. Candidates within
// scoreTolerance of the maximum are ranked by |dx|+|dy|, then dx, then dy.
func best(cands []candidate) (candidate, bool) {
	top := math.Inf(-1)
	for _, c := range cands {
		if c.valid && c.score > top {
			top = c.score
		}
	}
	var win candidate
	found := false
	for _, c := range cands {
		if !c.valid || c.score < top-scoreTolerance {
			continue
		}
		if !found || c.before(win) {
			win, found = c, true
		}
	}
	return win, found
}

func (c candidate) before(o candidate) bool {
	if a, b := abs(c.dx)+abs(c.dy), abs(o.dx)+abs(o.dy); a != b {
		return a < b
	}
	if c.dx != o.dx {
		return c.dx < o.dx
	}
	return c.dy < o.dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
