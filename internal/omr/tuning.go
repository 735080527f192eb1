package omr

import (
	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/extract"
	"github.com/mind-engage/mindengage-omr/internal/grading"
)

// Tuning overrides stage defaults. Zero fields keep them.
type Tuning struct {
	Workers             int
	MinConfidence       float64
	FillThreshold       float64
	MinAnswerConfidence float64
}

// NewTuned builds a Pipeline whose stages honour t.
func NewTuned(t Tuning) *Pipeline {
	var ao []align.Option
	if t.Workers > 0 {
		ao = append(ao, align.WithWorkers(t.Workers))
	}
	if t.MinConfidence > 0 {
		ao = append(ao, align.WithMinConfidence(t.MinConfidence))
	}
	var xo []extract.Option
	if t.FillThreshold > 0 {
		xo = append(xo, extract.WithFillThreshold(t.FillThreshold))
	}
	var gopts []grading.Option
	if t.MinAnswerConfidence > 0 {
		gopts = append(gopts, grading.WithMinAnswerConfidence(t.MinAnswerConfidence))
	}
	return New(
		WithAligner(align.New(ao...)),
		WithExtractor(extract.New(xo...)),
		WithGrader(grading.NewDefaultGrader(gopts...)),
	)
}
