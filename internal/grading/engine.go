// Package grading compares extracted answers with an answer key and turns
// the correct count into official grade texts.
package grading

import (
	"fmt"

	"github.com/mind-engage/mindengage-omr/internal/extract"
)

// Params are the per-student scoring inputs entered outside the scan.
type Params struct {
	ValorReactivo float64 `json:"valorReactivo"`
	Bonus         float64 `json:"bonus"`
	Proyecto      float64 `json:"proyecto"`
	Mode          Mode    `json:"mode"`
}

// Report is the outcome of grading one sheet.
type Report struct {
	Aciertos    int         `json:"aciertos"`
	Total       int         `json:"total"`
	Grade       GradeResult `json:"grade"`
	NeedsManual bool        `json:"needsManual"` // true if a reviewer should look at the sheet
	Feedback    []string    `json:"feedback,omitempty"`
}

// Grader grades the answers read from one sheet.
type Grader interface {
	Grade(answers []extract.Answer, key Key, p Params) (Report, error)
}

type Option func(*config)

type config struct {
	MinAnswerConfidence float64 // marked answers below this are flagged for review
}

func WithMinAnswerConfidence(v float64) Option {
	return func(c *config) { c.MinAnswerConfidence = v }
}

// NewDefaultGrader matches against the key and computes the grade.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{MinAnswerConfidence: 0.25}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{cfg: *cfg}
}

type defaultGrader struct {
	cfg config
}

func (g *defaultGrader) Grade(answers []extract.Answer, key Key, p Params) (Report, error) {
	aciertos, total, err := Match(answers, key)
	if err != nil {
		return Report{}, err
	}
	grade, err := ComputeGrade(GradeInput{
		Aciertos:      aciertos,
		Total:         total,
		ValorReactivo: p.ValorReactivo,
		Bonus:         p.Bonus,
		Proyecto:      p.Proyecto,
		Mode:          p.Mode,
	})
	if err != nil {
		return Report{}, err
	}
	rep := Report{Aciertos: aciertos, Total: total, Grade: grade}
	for _, a := range answers {
		switch {
		case a.Status == extract.Ambiguous:
			rep.Feedback = append(rep.Feedback, fmt.Sprintf("question %d: ambiguous", a.Question+1))
		case a.Status == extract.Marked && a.Confidence < g.cfg.MinAnswerConfidence:
			rep.Feedback = append(rep.Feedback, fmt.Sprintf("question %d: weak mark (%.2f)", a.Question+1, a.Confidence))
		}
	}
	rep.NeedsManual = len(rep.Feedback) > 0
	return rep, nil
}
