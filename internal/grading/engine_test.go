package grading_test

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-omr/internal/extract"
	"github.com/mind-engage/mindengage-omr/internal/grading"
)

func TestDefaultGrader(t *testing.T) {
	g := grading.NewDefaultGrader()
	answers := []extract.Answer{
		marked(0, "A"),
		marked(1, "B"),
		{Question: 2, Status: extract.Ambiguous},
		{Question: 3, Status: extract.Marked, Option: "D", Confidence: 0.1},
	}
	rep, err := g.Grade(answers, grading.Key{"A", "B", "C", "D"}, grading.Params{
		ValorReactivo: 1, Proyecto: 3, Mode: grading.ModeGlobal,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Aciertos != 3 || rep.Total != 4 {
		t.Fatalf("got %d/%d", rep.Aciertos, rep.Total)
	}
	if rep.Grade.Examen != "3" || rep.Grade.Global == nil || *rep.Grade.Global != "6" {
		t.Fatalf("grade = %+v", rep.Grade)
	}
	if !rep.NeedsManual || len(rep.Feedback) != 2 {
		t.Fatalf("want review for ambiguous and weak marks, got %v %v", rep.NeedsManual, rep.Feedback)
	}
}

func TestDefaultGraderClean(t *testing.T) {
	g := grading.NewDefaultGrader(grading.WithMinAnswerConfidence(0.05))
	answers := []extract.Answer{marked(0, "A"), {Question: 1, Status: extract.None}}
	rep, err := g.Grade(answers, grading.Key{"A", "B"}, grading.Params{ValorReactivo: 2.5, Mode: grading.ModeParcial})
	if err != nil {
		t.Fatal(err)
	}
	if rep.NeedsManual {
		t.Fatalf("unexpected review flags: %v", rep.Feedback)
	}
	if rep.Grade.Parcial == nil || *rep.Grade.Parcial != "5" {
		t.Fatalf("parcial = %+v", rep.Grade)
	}
}

func TestDefaultGraderPropagatesErrors(t *testing.T) {
	g := grading.NewDefaultGrader()
	if _, err := g.Grade(nil, grading.Key{"A"}, grading.Params{ValorReactivo: 1, Mode: grading.ModeGlobal}); !errors.Is(err, grading.ErrKeyMismatch) {
		t.Fatalf("want ErrKeyMismatch, got %v", err)
	}
	if _, err := g.Grade(nil, nil, grading.Params{ValorReactivo: 1, Mode: grading.ModeGlobal}); !errors.Is(err, grading.ErrValidation) {
		t.Fatalf("empty key should fail validation (total < 1), got %v", err)
	}
}
