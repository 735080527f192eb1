package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeGlobal  Mode = "global"
	ModeParcial Mode = "parcial"
)

// Grade ceilings.
var (
	MaxExamen   = decimal.NewFromInt(5)
	MaxProyecto = decimal.NewFromInt(5)
	MaxGlobal   = decimal.NewFromInt(10)
)

// Places is the number of decimals kept in every rendered grade.
const Places = 2

type GradeInput struct {
	Aciertos      int     `json:"aciertos"`
	Total         int     `json:"total"`
	ValorReactivo float64 `json:"valorReactivo"`
	Bonus         float64 `json:"bonus"`
	Proyecto      float64 `json:"proyecto"`
	Mode          Mode    `json:"mode"`
}

// GradeResult holds canonical decimal renderings: "5", "2.5", never "5.00".
// Global is set only in global mode and Parcial only in parcial mode.
type GradeResult struct {
	Mode     Mode    `json:"mode"`
	Examen   string  `json:"calificacionExamenTexto"`
	Proyecto string  `json:"calificacionProyectoTexto"`
	Global   *string `json:"calificacionGlobalTexto,omitempty"`
	Parcial  *string `json:"calificacionParcialTexto,omitempty"`
}

var ErrValidation = errors.New("invalid grade input")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (in GradeInput) Validate() error {
	bad := func(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }
	switch {
	case in.Total < 1:
		return bad("total", "must be >= 1")
	case in.Aciertos < 0:
		return bad("aciertos", "must be >= 0")
	case in.Aciertos > in.Total:
		return bad("aciertos", "must not exceed total")
	case !finite(in.ValorReactivo) || in.ValorReactivo <= 0:
		return bad("valorReactivo", "must be a finite number > 0")
	case !finite(in.Bonus) || in.Bonus < 0:
		return bad("bonus", "must be a finite number >= 0")
	case !finite(in.Proyecto) || in.Proyecto < 0:
		return bad("proyecto", "must be a finite number >= 0")
	case in.Mode != ModeGlobal && in.Mode != ModeParcial:
		return bad("mode", fmt.Sprintf("must be %q or %q", ModeGlobal, ModeParcial))
	}
	return nil
}

// ComputeGrade turns a correct count into grade texts. All arithmetic is
// decimal; each component is rounded half away from zero to Places before
// it is combined, so the rendered parts always add up.
//
//	examen   = min(aciertos*valorReactivo + bonus, 5)
//	proyecto = min(proyecto, 5)
//	global   = min(examen + proyecto, 10)   (global mode)
//	parcial  = min(examen*2, 10)            (parcial mode, exam only on the 10 scale)
func ComputeGrade(in GradeInput) (GradeResult, error) {
	if err := in.Validate(); err != nil {
		return GradeResult{}, err
	}
	raw := decimal.NewFromInt(int64(in.Aciertos)).
		Mul(decimal.NewFromFloat(in.ValorReactivo)).
		Add(decimal.NewFromFloat(in.Bonus))
	examen := capAt(raw, MaxExamen).Round(Places)
	proyecto := capAt(decimal.NewFromFloat(in.Proyecto), MaxProyecto).Round(Places)

	res := GradeResult{Mode: in.Mode, Examen: render(examen), Proyecto: render(proyecto)}
	switch in.Mode {
	case ModeGlobal:
		g := render(capAt(examen.Add(proyecto), MaxGlobal))
		res.Global = &g
	case ModeParcial:
		p := render(capAt(examen.Mul(decimal.NewFromInt(2)), MaxGlobal))
		res.Parcial = &p
	}
	return res, nil
}

func capAt(v, ceiling decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(ceiling) {
		return ceiling
	}
	return v
}

// render trims trailing zeros so equal values always print the same.
func render(v decimal.Decimal) string {
	return v.Round(Places).String()
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
