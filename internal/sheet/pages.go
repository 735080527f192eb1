package sheet

import (
	"bytes"
	"encoding/json"
	"math"
)

// SlotsPerPage is the number of answer slots printed on one page.
const SlotsPerPage = 20

// MaxPageCount caps ResolvePageCount so huge descriptor values saturate
// instead of overflowing int.
const MaxPageCount = 1 << 16

// OptionalNumber is a loosely-typed numeric descriptor field. Only JSON
// numbers set Valid; strings, booleans and null leave it unset.
type OptionalNumber struct {
	Value float64
	Valid bool
}

// Num returns a valid OptionalNumber.
func Num(v float64) OptionalNumber { return OptionalNumber{Value: v, Valid: true} }

func (n *OptionalNumber) UnmarshalJSON(b []byte) error {
	*n = OptionalNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n OptionalNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n OptionalNumber) finite() bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}

// PageSpec carries the page metadata of a template descriptor.
type PageSpec struct {
	NumeroPaginas  OptionalNumber `json:"numeroPaginas"`
	TotalReactivos OptionalNumber `json:"totalReactivos"`
	Tipo           string         `json:"tipo,omitempty"`
}

// ResolvePageCount returns the authoritative page count:
// an explicit numeroPaginas >= 1 (floored) wins, otherwise
// ceil(totalReactivos/20) when totalReactivos > 0, otherwise 1.
// Tipo never affects the result. Counts above MaxPageCount saturate.
func ResolvePageCount(s PageSpec) int {
	if s.NumeroPaginas.finite() && s.NumeroPaginas.Value >= 1 {
		return clampPages(math.Floor(s.NumeroPaginas.Value))
	}
	if s.TotalReactivos.finite() && s.TotalReactivos.Value > 0 {
		return clampPages(math.Ceil(s.TotalReactivos.Value / SlotsPerPage))
	}
	return 1
}

func clampPages(n float64) int {
	if n > MaxPageCount {
		return MaxPageCount
	}
	return int(n)
}
