// Package profile holds the named alignment search presets.
package profile

import (
	"errors"
	"fmt"
)

type Name string

const (
	// Actual is the wide legacy search.
	Actual Name = "actual"
	// GeoTightSearch is the narrow tuned search and the default.
	GeoTightSearch Name = "geo_tight_search"
)

// Profile bounds the alignment search. Ranges and offsets are pixels at the
// template's reference DPI.
type Profile struct {
	Name             Name    `json:"name" yaml:"name"`
	AlignRange       int     `json:"alignRange" yaml:"align_range"`
	VertRange        int     `json:"vertRange" yaml:"vert_range"`
	LocalSearchRatio float64 `json:"localSearchRatio" yaml:"local_search_ratio"`
	OffsetX          int     `json:"offsetX" yaml:"offset_x"`
	OffsetY          int     `json:"offsetY" yaml:"offset_y"`
}

var builtin = map[Name]Profile{
	Actual: {
		Name:             Actual,
		AlignRange:       48,
		VertRange:        48,
		LocalSearchRatio: 1,
	},
	GeoTightSearch: {
		Name:             GeoTightSearch,
		AlignRange:       16,
		VertRange:        20,
		LocalSearchRatio: 0.5,
	},
}

// Default is the profile used for unknown or empty names.
const Default = GeoTightSearch

// Lookup returns the named profile, falling back to Default. Names match
// exactly: "ACTUAL" is not "actual".
func Lookup(name string) Profile {
	if p, ok := builtin[Name(name)]; ok {
		return p
	}
	return builtin[Default]
}

// Known reports whether name selects a built-in profile without fallback.
func Known(name string) bool {
	_, ok := builtin[Name(name)]
	return ok
}

// All returns the built-in profiles in a stable order.
func All() []Profile {
	return []Profile{builtin[Actual], builtin[GeoTightSearch]}
}

var ErrInvalid = errors.New("invalid alignment profile")

func (p Profile) Validate() error {
	switch {
	case p.AlignRange < 0 || p.VertRange < 0:
		return fmt.Errorf("%w: %s: negative search range", ErrInvalid, p.Name)
	case !(p.LocalSearchRatio > 0 && p.LocalSearchRatio <= 1):
		return fmt.Errorf("%w: %s: localSearchRatio %v not in (0,1]", ErrInvalid, p.Name, p.LocalSearchRatio)
	}
	return nil
}
