// Package sheet describes answer-sheet templates: the bubble grid of every
// page, its anchors and the page count resolved from the descriptor.
package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grid is a rows×columns block of bubbles. A row is one question, a column
// one option; centres are Origin + (col*SpacingX, row*SpacingY).
type Grid struct {
	OriginX  float64 `json:"originX"`
	OriginY  float64 `json:"originY"`
	Rows     int     `json:"rows"`
	Columns  int     `json:"columns"`
	SpacingX float64 `json:"spacingX"`
	SpacingY float64 `json:"spacingY"`
}

type Page struct {
	Anchors []Point `json:"anchors,omitempty"`
	Grid    Grid    `json:"grid"`
}

// Template is one versioned answer-sheet layout. Geometry is expressed in
// pixels at ReferenceDPI. Treat it as read-only once loaded.
type Template struct {
	ID             string   `json:"templateId"`
	Version        int      `json:"version,omitempty"`
	PageCount      int      `json:"pageCount"`
	ReferenceDPI   float64  `json:"referenceDpi"`
	BubbleDiameter float64  `json:"bubbleDiameter"`
	Options        []string `json:"options"`
	Pages          []Page   `json:"pages"`
}

// Descriptor is the JSON shape produced by the template authoring tool.
type Descriptor struct {
	ID             string   `json:"templateId"`
	Version        int      `json:"version,omitempty"`
	ReferenceDPI   float64  `json:"referenceDpi"`
	BubbleDiameter float64  `json:"bubbleDiameter"`
	Options        []string `json:"options"`
	Pages          []Page   `json:"pages"`
	PageSpec
}

// ValidationError reports a template that breaks a structural invariant.
type ValidationError struct {
	TemplateID string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("template: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("template %s: %s: %s", e.TemplateID, e.Field, e.Reason)
}

// ErrUnknownPage is returned by Layout for a page index outside the template.
var ErrUnknownPage = errors.New("page index out of range")

// FromDescriptor resolves the page count and validates the result.
func FromDescriptor(d Descriptor) (*Template, error) {
	t := &Template{
		ID:             strings.TrimSpace(d.ID),
		Version:        d.Version,
		PageCount:      ResolvePageCount(d.PageSpec),
		ReferenceDPI:   d.ReferenceDPI,
		BubbleDiameter: d.BubbleDiameter,
		Options:        append([]string(nil), d.Options...),
		Pages:          clonePages(d.Pages),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Decode reads a JSON descriptor.
func Decode(r io.Reader) (*Template, error) {
	var d Descriptor
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return FromDescriptor(d)
}

func (t *Template) Validate() error {
	bad := func(field, reason string, args ...any) error {
		return &ValidationError{TemplateID: t.ID, Field: field, Reason: fmt.Sprintf(reason, args...)}
	}
	if t.ID == "" {
		return bad("templateId", "required")
	}
	if t.PageCount < 1 {
		return bad("pageCount", "must be >= 1, got %d", t.PageCount)
	}
	if len(t.Pages) != t.PageCount {
		return bad("pages", "expected %d pages, got %d", t.PageCount, len(t.Pages))
	}
	if !positive(t.ReferenceDPI) {
		return bad("referenceDpi", "must be > 0")
	}
	if !positive(t.BubbleDiameter) {
		return bad("bubbleDiameter", "must be > 0")
	}
	seen := make(map[string]bool, len(t.Options))
	for _, o := range t.Options {
		if strings.TrimSpace(o) == "" {
			return bad("options", "empty option label")
		}
		if seen[o] {
			return bad("options", "duplicate option %q", o)
		}
		seen[o] = true
	}
	for i, p := range t.Pages {
		g := p.Grid
		field := fmt.Sprintf("pages[%d].grid", i)
		if g.Rows <= 0 || g.Columns <= 0 {
			return bad(field, "rows and columns must be positive, got %dx%d", g.Rows, g.Columns)
		}
		if g.Columns != len(t.Options) {
			return bad(field, "%d columns but %d options", g.Columns, len(t.Options))
		}
		if (g.Columns > 1 && !positive(g.SpacingX)) || (g.Rows > 1 && !positive(g.SpacingY)) {
			return bad(field, "spacing must be > 0")
		}
		if math.IsNaN(g.OriginX) || math.IsNaN(g.OriginY) {
			return bad(field, "origin is not a number")
		}
	}
	return nil
}

// Questions is the number of question slots across all pages.
func (t *Template) Questions() int {
	n := 0
	for _, p := range t.Pages {
		n += p.Grid.Rows
	}
	return n
}

// HasOption reports whether o is one of the template's option labels.
func (t *Template) HasOption(o string) bool {
	for _, v := range t.Options {
		if v == o {
			return true
		}
	}
	return false
}

// Layout resolves page into bubble centres at reference DPI.
func (t *Template) Layout(page int) (Layout, error) {
	if page < 0 || page >= len(t.Pages) {
		return Layout{}, fmt.Errorf("%w: %d of %d", ErrUnknownPage, page, len(t.Pages))
	}
	first := 0
	for _, p := range t.Pages[:page] {
		first += p.Grid.Rows
	}
	p := t.Pages[page]
	g := p.Grid
	bubbles := make([][]Point, g.Rows)
	for r := range bubbles {
		row := make([]Point, g.Columns)
		for c := range row {
			row[c] = Point{X: g.OriginX + float64(c)*g.SpacingX, Y: g.OriginY + float64(r)*g.SpacingY}
		}
		bubbles[r] = row
	}
	return Layout{
		Page:          page,
		FirstQuestion: first,
		Radius:        t.BubbleDiameter / 2,
		Options:       append([]string(nil), t.Options...),
		Bubbles:       bubbles,
		Anchors:       append([]Point(nil), p.Anchors...),
	}, nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func clonePages(in []Page) []Page {
	out := make([]Page, len(in))
	for i, p := range in {
		out[i] = Page{Anchors: append([]Point(nil), p.Anchors...), Grid: p.Grid}
	}
	return out
}
