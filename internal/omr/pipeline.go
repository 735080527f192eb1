// Package omr runs a scanned sheet through alignment, bubble extraction and
// grading. Every call is independent; a Pipeline holds no per-sheet state.
package omr

import (
	"errors"
	"fmt"
	"image"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/extract"
	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/raster"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

var ErrPageCount = errors.New("scan page count does not match template")

type PageResult struct {
	Page      int              `json:"page"`
	Alignment align.Result     `json:"alignment"`
	Answers   []extract.Answer `json:"answers"`
}

// Sheet is the reading of every page of one answer sheet.
type Sheet struct {
	TemplateID string           `json:"templateId"`
	Profile    profile.Name     `json:"profile"`
	Pages      []PageResult     `json:"pages"`
	Answers    []extract.Answer `json:"answers"`
}

// Result is the output of one sheet: the reading plus, when a key was
// given, its report.
type Result struct {
	Sheet  Sheet           `json:"sheet"`
	Report *grading.Report `json:"report,omitempty"`
}

// PageError attributes a stage failure to a page.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page+1, e.Err) }
func (e *PageError) Unwrap() error { return e.Err }

type Pipeline struct {
	aligner   *align.Engine
	extractor *extract.Extractor
	grader    grading.Grader
}

type Option func(*Pipeline)

func WithAligner(e *align.Engine) Option        { return func(p *Pipeline) { p.aligner = e } }
func WithExtractor(x *extract.Extractor) Option { return func(p *Pipeline) { p.extractor = x } }
func WithGrader(g grading.Grader) Option        { return func(p *Pipeline) { p.grader = g } }

func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		aligner:   align.New(),
		extractor: extract.New(),
		grader:    grading.NewDefaultGrader(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ScanPage aligns and reads one page. dpi is the capture resolution; zero
// means the image is already at the template's reference DPI.
func (p *Pipeline) ScanPage(img image.Image, dpi float64, tpl *sheet.Template, page int, prof profile.Profile) (PageResult, error) {
	layout, err := tpl.Layout(page)
	if err != nil {
		return PageResult{}, err
	}
	gray := raster.Normalize(img, dpi, tpl.ReferenceDPI)
	res, err := p.aligner.Align(gray, layout, prof)
	if err != nil {
		return PageResult{}, &PageError{Page: page, Err: err}
	}
	answers, err := p.extractor.Extract(gray, layout, res)
	if err != nil {
		return PageResult{}, &PageError{Page: page, Err: err}
	}
	return PageResult{Page: page, Alignment: res, Answers: answers}, nil
}

// ScanSheet reads pages in order; pages[i] is template page i. The first
// failing page aborts the sheet.
func (p *Pipeline) ScanSheet(pages []image.Image, dpi float64, tpl *sheet.Template, prof profile.Profile) (Sheet, error) {
	if len(pages) != tpl.PageCount {
		return Sheet{}, fmt.Errorf("%w: template %s has %d pages, got %d images", ErrPageCount, tpl.ID, tpl.PageCount, len(pages))
	}
	s := Sheet{TemplateID: tpl.ID, Profile: prof.Name, Answers: make([]extract.Answer, 0, tpl.Questions())}
	for i, img := range pages {
		pr, err := p.ScanPage(img, dpi, tpl, i, prof)
		if err != nil {
			return Sheet{}, err
		}
		s.Pages = append(s.Pages, pr)
		s.Answers = append(s.Answers, pr.Answers...)
	}
	return s, nil
}

// Grade scores a scanned sheet against key.
func (p *Pipeline) Grade(s Sheet, key grading.Key, params grading.Params) (grading.Report, error) {
	return p.grader.Grade(s.Answers, key, params)
}
