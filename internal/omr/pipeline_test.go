package omr_test

import (
	"encoding/json"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/extract"
	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/omrtest"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

func twoPageTemplate(t *testing.T) *sheet.Template {
	t.Helper()
	grid := sheet.Grid{OriginX: 80, OriginY: 80, Rows: 5, Columns: 4, SpacingX: 40, SpacingY: 30}
	tpl, err := sheet.FromDescriptor(sheet.Descriptor{
		ID:             "final-2p",
		ReferenceDPI:   100,
		BubbleDiameter: 16,
		Options:        []string{"A", "B", "C", "D"},
		Pages:          []sheet.Page{{Grid: grid}, {Grid: grid}},
		PageSpec:       sheet.PageSpec{NumeroPaginas: sheet.Num(2), Tipo: "global"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func renderPages(t *testing.T, tpl *sheet.Template) []image.Image {
	t.Helper()
	l0, _ := tpl.Layout(0)
	l1, _ := tpl.Layout(1)
	return []image.Image{
		omrtest.Render(l0, omrtest.Sheet{Width: 320, Height: 300, DX: 3, DY: 2,
			Marks: map[int][]int{0: {0}, 1: {1}, 2: {2}, 3: {3}, 4: {0}}}),
		omrtest.Render(l1, omrtest.Sheet{Width: 320, Height: 300, DX: -4, DY: 5,
			Marks: map[int][]int{0: {1}, 1: {1, 2}, 3: {3}}}),
	}
}

func TestScanAndGradeSheet(t *testing.T) {
	tpl := twoPageTemplate(t)
	p := omr.New()
	s, err := p.ScanSheet(renderPages(t, tpl), 0, tpl, profile.Lookup("geo_tight_search"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(s.Pages) != 2 || len(s.Answers) != 10 {
		t.Fatalf("pages=%d answers=%d", len(s.Pages), len(s.Answers))
	}
	if a := s.Pages[1].Alignment; a.DX != -4 || a.DY != 5 {
		t.Fatalf("page 2 alignment = (%d,%d)", a.DX, a.DY)
	}
	for i, a := range s.Answers {
		if a.Question != i {
			t.Fatalf("answer %d has question %d", i, a.Question)
		}
	}
	if s.Answers[6].Status != extract.Ambiguous || s.Answers[7].Status != extract.None {
		t.Fatalf("page 2 statuses: %s %s", s.Answers[6].Status, s.Answers[7].Status)
	}

	key := grading.Key{"A", "B", "C", "D", "A", "B", "B", "C", "D", "A"}
	rep, err := p.Grade(s, key, grading.Params{ValorReactivo: 0.5, Proyecto: 4, Mode: grading.ModeGlobal})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Aciertos != 7 || rep.Total != 10 {
		t.Fatalf("aciertos %d/%d, want 7/10", rep.Aciertos, rep.Total)
	}
	if rep.Grade.Examen != "3.5" || *rep.Grade.Global != "7.5" {
		t.Fatalf("grade = %+v", rep.Grade)
	}
	if !rep.NeedsManual {
		t.Fatal("ambiguous slot should request manual review")
	}
}

func TestScanSheetDeterministic(t *testing.T) {
	tpl := twoPageTemplate(t)
	pages := renderPages(t, tpl)
	a, err := omr.New(omr.WithAligner(align.New(align.WithWorkers(1)))).ScanSheet(pages, 0, tpl, profile.Lookup("actual"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := omr.New(omr.WithAligner(align.New(align.WithWorkers(16)))).ScanSheet(pages, 0, tpl, profile.Lookup("actual"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Pages {
		if a.Pages[i].Alignment != b.Pages[i].Alignment {
			t.Fatalf("page %d differs: %+v vs %+v", i, a.Pages[i].Alignment, b.Pages[i].Alignment)
		}
	}
}

func TestScanPageRescalesCapture(t *testing.T) {
	tpl := twoPageTemplate(t)
	src := renderPages(t, tpl)[0].(*image.Gray)
	// Pixel-doubled capture at twice the reference resolution.
	b := src.Bounds()
	big := image.NewGray(image.Rect(0, 0, b.Dx()*2, b.Dy()*2))
	for y := 0; y < big.Bounds().Dy(); y++ {
		for x := 0; x < big.Bounds().Dx(); x++ {
			big.Pix[y*big.Stride+x] = src.Pix[(y/2)*src.Stride+x/2]
		}
	}
	pr, err := omr.New().ScanPage(big, 200, tpl, 0, profile.Lookup(""))
	if err != nil {
		t.Fatal(err)
	}
	if pr.Alignment.DX != 3 || pr.Alignment.DY != 2 {
		t.Fatalf("alignment = %+v", pr.Alignment)
	}
	if pr.Answers[2].Selected() != "C" {
		t.Fatalf("answer 3 = %s", pr.Answers[2].Selected())
	}
}

func TestScanSheetErrors(t *testing.T) {
	tpl := twoPageTemplate(t)
	pages := renderPages(t, tpl)
	p := omr.New()

	if _, err := p.ScanSheet(pages[:1], 0, tpl, profile.Lookup("")); !errors.Is(err, omr.ErrPageCount) {
		t.Fatalf("want ErrPageCount, got %v", err)
	}

	blank := image.NewGray(image.Rect(0, 0, 320, 300))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	_, err := p.ScanSheet([]image.Image{pages[0], blank}, 0, tpl, profile.Lookup(""))
	var pe *omr.PageError
	if !errors.Is(err, align.ErrAlignmentFailed) || !errors.As(err, &pe) || pe.Page != 1 {
		t.Fatalf("want alignment failure on page 2, got %v", err)
	}

	tiny := image.NewGray(image.Rect(0, 0, 50, 50))
	if _, err := p.ScanSheet([]image.Image{tiny, pages[1]}, 0, tpl, profile.Lookup("")); !errors.Is(err, align.ErrGeometryOutOfBounds) {
		t.Fatalf("want ErrGeometryOutOfBounds, got %v", err)
	}
}

func TestNewTunedOverrides(t *testing.T) {
	tpl := twoPageTemplate(t)
	pages := renderPages(t, tpl)
	if _, err := omr.NewTuned(omr.Tuning{}).ScanSheet(pages, 0, tpl, profile.Lookup("")); err != nil {
		t.Fatalf("zero tuning should keep defaults: %v", err)
	}
	strict := omr.NewTuned(omr.Tuning{Workers: 2, MinConfidence: 0.999})
	if _, err := strict.ScanSheet(pages, 0, tpl, profile.Lookup("")); !errors.Is(err, align.ErrAlignmentFailed) {
		t.Fatalf("want ErrAlignmentFailed under strict confidence, got %v", err)
	}
}

func TestResultJSON(t *testing.T) {
	tpl := twoPageTemplate(t)
	p := omr.New()
	s, err := p.ScanSheet(renderPages(t, tpl), 0, tpl, profile.Lookup(""))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(omr.Result{Sheet: s})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"sheet":{"templateId":"`+tpl.ID+`"`) || strings.Contains(string(b), `"report"`) {
		t.Fatalf("scan-only result = %s", b)
	}

	rep, err := p.Grade(s, grading.Key{"A", "B", "C", "D", "A", "B", "B", "C", "D", "A"},
		grading.Params{ValorReactivo: 1, Mode: grading.ModeParcial})
	if err != nil {
		t.Fatal(err)
	}
	var back struct {
		Report *struct{ Aciertos int } `json:"report"`
	}
	b, _ = json.Marshal(omr.Result{Sheet: s, Report: &rep})
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Report == nil || back.Report.Aciertos != rep.Aciertos {
		t.Fatalf("graded result = %s", b)
	}
}
