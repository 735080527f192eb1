package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/raster"
)

// ScanRequest selects how a sheet is read and, when Key is set, graded.
type ScanRequest struct {
	Pages   []string        `json:"pages,omitempty"` // blob keys, /scan-blobs only
	Key     []string        `json:"key,omitempty"`
	Params  *grading.Params `json:"params,omitempty"`
	Profile string          `json:"profile,omitempty"`
	DPI     float64         `json:"dpi,omitempty"` // capture DPI; 0 means template DPI
}

func (req ScanRequest) check() error {
	if (len(req.Key) > 0) != (req.Params != nil) {
		return badRequest{"key and params must be given together"}
	}
	if req.DPI < 0 {
		return badRequest{"dpi must be >= 0"}
	}
	return nil
}

// POST /templates/{id}/scan
//
// multipart: page=<image> repeated in page order, meta=<ScanRequest JSON>.
func (h *handlers) scanUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		h.fail(w, r, badRequest{"multipart: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var req ScanRequest
	if meta := r.FormValue("meta"); meta != "" {
		if err := json.Unmarshal([]byte(meta), &req); err != nil {
			h.fail(w, r, badRequest{"meta: " + err.Error()})
			return
		}
	}
	files := r.MultipartForm.File["page"]
	if len(files) == 0 {
		h.fail(w, r, badRequest{"at least one page file required"})
		return
	}
	pages := make([]image.Image, 0, len(files))
	for i, fh := range files {
		img, err := decodePart(fh)
		if err != nil {
			h.fail(w, r, pageInputError(i, err))
			return
		}
		pages = append(pages, img)
	}
	h.scan(w, r, req, pages)
}

// POST /templates/{id}/scan-blobs  body: ScanRequest with Pages as blob keys
func (h *handlers) scanBlobs(w http.ResponseWriter, r *http.Request) {
	if h.Blobs == nil {
		http.Error(w, "blob store not configured", http.StatusNotImplemented)
		return
	}
	var req ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.fail(w, r, badRequest{"bad json: " + err.Error()})
		return
	}
	if len(req.Pages) == 0 {
		h.fail(w, r, badRequest{"pages required"})
		return
	}
	pages := make([]image.Image, 0, len(req.Pages))
	for i, key := range req.Pages {
		img, err := h.loadBlob(r.Context(), key)
		if err != nil {
			h.fail(w, r, pageInputError(i, err))
			return
		}
		pages = append(pages, img)
	}
	h.scan(w, r, req, pages)
}

func (h *handlers) scan(w http.ResponseWriter, r *http.Request, req ScanRequest, pages []image.Image) {
	if err := req.check(); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	tpl, err := h.Templates.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prof := h.Profile
	if req.Profile != "" {
		prof = profile.Lookup(req.Profile)
	}

	s, err := h.Pipeline.ScanSheet(pages, req.DPI, tpl, prof)
	if err != nil {
		if errors.Is(err, align.ErrAlignmentFailed) {
			h.Log.Warn("alignment failed", "template", id, "profile", prof.Name, "err", err)
		}
		h.fail(w, r, err)
		return
	}
	resp := omr.Result{Sheet: s}
	if len(req.Key) > 0 {
		key, err := grading.NewKey(req.Key, tpl.Options)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		rep, err := h.Pipeline.Grade(s, key, *req.Params)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Report = &rep
		h.Log.Info("sheet graded", "template", id, "profile", prof.Name,
			"aciertos", rep.Aciertos, "total", rep.Total, "needs_manual", rep.NeedsManual)
	} else {
		h.Log.Info("sheet scanned", "template", id, "profile", prof.Name, "answers", len(s.Answers))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) loadBlob(ctx context.Context, key string) (image.Image, error) {
	rc, err := h.Blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := raster.Decode(rc)
	return img, err
}

func decodePart(fh *multipart.FileHeader) (image.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := raster.Decode(f)
	return img, err
}

// pageInputError attributes err to a page and turns undecodable images
// into bad requests.
func pageInputError(page int, err error) error {
	if status, _ := classify(err); status == http.StatusInternalServerError {
		err = badRequest{fmt.Sprintf("unreadable image: %v", err)}
	}
	return &omr.PageError{Page: page, Err: err}
}
