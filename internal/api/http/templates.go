package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
	"github.com/mind-engage/mindengage-omr/internal/templatestore"
)

// GET /profiles
func (h *handlers) listProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  h.Profile.Name,
		"profiles": profile.All(),
	})
}

// POST /grade  GradeInput -> GradeResult
func (h *handlers) grade(w http.ResponseWriter, r *http.Request) {
	var in grading.GradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.fail(w, r, badRequest{"bad json: " + err.Error()})
		return
	}
	res, err := grading.ComputeGrade(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /templates?q=&limit=&offset=
func (h *handlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := h.Templates.List(r.Context(), templatestore.ListOpts{
		Q:      strings.TrimSpace(q.Get("q")),
		Limit:  limit,
		Offset: max(offset, 0),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /templates/{id}  responds with the descriptor PUT accepts.
func (h *handlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl.Descriptor())
}

// PUT /templates/{id}  body: template descriptor
func (h *handlers) putTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var d sheet.Descriptor
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&d); err != nil {
		h.fail(w, r, badRequest{"bad json: " + err.Error()})
		return
	}
	if d.ID == "" {
		d.ID = id
	}
	if strings.TrimSpace(d.ID) != id {
		h.fail(w, r, badRequest{"templateId does not match path"})
		return
	}
	tpl, err := sheet.FromDescriptor(d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Templates.Put(r.Context(), tpl); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info("template stored", "template", tpl.ID, "version", tpl.Version, "pages", tpl.PageCount)
	writeJSON(w, http.StatusOK, tpl.Descriptor())
}
