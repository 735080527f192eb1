package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/raster"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
	"github.com/mind-engage/mindengage-omr/internal/storage"
	"github.com/mind-engage/mindengage-omr/internal/templatestore"
)

// Error codes returned in the "code" field.
const (
	CodeBadRequest     = "bad_request"
	CodeNotFound       = "not_found"
	CodeInvalidInput   = "invalid_input"
	CodeKeyMismatch    = "key_mismatch"
	CodeOutOfBounds    = "geometry_out_of_bounds"
	CodeNeedsReview    = "needs_review"
	CodePageCount      = "page_count_mismatch"
	CodeInvalidProfile = "invalid_profile"
	CodeInternal       = "internal"
)

type errorBody struct {
	Error string        `json:"error"`
	Code  string        `json:"code"`
	Page  *int          `json:"page,omitempty"` // 1-based
	Best  *align.Result `json:"best,omitempty"` // rejected alignment, for review tooling
}

// badRequest marks client errors that have no domain sentinel.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func classify(err error) (int, string) {
	var br badRequest
	var tve *sheet.ValidationError
	switch {
	case errors.As(err, &br), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, templatestore.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, grading.ErrKeyMismatch):
		return http.StatusUnprocessableEntity, CodeKeyMismatch
	case errors.Is(err, align.ErrGeometryOutOfBounds):
		return http.StatusUnprocessableEntity, CodeOutOfBounds
	case errors.Is(err, align.ErrAlignmentFailed):
		return http.StatusUnprocessableEntity, CodeNeedsReview
	case errors.Is(err, omr.ErrPageCount):
		return http.StatusUnprocessableEntity, CodePageCount
	case errors.Is(err, profile.ErrInvalid):
		return http.StatusUnprocessableEntity, CodeInvalidProfile
	case errors.Is(err, grading.ErrValidation), errors.As(err, &tve), errors.Is(err, raster.ErrEmptyImage):
		return http.StatusUnprocessableEntity, CodeInvalidInput
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := errorBody{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	var pe *omr.PageError
	if errors.As(err, &pe) {
		p := pe.Page + 1
		body.Page = &p
	}
	var fe *align.FailedError
	if errors.As(err, &fe) {
		best := fe.Best
		body.Best = &best
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
