package align

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

var (
	// ErrGeometryOutOfBounds means the image cannot contain the template at
	// the profile's initial offset. Not retryable for that image.
	ErrGeometryOutOfBounds = errors.New("template geometry out of image bounds")
	// ErrAlignmentFailed means no offset reached the minimum confidence.
	// The sheet must go to manual review.
	ErrAlignmentFailed = errors.New("alignment confidence below threshold")
)

type BoundsError struct {
	Extents       sheet.Rect
	Width, Height int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: needs [%.0f,%.0f]-[%.0f,%.0f], image is %dx%d",
		ErrGeometryOutOfBounds, e.Extents.MinX, e.Extents.MinY, e.Extents.MaxX, e.Extents.MaxY, e.Width, e.Height)
}

func (e *BoundsError) Unwrap() error { return ErrGeometryOutOfBounds }

// FailedError carries the best rejected result so review tooling can show it.
type FailedError struct {
	Best          Result
	MinConfidence float64
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%v: best (%d,%d) confidence %.3f < %.3f",
		ErrAlignmentFailed, e.Best.DX, e.Best.DY, e.Best.Confidence, e.MinConfidence)
}

func (e *FailedError) Unwrap() error { return ErrAlignmentFailed }
