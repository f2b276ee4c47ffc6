package roi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is matched by every *InvalidGeometryError.
	ErrInvalidGeometry = errors.New("invalid roi geometry")

	// ErrDeleted is returned by explicit setters called on a deleted ROI.
	ErrDeleted = errors.New("roi deleted")
)

// InvalidGeometryError reports a point list that does not fit its kind.
type InvalidGeometryError struct {
	Kind Kind
	Got  int
	Want string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry for %s roi: got %d points, want %s", e.Kind, e.Got, e.Want)
}

// Is lets errors.Is match ErrInvalidGeometry.
func (e *InvalidGeometryError) Is(target error) bool {
	return target == ErrInvalidGeometry
}
