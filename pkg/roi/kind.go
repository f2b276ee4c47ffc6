package roi

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of an ROI. The string values double as the
// block headers of the ROI text format.
type Kind string

const (
	Rectangle        Kind = "rectangle"
	Line             Kind = "line"
	Freehand         Kind = "freehand"
	MultiSegmentLine Kind = "rect_line"
)

// Kinds lists every supported kind.
var Kinds = []Kind{Rectangle, Line, Freehand, MultiSegmentLine}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown roi kind %q", s)
}

// arity returns the minimum point count and whether it is also the maximum.
func (k Kind) arity() (n int, exact bool) {
	switch k {
	case Rectangle, Line:
		return 2, true
	case MultiSegmentLine:
		return 2, false
	case Freehand:
		return 3, false
	}
	return 0, false
}

func (k Kind) want() string {
	n, exact := k.arity()
	if exact {
		return fmt.Sprintf("exactly %d", n)
	}
	return fmt.Sprintf("at least %d", n)
}

// validate checks a point count against the kind's arity contract.
func (k Kind) validate(count int) error {
	n, exact := k.arity()
	if n == 0 {
		return &InvalidGeometryError{Kind: k, Got: count, Want: "a known kind"}
	}
	if count < n || (exact && count != n) {
		return &InvalidGeometryError{Kind: k, Got: count, Want: k.want()}
	}
	return nil
}
