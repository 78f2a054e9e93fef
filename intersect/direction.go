package intersect

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Direction filters an intersection by where it lies relative to the source
// line's direction.
type Direction int

const (
	// Any accepts intersections on both sides of the source start.
	Any Direction = iota

	// Forwards accepts intersections ahead of the source start.
	Forwards

	// Backwards accepts intersections behind the source start.
	Backwards
)

const ErrTypeUnknownDirection = "unknown_direction"

func (d Direction) String() string {
	switch d {
	case Any:
		return "any"
	case Forwards:
		return "forwards"
	case Backwards:
		return "backwards"
	default:
		return "unknown"
	}
}

// ParseDirection returns the direction named by s. An empty string is Any.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return Any, nil
	case "forwards", "forward":
		return Forwards, nil
	case "backwards", "backward":
		return Backwards, nil
	default:
		return Any, errors.New("unknown direction").
			WithType(ErrTypeUnknownDirection).
			WithTag("direction", s)
	}
}

// accepts reports whether a dot product between the source direction and the
// source-start-to-intersection vector passes the filter.
func (d Direction) accepts(dot float64) bool {
	switch d {
	case Any:
		return true
	case Forwards:
		return dot >= 0
	case Backwards:
		return dot <= 0
	}
	return false
}
