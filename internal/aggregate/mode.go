package aggregate

import (
	"fmt"
	"strings"
)

// Mode is the direction in which the metric improves.
type Mode int

const (
	// ModeMax prefers larger results.
	ModeMax Mode = iota
	// ModeMin prefers smaller results.
	ModeMin
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeMin {
		return "min"
	}
	return "max"
}

// ParseMode parses "max" or "min" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max":
		return ModeMax, nil
	case "min":
		return ModeMin, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: must be max or min", s)
	}
}

// Better reports whether a strictly beats b.
func (m Mode) Better(a, b float64) bool {
	if m == ModeMin {
		return a < b
	}
	return a > b
}
