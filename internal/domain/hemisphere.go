package domain

import "fmt"

// Hemisphere selects which polar grid and source tree a producer works on.
// It is a bitflag so configuration errors (none, both) stay representable
// and rejectable.
type Hemisphere uint8

const (
	HemisphereNone  Hemisphere = 0
	HemisphereNorth Hemisphere = 1 << iota
	HemisphereSouth
	HemisphereBoth = HemisphereNorth | HemisphereSouth
)

// ParseHemisphere converts a CLI/config string into a Hemisphere.
func ParseHemisphere(s string) (Hemisphere, error) {
	switch s {
	case "north":
		return HemisphereNorth, nil
	case "south":
		return HemisphereSouth, nil
	default:
		return HemisphereNone, fmt.Errorf("unknown hemisphere %q (want north or south)", s)
	}
}

// String returns the path component used for this hemisphere.
func (h Hemisphere) String() string {
	switch h {
	case HemisphereNorth:
		return "north"
	case HemisphereSouth:
		return "south"
	case HemisphereBoth:
		return "both"
	default:
		return "none"
	}
}

// Valid reports whether exactly one hemisphere is selected. Producers are
// limited to a single hemisphere per instance.
func (h Hemisphere) Valid() bool {
	return h == HemisphereNorth || h == HemisphereSouth
}
