package models

import (
	"fmt"
	"strings"
	"time"
)

// Horizon is a fixed forecast window. The set is closed: any other value
// would silently bypass the (link, horizon, instant) uniqueness keys, so
// free-form input must go through ParseHorizon.
type Horizon string

const (
	Horizon1Hr Horizon = "1hr"
	Horizon4Hr Horizon = "4hr"
	HorizonEOD Horizon = "eod"
)

// Horizons lists every supported window in scoring order.
func Horizons() []Horizon {
	return []Horizon{Horizon1Hr, Horizon4Hr, HorizonEOD}
}

func (h Horizon) Valid() bool {
	switch h {
	case Horizon1Hr, Horizon4Hr, HorizonEOD:
		return true
	}
	return false
}

func (h Horizon) String() string {
	return string(h)
}

// Duration returns the fixed span of the window. The end-of-session
// window has no fixed span (it runs until the next regular close), so it
// reports ok=false and callers must consult the trading calendar.
func (h Horizon) Duration() (d time.Duration, ok bool) {
	switch h {
	case Horizon1Hr:
		return time.Hour, true
	case Horizon4Hr:
		return 4 * time.Hour, true
	}
	return 0, false
}

// ParseHorizon normalizes and validates free-form horizon input.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(s)))
	if !h.Valid() {
		return "", fmt.Errorf("unknown horizon %q", s)
	}
	return h, nil
}
