// Package timeutil provides time helpers for the SIPORTS networking engine.
// All engine timestamps are stored and compared in UTC; the helpers here cover
// tenure computation for the experience score and relative display times.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// YearsBetween returns the number of whole calendar years from 'from' to 'to'.
// Used as the tenure proxy for the experience sub-score: a profile created
// in 2018 has 8 years of tenure in 2026 regardless of month. Zero or
// negative spans yield 0.
func YearsBetween(from, to time.Time) int {
	if from.IsZero() || !from.Before(to) {
		return 0
	}
	return to.Year() - from.Year()
}

// FormatRelative formats a duration since t in coarse human units
// ("just now", "3h ago", "12d ago"). Used in connection dashboards.
func FormatRelative(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
