// Package timeutil provides minute-offset arithmetic for HH:MM clock strings.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTime marks a clock string that cannot be parsed as HH:MM.
var ErrMalformedTime = errors.New("malformed time")

// ToMinutes converts an HH:MM clock string to minutes since midnight.
func ToMinutes(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, value)
	}
	return hours*60 + minutes, nil
}

// Overlaps reports whether two half-open minute intervals intersect.
// An interval ending exactly when another begins does not overlap.
// Callers must confirm the intervals belong to the same day.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// DurationHours returns the span between two clock strings in hours.
func DurationHours(start, end string) (float64, error) {
	startMin, err := ToMinutes(start)
	if err != nil {
		return 0, err
	}
	endMin, err := ToMinutes(end)
	if err != nil {
		return 0, err
	}
	return float64(endMin-startMin) / 60, nil
}
