package engine

import (
	"fmt"
	"strings"
	"time"
)

// Window is an absolute, inclusive [Start, End] reporting range
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow validates and builds a window. A non-positive maxSpan disables the span check.
func NewWindow(start, end time.Time, maxSpan time.Duration) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if maxSpan > 0 && end.Sub(start) > maxSpan {
		return Window{}, fmt.Errorf("%w: span %s exceeds maximum %s",
			ErrInvalidWindow, end.Sub(start), maxSpan)
	}
	return Window{Start: start, End: end}, nil
}

// WindowForDays converts a dashboard day count into an absolute window ending at now.
// Days are calendar days in loc, so a window spanning a DST change keeps its wall-clock start.
// A nil loc uses now's own location.
func WindowForDays(now time.Time, days int, loc *time.Location) Window {
	if loc != nil {
		now = now.In(loc)
	}
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Contains reports whether t falls inside the window, bounds included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Span returns the window length
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// placeholderIDs are sentinel identities the request layer sometimes uses
// for "whoever is logged in". They never name a real patient.
var placeholderIDs = map[string]struct{}{
	"current-user": {},
	"currentuser":  {},
	"me":           {},
	"self":         {},
	"undefined":    {},
	"null":         {},
}

// ValidatePatientID rejects empty and placeholder patient identifiers
func ValidatePatientID(userID string) error {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidPatient)
	}
	if _, ok := placeholderIDs[strings.ToLower(trimmed)]; ok {
		return fmt.Errorf("%w: %q is not a resolved identity", ErrInvalidPatient, userID)
	}
	return nil
}
