package calendar

import (
	"fmt"
	"time"
)

// Window is a half-open [Start, End) trading interval expressed in minutes
// since midnight, exchange wall clock. Start is inside, End is outside.
type Window struct {
	Start int
	End   int
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	var sh, sm, eh, em int
	if _, err := fmt.Sscanf(s, "%d:%d-%d:%d", &sh, &sm, &eh, &em); err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	w := Window{Start: sh*60 + sm, End: eh*60 + em}
	if sh < 0 || sh > 23 || eh < 0 || eh > 23 || sm < 0 || sm > 59 || em < 0 || em > 59 {
		return Window{}, fmt.Errorf("invalid window %q: time out of range", s)
	}
	if w.Start >= w.End {
		return Window{}, fmt.Errorf("invalid window %q: start must precede end", s)
	}
	return w, nil
}

// Calendar answers whether the market is inside an active trading window at a
// given instant. Pure and stateless; safe to call at any frequency.
type Calendar struct {
	loc     *time.Location
	windows []Window
}

// New builds a calendar over the given exchange wall-clock location.
func New(loc *time.Location, windows []Window) *Calendar {
	return &Calendar{loc: loc, windows: windows}
}

// NewFromSpecs builds a calendar from "HH:MM-HH:MM" window specs and a fixed
// UTC offset for the exchange, e.g. 8*3600 for the Chinese mainland exchanges.
func NewFromSpecs(utcOffsetSeconds int, specs []string) (*Calendar, error) {
	windows := make([]Window, 0, len(specs))
	for _, s := range specs {
		w, err := ParseWindow(s)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return New(time.FixedZone("CST", utcOffsetSeconds), windows), nil
}

// IsActiveAt reports whether t falls inside a configured trading window.
// Weekends are always closed regardless of time of day.
func (c *Calendar) IsActiveAt(t time.Time) bool {
	lt := t.In(c.loc)
	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	m := lt.Hour()*60 + lt.Minute()
	for _, w := range c.windows {
		if m >= w.Start && m < w.End {
			return true
		}
	}
	return false
}
