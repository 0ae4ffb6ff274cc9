package refresher

import (
	"fmt"
	"time"
)

// QuietWindow suppresses provider calls during a daily local-time window,
// mirroring the dashboard's token-saver mode. The window may wrap midnight
// (the default 19:00–07:00 does). Equal start and end hours disable it.
type QuietWindow struct {
	startHour int
	endHour   int
	loc       *time.Location
}

// NewQuietWindow builds a window from whole hours in the given timezone.
func NewQuietWindow(startHour, endHour int, timezone string) (*QuietWindow, error) {
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 {
		return nil, fmt.Errorf("quiet hours must be within 0-23, got %d-%d", startHour, endHour)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load quiet-hours timezone: %w", err)
	}
	return &QuietWindow{startHour: startHour, endHour: endHour, loc: loc}, nil
}

// Active reports whether the window covers the given instant.
func (w *QuietWindow) Active(now time.Time) bool {
	if w == nil || w.startHour == w.endHour {
		return false
	}
	hour := now.In(w.loc).Hour()
	if w.startHour < w.endHour {
		return hour >= w.startHour && hour < w.endHour
	}
	// Wraps midnight, e.g. 19:00-07:00.
	return hour >= w.startHour || hour < w.endHour
}

// String describes the window for status reporting.
func (w *QuietWindow) String() string {
	if w == nil || w.startHour == w.endHour {
		return "disabled"
	}
	return fmt.Sprintf("%02d:00-%02d:00 %s", w.startHour, w.endHour, w.loc.String())
}
