package risk

import (
	"fmt"
	"time"
)

// MarketHours describes the tradeable window of the exchange session,
// including the buffers that keep entries away from the volatile first and
// last minutes.
type MarketHours struct {
	Location          *time.Location
	OpenHour          int
	OpenMinute        int
	CloseHour         int
	CloseMinute       int
	AvoidFirstMinutes int
	AvoidLastMinutes  int
}

// DefaultMarketHours is the regular US equity session with 5-minute
// buffers on both ends.
func DefaultMarketHours(loc *time.Location) MarketHours {
	return MarketHours{
		Location:          loc,
		OpenHour:          9,
		OpenMinute:        30,
		CloseHour:         16,
		CloseMinute:       0,
		AvoidFirstMinutes: 5,
		AvoidLastMinutes:  5,
	}
}

// effectiveWindow returns the open and close of the buffered window as
// minutes of day.
func (h MarketHours) effectiveWindow() (open, close int) {
	open = h.OpenHour*60 + h.OpenMinute + h.AvoidFirstMinutes
	close = h.CloseHour*60 + h.CloseMinute - h.AvoidLastMinutes
	return open, close
}

// InSession reports whether t falls inside the buffered trading window,
// with a human-readable reason when it does not.
func (h MarketHours) InSession(t time.Time) (bool, string) {
	local := t.In(h.Location)
	minute := local.Hour()*60 + local.Minute()

	open, close := h.effectiveWindow()
	if minute < open {
		return false, fmt.Sprintf("Before market open (opens at %02d:%02d)", open/60, open%60)
	}
	if minute > close {
		return false, fmt.Sprintf("After market close (closed at %02d:%02d)", close/60, close%60)
	}
	return true, "Within trading hours"
}
