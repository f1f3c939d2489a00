package session

import "time"

// RefreshIntervals are the auto refresh choices offered to callers.
// Zero disables auto refresh.
var RefreshIntervals = []time.Duration{
	0,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
}

// ValidInterval reports whether d is one of RefreshIntervals
func ValidInterval(d time.Duration) bool {
	for _, v := range RefreshIntervals {
		if v == d {
			return true
		}
	}
	return false
}

// RefreshPolicy decides when cached quotes should be fetched again
type RefreshPolicy struct {
	Interval time.Duration
}

// ShouldRefresh reports whether a refresh is due at now given the last one
func (p RefreshPolicy) ShouldRefresh(last, now time.Time) bool {
	if p.Interval <= 0 {
		return false
	}
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= p.Interval
}

// Countdown returns the time left until the next refresh, never negative.
// It is zero when auto refresh is off.
func (p RefreshPolicy) Countdown(last, now time.Time) time.Duration {
	if p.Interval <= 0 {
		return 0
	}
	left := p.Interval - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}
