package domain

import "strings"

// Period is a history range understood by the price feed
type Period string

const (
	Period1M  Period = "1mo"
	Period3M  Period = "3mo"
	Period6M  Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	PeriodMax Period = "max"
)

var validPeriods = map[Period]bool{
	Period1M: true, Period3M: true, Period6M: true,
	Period1Y: true, Period2Y: true, Period5Y: true, PeriodMax: true,
}

// ParsePeriod validates a period string; empty means one year.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Period1Y, nil
	}
	p := Period(s)
	if !validPeriods[p] {
		return "", NewValidationError("parse_period", "unsupported period %q", s)
	}
	return p, nil
}

// Valid reports whether p is a supported period
func (p Period) Valid() bool {
	return validPeriods[p]
}
