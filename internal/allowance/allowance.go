package allowance

import (
	"time"
)

// PeriodStart returns the first instant of the calendar month containing asOf
// in the company's configured timezone. An empty or unknown timezone falls
// back to UTC; the boundary must be deterministic, so a bad IANA name is
// treated the same as an absent one rather than surfaced as an error.
func PeriodStart(asOf time.Time, timezone string) time.Time {
	loc := time.UTC
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		}
	}
	local := asOf.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// Available computes the remaining monthly allowance, floored at zero.
// This is the single shared computation used by both the pre-flight soft
// check and the commit-time hard check so the two can never diverge.
func Available(cap, spent int) int {
	remaining := cap - spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Covers reports whether the remaining allowance covers an additional spend.
// Unlike Available, it works on the raw (unfloored) arithmetic so an account
// pushed below zero by an adjustment cannot spend again until the period
// resets.
func Covers(cap, spent, amount int) bool {
	return spent+amount <= cap
}
