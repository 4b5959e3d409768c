package models

import "time"

// Policy caps requests per key within a sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the policy limits anything.
func (p Policy) Enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// PerMinute builds a one-minute policy. Zero yields a disabled policy.
func PerMinute(limit int) Policy {
	return Policy{Limit: limit, Window: time.Minute}
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in seconds and only set when not allowed.
	RetryAfter int
}
