package scheduler

import "time"

// Interval returns the rotation period for an eligible set of the given size.
func Interval(count int) time.Duration {
	switch {
	case count < 5:
		return 5 * time.Minute
	case count < 20:
		return 3 * time.Minute
	default:
		return 2 * time.Minute
	}
}
