package util //nolint:revive // package name util hosts shared formatting helpers

import "time"

// FormatProcessingDuration renders an elapsed scoring duration for human-facing
// output such as failure notifications. Returns "n/a" for zero or negative
// durations, truncates to milliseconds for readability.
func FormatProcessingDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "n/a"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}
