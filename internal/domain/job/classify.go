package job

import "strings"

// transientMarkers are matched case-insensitively against failure messages.
// Free-text sniffing is a heuristic: it only gates retry, never correctness.
var transientMarkers = []string{
	"timeout",
	"connection",
	"network",
	"temporary",
	"rate limit",
	"quota",
}

// IsTransient reports whether an error message looks retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return IsTransientMessage(err.Error())
}

// IsTransientMessage applies the transient heuristic to a bare message.
func IsTransientMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, marker := range transientMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
