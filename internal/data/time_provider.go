package data

import "time"

// TimeProvider abstracts the clock. Repositories stamp created_at, locked_at,
// run_after, and the reaper cutoffs through it, so tests can advance time
// instead of sleeping.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider is the production clock.
type RealTimeProvider struct{}

func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider returns a pinned time, adjustable between calls. Service
// tests use it to make retry schedules and notification timestamps exact.
type FixedTimeProvider struct {
	fixedTime time.Time
}

// NewFixedTimeProvider pins the clock at t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

func (f *FixedTimeProvider) Now() time.Time {
	return f.fixedTime
}

// SetTime moves the pinned clock to t.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.fixedTime = t
}

// AddTime advances the pinned clock by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.fixedTime = f.fixedTime.Add(d)
}
