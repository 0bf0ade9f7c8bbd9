package data

import "time"

// TimeProvider abstracts the clock so services and repositories can be tested
// with a controlled time source.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time
	// FormatForDB renders a time the way the database layer expects it.
	FormatForDB(t time.Time) string
}

// RealTimeProvider is the production clock.
type RealTimeProvider struct{}

// Now returns the current system time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FormatForDB renders the time as UTC RFC 3339 for PostgreSQL.
func (r *RealTimeProvider) FormatForDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FixedTimeProvider is a clock pinned to one instant, advanced explicitly.
type FixedTimeProvider struct {
	fixedTime time.Time
}

// NewFixedTimeProvider pins the clock to t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

// Now returns the pinned time.
func (f *FixedTimeProvider) Now() time.Time {
	return f.fixedTime
}

// FormatForDB renders the time as UTC RFC 3339 for PostgreSQL.
func (f *FixedTimeProvider) FormatForDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SetTime moves the pinned clock to t.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.fixedTime = t
}

// AddTime advances the pinned clock by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.fixedTime = f.fixedTime.Add(d)
}
