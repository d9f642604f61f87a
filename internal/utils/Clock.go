package utils

import "time"

// Clock abstracts time.Now so services stamp records through an injected
// source and tests can pin the moment.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock answers a fixed instant until moved.
type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

// Advance moves the clock forward by d and returns the new instant.
func (m *MockClock) Advance(d time.Duration) time.Time {
	m.FixedNow = m.FixedNow.Add(d)
	return m.FixedNow
}
