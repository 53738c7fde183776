package chrono

import (
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().UTC()
}

// StepTime returns Start, then advances by Step on every call.
type StepTime struct {
	Start time.Time
	Step  time.Duration
	calls int
}

func (s *StepTime) Now() time.Time {
	now := s.Start.Add(time.Duration(s.calls) * s.Step)
	s.calls++
	return now.UTC()
}
