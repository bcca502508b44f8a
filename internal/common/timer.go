// Package common provides shared timing and memory helpers.
package common

import (
	"fmt"
	"time"
)

// Timer measures a single elapsed interval with an optional name.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// StageTimes accumulates named stage durations in the order they were recorded.
type StageTimes struct {
	names     []string
	durations map[string]time.Duration
}

// NewStageTimes returns an empty recorder.
func NewStageTimes() *StageTimes {
	return &StageTimes{durations: make(map[string]time.Duration)}
}

// Time runs fn and records its duration under name.
func (s *StageTimes) Time(name string, fn func() error) error {
	t := NewNamedTimer(name)
	err := fn()
	s.Record(name, t.Stop())
	return err
}

// Record adds d to the total for name.
func (s *StageTimes) Record(name string, d time.Duration) {
	if _, ok := s.durations[name]; !ok {
		s.names = append(s.names, name)
	}
	s.durations[name] += d
}

// Get returns the recorded duration for name.
func (s *StageTimes) Get(name string) time.Duration { return s.durations[name] }

// Total sums all stages.
func (s *StageTimes) Total() time.Duration {
	var total time.Duration
	for _, d := range s.durations {
		total += d
	}
	return total
}

// Names lists stages in first-recorded order.
func (s *StageTimes) Names() []string { return append([]string(nil), s.names...) }
