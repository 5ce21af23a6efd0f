package gait

import (
	"fmt"
	"sort"
)

// Schedule is the immutable timeline of support phases. Phase i is active
// for t in [times[i], times[i+1]).
type Schedule struct {
	supports []SupportPhase
	times    []float64
}

// NewSchedule builds a schedule. times must have len(supports)+1 entries,
// strictly increasing, starting at 0.
func NewSchedule(supports []SupportPhase, times []float64) (Schedule, error) {
	if len(supports) == 0 {
		return Schedule{}, fmt.Errorf("%w: no support phases", ErrInvalidPlan)
	}
	if len(times) != len(supports)+1 {
		return Schedule{}, fmt.Errorf("%w: %d times for %d phases", ErrInvalidPlan, len(times), len(supports))
	}
	if times[0] != 0 {
		return Schedule{}, fmt.Errorf("%w: schedule must start at 0", ErrInvalidPlan)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return Schedule{}, fmt.Errorf("%w: times not strictly increasing at %d", ErrInvalidPlan, i)
		}
	}
	return Schedule{supports: supports, times: times}, nil
}

// Duration returns the final phase boundary.
func (s Schedule) Duration() float64 { return s.times[len(s.times)-1] }

// NumPhases returns the number of support phases.
func (s Schedule) NumPhases() int { return len(s.supports) }

// PhaseAt returns the phase active at plan time t. Out-of-range t clamps to
// the nearest phase: negative times report the first phase and times at or
// beyond the final boundary report the last, so a completed plan remains
// queryable.
func (s Schedule) PhaseAt(t float64) (int, SupportPhase) {
	if t <= 0 {
		return 0, s.supports[0]
	}
	if t >= s.times[len(s.times)-1] {
		last := len(s.supports) - 1
		return last, s.supports[last]
	}
	// First boundary strictly greater than t; the active phase is the one
	// before it.
	i := sort.SearchFloat64s(s.times, t)
	if i < len(s.times) && s.times[i] == t {
		return i, s.supports[i]
	}
	return i - 1, s.supports[i-1]
}

// PhaseStart returns the start time of phase i.
func (s Schedule) PhaseStart(i int) float64 { return s.times[i] }

// PhaseEnd returns the end time of phase i.
func (s Schedule) PhaseEnd(i int) float64 { return s.times[i+1] }

// Phase returns phase i.
func (s Schedule) Phase(i int) SupportPhase { return s.supports[i] }
