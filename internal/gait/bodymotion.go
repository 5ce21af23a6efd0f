package gait

import (
	"fmt"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

// BodyMotionData carries the planned motion of one tracked body. The first
// three trajectory rows are world-frame position; any further rows are
// orientation channels. SwingSegments flags the segments eligible for swing
// re-timing (true for a swing, false for a stance hold); it stays aligned
// with the trajectory's segments when the swing updater re-segments them.
type BodyMotionData struct {
	Body                     BodyID
	Trajectory               trajectory.PiecewisePolynomial
	SwingSegments            []bool
	Weight                   float64
	InFloatingBaseNullspace  bool
	ControlPoseWhenInContact bool
}

// SwingEligible reports whether segment i may be re-timed.
func (b *BodyMotionData) SwingEligible(i int) bool {
	return i >= 0 && i < len(b.SwingSegments) && b.SwingSegments[i]
}

// SegmentIndex returns the trajectory segment covering t.
func (b *BodyMotionData) SegmentIndex(t float64) int {
	return b.Trajectory.SegmentIndex(t)
}

// insertSwingFlag keeps SwingSegments aligned after a segment split at index
// i: the inserted segment inherits the flag of the one it was split from.
func (b *BodyMotionData) insertSwingFlag(i int) {
	if i <= 0 || i > len(b.SwingSegments) {
		return
	}
	b.SwingSegments = append(b.SwingSegments, false)
	copy(b.SwingSegments[i+1:], b.SwingSegments[i:])
	b.SwingSegments[i] = b.SwingSegments[i-1]
}

func (b *BodyMotionData) validate() error {
	if b.Trajectory.Rows() < 3 {
		return fmt.Errorf("trajectory has %d rows, need at least 3 position rows", b.Trajectory.Rows())
	}
	if len(b.SwingSegments) != b.Trajectory.NumSegments() {
		return fmt.Errorf("%d swing flags for %d segments", len(b.SwingSegments), b.Trajectory.NumSegments())
	}
	return nil
}
