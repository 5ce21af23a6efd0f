package gait

import (
	"fmt"

	"github.com/bipedlab/locomotion/internal/monitoring"
	"github.com/bipedlab/locomotion/internal/trajectory"
)

// SwingConfig tunes the online swing re-timing behaviour.
type SwingConfig struct {
	// TouchdownBlend is the duration over which an early touchdown blends
	// the remaining swing toward the sensed contact pose.
	TouchdownBlend float64

	// LateExtension is how far past the current time the swing segment is
	// pushed when touchdown is late.
	LateExtension float64

	// KinematicContactThreshold is the height margin (m) below the planned
	// touchdown height at which a foot counts as kinematically in contact.
	KinematicContactThreshold float64
}

// DefaultSwingConfig returns the stock re-timing settings.
func DefaultSwingConfig() SwingConfig {
	return SwingConfig{
		TouchdownBlend:            0.1,
		LateExtension:             0.05,
		KinematicContactThreshold: 0.025,
	}
}

// SwingTrajectoryUpdater mutates the active swing segment of a body motion
// when contact timing deviates from the plan. Mutations touch only the
// current segment and the one immediately following it, and preserve position
// and velocity at the splice instant.
type SwingTrajectoryUpdater struct {
	cfg  SwingConfig
	logf func(format string, v ...interface{})

	// lastExtension remembers, per body, the break inserted by the most
	// recent late-touchdown split so that repeated late ticks slide that
	// break forward instead of splitting again every tick.
	lastExtension map[BodyID]float64
}

// NewSwingTrajectoryUpdater returns an updater with the given config.
func NewSwingTrajectoryUpdater(cfg SwingConfig) *SwingTrajectoryUpdater {
	return &SwingTrajectoryUpdater{
		cfg:           cfg,
		logf:          monitoring.Prefixed("[swing]"),
		lastExtension: make(map[BodyID]float64),
	}
}

// hermiteRows fits one cubic per row over dt.
func hermiteRows(dt float64, p0, v0, p1, v1 []float64) []trajectory.Polynomial {
	polys := make([]trajectory.Polynomial, len(p0))
	for r := range p0 {
		polys[r] = trajectory.HermiteSegment(dt, p0[r], v0[r], p1[r], v1[r])
	}
	return polys
}

func constantRows(p []float64) []trajectory.Polynomial {
	polys := make([]trajectory.Polynomial, len(p))
	for r := range p {
		polys[r] = trajectory.Polynomial{p[r]}
	}
	return polys
}

// splitTracked splits the trajectory at t and keeps the swing flags aligned.
// It returns the index of the segment starting at t.
func splitTracked(bm *BodyMotionData, t float64) (int, error) {
	before := bm.Trajectory.NumSegments()
	idx, err := bm.Trajectory.SplitAt(t)
	if err != nil {
		return 0, err
	}
	if bm.Trajectory.NumSegments() > before {
		bm.insertSwingFlag(idx)
	}
	return idx, nil
}

// EarlyTouchdown handles force sensed on a foot the plan still marks as
// swinging: the remaining swing blends to a short stance hold at the sensed
// contact pose, and the following segment is refit to depart from it.
func (u *SwingTrajectoryUpdater) EarlyTouchdown(bm *BodyMotionData, t float64, sensed Pose) error {
	traj := &bm.Trajectory
	if t <= traj.StartTime() || t >= traj.EndTime() {
		return fmt.Errorf("gait: early touchdown at %v outside trajectory span", t)
	}
	seg := traj.SegmentIndex(t)
	if !bm.SwingEligible(seg) {
		return fmt.Errorf("gait: segment %d of body %d is not a swing segment", seg, bm.Body)
	}

	breaks := traj.Breaks()
	segEnd := breaks[seg+1]
	p0 := traj.Value(t)
	v0 := traj.EvalDerivative(t)

	// Contact pose: sensed position, planned orientation channels, zero rates.
	target := traj.Value(segEnd)
	copy(target[:3], sensed.Position[:])
	zero := make([]float64, traj.Rows())

	var pNext, vNext []float64
	hasNext := seg+1 < traj.NumSegments()
	if hasNext {
		nEnd := breaks[seg+2]
		pNext = traj.Value(nEnd)
		vNext = traj.EvalDerivative(nEnd)
	}

	remaining := segEnd - t
	blend := u.cfg.TouchdownBlend
	if blend > remaining {
		blend = remaining
	}

	idx, err := splitTracked(bm, t)
	if err != nil {
		return err
	}
	next := idx + 1
	if blend < remaining {
		// Blend then hold at the contact pose for the rest of the segment.
		holdIdx, err := splitTracked(bm, t+blend)
		if err != nil {
			return err
		}
		if err := traj.SetSegment(holdIdx, constantRows(target)); err != nil {
			return err
		}
		bm.SwingSegments[holdIdx] = false
		next = holdIdx + 1
	}
	if err := traj.SetSegment(idx, hermiteRows(blend, p0, v0, target, zero)); err != nil {
		return err
	}

	if hasNext {
		nb := traj.Breaks()
		dt := nb[next+1] - nb[next]
		if err := traj.SetSegment(next, hermiteRows(dt, target, zero, pNext, vNext)); err != nil {
			return err
		}
	}

	delete(u.lastExtension, bm.Body)
	u.logf("early touchdown body=%d t=%.3f blend=%.3f sensed_z=%.3f", bm.Body, t, blend, sensed.Position[2])
	return nil
}

// LateTouchdown handles a support phase that began without sensed force
// while the foot is still airborne: the swing segment's end is pushed past
// the current time instead of snapping to the stance segment.
func (u *SwingTrajectoryUpdater) LateTouchdown(bm *BodyMotionData, t float64) error {
	traj := &bm.Trajectory
	seg := traj.SegmentIndex(t)
	var swingSeg int
	switch {
	case bm.SwingEligible(seg):
		swingSeg = seg // already on an extended swing segment
	case seg > 0 && bm.SwingEligible(seg-1):
		swingSeg = seg - 1
	default:
		return fmt.Errorf("gait: no swing segment to extend for body %d at %v", bm.Body, t)
	}

	breaks := traj.Breaks()
	endBreak := swingSeg + 1
	if endBreak >= len(breaks)-1 {
		return fmt.Errorf("gait: swing segment %d of body %d has no following segment", swingSeg, bm.Body)
	}

	newEnd := t + u.cfg.LateExtension
	// Never swallow the whole following segment.
	ceiling := breaks[endBreak+1] - 0.1*(breaks[endBreak+1]-breaks[endBreak])
	if newEnd > ceiling {
		newEnd = ceiling
	}
	if newEnd <= breaks[endBreak] {
		return nil // current extension already reaches past t
	}
	if t <= breaks[swingSeg] || t >= newEnd {
		return fmt.Errorf("gait: late touchdown time %v outside extendable range", t)
	}

	// Capture continuity and touchdown targets before any mutation.
	p0 := traj.Value(t)
	v0 := traj.EvalDerivative(t)
	pEnd := traj.Value(breaks[endBreak])
	vEnd := traj.EvalDerivative(breaks[endBreak])
	nEnd := breaks[endBreak+1]
	pNext := traj.Value(nEnd)
	vNext := traj.EvalDerivative(nEnd)

	// A break we inserted on a previous late tick gets slid forward to t
	// rather than split again, so repeated calls keep the segment count flat.
	reuse := swingSeg > 0 && breaks[swingSeg] == u.lastExtension[bm.Body]

	if err := traj.MoveBreak(endBreak, newEnd); err != nil {
		return err
	}
	idx := swingSeg
	switch {
	case reuse:
		if err := traj.MoveBreak(swingSeg, t); err != nil {
			return err
		}
	case t > breaks[swingSeg]:
		var err error
		idx, err = splitTracked(bm, t)
		if err != nil {
			return err
		}
	}
	u.lastExtension[bm.Body] = t
	if err := traj.SetSegment(idx, hermiteRows(newEnd-t, p0, v0, pEnd, vEnd)); err != nil {
		return err
	}
	if err := traj.SetSegment(idx+1, hermiteRows(nEnd-newEnd, pEnd, vEnd, pNext, vNext)); err != nil {
		return err
	}

	u.logf("late touchdown body=%d t=%.3f extended_to=%.3f", bm.Body, t, newEnd)
	return nil
}
