package gait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

// swingMotion builds a body motion with one swing segment on [0,1] landing
// at (0.3, 0, 0) and a stance hold on [1,2].
func swingMotion(t *testing.T) *BodyMotionData {
	t.Helper()
	traj, err := trajectory.NewCubicHermite(
		[]float64{0, 1, 2},
		[][]float64{{0, 0, 0}, {0.3, 0, 0}, {0.3, 0, 0}},
		[][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
	)
	require.NoError(t, err)
	return &BodyMotionData{
		Body:          leftFoot,
		Trajectory:    traj,
		SwingSegments: []bool{true, false},
		Weight:        1,
	}
}

func TestEarlyTouchdownContinuityAndHold(t *testing.T) {
	t.Parallel()

	bm := swingMotion(t)
	u := NewSwingTrajectoryUpdater(DefaultSwingConfig())

	const tc = 0.6
	pPre := bm.Trajectory.Value(tc)
	vPre := bm.Trajectory.EvalDerivative(tc)
	sensed := Pose{Position: [3]float64{0.25, 0.01, -0.02}, Quaternion: [4]float64{1, 0, 0, 0}}

	require.NoError(t, u.EarlyTouchdown(bm, tc, sensed))

	// No jump in position or velocity at the update instant.
	for r := 0; r < 3; r++ {
		assert.InDelta(t, pPre[r], bm.Trajectory.Value(tc)[r], 1e-9)
		assert.InDelta(t, vPre[r], bm.Trajectory.EvalDerivative(tc)[r], 1e-9)
	}

	// After the blend the foot holds the sensed contact pose...
	hold := bm.Trajectory.Value(0.85)
	assert.InDelta(t, 0.25, hold[0], 1e-9)
	assert.InDelta(t, 0.01, hold[1], 1e-9)
	assert.InDelta(t, -0.02, hold[2], 1e-9)
	for r := 0; r < 3; r++ {
		assert.InDelta(t, 0, bm.Trajectory.EvalDerivative(0.85)[r], 1e-9)
	}

	// ...and the following segment departs from it, still reaching its
	// planned endpoint.
	atBoundary := bm.Trajectory.Value(1.0)
	assert.InDelta(t, 0.25, atBoundary[0], 1e-9)
	end := bm.Trajectory.Value(2.0)
	assert.InDelta(t, 0.3, end[0], 1e-9)

	// Swing flags stayed aligned with the re-segmented trajectory.
	assert.Equal(t, bm.Trajectory.NumSegments(), len(bm.SwingSegments))
}

func TestEarlyTouchdownRejectsStanceSegment(t *testing.T) {
	t.Parallel()

	bm := swingMotion(t)
	u := NewSwingTrajectoryUpdater(DefaultSwingConfig())

	err := u.EarlyTouchdown(bm, 1.5, Pose{})
	assert.Error(t, err)

	err = u.EarlyTouchdown(bm, -0.5, Pose{})
	assert.Error(t, err)
}

func TestLateTouchdownExtendsSwing(t *testing.T) {
	t.Parallel()

	bm := swingMotion(t)
	u := NewSwingTrajectoryUpdater(DefaultSwingConfig())

	// The plan says stance began at 1.0 but the foot is still airborne.
	const tc = 1.02
	pPre := bm.Trajectory.Value(tc)
	vPre := bm.Trajectory.EvalDerivative(tc)

	require.NoError(t, u.LateTouchdown(bm, tc))

	// Continuity at the update instant.
	for r := 0; r < 3; r++ {
		assert.InDelta(t, pPre[r], bm.Trajectory.Value(tc)[r], 1e-9)
		assert.InDelta(t, vPre[r], bm.Trajectory.EvalDerivative(tc)[r], 1e-9)
	}

	// The swing now ends past the query time, at the planned touchdown pose.
	newEnd := tc + DefaultSwingConfig().LateExtension
	assert.InDelta(t, 0.3, bm.Trajectory.Value(newEnd)[0], 1e-9)
	assert.InDelta(t, 0.3, bm.Trajectory.Value(2.0)[0], 1e-9)
	assert.Equal(t, bm.Trajectory.NumSegments(), len(bm.SwingSegments))

	// The segment covering the extension window is still swing-eligible,
	// so the next tick can extend again.
	assert.True(t, bm.SwingEligible(bm.SegmentIndex(tc+0.01)))

	// Repeated events keep pushing the touchdown ahead of the current time
	// while the foot stays airborne. The break inserted by the first event
	// slides forward instead of splitting again, so the segment count stays
	// flat across high-rate ticks.
	segs := bm.Trajectory.NumSegments()
	for i := 1; i <= 5; i++ {
		tr := tc + 0.01*float64(i)
		pr := bm.Trajectory.Value(tr)
		require.NoError(t, u.LateTouchdown(bm, tr))
		for r := 0; r < 3; r++ {
			assert.InDelta(t, pr[r], bm.Trajectory.Value(tr)[r], 1e-9)
		}
		assert.Equal(t, segs, bm.Trajectory.NumSegments())
		assert.Equal(t, segs, len(bm.SwingSegments))
		assert.InDelta(t, 0.3, bm.Trajectory.Value(2.0)[0], 1e-9)
	}
	assert.InDelta(t, 0.3, bm.Trajectory.Value(tc + 0.05 + DefaultSwingConfig().LateExtension)[0], 1e-9)
}

func TestLateTouchdownNeedsFollowingSegment(t *testing.T) {
	t.Parallel()

	traj, err := trajectory.NewCubicHermite(
		[]float64{0, 1},
		[][]float64{{0, 0, 0}, {0.3, 0, 0}},
		[][]float64{{0, 0, 0}, {0, 0, 0}},
	)
	require.NoError(t, err)
	bm := &BodyMotionData{Body: leftFoot, Trajectory: traj, SwingSegments: []bool{true}}

	u := NewSwingTrajectoryUpdater(DefaultSwingConfig())
	assert.Error(t, u.LateTouchdown(bm, 0.9))
}
