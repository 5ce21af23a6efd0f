package gait

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

const (
	pelvisBody BodyID = 0
	leftFoot   BodyID = 1
	rightFoot  BodyID = 2
)

func footContactPoints() [][3]float64 {
	return [][3]float64{
		{0.08, 0.05, 0}, {0.08, -0.05, 0}, {-0.08, 0.05, 0}, {-0.08, -0.05, 0},
	}
}

// makeTestPlan builds a three-phase walking plan: double support on [0,1),
// single support on the right foot on [1,2) while the left foot swings
// forward, and double support again on [2,3).
func makeTestPlan(t *testing.T) (*Plan, *MockKinematics) {
	t.Helper()

	leftTraj, err := trajectory.NewCubicHermite(
		[]float64{0, 1, 2, 3},
		[][]float64{{0, 0.1, 0}, {0, 0.1, 0}, {0.3, 0.1, 0}, {0.3, 0.1, 0}},
		[][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
	)
	require.NoError(t, err)
	rightTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 3},
		[][]float64{{0, -0.1, 0}, {0, -0.1, 0}},
	)
	require.NoError(t, err)
	pelvisTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 3},
		[][]float64{{0, 0, 0.8}, {0.3, 0, 0.8}},
	)
	require.NoError(t, err)
	zmp, err := trajectory.NewFirstOrderHold(
		[]float64{0, 1, 2, 3},
		[][]float64{{0, 0}, {0, -0.05}, {0.15, 0}, {0.15, 0}},
	)
	require.NoError(t, err)
	com, err := trajectory.NewFirstOrderHold(
		[]float64{0, 3},
		[][]float64{{0, 0}, {0.15, 0}},
	)
	require.NoError(t, err)
	qTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 3},
		[][]float64{{0.9, 0.9}, {1.1, 1.1}},
	)
	require.NoError(t, err)
	s1, err := trajectory.NewFirstOrderHold(
		[]float64{0, 3},
		[][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}},
	)
	require.NoError(t, err)
	lyap, err := NewQuadraticLyapunovFunction(
		mat.NewDense(4, 4, []float64{
			2, 0, 0, 0,
			0, 2, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		trajectory.FromPiecewise(s1),
	)
	require.NoError(t, err)

	left := SupportElement{Body: leftFoot, ContactPoints: footContactPoints(), ContactSurface: -1}
	right := SupportElement{Body: rightFoot, ContactPoints: footContactPoints(), ContactSurface: -1}

	plan := NewPlan()
	plan.AddSupport(SupportPhase{left, right}, nil, 1)
	plan.AddSupport(SupportPhase{right}, nil, 1)
	plan.AddSupport(SupportPhase{left, right}, nil, 1)
	plan.BodyMotions = []BodyMotionData{
		{Body: leftFoot, Trajectory: leftTraj, SwingSegments: []bool{false, true, false}, Weight: 1},
		{Body: rightFoot, Trajectory: rightTraj, SwingSegments: []bool{false}, Weight: 1},
		{Body: pelvisBody, Trajectory: pelvisTraj, SwingSegments: []bool{false}, Weight: 0.5, InFloatingBaseNullspace: true},
	}
	plan.ZMPTrajectory = zmp
	plan.ZMPFinal = [2]float64{0.15, 0}
	plan.COMTrajectory = trajectory.FromPiecewise(com)
	plan.QTrajectory = qTraj
	plan.Lyapunov = lyap
	plan.LIPMHeight = 0.8
	plan.PelvisBody = pelvisBody
	plan.FootBodies = map[Side]BodyID{Left: leftFoot, Right: rightFoot}

	kin := NewMockKinematics(3, 2, 2)
	kin.Poses[pelvisBody] = Pose{Position: [3]float64{0, 0, 0.8}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.Poses[leftFoot] = Pose{Position: [3]float64{0, 0.1, 0}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.Poses[rightFoot] = Pose{Position: [3]float64{0, -0.1, 0}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.CoM = [3]float64{0, 0, 0.8}

	return plan, kin
}

// makeTwoStepPlan builds a five-phase plan in which the left foot swings
// twice: DS [0,1), right-only [1,2), DS [2,3), right-only [3,4), DS [4,5).
func makeTwoStepPlan(t *testing.T) (*Plan, *MockKinematics) {
	t.Helper()

	leftTraj, err := trajectory.NewCubicHermite(
		[]float64{0, 1, 2, 3, 4, 5},
		[][]float64{
			{0, 0.1, 0}, {0, 0.1, 0},
			{0.3, 0.1, 0}, {0.3, 0.1, 0},
			{0.6, 0.1, 0}, {0.6, 0.1, 0},
		},
		[][]float64{
			{0, 0, 0}, {0, 0, 0}, {0, 0, 0},
			{0, 0, 0}, {0, 0, 0}, {0, 0, 0},
		},
	)
	require.NoError(t, err)
	rightTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0, -0.1, 0}, {0, -0.1, 0}},
	)
	require.NoError(t, err)
	pelvisTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0, 0, 0.8}, {0.6, 0, 0.8}},
	)
	require.NoError(t, err)
	zmp, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0, 0}, {0.3, 0}},
	)
	require.NoError(t, err)
	com, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0, 0}, {0.3, 0}},
	)
	require.NoError(t, err)
	qTraj, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0.9, 0.9}, {1.1, 1.1}},
	)
	require.NoError(t, err)
	s1, err := trajectory.NewFirstOrderHold(
		[]float64{0, 5},
		[][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}},
	)
	require.NoError(t, err)
	lyap, err := NewQuadraticLyapunovFunction(
		mat.NewDense(4, 4, []float64{
			2, 0, 0, 0,
			0, 2, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		trajectory.FromPiecewise(s1),
	)
	require.NoError(t, err)

	left := SupportElement{Body: leftFoot, ContactPoints: footContactPoints(), ContactSurface: -1}
	right := SupportElement{Body: rightFoot, ContactPoints: footContactPoints(), ContactSurface: -1}

	plan := NewPlan()
	plan.AddSupport(SupportPhase{left, right}, nil, 1)
	plan.AddSupport(SupportPhase{right}, nil, 1)
	plan.AddSupport(SupportPhase{left, right}, nil, 1)
	plan.AddSupport(SupportPhase{right}, nil, 1)
	plan.AddSupport(SupportPhase{left, right}, nil, 1)
	plan.BodyMotions = []BodyMotionData{
		{Body: leftFoot, Trajectory: leftTraj, SwingSegments: []bool{false, true, false, true, false}, Weight: 1},
		{Body: rightFoot, Trajectory: rightTraj, SwingSegments: []bool{false}, Weight: 1},
		{Body: pelvisBody, Trajectory: pelvisTraj, SwingSegments: []bool{false}, Weight: 0.5, InFloatingBaseNullspace: true},
	}
	plan.ZMPTrajectory = zmp
	plan.ZMPFinal = [2]float64{0.3, 0}
	plan.COMTrajectory = trajectory.FromPiecewise(com)
	plan.QTrajectory = qTraj
	plan.Lyapunov = lyap
	plan.LIPMHeight = 0.8
	plan.PelvisBody = pelvisBody
	plan.FootBodies = map[Side]BodyID{Left: leftFoot, Right: rightFoot}

	kin := NewMockKinematics(3, 2, 2)
	kin.Poses[pelvisBody] = Pose{Position: [3]float64{0, 0, 0.8}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.Poses[leftFoot] = Pose{Position: [3]float64{0, 0.1, 0}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.Poses[rightFoot] = Pose{Position: [3]float64{0, -0.1, 0}, Quaternion: [4]float64{1, 0, 0, 0}}
	kin.CoM = [3]float64{0, 0, 0.8}

	return plan, kin
}

// supportFor finds body's support entry in a snapshot.
func supportFor(in *QPInput, body BodyID) (SupportData, bool) {
	for _, s := range in.Support {
		if s.Body == body {
			return s, true
		}
	}
	return SupportData{}, false
}
