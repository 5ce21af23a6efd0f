package gait

import "fmt"

// MockKinematics is a configurable kinematics collaborator for tests and
// simulation. Poses and joint readings are set directly; lookups of bodies
// or joints that were never configured fail with ErrKinematics.
type MockKinematics struct {
	NQ, NV int

	Poses      map[BodyID]Pose
	CoM        [3]float64
	CoMVel     [3]float64
	KneeAngles map[Side]float64
	KneeIdx    map[Side][2]int

	bodyCount int
}

// NewMockKinematics builds a mock robot with the given body table size and
// state vector dimensions.
func NewMockKinematics(numBodies, nq, nv int) *MockKinematics {
	return &MockKinematics{
		NQ:         nq,
		NV:         nv,
		Poses:      make(map[BodyID]Pose),
		KneeAngles: map[Side]float64{Left: 1.0, Right: 1.0},
		KneeIdx:    map[Side][2]int{Left: {0, 0}, Right: {1, 1}},
		bodyCount:  numBodies,
	}
}

// SetBodyHeight places a body at the given height with identity orientation,
// preserving its horizontal position.
func (m *MockKinematics) SetBodyHeight(body BodyID, z float64) {
	p := m.Poses[body]
	p.Position[2] = z
	p.Quaternion = [4]float64{1, 0, 0, 0}
	m.Poses[body] = p
}

func (m *MockKinematics) NumBodies() int     { return m.bodyCount }
func (m *MockKinematics) NumPositions() int  { return m.NQ }
func (m *MockKinematics) NumVelocities() int { return m.NV }

func (m *MockKinematics) BodyPose(q []float64, body BodyID) (Pose, error) {
	p, ok := m.Poses[body]
	if !ok {
		return Pose{}, fmt.Errorf("%w: no pose for body %d", ErrKinematics, body)
	}
	return p, nil
}

func (m *MockKinematics) CenterOfMass(q []float64) ([3]float64, error) {
	return m.CoM, nil
}

func (m *MockKinematics) CenterOfMassVelocity(q, v []float64) ([3]float64, error) {
	return m.CoMVel, nil
}

func (m *MockKinematics) KneeAngle(q []float64, side Side) (float64, error) {
	a, ok := m.KneeAngles[side]
	if !ok {
		return 0, fmt.Errorf("%w: no knee angle for %s", ErrKinematics, side)
	}
	return a, nil
}

func (m *MockKinematics) KneeIndices(side Side) (int, int, error) {
	idx, ok := m.KneeIdx[side]
	if !ok {
		return 0, 0, fmt.Errorf("%w: no knee indices for %s", ErrKinematics, side)
	}
	return idx[0], idx[1], nil
}
