package gait

import "errors"

// BodyID is an opaque handle into the kinematics collaborator's body table.
// It is only meaningful to the Kinematics implementation that issued it.
type BodyID int

// InvalidBody marks an unresolved body reference.
const InvalidBody BodyID = -1

// Pose is a body pose in world frame. Quaternion is [w x y z].
type Pose struct {
	Position   [3]float64
	Quaternion [4]float64
}

// ErrKinematics wraps failures to resolve a body or joint through the
// kinematics collaborator. A tick cannot produce a valid controller input
// without kinematics, so these surface to the caller.
var ErrKinematics = errors.New("gait: kinematics lookup failed")

// Kinematics is the read-only collaborator that supplies transforms and
// joint bookkeeping for the robot. Implementations are expected to be fast
// and synchronous; they are called several times per tick.
type Kinematics interface {
	// NumBodies returns the number of bodies in the robot's body table.
	NumBodies() int

	// NumPositions returns the length of the configuration vector q.
	NumPositions() int

	// NumVelocities returns the length of the velocity vector v.
	NumVelocities() int

	// BodyPose returns the world-frame pose of body at configuration q.
	BodyPose(q []float64, body BodyID) (Pose, error)

	// CenterOfMass returns the whole-body center of mass at q.
	CenterOfMass(q []float64) ([3]float64, error)

	// CenterOfMassVelocity returns the center-of-mass velocity at (q, v).
	CenterOfMassVelocity(q, v []float64) ([3]float64, error)

	// KneeAngle returns the instantaneous knee angle for the given leg.
	KneeAngle(q []float64, side Side) (float64, error)

	// KneeIndices returns the position and velocity vector indices of the
	// knee joint for the given leg.
	KneeIndices(side Side) (posIndex, velIndex int, err error)
}
