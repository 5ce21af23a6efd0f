package gait

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// SupportData is one body's resolved contact instruction for the tick.
type SupportData struct {
	Body           BodyID       `json:"body"`
	ContactPoints  [][3]float64 `json:"contact_points"`
	ContactGroups  []string     `json:"contact_groups,omitempty"`
	ContactSurface int          `json:"contact_surface"`
	Logic          string       `json:"logic"`
	LogicMap       [4]bool      `json:"logic_map"`
	Supported      bool         `json:"supported"`
	EarlyContact   bool         `json:"early_contact,omitempty"`
}

// BodyMotionTarget is a shifted, re-timed body motion sample with its
// objective weight.
type BodyMotionTarget struct {
	Body                     BodyID    `json:"body"`
	Segment                  int       `json:"segment"`
	Value                    []float64 `json:"value"`
	Velocity                 []float64 `json:"velocity"`
	Weight                   float64   `json:"weight"`
	InFloatingBaseNullspace  bool      `json:"in_floating_base_nullspace,omitempty"`
	ControlPoseWhenInContact bool      `json:"control_pose_when_in_contact,omitempty"`
}

// ZMPData carries the balance objective: shifted ZMP/CoM references and the
// Lyapunov feedback term.
type ZMPData struct {
	ZMPDesired  []float64  `json:"zmp_desired"`
	ZMPFinal    [2]float64 `json:"zmp_final"`
	CoMDesired  []float64  `json:"com_desired"`
	CoMVelocity []float64  `json:"com_velocity_desired"`
	S           []float64  `json:"s"` // row-major symmetric quadratic term
	S1          []float64  `json:"s1"`
	Feedback    []float64  `json:"feedback"`
	LIPMHeight  float64    `json:"lipm_height"`
	Gravity     float64    `json:"gravity"`
}

// WholeBodyData is the joint trajectory sample.
type WholeBodyData struct {
	QDesired           []float64 `json:"q_desired"`
	VDesired           []float64 `json:"v_desired"`
	ConstrainedIndices []int     `json:"constrained_position_indices,omitempty"`
}

// JointPDOverride replaces the QP's nominal objective for one joint with a
// PD servo, e.g. knee protection near the joint limit.
type JointPDOverride struct {
	PositionIndex int     `json:"position_index"`
	VelocityIndex int     `json:"velocity_index"`
	PositionGoal  float64 `json:"position_goal"`
	VelocityGoal  float64 `json:"velocity_goal"`
	Kp            float64 `json:"kp"`
	Kd            float64 `json:"kd"`
	Weight        float64 `json:"weight"`
}

// QPInput is the per-tick snapshot handed to the whole-body QP controller.
type QPInput struct {
	ExecutionID string  `json:"execution_id"`
	Sequence    uint64  `json:"sequence"`
	SnapshotKey string  `json:"snapshot_key"`
	Time        float64 `json:"time"`
	PlanTime    float64 `json:"plan_time"`
	Phase       int     `json:"phase"`
	Completed   bool    `json:"completed"`

	Support       []SupportData      `json:"support"`
	BodyMotions   []BodyMotionTarget `json:"body_motions"`
	ZMP           ZMPData            `json:"zmp"`
	WholeBody     WholeBodyData      `json:"whole_body"`
	PDOverrides   []JointPDOverride  `json:"joint_pd_overrides,omitempty"`
	Mu            float64            `json:"mu"`
	GainSet       string             `json:"gain_set"`
	IsQuasistatic bool               `json:"is_quasistatic"`
}

// snapshotKey derives a stable identifier from the execution and tick time,
// so a resend of the same tick carries the same key.
func snapshotKey(executionID string, tGlobal float64) string {
	h := fnv.New64a()
	h.Write([]byte(executionID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(tGlobal))
	h.Write(buf[:])
	return fmt.Sprintf("%016x", h.Sum64())
}
