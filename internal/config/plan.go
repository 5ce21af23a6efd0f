package config

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/bipedlab/locomotion/internal/gait"
	"github.com/bipedlab/locomotion/internal/trajectory"
)

// TrajectorySpec is the JSON form of a piecewise trajectory: knots at
// breaks, joined by cubic hermite segments when derivatives are given and
// by linear segments otherwise.
type TrajectorySpec struct {
	Breaks      []float64   `json:"breaks"`
	Knots       [][]float64 `json:"knots"`
	Derivatives [][]float64 `json:"derivatives,omitempty"`
}

// Build constructs the trajectory.
func (s *TrajectorySpec) Build() (trajectory.PiecewisePolynomial, error) {
	if len(s.Derivatives) > 0 {
		return trajectory.NewCubicHermite(s.Breaks, s.Knots, s.Derivatives)
	}
	return trajectory.NewFirstOrderHold(s.Breaks, s.Knots)
}

// SupportElementSpec is the JSON form of one body's planned contact.
type SupportElementSpec struct {
	Body           int          `json:"body"`
	ContactPoints  [][3]float64 `json:"contact_points"`
	ContactGroups  []string     `json:"contact_groups,omitempty"`
	ContactSurface int          `json:"contact_surface"`
}

// SupportPhaseSpec is the JSON form of one support phase.
type SupportPhaseSpec struct {
	Duration float64                 `json:"duration"`
	Bodies   []SupportElementSpec    `json:"bodies"`
	Groups   map[string][][3]float64 `json:"groups,omitempty"`
}

// BodyMotionSpec is the JSON form of one tracked body motion.
type BodyMotionSpec struct {
	Body                     int            `json:"body"`
	Trajectory               TrajectorySpec `json:"trajectory"`
	SwingSegments            []bool         `json:"swing_segments"`
	Weight                   float64        `json:"weight"`
	InFloatingBaseNullspace  bool           `json:"in_floating_base_nullspace,omitempty"`
	ControlPoseWhenInContact bool           `json:"control_pose_when_in_contact,omitempty"`
}

// LyapunovSpec is the JSON form of the balance value function.
type LyapunovSpec struct {
	S  [][]float64    `json:"s"`
	S1 TrajectorySpec `json:"s1"`
}

// PlanFile is the JSON document describing one locomotion plan.
type PlanFile struct {
	GainSet       string  `json:"gain_set,omitempty"`
	Mu            float64 `json:"mu,omitempty"`
	Gravity       float64 `json:"gravity,omitempty"`
	LIPMHeight    float64 `json:"lipm_height"`
	IsQuasistatic bool    `json:"is_quasistatic,omitempty"`

	PelvisBody int            `json:"pelvis_body"`
	FootBodies map[string]int `json:"foot_bodies"`

	Supports    []SupportPhaseSpec `json:"supports"`
	BodyMotions []BodyMotionSpec   `json:"body_motions"`

	ZMP      TrajectorySpec  `json:"zmp"`
	ZMPFinal [2]float64      `json:"zmp_final"`
	COM      TrajectorySpec  `json:"com"`
	Q        *TrajectorySpec `json:"q_trajectory,omitempty"`
	Lyapunov *LyapunovSpec   `json:"lyapunov,omitempty"`

	Knee *gait.KneeSettings `json:"knee,omitempty"`

	// Keys are decimal body IDs; JSON objects cannot key on integers.
	SupportLogicOverrides map[string]string `json:"support_logic_overrides,omitempty"`

	ConstrainedPositionIndices []int `json:"constrained_position_indices,omitempty"`
}

// LoadPlan reads and builds a plan from a JSON file. The returned plan
// still needs Validate against the robot's kinematics, which
// gait.NewOrchestrator performs.
func LoadPlan(path string) (*gait.Plan, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	var pf PlanFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return pf.Build()
}

// Build assembles the runtime plan from the document.
func (pf *PlanFile) Build() (*gait.Plan, error) {
	plan := gait.NewPlan()
	if pf.GainSet != "" {
		plan.GainSet = pf.GainSet
	}
	if pf.Mu != 0 {
		plan.Mu = pf.Mu
	}
	if pf.Gravity != 0 {
		plan.Gravity = pf.Gravity
	}
	plan.LIPMHeight = pf.LIPMHeight
	plan.IsQuasistatic = pf.IsQuasistatic
	plan.PelvisBody = gait.BodyID(pf.PelvisBody)
	if pf.Knee != nil {
		plan.KneeSettings = *pf.Knee
	}
	plan.ConstrainedPositionIndices = pf.ConstrainedPositionIndices

	for name, body := range pf.FootBodies {
		switch name {
		case "left":
			plan.FootBodies[gait.Left] = gait.BodyID(body)
		case "right":
			plan.FootBodies[gait.Right] = gait.BodyID(body)
		default:
			return nil, fmt.Errorf("unknown foot side %q", name)
		}
	}

	for _, phase := range pf.Supports {
		elems := make(gait.SupportPhase, 0, len(phase.Bodies))
		for _, b := range phase.Bodies {
			elems = append(elems, gait.SupportElement{
				Body:           gait.BodyID(b.Body),
				ContactPoints:  b.ContactPoints,
				ContactGroups:  b.ContactGroups,
				ContactSurface: b.ContactSurface,
			})
		}
		plan.AddSupport(elems, gait.ContactGroupMap(phase.Groups), phase.Duration)
	}

	for i, bms := range pf.BodyMotions {
		traj, err := bms.Trajectory.Build()
		if err != nil {
			return nil, fmt.Errorf("body motion %d: %w", i, err)
		}
		plan.BodyMotions = append(plan.BodyMotions, gait.BodyMotionData{
			Body:                     gait.BodyID(bms.Body),
			Trajectory:               traj,
			SwingSegments:            bms.SwingSegments,
			Weight:                   bms.Weight,
			InFloatingBaseNullspace:  bms.InFloatingBaseNullspace,
			ControlPoseWhenInContact: bms.ControlPoseWhenInContact,
		})
	}

	zmp, err := pf.ZMP.Build()
	if err != nil {
		return nil, fmt.Errorf("zmp trajectory: %w", err)
	}
	plan.ZMPTrajectory = zmp
	plan.ZMPFinal = pf.ZMPFinal

	com, err := pf.COM.Build()
	if err != nil {
		return nil, fmt.Errorf("com trajectory: %w", err)
	}
	plan.COMTrajectory = trajectory.FromPiecewise(com)

	if pf.Q != nil {
		q, err := pf.Q.Build()
		if err != nil {
			return nil, fmt.Errorf("q trajectory: %w", err)
		}
		plan.QTrajectory = q
	}

	if pf.Lyapunov != nil {
		lyap, err := pf.Lyapunov.build()
		if err != nil {
			return nil, err
		}
		plan.Lyapunov = lyap
	}

	for key, name := range pf.SupportLogicOverrides {
		body, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("support logic override key %q is not a body id", key)
		}
		logic, err := gait.ParseSupportLogic(name)
		if err != nil {
			return nil, fmt.Errorf("support logic override for body %d: %w", body, err)
		}
		plan.SupportLogicOverrides[gait.BodyID(body)] = logic
	}

	return plan, nil
}

func (ls *LyapunovSpec) build() (gait.QuadraticLyapunovFunction, error) {
	n := len(ls.S)
	if n == 0 {
		return gait.QuadraticLyapunovFunction{}, fmt.Errorf("lyapunov: empty s matrix")
	}
	flat := make([]float64, 0, n*n)
	for i, row := range ls.S {
		if len(row) != n {
			return gait.QuadraticLyapunovFunction{}, fmt.Errorf("lyapunov: s row %d has %d entries, want %d", i, len(row), n)
		}
		flat = append(flat, row...)
	}
	s1pp, err := ls.S1.Build()
	if err != nil {
		return gait.QuadraticLyapunovFunction{}, fmt.Errorf("lyapunov: s1: %w", err)
	}
	return gait.NewQuadraticLyapunovFunction(mat.NewDense(n, n, flat), trajectory.FromPiecewise(s1pp))
}
