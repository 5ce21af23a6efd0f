// Package gait evaluates a pre-planned locomotion plan one control tick at a
// time, producing the structured input consumed by a whole-body QP balance
// controller. It resolves gait phases against force and kinematic contact
// sensing, corrects for plan-versus-sensed drift, re-times swing trajectories
// on early or late touchdown, and folds in a Lyapunov balance feedback term.
package gait

import (
	"errors"
	"fmt"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

// ErrInvalidPlan marks a plan that fails construction-time validation.
var ErrInvalidPlan = errors.New("gait: invalid plan")

// SupportElement describes one body's planned ground contact within a phase.
type SupportElement struct {
	Body           BodyID       `json:"body"`
	ContactPoints  [][3]float64 `json:"contact_points"`
	ContactGroups  []string     `json:"contact_groups,omitempty"`
	ContactSurface int          `json:"contact_surface"`
}

// SupportPhase is the set of bodies nominally in contact during one interval
// of the plan.
type SupportPhase []SupportElement

// SupportsBody reports whether the phase plans support on body.
func (p SupportPhase) SupportsBody(body BodyID) bool {
	_, ok := p.Element(body)
	return ok
}

// Element returns the support element for body, if the phase contains one.
func (p SupportPhase) Element(body BodyID) (SupportElement, bool) {
	for _, e := range p {
		if e.Body == body {
			return e, true
		}
	}
	return SupportElement{}, false
}

// ContactGroupMap names sets of contact points ("heel", "toe", ...) used when
// only part of a body's contact geometry is active.
type ContactGroupMap map[string][][3]float64

// KneeSettings configures the joint-level knee protection override.
type KneeSettings struct {
	MinAngle float64 `json:"min_angle"`
	Kp       float64 `json:"kp"`
	Kd       float64 `json:"kd"`
	Weight   float64 `json:"weight"`
}

// DefaultKneeSettings returns the stock knee protection settings.
func DefaultKneeSettings() KneeSettings {
	return KneeSettings{MinAngle: 0.7, Kp: 40.0, Kd: 4.0, Weight: 1.0}
}

// Plan is the immutable gait plan constructed before execution. BodyMotions
// is the one exception to immutability: the swing updater re-times its
// segments in place during execution.
type Plan struct {
	Supports      []SupportPhase
	SupportTimes  []float64 // len(Supports)+1, strictly increasing, [0] == 0
	ContactGroups []ContactGroupMap

	BodyMotions []BodyMotionData

	ZMPTrajectory trajectory.PiecewisePolynomial
	ZMPFinal      [2]float64
	COMTrajectory trajectory.ExponentialPlusPiecewisePolynomial
	QTrajectory   trajectory.PiecewisePolynomial
	Lyapunov      QuadraticLyapunovFunction

	GainSet       string
	Mu            float64
	Gravity       float64
	LIPMHeight    float64
	IsQuasistatic bool

	// Axes of the world-frame plan shift applied to each channel. This
	// codebase is 0-indexed throughout: ZMP rows pick up the x/y shift
	// components {0, 1}; body motions pick up the height component {2}.
	PlanShiftZMPIndices        []int
	PlanShiftBodyMotionIndices []int

	KneeSettings KneeSettings

	PelvisBody BodyID
	FootBodies map[Side]BodyID

	ConstrainedPositionIndices []int

	// SupportLogicOverrides selects per-body support logic. Bodies without
	// an entry use RequireSupport: trust the plan.
	SupportLogicOverrides map[BodyID]SupportLogic
}

// NewPlan fills in the defaulted fields of a plan. Callers populate the rest
// and then hand it to NewOrchestrator, which validates.
func NewPlan() *Plan {
	return &Plan{
		GainSet:                    "standing",
		Mu:                         0.5,
		Gravity:                    9.81,
		PlanShiftZMPIndices:        []int{0, 1},
		PlanShiftBodyMotionIndices: []int{2},
		KneeSettings:               DefaultKneeSettings(),
		FootBodies:                 make(map[Side]BodyID),
		SupportLogicOverrides:      make(map[BodyID]SupportLogic),
	}
}

// AddSupport appends a phase of the given duration, growing SupportTimes.
func (p *Plan) AddSupport(phase SupportPhase, groups ContactGroupMap, duration float64) {
	p.Supports = append(p.Supports, phase)
	p.ContactGroups = append(p.ContactGroups, groups)
	if len(p.SupportTimes) == 0 {
		p.SupportTimes = append(p.SupportTimes, 0)
	}
	p.SupportTimes = append(p.SupportTimes, p.SupportTimes[len(p.SupportTimes)-1]+duration)
}

// Duration returns the total planned duration.
func (p *Plan) Duration() float64 {
	if len(p.SupportTimes) == 0 {
		return 0
	}
	return p.SupportTimes[len(p.SupportTimes)-1]
}

// SupportLogicFor returns the configured support logic for body.
func (p *Plan) SupportLogicFor(body BodyID) SupportLogic {
	if l, ok := p.SupportLogicOverrides[body]; ok {
		return l
	}
	return RequireSupport
}

// BodyMotion returns the motion data tracking body, or nil.
func (p *Plan) BodyMotion(body BodyID) *BodyMotionData {
	for i := range p.BodyMotions {
		if p.BodyMotions[i].Body == body {
			return &p.BodyMotions[i]
		}
	}
	return nil
}

// Validate checks the plan's static invariants against the kinematics
// collaborator. Violations are fatal at construction.
func (p *Plan) Validate(kin Kinematics) error {
	if len(p.Supports) == 0 {
		return fmt.Errorf("%w: no support phases", ErrInvalidPlan)
	}
	if len(p.SupportTimes) != len(p.Supports)+1 {
		return fmt.Errorf("%w: %d support times for %d supports", ErrInvalidPlan, len(p.SupportTimes), len(p.Supports))
	}
	if p.SupportTimes[0] != 0 {
		return fmt.Errorf("%w: support times must start at 0, got %v", ErrInvalidPlan, p.SupportTimes[0])
	}
	for i := 1; i < len(p.SupportTimes); i++ {
		if p.SupportTimes[i] <= p.SupportTimes[i-1] {
			return fmt.Errorf("%w: support times not strictly increasing at %d", ErrInvalidPlan, i)
		}
	}
	if len(p.ContactGroups) != 0 && len(p.ContactGroups) != len(p.Supports) {
		return fmt.Errorf("%w: %d contact group maps for %d supports", ErrInvalidPlan, len(p.ContactGroups), len(p.Supports))
	}
	validBody := func(b BodyID) bool { return b >= 0 && int(b) < kin.NumBodies() }
	for i, phase := range p.Supports {
		for _, e := range phase {
			if !validBody(e.Body) {
				return fmt.Errorf("%w: phase %d references unknown body %d", ErrInvalidPlan, i, e.Body)
			}
			if len(e.ContactPoints) == 0 {
				return fmt.Errorf("%w: phase %d body %d has no contact points", ErrInvalidPlan, i, e.Body)
			}
		}
	}
	for i := range p.BodyMotions {
		bm := &p.BodyMotions[i]
		if !validBody(bm.Body) {
			return fmt.Errorf("%w: body motion %d references unknown body %d", ErrInvalidPlan, i, bm.Body)
		}
		if err := bm.validate(); err != nil {
			return fmt.Errorf("%w: body motion %d: %v", ErrInvalidPlan, i, err)
		}
	}
	for side, body := range p.FootBodies {
		if !validBody(body) {
			return fmt.Errorf("%w: %s foot references unknown body %d", ErrInvalidPlan, side, body)
		}
	}
	if p.ZMPTrajectory.Empty() {
		return fmt.Errorf("%w: missing zmp trajectory", ErrInvalidPlan)
	}
	if p.COMTrajectory.Empty() {
		return fmt.Errorf("%w: missing com trajectory", ErrInvalidPlan)
	}
	if p.ZMPTrajectory.Rows() < 2 {
		return fmt.Errorf("%w: zmp trajectory has %d rows, want 2", ErrInvalidPlan, p.ZMPTrajectory.Rows())
	}
	if p.COMTrajectory.Rows() < 2 {
		return fmt.Errorf("%w: com trajectory has %d rows, want at least 2", ErrInvalidPlan, p.COMTrajectory.Rows())
	}
	if p.Mu <= 0 {
		return fmt.Errorf("%w: friction coefficient %v", ErrInvalidPlan, p.Mu)
	}
	for _, idx := range p.PlanShiftZMPIndices {
		if idx < 0 || idx > 2 {
			return fmt.Errorf("%w: plan shift zmp index %d", ErrInvalidPlan, idx)
		}
	}
	for _, idx := range p.PlanShiftBodyMotionIndices {
		if idx < 0 || idx > 2 {
			return fmt.Errorf("%w: plan shift body motion index %d", ErrInvalidPlan, idx)
		}
	}
	return nil
}
