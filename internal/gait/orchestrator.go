package gait

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bipedlab/locomotion/internal/monitoring"
)

// ExecState is the orchestrator's lifecycle state.
type ExecState int

const (
	NotStarted ExecState = iota
	Running
	Completed
)

func (s ExecState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("exec_state(%d)", int(s))
	}
}

// Publisher delivers one QP-input snapshot per tick to a named channel.
// Delivery failures surface as per-tick errors; the orchestrator never
// retries on its own.
type Publisher interface {
	Publish(channel string, payload any) error
}

// executionState bundles all mutable per-execution state so that replaying a
// plan is a matter of re-initializing this one value.
type executionState struct {
	started      bool
	startTime    float64
	lastPhase    int
	sequence     uint64
	completed    bool
	toeOffActive [2]bool // indexed by Side
	earlyContact map[BodyID]bool
	lastInput    *QPInput
}

func newExecutionState() executionState {
	return executionState{lastPhase: -1, earlyContact: make(map[BodyID]bool)}
}

// Orchestrator is the per-tick entry point of plan execution. It is driven
// by exactly one caller thread; concurrent reads of LastInput must be
// synchronized externally.
type Orchestrator struct {
	kin      Kinematics
	plan     *Plan
	schedule Schedule
	swing    *SwingTrajectoryUpdater
	shift    *PlanShiftEstimator
	pub      Publisher
	channel  string

	executionID uuid.UUID
	cfg         SwingConfig
	logf        func(format string, v ...interface{})
	swingHook   func(kind string)
	st          executionState
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithSwingConfig overrides the swing re-timing configuration.
func WithSwingConfig(cfg SwingConfig) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// Swing re-timing event kinds reported through WithSwingEventHook.
const (
	SwingEventEarlyTouchdown = "early_touchdown"
	SwingEventLateTouchdown  = "late_touchdown"
)

// WithSwingEventHook registers a callback invoked from Tick whenever a swing
// trajectory is re-timed. The hook runs on the tick path and must not block.
func WithSwingEventHook(hook func(kind string)) Option {
	return func(o *Orchestrator) { o.swingHook = hook }
}

// NewOrchestrator validates the plan and builds an orchestrator bound to the
// given transport channel. Validation failures are fatal: no orchestrator is
// built for an invalid plan.
func NewOrchestrator(kin Kinematics, plan *Plan, pub Publisher, channel string, opts ...Option) (*Orchestrator, error) {
	if kin == nil {
		return nil, fmt.Errorf("%w: nil kinematics", ErrInvalidPlan)
	}
	if err := plan.Validate(kin); err != nil {
		return nil, err
	}
	sched, err := NewSchedule(plan.Supports, plan.SupportTimes)
	if err != nil {
		return nil, err
	}
	if d := plan.Lyapunov.Dim(); d != 0 && d != 2 && d != 4 {
		return nil, fmt.Errorf("%w: lyapunov dimension %d, want 2 or 4", ErrInvalidPlan, d)
	}
	o := &Orchestrator{
		kin:         kin,
		plan:        plan,
		schedule:    sched,
		pub:         pub,
		channel:     channel,
		executionID: uuid.New(),
		cfg:         DefaultSwingConfig(),
		logf:        monitoring.Prefixed("[gait]"),
		st:          newExecutionState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.swing = NewSwingTrajectoryUpdater(o.cfg)
	o.shift = NewPlanShiftEstimator(plan.PlanShiftZMPIndices, plan.PlanShiftBodyMotionIndices)
	return o, nil
}

// ExecutionID identifies this plan execution on every published snapshot.
func (o *Orchestrator) ExecutionID() string { return o.executionID.String() }

// State reports the lifecycle state.
func (o *Orchestrator) State() ExecState {
	switch {
	case !o.st.started:
		return NotStarted
	case o.st.completed:
		return Completed
	default:
		return Running
	}
}

// LastInput returns the most recently produced snapshot, or nil.
func (o *Orchestrator) LastInput() *QPInput { return o.st.lastInput }

// PlanShift returns the current plan-shift correction.
func (o *Orchestrator) PlanShift() [3]float64 { return o.shift.Shift() }

// ToeOffActive reports whether a side is in late-touchdown handling.
func (o *Orchestrator) ToeOffActive(side Side) bool { return o.st.toeOffActive[side] }

// Reset discards all execution state so the plan can be replayed. The plan's
// body motions are not restored; re-timed segments remain re-timed.
func (o *Orchestrator) Reset() {
	o.st = newExecutionState()
	o.shift.Reset()
	o.swing = NewSwingTrajectoryUpdater(o.cfg)
	o.executionID = uuid.New()
}

// detected reads the per-body contact force vector; missing entries report
// no contact.
func detected(contactForceDetected []bool, body BodyID) bool {
	i := int(body)
	return i >= 0 && i < len(contactForceDetected) && contactForceDetected[i]
}

// kinematicContact estimates whether a body is touching the ground, from the
// sensed body height against the shift-corrected planned height.
func (o *Orchestrator) kinematicContact(q []float64, body BodyID, bm *BodyMotionData, tPlan float64) (bool, error) {
	pose, err := o.kin.BodyPose(q, body)
	if err != nil {
		return false, err
	}
	planned := bm.Trajectory.Value(tPlan)
	o.shift.ApplyToBodyMotion(planned)
	return pose.Position[2] <= planned[2]+o.cfg.KinematicContactThreshold, nil
}

// contactPointsFor resolves a support element's active contact geometry; a
// named contact group in the phase's group map overrides the element's full
// point set.
func (o *Orchestrator) contactPointsFor(phaseIdx int, e SupportElement) [][3]float64 {
	if len(e.ContactGroups) == 0 || phaseIdx >= len(o.plan.ContactGroups) {
		return e.ContactPoints
	}
	groups := o.plan.ContactGroups[phaseIdx]
	var pts [][3]float64
	for _, name := range e.ContactGroups {
		pts = append(pts, groups[name]...)
	}
	if len(pts) == 0 {
		return e.ContactPoints
	}
	return pts
}

// Tick evaluates the plan at global time tGlobal with robot state (q, v) and
// the per-body contact force vector, publishes the assembled QP input, and
// returns it. Kinematics failures abort the tick; transport failures return
// the snapshot alongside the error so the caller can decide, with all
// internal state already advanced.
func (o *Orchestrator) Tick(tGlobal float64, q, v []float64, contactForceDetected []bool) (*QPInput, error) {
	if len(q) != o.kin.NumPositions() {
		return nil, fmt.Errorf("gait: q has %d entries, want %d", len(q), o.kin.NumPositions())
	}
	if len(v) != o.kin.NumVelocities() {
		return nil, fmt.Errorf("gait: v has %d entries, want %d", len(v), o.kin.NumVelocities())
	}

	if !o.st.started {
		o.st.started = true
		o.st.startTime = tGlobal
		o.logf("execution %s started at t=%.3f duration=%.3f", o.executionID, tGlobal, o.plan.Duration())
	}
	duration := o.plan.Duration()
	tPlan := tGlobal - o.st.startTime
	completed := tPlan >= duration
	if tPlan < 0 {
		tPlan = 0
	}
	if tPlan > duration {
		tPlan = duration
	}

	phaseIdx, phase := o.schedule.PhaseAt(tPlan)

	if err := o.updatePlanShift(tPlan, phaseIdx, phase, q, contactForceDetected); err != nil {
		return nil, err
	}
	if err := o.updateSwing(tPlan, phase, q, contactForceDetected); err != nil {
		return nil, err
	}
	overrides, err := o.kneeOverrides(q)
	if err != nil {
		return nil, err
	}
	support, err := o.resolveSupport(tPlan, phaseIdx, phase, q, contactForceDetected)
	if err != nil {
		return nil, err
	}
	zmpData, err := o.balanceObjective(tPlan, q, v)
	if err != nil {
		return nil, err
	}

	input := &QPInput{
		ExecutionID:   o.executionID.String(),
		Sequence:      o.st.sequence,
		SnapshotKey:   snapshotKey(o.executionID.String(), tGlobal),
		Time:          tGlobal,
		PlanTime:      tPlan,
		Phase:         phaseIdx,
		Completed:     completed,
		Support:       support,
		BodyMotions:   o.bodyMotionTargets(tPlan),
		ZMP:           zmpData,
		WholeBody:     o.wholeBodyData(tPlan),
		PDOverrides:   overrides,
		Mu:            o.plan.Mu,
		GainSet:       o.plan.GainSet,
		IsQuasistatic: o.plan.IsQuasistatic,
	}
	o.st.sequence++
	o.st.lastPhase = phaseIdx
	o.st.completed = completed
	o.st.lastInput = input

	if o.pub != nil {
		if err := o.pub.Publish(o.channel, input); err != nil {
			return input, fmt.Errorf("gait: transport delivery: %w", err)
		}
	}
	return input, nil
}

// updatePlanShift records a new plan shift when a body transitions into
// support with contact force sensed.
func (o *Orchestrator) updatePlanShift(tPlan float64, phaseIdx int, phase SupportPhase, q []float64, contact []bool) error {
	if o.st.lastPhase < 0 || phaseIdx == o.st.lastPhase {
		return nil
	}
	prev := o.schedule.Phase(o.st.lastPhase)
	// Any body entering or leaving planned support starts the new phase with
	// clean per-contact state, whether or not force is sensed on this tick.
	for _, e := range phase {
		if !prev.SupportsBody(e.Body) {
			delete(o.st.earlyContact, e.Body)
		}
	}
	for _, e := range prev {
		if phase.SupportsBody(e.Body) {
			continue
		}
		delete(o.st.earlyContact, e.Body)
		for _, side := range Sides() {
			if o.plan.FootBodies[side] == e.Body {
				o.st.toeOffActive[side] = false
			}
		}
	}
	for _, e := range phase {
		if prev.SupportsBody(e.Body) || !detected(contact, e.Body) {
			continue
		}
		bm := o.plan.BodyMotion(e.Body)
		if bm == nil {
			continue
		}
		pose, err := o.kin.BodyPose(q, e.Body)
		if err != nil {
			return err
		}
		val := bm.Trajectory.Value(tPlan)
		var planned [3]float64
		copy(planned[:], val[:3])
		o.shift.RecordTouchdown(planned, pose.Position)
		for _, side := range Sides() {
			if o.plan.FootBodies[side] == e.Body {
				o.st.toeOffActive[side] = false
			}
		}
		o.logf("touchdown body=%d phase=%d shift=%v", e.Body, phaseIdx, o.shift.Shift())
	}
	return nil
}

// updateSwing applies early/late touchdown handling to each foot.
func (o *Orchestrator) updateSwing(tPlan float64, phase SupportPhase, q []float64, contact []bool) error {
	for _, side := range Sides() {
		body, ok := o.plan.FootBodies[side]
		if !ok {
			continue
		}
		bm := o.plan.BodyMotion(body)
		if bm == nil {
			continue
		}
		forceSensed := detected(contact, body)
		inSupport := phase.SupportsBody(body)
		seg := bm.SegmentIndex(tPlan)

		switch {
		case inSupport && forceSensed && o.st.toeOffActive[side]:
			// Late touchdown resolved: the foot finally made contact.
			o.st.toeOffActive[side] = false

		case !inSupport && forceSensed && !o.st.earlyContact[body]:
			if !bm.SwingEligible(seg) {
				continue
			}
			pose, err := o.kin.BodyPose(q, body)
			if err != nil {
				return err
			}
			if err := o.swing.EarlyTouchdown(bm, tPlan, pose); err != nil {
				o.logf("early touchdown skipped: %v", err)
				continue
			}
			o.st.earlyContact[body] = true
			o.st.toeOffActive[side] = false
			o.noteSwingEvent(SwingEventEarlyTouchdown)

		case inSupport && !forceSensed && !o.st.earlyContact[body]:
			kinContact, err := o.kinematicContact(q, body, bm, tPlan)
			if err != nil {
				return err
			}
			if kinContact {
				continue
			}
			if err := o.swing.LateTouchdown(bm, tPlan); err != nil {
				o.logf("late touchdown skipped: %v", err)
				continue
			}
			if !o.st.toeOffActive[side] {
				o.noteSwingEvent(SwingEventLateTouchdown)
			}
			o.st.toeOffActive[side] = true
		}
	}
	return nil
}

func (o *Orchestrator) noteSwingEvent(kind string) {
	if o.swingHook != nil {
		o.swingHook(kind)
	}
}

// kneeOverrides activates the PD knee protection for any leg whose knee
// angle is below the configured minimum. Purely a function of the current
// angle; no hysteresis.
func (o *Orchestrator) kneeOverrides(q []float64) ([]JointPDOverride, error) {
	var overrides []JointPDOverride
	ks := o.plan.KneeSettings
	for _, side := range Sides() {
		if _, ok := o.plan.FootBodies[side]; !ok {
			continue
		}
		angle, err := o.kin.KneeAngle(q, side)
		if err != nil {
			return nil, err
		}
		if angle >= ks.MinAngle {
			continue
		}
		posIdx, velIdx, err := o.kin.KneeIndices(side)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, JointPDOverride{
			PositionIndex: posIdx,
			VelocityIndex: velIdx,
			PositionGoal:  ks.MinAngle,
			VelocityGoal:  0,
			Kp:            ks.Kp,
			Kd:            ks.Kd,
			Weight:        ks.Weight,
		})
	}
	return overrides, nil
}

// resolveSupport builds the per-body support instructions for the tick.
// Bodies that touched down early appear with their upcoming contact geometry
// even though the current phase still marks them as swinging.
func (o *Orchestrator) resolveSupport(tPlan float64, phaseIdx int, phase SupportPhase, q []float64, contact []bool) ([]SupportData, error) {
	support := make([]SupportData, 0, len(phase)+1)
	for _, e := range phase {
		logic := o.plan.SupportLogicFor(e.Body)
		forced := detected(contact, e.Body) || o.st.earlyContact[e.Body]
		kinContact := o.st.earlyContact[e.Body]
		if bm := o.plan.BodyMotion(e.Body); bm != nil && !kinContact {
			kc, err := o.kinematicContact(q, e.Body, bm, tPlan)
			if err != nil {
				return nil, err
			}
			kinContact = kc
		}
		support = append(support, SupportData{
			Body:           e.Body,
			ContactPoints:  o.contactPointsFor(phaseIdx, e),
			ContactGroups:  e.ContactGroups,
			ContactSurface: e.ContactSurface,
			Logic:          logic.String(),
			LogicMap:       logic.LogicMap(),
			Supported:      logic.Resolve(forced, kinContact),
			EarlyContact:   o.st.earlyContact[e.Body],
		})
	}
	for body, early := range o.st.earlyContact {
		if !early || phase.SupportsBody(body) {
			continue
		}
		e, ok := o.upcomingElement(phaseIdx, body)
		if !ok {
			continue
		}
		logic := o.plan.SupportLogicFor(body)
		support = append(support, SupportData{
			Body:           body,
			ContactPoints:  e.ContactPoints,
			ContactGroups:  e.ContactGroups,
			ContactSurface: e.ContactSurface,
			Logic:          logic.String(),
			LogicMap:       logic.LogicMap(),
			Supported:      logic.Resolve(true, true),
			EarlyContact:   true,
		})
	}
	return support, nil
}

// upcomingElement finds the body's support element in the next phase that
// plans contact for it.
func (o *Orchestrator) upcomingElement(phaseIdx int, body BodyID) (SupportElement, bool) {
	for i := phaseIdx + 1; i < o.schedule.NumPhases(); i++ {
		if e, ok := o.schedule.Phase(i).Element(body); ok {
			return e, true
		}
	}
	return SupportElement{}, false
}

// balanceObjective samples the shifted ZMP/CoM references and the Lyapunov
// feedback term.
func (o *Orchestrator) balanceObjective(tPlan float64, q, v []float64) (ZMPData, error) {
	zmp := o.plan.ZMPTrajectory.Value(tPlan)
	o.shift.ApplyToZMP(zmp)
	com := o.plan.COMTrajectory.Value(tPlan)
	comVel := o.plan.COMTrajectory.EvalDerivative(tPlan)

	data := ZMPData{
		ZMPDesired:  zmp,
		ZMPFinal:    o.plan.ZMPFinal,
		CoMDesired:  com,
		CoMVelocity: comVel,
		LIPMHeight:  o.plan.LIPMHeight,
		Gravity:     o.plan.Gravity,
	}

	dim := o.plan.Lyapunov.Dim()
	if dim == 0 {
		return data, nil
	}
	comSensed, err := o.kin.CenterOfMass(q)
	if err != nil {
		return ZMPData{}, err
	}
	comVelSensed, err := o.kin.CenterOfMassVelocity(q, v)
	if err != nil {
		return ZMPData{}, err
	}
	// State error stacks horizontal CoM position error over velocity error.
	stacked := []float64{
		comSensed[0] - com[0],
		comSensed[1] - com[1],
		comVelSensed[0] - comVel[0],
		comVelSensed[1] - comVel[1],
	}
	xErr := stacked[:dim]
	fb, err := o.plan.Lyapunov.Feedback(tPlan, xErr)
	if err != nil {
		return ZMPData{}, err
	}
	s := o.plan.Lyapunov.S()
	flat := make([]float64, 0, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			flat = append(flat, s.At(i, j))
		}
	}
	data.S = flat
	data.S1 = o.plan.Lyapunov.S1At(tPlan)
	data.Feedback = fb
	return data, nil
}

// bodyMotionTargets samples every tracked body's re-timed, shift-corrected
// motion.
func (o *Orchestrator) bodyMotionTargets(tPlan float64) []BodyMotionTarget {
	targets := make([]BodyMotionTarget, 0, len(o.plan.BodyMotions))
	for i := range o.plan.BodyMotions {
		bm := &o.plan.BodyMotions[i]
		val := bm.Trajectory.Value(tPlan)
		vel := bm.Trajectory.EvalDerivative(tPlan)
		o.shift.ApplyToBodyMotion(val)
		targets = append(targets, BodyMotionTarget{
			Body:                     bm.Body,
			Segment:                  bm.SegmentIndex(tPlan),
			Value:                    val,
			Velocity:                 vel,
			Weight:                   bm.Weight,
			InFloatingBaseNullspace:  bm.InFloatingBaseNullspace,
			ControlPoseWhenInContact: bm.ControlPoseWhenInContact,
		})
	}
	return targets
}

// wholeBodyData samples the joint trajectory, when the plan carries one.
func (o *Orchestrator) wholeBodyData(tPlan float64) WholeBodyData {
	data := WholeBodyData{ConstrainedIndices: o.plan.ConstrainedPositionIndices}
	if !o.plan.QTrajectory.Empty() {
		data.QDesired = o.plan.QTrajectory.Value(tPlan)
		data.VDesired = o.plan.QTrajectory.EvalDerivative(tPlan)
	}
	return data
}
