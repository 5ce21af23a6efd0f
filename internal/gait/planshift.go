package gait

// PlanShiftEstimator maintains the running world-frame offset between the
// planned and sensed position of the robot. The shift is recorded when a
// body transitions into support with contact force sensed, and is defined as
// planned minus sensed: subtracting it from planned references drags the
// plan onto the terrain the robot actually found. It persists until the next
// qualifying touchdown overwrites it; it is never reset mid-phase.
type PlanShiftEstimator struct {
	shift             [3]float64
	zmpIndices        []int
	bodyMotionIndices []int
}

// NewPlanShiftEstimator configures which world axes each channel picks up.
// zmpIndices maps ZMP row k to shift component zmpIndices[k];
// bodyMotionIndices lists the position rows of body motions to correct.
func NewPlanShiftEstimator(zmpIndices, bodyMotionIndices []int) *PlanShiftEstimator {
	return &PlanShiftEstimator{
		zmpIndices:        append([]int(nil), zmpIndices...),
		bodyMotionIndices: append([]int(nil), bodyMotionIndices...),
	}
}

// Shift returns the current plan shift.
func (e *PlanShiftEstimator) Shift() [3]float64 { return e.shift }

// IsZero reports whether no touchdown has recorded a shift yet.
func (e *PlanShiftEstimator) IsZero() bool {
	return e.shift == [3]float64{}
}

// RecordTouchdown overwrites the shift from a planned and sensed body
// position captured at the same instant.
func (e *PlanShiftEstimator) RecordTouchdown(planned, sensed [3]float64) {
	for i := range e.shift {
		e.shift[i] = planned[i] - sensed[i]
	}
}

// ApplyToBodyMotion corrects a body-motion sample in place. value rows 0..2
// are world-frame position.
func (e *PlanShiftEstimator) ApplyToBodyMotion(value []float64) {
	for _, idx := range e.bodyMotionIndices {
		if idx < len(value) {
			value[idx] -= e.shift[idx]
		}
	}
}

// ApplyToZMP corrects a ZMP sample in place. zmp row k maps to the
// configured world axis zmpIndices[k].
func (e *PlanShiftEstimator) ApplyToZMP(zmp []float64) {
	for k, idx := range e.zmpIndices {
		if k < len(zmp) {
			zmp[k] -= e.shift[idx]
		}
	}
}

// Reset zeroes the shift for a fresh plan execution.
func (e *PlanShiftEstimator) Reset() { e.shift = [3]float64{} }
