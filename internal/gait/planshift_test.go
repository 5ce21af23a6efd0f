package gait

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanShiftStartsZero(t *testing.T) {
	t.Parallel()

	e := NewPlanShiftEstimator([]int{0, 1}, []int{2})
	assert.True(t, e.IsZero())

	// With no qualifying touchdown, applying is a no-op.
	zmp := []float64{0.1, 0.2}
	e.ApplyToZMP(zmp)
	assert.Equal(t, []float64{0.1, 0.2}, zmp)
}

func TestPlanShiftRecordAndApply(t *testing.T) {
	t.Parallel()

	e := NewPlanShiftEstimator([]int{0, 1}, []int{2})
	// Planned touchdown at origin; the foot actually landed 2cm low and
	// 1cm forward.
	e.RecordTouchdown([3]float64{0.3, 0.1, 0}, [3]float64{0.31, 0.1, -0.02})
	shift := e.Shift()
	assert.InDelta(t, -0.01, shift[0], 1e-12)
	assert.InDelta(t, 0, shift[1], 1e-12)
	assert.InDelta(t, 0.02, shift[2], 1e-12)
	assert.False(t, e.IsZero())

	zmp := []float64{0.15, 0}
	e.ApplyToZMP(zmp)
	assert.InDelta(t, 0.16, zmp[0], 1e-12)
	assert.InDelta(t, 0.0, zmp[1], 1e-12)

	val := []float64{0.3, 0.1, 0, 1, 2, 3}
	e.ApplyToBodyMotion(val)
	assert.InDelta(t, -0.02, val[2], 1e-12)
	assert.InDelta(t, 0.3, val[0], 1e-12) // x not in the body-motion axis set

	e.Reset()
	assert.True(t, e.IsZero())
}

func TestPlanShiftPersistsUntilOverwritten(t *testing.T) {
	t.Parallel()

	e := NewPlanShiftEstimator([]int{0, 1}, []int{2})
	e.RecordTouchdown([3]float64{0, 0, 0}, [3]float64{0, 0, -0.05})
	first := e.Shift()

	e.RecordTouchdown([3]float64{0.3, 0, 0}, [3]float64{0.3, 0, 0.01})
	assert.NotEqual(t, first, e.Shift())
	assert.Equal(t, [3]float64{0, 0, -0.01}, e.Shift())
}
