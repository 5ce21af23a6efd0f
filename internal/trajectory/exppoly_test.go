package trajectory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestExponentialPlusPiecewiseScalarDecay(t *testing.T) {
	t.Parallel()

	// x(t) = 2*exp(-t) + 1 over [0, 3].
	pp := NewConstant([]float64{1}, 0, 3)
	k := mat.NewDense(1, 1, []float64{2})
	a := mat.NewDense(1, 1, []float64{-1})
	alpha := mat.NewDense(1, 1, []float64{1})

	e, err := NewExponentialPlusPiecewise(k, a, alpha, pp)
	require.NoError(t, err)

	for _, tt := range []float64{0, 0.5, 1, 2.7} {
		assert.InDelta(t, 2*math.Exp(-tt)+1, e.Value(tt)[0], 1e-9, "t=%v", tt)
		assert.InDelta(t, -2*math.Exp(-tt), e.EvalDerivative(tt)[0], 1e-9, "t=%v", tt)
	}
}

func TestExponentialPlusPiecewiseDimensionChecks(t *testing.T) {
	t.Parallel()

	pp := NewConstant([]float64{1, 2}, 0, 1)

	_, err := NewExponentialPlusPiecewise(mat.NewDense(1, 1, nil), nil, nil, pp)
	assert.Error(t, err)

	// K rows must match polynomial rows.
	_, err = NewExponentialPlusPiecewise(
		mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil), pp)
	assert.Error(t, err)

	// Alpha must have one column per segment.
	_, err = NewExponentialPlusPiecewise(
		mat.NewDense(2, 1, nil), mat.NewDense(1, 1, nil), mat.NewDense(1, 3, nil), pp)
	assert.Error(t, err)

	e, err := NewExponentialPlusPiecewise(nil, nil, nil, pp)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, e.Value(0.5))
}

func TestFromPiecewise(t *testing.T) {
	t.Parallel()

	pp, err := NewFirstOrderHold([]float64{0, 1}, [][]float64{{0}, {4}})
	require.NoError(t, err)

	e := FromPiecewise(pp)
	assert.InDelta(t, 2.0, e.Value(0.5)[0], 1e-12)
	assert.InDelta(t, 4.0, e.EvalDerivative(0.5)[0], 1e-12)
}
