package gait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

func constantS1(rows int, t0, t1 float64) trajectory.ExponentialPlusPiecewisePolynomial {
	return trajectory.FromPiecewise(trajectory.NewConstant(make([]float64, rows), t0, t1))
}

func TestLyapunovSymmetrizesS(t *testing.T) {
	t.Parallel()

	// Slightly asymmetric input, e.g. from numerical Riccati integration.
	s := mat.NewDense(2, 2, []float64{1, 0.3 + 1e-7, 0.3, 2})
	f, err := NewQuadraticLyapunovFunction(s, constantS1(2, 0, 1))
	require.NoError(t, err)

	sym := f.S()
	r, c := sym.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(t, sym.At(i, j), sym.At(j, i), "S[%d,%d]", i, j)
		}
	}
	assert.InDelta(t, 0.3+5e-8, sym.At(0, 1), 1e-12)
}

func TestLyapunovRejectsBadS(t *testing.T) {
	t.Parallel()

	_, err := NewQuadraticLyapunovFunction(mat.NewDense(2, 3, nil), constantS1(2, 0, 1))
	assert.Error(t, err)

	// Negative definite.
	_, err = NewQuadraticLyapunovFunction(mat.NewDense(2, 2, []float64{-1, 0, 0, -1}), constantS1(2, 0, 1))
	assert.Error(t, err)

	// s1 dimension mismatch.
	_, err = NewQuadraticLyapunovFunction(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), constantS1(3, 0, 1))
	assert.Error(t, err)
}

func TestLyapunovFeedback(t *testing.T) {
	t.Parallel()

	s1pp, err := trajectory.NewFirstOrderHold([]float64{0, 1}, [][]float64{{0, 0}, {2, 4}})
	require.NoError(t, err)
	f, err := NewQuadraticLyapunovFunction(
		mat.NewDense(2, 2, []float64{2, 0, 0, 3}),
		trajectory.FromPiecewise(s1pp),
	)
	require.NoError(t, err)

	// At t=0.5, s1 = (1, 2); feedback = S*e + 0.5*s1.
	fb, err := f.Feedback(0.5, []float64{0.1, -0.2})
	require.NoError(t, err)
	assert.InDelta(t, 2*0.1+0.5*1, fb[0], 1e-12)
	assert.InDelta(t, 3*-0.2+0.5*2, fb[1], 1e-12)

	_, err = f.Feedback(0.5, []float64{1})
	assert.Error(t, err)

	v, err := f.Value(0.5, []float64{0.1, -0.2})
	require.NoError(t, err)
	// x'Sx + s1'x = 0.02 + 0.12 + 0.1 - 0.4
	assert.InDelta(t, 2*0.01+3*0.04+1*0.1+2*-0.2, v, 1e-12)
}
