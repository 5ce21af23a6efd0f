package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ExponentialPlusPiecewisePolynomial represents trajectories of the form
//
//	x(t) = K * exp(A * (t - t_j)) * alpha[:, j] + pp(t)
//
// where j is the polynomial segment covering t. This is the closed-form
// solution family produced by LIPM tracking and time-varying LQR, so the
// CoM reference and the Lyapunov linear term both use it.
type ExponentialPlusPiecewisePolynomial struct {
	K     *mat.Dense // rows x n
	A     *mat.Dense // n x n
	Alpha *mat.Dense // n x numSegments
	PP    PiecewisePolynomial
}

// NewExponentialPlusPiecewise validates the dimensions and assembles the
// trajectory. K, A and Alpha may all be nil to represent a plain polynomial.
func NewExponentialPlusPiecewise(k, a, alpha *mat.Dense, pp PiecewisePolynomial) (ExponentialPlusPiecewisePolynomial, error) {
	if k == nil || a == nil || alpha == nil {
		if k != nil || a != nil || alpha != nil {
			return ExponentialPlusPiecewisePolynomial{}, fmt.Errorf("trajectory: K, A and Alpha must all be set or all nil")
		}
		return ExponentialPlusPiecewisePolynomial{PP: pp}, nil
	}
	kr, kc := k.Dims()
	ar, ac := a.Dims()
	alr, alc := alpha.Dims()
	if kr != pp.Rows() {
		return ExponentialPlusPiecewisePolynomial{}, fmt.Errorf("trajectory: K has %d rows, polynomial has %d", kr, pp.Rows())
	}
	if ar != ac || ar != kc || alr != ar {
		return ExponentialPlusPiecewisePolynomial{}, fmt.Errorf("trajectory: inconsistent exponential dimensions K=%dx%d A=%dx%d alpha=%dx%d", kr, kc, ar, ac, alr, alc)
	}
	if alc != pp.NumSegments() {
		return ExponentialPlusPiecewisePolynomial{}, fmt.Errorf("trajectory: alpha has %d columns for %d segments", alc, pp.NumSegments())
	}
	return ExponentialPlusPiecewisePolynomial{K: k, A: a, Alpha: alpha, PP: pp}, nil
}

// FromPiecewise wraps a plain piecewise polynomial (zero exponential part).
func FromPiecewise(pp PiecewisePolynomial) ExponentialPlusPiecewisePolynomial {
	return ExponentialPlusPiecewisePolynomial{PP: pp}
}

// Empty reports whether the trajectory is the zero value.
func (e ExponentialPlusPiecewisePolynomial) Empty() bool { return e.PP.Empty() }

// Rows returns the output dimension.
func (e ExponentialPlusPiecewisePolynomial) Rows() int { return e.PP.Rows() }

// StartTime returns the start of the trajectory.
func (e ExponentialPlusPiecewisePolynomial) StartTime() float64 { return e.PP.StartTime() }

// EndTime returns the end of the trajectory.
func (e ExponentialPlusPiecewisePolynomial) EndTime() float64 { return e.PP.EndTime() }

// Value evaluates the trajectory at t, clamped to the polynomial's span.
func (e ExponentialPlusPiecewisePolynomial) Value(t float64) []float64 {
	out := e.PP.Value(t)
	if e.K == nil {
		return out
	}
	j, tau := e.PP.clampLocal(t)

	n, _ := e.A.Dims()
	var scaled, expm mat.Dense
	scaled.Scale(tau, e.A)
	expm.Exp(&scaled)

	alpha := e.Alpha.ColView(j)
	tmp := mat.NewVecDense(n, nil)
	tmp.MulVec(&expm, alpha)
	contrib := mat.NewVecDense(e.PP.Rows(), nil)
	contrib.MulVec(e.K, tmp)

	for r := range out {
		out[r] += contrib.AtVec(r)
	}
	return out
}

// EvalDerivative evaluates the time derivative at t. The exponential part
// differentiates to K*A*exp(A tau)*alpha.
func (e ExponentialPlusPiecewisePolynomial) EvalDerivative(t float64) []float64 {
	out := e.PP.EvalDerivative(t)
	if e.K == nil {
		return out
	}
	j, tau := e.PP.clampLocal(t)

	n, _ := e.A.Dims()
	var scaled, expm mat.Dense
	scaled.Scale(tau, e.A)
	expm.Exp(&scaled)

	alpha := e.Alpha.ColView(j)
	tmp := mat.NewVecDense(n, nil)
	tmp.MulVec(&expm, alpha)
	atmp := mat.NewVecDense(n, nil)
	atmp.MulVec(e.A, tmp)
	contrib := mat.NewVecDense(e.PP.Rows(), nil)
	contrib.MulVec(e.K, atmp)

	for r := range out {
		out[r] += contrib.AtVec(r)
	}
	return out
}
