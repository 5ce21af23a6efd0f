package gait

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/bipedlab/locomotion/internal/trajectory"
)

// QuadraticLyapunovFunction is the time-varying quadratic stability
// certificate V(x, t) = x'Sx + s1(t)'x around the nominal CoM/ZMP
// trajectory. S is symmetrized at construction and checked positive
// semi-definite; s1 is an exponential-plus-piecewise-polynomial.
type QuadraticLyapunovFunction struct {
	s  *mat.SymDense
	s1 trajectory.ExponentialPlusPiecewisePolynomial
}

// NewQuadraticLyapunovFunction validates and symmetrizes S. s1 must produce
// vectors of the same dimension as S.
func NewQuadraticLyapunovFunction(s mat.Matrix, s1 trajectory.ExponentialPlusPiecewisePolynomial) (QuadraticLyapunovFunction, error) {
	r, c := s.Dims()
	if r != c {
		return QuadraticLyapunovFunction{}, fmt.Errorf("gait: S is %dx%d, want square", r, c)
	}
	if s1.Rows() != r {
		return QuadraticLyapunovFunction{}, fmt.Errorf("gait: s1 has %d rows for %dx%d S", s1.Rows(), r, r)
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(s.At(i, j)+s.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return QuadraticLyapunovFunction{}, fmt.Errorf("gait: eigendecomposition of S failed")
	}
	const tol = 1e-9
	for _, v := range eig.Values(nil) {
		if v < -tol {
			return QuadraticLyapunovFunction{}, fmt.Errorf("gait: S is not positive semi-definite (eigenvalue %v)", v)
		}
	}
	return QuadraticLyapunovFunction{s: sym, s1: s1}, nil
}

// Dim returns the state dimension of the quadratic form.
func (f QuadraticLyapunovFunction) Dim() int {
	if f.s == nil {
		return 0
	}
	r, _ := f.s.Dims()
	return r
}

// S returns the symmetrized quadratic term.
func (f QuadraticLyapunovFunction) S() *mat.SymDense { return f.s }

// S1At samples the linear term at plan time t.
func (f QuadraticLyapunovFunction) S1At(t float64) []float64 {
	return f.s1.Value(t)
}

// Feedback evaluates the gradient-based balance feedback term
// S*xErr + 0.5*s1(t). xErr must have length Dim.
func (f QuadraticLyapunovFunction) Feedback(t float64, xErr []float64) ([]float64, error) {
	n := f.Dim()
	if len(xErr) != n {
		return nil, fmt.Errorf("gait: state error has %d rows for %dx%d S", len(xErr), n, n)
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(f.s, mat.NewVecDense(n, xErr))
	s1 := f.s1.Value(t)
	fb := make([]float64, n)
	for i := 0; i < n; i++ {
		fb[i] = out.AtVec(i) + 0.5*s1[i]
	}
	return fb, nil
}

// Value evaluates V(xErr, t), useful as a diagnostic stability margin.
func (f QuadraticLyapunovFunction) Value(t float64, xErr []float64) (float64, error) {
	n := f.Dim()
	if len(xErr) != n {
		return 0, fmt.Errorf("gait: state error has %d rows for %dx%d S", len(xErr), n, n)
	}
	x := mat.NewVecDense(n, xErr)
	sx := mat.NewVecDense(n, nil)
	sx.MulVec(f.s, x)
	v := mat.Dot(x, sx)
	for i, s1i := range f.s1.Value(t) {
		v += s1i * xErr[i]
	}
	return v, nil
}
