// Package trajectory implements piecewise-polynomial and exponential-plus-
// piecewise-polynomial trajectories with local re-segmentation support.
package trajectory

// Polynomial holds coefficients in ascending order: p(t) = c[0] + c[1]*t + ...
// Time is local to the owning segment.
type Polynomial []float64

// Value evaluates the polynomial at local time t using Horner's method.
func (p Polynomial) Value(t float64) float64 {
	v := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		v = v*t + p[i]
	}
	return v
}

// Derivative returns the first-derivative polynomial.
func (p Polynomial) Derivative() Polynomial {
	if len(p) <= 1 {
		return Polynomial{0}
	}
	d := make(Polynomial, len(p)-1)
	for i := 1; i < len(p); i++ {
		d[i-1] = float64(i) * p[i]
	}
	return d
}

// Shifted returns q such that q(t) == p(t + dt). Used when a segment's start
// break moves and the local time origin must be re-based.
func (p Polynomial) Shifted(dt float64) Polynomial {
	q := make(Polynomial, len(p))
	copy(q, p)
	// Repeated synthetic division by (t - (-dt)) re-expands about the new origin.
	for i := 0; i < len(q)-1; i++ {
		for j := len(q) - 2; j >= i; j-- {
			q[j] += dt * q[j+1]
		}
	}
	return q
}

// HermiteSegment fits a cubic over [0, dt] matching position and velocity at
// both ends. dt must be positive.
func HermiteSegment(dt, p0, v0, p1, v1 float64) Polynomial {
	// Standard cubic Hermite basis expressed in monomial coefficients.
	d := p1 - p0 - v0*dt
	c2 := (3*d - (v1-v0)*dt) / (dt * dt)
	c3 := ((v1-v0)*dt - 2*d) / (dt * dt * dt)
	return Polynomial{p0, v0, c2, c3}
}
