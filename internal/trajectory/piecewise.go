package trajectory

import (
	"fmt"
	"sort"
)

// PiecewisePolynomial is a vector-valued trajectory defined over contiguous
// segments. Segment i covers [Breaks[i], Breaks[i+1]) with one Polynomial per
// output row, evaluated in time local to the segment start.
type PiecewisePolynomial struct {
	breaks []float64
	polys  [][]Polynomial // [segment][row]
}

// NewPiecewise builds a trajectory from explicit breaks and per-segment
// polynomials. len(breaks) must equal len(polys)+1 and breaks must be
// strictly increasing; every segment must have the same number of rows.
func NewPiecewise(breaks []float64, polys [][]Polynomial) (PiecewisePolynomial, error) {
	if len(breaks) != len(polys)+1 {
		return PiecewisePolynomial{}, fmt.Errorf("trajectory: %d breaks for %d segments", len(breaks), len(polys))
	}
	if len(polys) == 0 {
		return PiecewisePolynomial{}, fmt.Errorf("trajectory: empty trajectory")
	}
	rows := len(polys[0])
	for i := 1; i < len(breaks); i++ {
		if breaks[i] <= breaks[i-1] {
			return PiecewisePolynomial{}, fmt.Errorf("trajectory: breaks not strictly increasing at %d", i)
		}
	}
	for i, seg := range polys {
		if len(seg) != rows {
			return PiecewisePolynomial{}, fmt.Errorf("trajectory: segment %d has %d rows, want %d", i, len(seg), rows)
		}
	}
	return PiecewisePolynomial{breaks: breaks, polys: polys}, nil
}

// NewConstant returns a single-segment trajectory holding value over [t0, t1].
func NewConstant(value []float64, t0, t1 float64) PiecewisePolynomial {
	seg := make([]Polynomial, len(value))
	for i, v := range value {
		seg[i] = Polynomial{v}
	}
	return PiecewisePolynomial{breaks: []float64{t0, t1}, polys: [][]Polynomial{seg}}
}

// NewFirstOrderHold linearly interpolates the knots at the given breaks.
// knots[i] is the value at breaks[i]; len(knots) == len(breaks).
func NewFirstOrderHold(breaks []float64, knots [][]float64) (PiecewisePolynomial, error) {
	if len(knots) != len(breaks) {
		return PiecewisePolynomial{}, fmt.Errorf("trajectory: %d knots for %d breaks", len(knots), len(breaks))
	}
	polys := make([][]Polynomial, len(breaks)-1)
	for i := range polys {
		dt := breaks[i+1] - breaks[i]
		seg := make([]Polynomial, len(knots[i]))
		for r := range seg {
			seg[r] = Polynomial{knots[i][r], (knots[i+1][r] - knots[i][r]) / dt}
		}
		polys[i] = seg
	}
	return NewPiecewise(breaks, polys)
}

// NewCubicHermite interpolates positions and velocities at the breaks with
// one cubic per segment and row.
func NewCubicHermite(breaks []float64, knots, knotDots [][]float64) (PiecewisePolynomial, error) {
	if len(knots) != len(breaks) || len(knotDots) != len(breaks) {
		return PiecewisePolynomial{}, fmt.Errorf("trajectory: knot count mismatch")
	}
	polys := make([][]Polynomial, len(breaks)-1)
	for i := range polys {
		dt := breaks[i+1] - breaks[i]
		seg := make([]Polynomial, len(knots[i]))
		for r := range seg {
			seg[r] = HermiteSegment(dt, knots[i][r], knotDots[i][r], knots[i+1][r], knotDots[i+1][r])
		}
		polys[i] = seg
	}
	return NewPiecewise(breaks, polys)
}

// Empty reports whether the trajectory is the zero value.
func (pp PiecewisePolynomial) Empty() bool { return len(pp.polys) == 0 }

// Rows returns the output dimension.
func (pp PiecewisePolynomial) Rows() int { return len(pp.polys[0]) }

// NumSegments returns the number of polynomial segments.
func (pp PiecewisePolynomial) NumSegments() int { return len(pp.polys) }

// StartTime returns the first break.
func (pp PiecewisePolynomial) StartTime() float64 { return pp.breaks[0] }

// EndTime returns the last break.
func (pp PiecewisePolynomial) EndTime() float64 { return pp.breaks[len(pp.breaks)-1] }

// Breaks returns a copy of the segment boundaries.
func (pp PiecewisePolynomial) Breaks() []float64 {
	out := make([]float64, len(pp.breaks))
	copy(out, pp.breaks)
	return out
}

// SegmentIndex returns the segment covering t, clamped to the valid range.
func (pp PiecewisePolynomial) SegmentIndex(t float64) int {
	if t <= pp.breaks[0] {
		return 0
	}
	if t >= pp.breaks[len(pp.breaks)-1] {
		return len(pp.polys) - 1
	}
	// sort.SearchFloat64s returns the insertion point; the covering segment
	// is the one whose start break is at or before t.
	i := sort.SearchFloat64s(pp.breaks, t)
	if i < len(pp.breaks) && pp.breaks[i] == t {
		return i
	}
	return i - 1
}

// clampLocal converts t to segment-local time, clamping to the trajectory span.
func (pp PiecewisePolynomial) clampLocal(t float64) (int, float64) {
	if t < pp.breaks[0] {
		t = pp.breaks[0]
	}
	if t > pp.breaks[len(pp.breaks)-1] {
		t = pp.breaks[len(pp.breaks)-1]
	}
	i := pp.SegmentIndex(t)
	return i, t - pp.breaks[i]
}

// Value evaluates the trajectory at t, clamped to [StartTime, EndTime].
func (pp PiecewisePolynomial) Value(t float64) []float64 {
	i, tau := pp.clampLocal(t)
	out := make([]float64, len(pp.polys[i]))
	for r, p := range pp.polys[i] {
		out[r] = p.Value(tau)
	}
	return out
}

// Derivative returns the derivative trajectory over the same breaks.
func (pp PiecewisePolynomial) Derivative() PiecewisePolynomial {
	polys := make([][]Polynomial, len(pp.polys))
	for i, seg := range pp.polys {
		dseg := make([]Polynomial, len(seg))
		for r, p := range seg {
			dseg[r] = p.Derivative()
		}
		polys[i] = dseg
	}
	breaks := make([]float64, len(pp.breaks))
	copy(breaks, pp.breaks)
	return PiecewisePolynomial{breaks: breaks, polys: polys}
}

// EvalDerivative evaluates the first derivative at t without materialising
// the full derivative trajectory.
func (pp PiecewisePolynomial) EvalDerivative(t float64) []float64 {
	i, tau := pp.clampLocal(t)
	out := make([]float64, len(pp.polys[i]))
	for r, p := range pp.polys[i] {
		out[r] = p.Derivative().Value(tau)
	}
	return out
}

// SplitAt inserts a break at t, preserving the trajectory's values exactly.
// It returns the index of the segment now starting at t. If t already
// coincides with a break, no segment is added.
func (pp *PiecewisePolynomial) SplitAt(t float64) (int, error) {
	if t <= pp.breaks[0] || t >= pp.breaks[len(pp.breaks)-1] {
		return 0, fmt.Errorf("trajectory: split time %v outside (%v, %v)", t, pp.breaks[0], pp.breaks[len(pp.breaks)-1])
	}
	i := pp.SegmentIndex(t)
	if pp.breaks[i] == t {
		return i, nil
	}
	dt := t - pp.breaks[i]
	right := make([]Polynomial, len(pp.polys[i]))
	for r, p := range pp.polys[i] {
		right[r] = p.Shifted(dt)
	}
	pp.breaks = append(pp.breaks, 0)
	copy(pp.breaks[i+2:], pp.breaks[i+1:])
	pp.breaks[i+1] = t
	pp.polys = append(pp.polys, nil)
	copy(pp.polys[i+2:], pp.polys[i+1:])
	pp.polys[i+1] = right
	return i + 1, nil
}

// SetSegment replaces segment i's polynomials. The row count must match.
func (pp *PiecewisePolynomial) SetSegment(i int, polys []Polynomial) error {
	if i < 0 || i >= len(pp.polys) {
		return fmt.Errorf("trajectory: segment %d out of range", i)
	}
	if len(polys) != pp.Rows() {
		return fmt.Errorf("trajectory: %d rows, want %d", len(polys), pp.Rows())
	}
	pp.polys[i] = polys
	return nil
}

// MoveBreak relocates interior break i. The new location must stay strictly
// between the neighbouring breaks. Callers are responsible for refitting the
// segments on both sides to restore continuity.
func (pp *PiecewisePolynomial) MoveBreak(i int, t float64) error {
	if i <= 0 || i >= len(pp.breaks)-1 {
		return fmt.Errorf("trajectory: break %d is not interior", i)
	}
	if t <= pp.breaks[i-1] || t >= pp.breaks[i+1] {
		return fmt.Errorf("trajectory: break %d target %v outside (%v, %v)", i, t, pp.breaks[i-1], pp.breaks[i+1])
	}
	pp.breaks[i] = t
	return nil
}

// SegmentDuration returns the length of segment i.
func (pp PiecewisePolynomial) SegmentDuration(i int) float64 {
	return pp.breaks[i+1] - pp.breaks[i]
}
