package gait

// Side identifies a leg of the biped.
type Side int

const (
	Left Side = iota
	Right
)

// Sides returns both sides in a fixed order, for iteration.
func Sides() [2]Side { return [2]Side{Left, Right} }

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}
