package gait

import "fmt"

// SupportLogic selects how a planned support is reconciled against sensing.
// When the plan says a body is in support, RequireSupport makes the
// controller use that support unconditionally; KinematicOrSensed lets the
// controller use it only if it believes the body is touching the terrain.
type SupportLogic int

const (
	RequireSupport SupportLogic = iota
	OnlyIfForceSensed
	OnlyIfKinematic
	KinematicOrSensed
	PreventSupport
)

func (l SupportLogic) String() string {
	switch l {
	case RequireSupport:
		return "require_support"
	case OnlyIfForceSensed:
		return "only_if_force_sensed"
	case OnlyIfKinematic:
		return "only_if_kinematic"
	case KinematicOrSensed:
		return "kinematic_or_sensed"
	case PreventSupport:
		return "prevent_support"
	default:
		return fmt.Sprintf("support_logic(%d)", int(l))
	}
}

// ParseSupportLogic converts a configuration string to a SupportLogic.
func ParseSupportLogic(s string) (SupportLogic, error) {
	switch s {
	case "require_support":
		return RequireSupport, nil
	case "only_if_force_sensed":
		return OnlyIfForceSensed, nil
	case "only_if_kinematic":
		return OnlyIfKinematic, nil
	case "kinematic_or_sensed":
		return KinematicOrSensed, nil
	case "prevent_support":
		return PreventSupport, nil
	default:
		return RequireSupport, fmt.Errorf("gait: unknown support logic %q", s)
	}
}

// Resolve answers whether support is commanded for a body given the force
// and kinematic contact signals. Pure and stateless.
func (l SupportLogic) Resolve(forceSensed, kinematicContact bool) bool {
	switch l {
	case RequireSupport:
		return true
	case OnlyIfForceSensed:
		return forceSensed
	case OnlyIfKinematic:
		return kinematicContact
	case KinematicOrSensed:
		return forceSensed || kinematicContact
	case PreventSupport:
		return false
	default:
		return false
	}
}

// LogicMap flattens the logic into the four-entry truth table indexed by
// (forceSensed<<1 | kinematicContact), the layout the downstream controller
// consumes.
func (l SupportLogic) LogicMap() [4]bool {
	var m [4]bool
	for i := range m {
		m[i] = l.Resolve(i&2 != 0, i&1 != 0)
	}
	return m
}
