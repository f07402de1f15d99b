package restir

// State is the lifecycle state of a Pass.
type State int

const (
	// StateUnbound means no scene is bound; Execute clears the outputs.
	StateUnbound State = iota

	// StateBoundInitial means a scene is bound and no frame has run since,
	// so no temporal history exists.
	StateBoundInitial

	// StateBoundSteady means at least one frame ran on the bound scene.
	StateBoundSteady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "Unbound"
	case StateBoundInitial:
		return "BoundInitial"
	case StateBoundSteady:
		return "BoundSteady"
	default:
		return "Unknown"
	}
}
