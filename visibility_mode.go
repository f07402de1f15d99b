package restir

import (
	"fmt"
	"strings"
)

// VisibilityReuseMode selects where visibility rays are traced during
// reuse. The choices trade bias against cost.
type VisibilityReuseMode int

const (
	// VisibilityNever traces no visibility rays. Occluded samples are
	// shaded as if visible.
	VisibilityNever VisibilityReuseMode = iota

	// VisibilityPerNeighbor tests every spatial neighbour's sample from the
	// center surface before merging it, and again at final shading.
	VisibilityPerNeighbor

	// VisibilityFinalOnly traces one shadow ray at final shading.
	VisibilityFinalOnly
)

// String returns the settings name of the mode.
func (m VisibilityReuseMode) String() string {
	switch m {
	case VisibilityNever:
		return "never"
	case VisibilityPerNeighbor:
		return "perNeighbor"
	case VisibilityFinalOnly:
		return "finalOnly"
	default:
		return "unknown"
	}
}

// ParseVisibilityReuseMode parses a mode name as produced by String.
// Matching is case-insensitive.
func ParseVisibilityReuseMode(s string) (VisibilityReuseMode, error) {
	for _, m := range []VisibilityReuseMode{VisibilityNever, VisibilityPerNeighbor, VisibilityFinalOnly} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown visibility reuse mode %q", ErrInvalidConfig, s)
}

// Integrator selects the reservoir payload and integrand.
type Integrator int

const (
	// IntegratorDirect resamples light samples for direct illumination.
	IntegratorDirect Integrator = iota

	// IntegratorGlobal resamples secondary path samples for one-bounce
	// indirect illumination with a path-traced tail.
	IntegratorGlobal
)

// String returns the settings name of the integrator.
func (i Integrator) String() string {
	switch i {
	case IntegratorDirect:
		return "direct"
	case IntegratorGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ParseIntegrator parses an integrator name as produced by String.
func ParseIntegrator(s string) (Integrator, error) {
	switch strings.ToLower(s) {
	case "direct", "di":
		return IntegratorDirect, nil
	case "global", "gi":
		return IntegratorGlobal, nil
	}
	return 0, fmt.Errorf("%w: unknown integrator %q", ErrInvalidConfig, s)
}
