package restir

import (
	"errors"
	"fmt"
	"math"
)

// MaxRISSampleCount bounds RISSampleCount so that the derived temporal
// cap fits in a uint32.
const MaxRISSampleCount = 1 << 16

// Config holds the static parameters of a Pass. Changing a field that
// feeds a stage define set invalidates cached kernels; toggling
// HalfResolution also reallocates the reservoir stores.
type Config struct {
	// Integrator selects direct lighting or global illumination.
	Integrator Integrator

	// UseReSTIR enables resampling. When false the generator keeps its
	// first candidate only and both reuse stages are skipped.
	UseReSTIR bool

	// RISSampleCount is the number of initial candidates per pixel.
	RISSampleCount uint32

	// TemporalReuse enables merging with the reprojected history.
	TemporalReuse bool

	// TemporalMaxM caps the history count of the previous reservoir.
	// Ignored when AutoMaxM is set.
	TemporalMaxM uint32

	// AutoMaxM derives the temporal cap as 20 * RISSampleCount.
	AutoMaxM bool

	// SpatialReuse enables merging with random neighbours.
	SpatialReuse bool

	// SpatialNeighbors is the number of neighbour draws per pixel.
	SpatialNeighbors uint32

	// SpatialRadius is the neighbour search radius in store pixels.
	SpatialRadius float32

	// SpatialMaxM caps the history count after spatial reuse.
	SpatialMaxM uint32

	// HalfResolution resamples on a half-width, half-height grid.
	HalfResolution bool

	// VisibilityReuse selects where visibility rays are traced.
	VisibilityReuse VisibilityReuseMode

	// DepthThreshold is the largest relative depth difference for two
	// surfaces to be considered similar.
	DepthThreshold float32

	// NormalThreshold is the smallest normal dot product for two surfaces
	// to be considered similar.
	NormalThreshold float32

	// MaxBounces bounds the path length behind a global-illumination
	// sample.
	MaxBounces uint32

	// RussianRoulette is the termination probability per extra bounce.
	RussianRoulette float32

	// EvalDirect adds one-sample direct lighting to global illumination.
	EvalDirect bool

	// SplitView shows the estimate without reuse on the left half.
	SplitView bool

	// Seed seeds the per-pass random stream. Zero selects a time seed.
	Seed uint64
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		Integrator:       IntegratorDirect,
		UseReSTIR:        true,
		RISSampleCount:   8,
		TemporalReuse:    true,
		TemporalMaxM:     20,
		AutoMaxM:         true,
		SpatialReuse:     true,
		SpatialNeighbors: 4,
		SpatialRadius:    5,
		SpatialMaxM:      500,
		VisibilityReuse:  VisibilityFinalOnly,
		DepthThreshold:   0.1,
		NormalThreshold:  0.9,
		MaxBounces:       3,
		RussianRoulette:  0.3,
		EvalDirect:       true,
	}
}

// EffectiveMaxM returns the temporal history cap in effect.
func (c Config) EffectiveMaxM() uint32 {
	if c.AutoMaxM {
		return uint32(min(20*uint64(c.RISSampleCount), math.MaxUint32))
	}
	return c.TemporalMaxM
}

// temporalActive reports whether temporal reuse runs on the given frame.
func (c Config) temporalActive(frameCount uint64) bool {
	return c.UseReSTIR && c.TemporalReuse && frameCount != 0
}

// spatialActive reports whether spatial reuse runs.
func (c Config) spatialActive() bool {
	return c.UseReSTIR && c.SpatialReuse && c.SpatialNeighbors > 0
}

// Validate checks the config and returns every problem found, wrapped
// with ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.Integrator != IntegratorDirect && c.Integrator != IntegratorGlobal {
		errs = append(errs, fmt.Errorf("integrator %d out of range", c.Integrator))
	}
	if c.RISSampleCount == 0 {
		errs = append(errs, errors.New("risSampleNums must be at least 1"))
	}
	if c.RISSampleCount > MaxRISSampleCount {
		errs = append(errs, fmt.Errorf("risSampleNums %d exceeds %d", c.RISSampleCount, MaxRISSampleCount))
	}
	if c.TemporalReuse && c.EffectiveMaxM() == 0 {
		errs = append(errs, errors.New("temporal reuse requires a positive history cap"))
	}
	if !finite(c.SpatialRadius) || c.SpatialRadius < 0 {
		errs = append(errs, fmt.Errorf("spatialRadius %v is not a finite non-negative number", c.SpatialRadius))
	}
	if c.SpatialReuse && c.SpatialMaxM == 0 {
		errs = append(errs, errors.New("spatial reuse requires a positive spatialReuseMaxM"))
	}
	if c.VisibilityReuse < VisibilityNever || c.VisibilityReuse > VisibilityFinalOnly {
		errs = append(errs, fmt.Errorf("visibilityReuseMode %d out of range", c.VisibilityReuse))
	}
	if !finite(c.DepthThreshold) || c.DepthThreshold <= 0 {
		errs = append(errs, fmt.Errorf("depthThreshold %v must be finite and positive", c.DepthThreshold))
	}
	if !(c.NormalThreshold >= -1 && c.NormalThreshold <= 1) {
		errs = append(errs, fmt.Errorf("normalThreshold %v outside [-1, 1]", c.NormalThreshold))
	}
	if !(c.RussianRoulette >= 0 && c.RussianRoulette < 1) {
		errs = append(errs, fmt.Errorf("russianRoulette %v outside [0, 1)", c.RussianRoulette))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func finite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
