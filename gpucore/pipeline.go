package gpucore

import (
	"errors"
	"fmt"
)

// WorkgroupSize is the edge of the square compute workgroup of every
// kernel (@workgroup_size(8, 8)).
const WorkgroupSize = 8

// Binding slots of the single bind group shared by all kernels.
const (
	BindingParams = iota
	BindingLights
	BindingSurfaces
	BindingMotion
	BindingHistory
	BindingHistorySurfaces
	BindingCurrent
	BindingSpatial
	BindingOutputs

	// BindingCount is the number of bindings.
	BindingCount
)

// BindingKind is how a kernel accesses a binding.
type BindingKind uint8

const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota

	// BindingReadOnly is a read-only storage buffer.
	BindingReadOnly

	// BindingReadWrite is a read-write storage buffer.
	BindingReadWrite
)

// BindingKinds lists the access of each binding slot.
var BindingKinds = [BindingCount]BindingKind{
	BindingParams:          BindingUniform,
	BindingLights:          BindingReadOnly,
	BindingSurfaces:        BindingReadOnly,
	BindingMotion:          BindingReadOnly,
	BindingHistory:         BindingReadOnly,
	BindingHistorySurfaces: BindingReadOnly,
	BindingCurrent:         BindingReadWrite,
	BindingSpatial:         BindingReadWrite,
	BindingOutputs:         BindingReadWrite,
}

// Pass is one compute dispatch of a frame.
type Pass struct {
	Stage string

	// Workgroups in X and Y.
	X, Y uint32
}

// FrameConfig describes the frame a plan is built for.
type FrameConfig struct {
	// Width and Height are the frame size in pixels.
	Width, Height int

	// StoreWidth and StoreHeight are the resampling grid.
	StoreWidth, StoreHeight int

	// Temporal reports whether the temporal pass runs.
	Temporal bool
}

// FramePlan is the ordered list of passes of one frame.
type FramePlan struct {
	Passes []Pass
}

// Workgroups returns the number of workgroups covering n lanes.
func Workgroups(n int) uint32 {
	return uint32((n + WorkgroupSize - 1) / WorkgroupSize)
}

// NewFramePlan validates cfg and returns the dispatch plan.
//
// The spatial pass always runs. When spatial reuse is disabled its kernel
// copies the working store so that shading reads a single binding.
func NewFramePlan(cfg FrameConfig) (*FramePlan, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("gpucore: invalid frame size: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.StoreWidth <= 0 || cfg.StoreHeight <= 0 {
		return nil, fmt.Errorf("gpucore: invalid store size: %dx%d", cfg.StoreWidth, cfg.StoreHeight)
	}
	if cfg.StoreWidth > cfg.Width || cfg.StoreHeight > cfg.Height {
		return nil, errors.New("gpucore: store larger than frame")
	}

	sx, sy := Workgroups(cfg.StoreWidth), Workgroups(cfg.StoreHeight)
	plan := &FramePlan{Passes: make([]Pass, 0, 4)}
	plan.Passes = append(plan.Passes, Pass{Stage: "generate", X: sx, Y: sy})
	if cfg.Temporal {
		plan.Passes = append(plan.Passes, Pass{Stage: "temporal", X: sx, Y: sy})
	}
	plan.Passes = append(plan.Passes,
		Pass{Stage: "spatial", X: sx, Y: sy},
		Pass{Stage: "shade", X: Workgroups(cfg.Width), Y: Workgroups(cfg.Height)},
	)
	return plan, nil
}

// Stages returns the stage names of the plan in order.
func (p *FramePlan) Stages() []string {
	out := make([]string, len(p.Passes))
	for i, ps := range p.Passes {
		out[i] = ps.Stage
	}
	return out
}
