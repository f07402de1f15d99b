package restir

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/image/math/f32"
)

// Accelerator runs whole frames of the direct-lighting pipeline on a GPU.
//
// When an accelerator is registered, Pass.Execute offers it every frame
// it can take. If the accelerator returns ErrFallbackToCPU or any other
// error, the frame transparently runs on the CPU stages.
//
// Implementations live in GPU backend packages. Users opt in with a blank
// import:
//
//	import _ "github.com/gogpu/restir/gpu"
type Accelerator interface {
	// Name returns the accelerator name (e.g. "wgpu").
	Name() string

	// Init acquires GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate is a fast check whether frames with this config and
	// these scene features are covered at all.
	CanAccelerate(cfg Config, features Features) bool

	// ExecuteFrame runs the four stages described by job and writes the
	// working store, the spatial store and the outputs back into job.
	// Returns ErrFallbackToCPU if the job cannot be accelerated.
	ExecuteFrame(ctx context.Context, job *FrameJob) error
}

// FrameJob is a self-contained description of one frame for an
// Accelerator. The CPU stores stay the stores of record: the accelerator
// uploads History, computes Current and Spatial and writes them back.
type FrameJob struct {
	Width, Height int
	Seed          uint32

	// Defines holds the define set of each stage, keyed by stage name
	// ("generate", "temporal", "spatial", "shade").
	Defines map[string]Defines

	// Temporal and Spatial report whether those stages run this frame.
	Temporal bool
	Spatial  bool

	Surfaces []Surface
	Motion   []f32.Vec2 // nil without a motion input
	Lights   []Light

	History      *Store[LightSample]
	Current      *Store[LightSample]
	SpatialStore *Store[LightSample]

	Color, Diffuse, Specular *Texture
}

// DeviceProviderAware is implemented by accelerators that can share a GPU
// device with a host application instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers the process-wide accelerator. A later
// registration replaces (and closes) the previous one. If Init fails the
// accelerator is not registered and the error is returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("restir: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("restir: accelerator registered", "name", a.Name())
	return nil
}

// RegisteredAccelerator returns the registered accelerator, or nil.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. It is a no-op when no accelerator is registered or the
// accelerator cannot share devices.
func SetAcceleratorDeviceProvider(provider any) error {
	a := RegisteredAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
