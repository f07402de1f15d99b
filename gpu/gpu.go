//go:build !nogpu

// Package gpu registers the wgpu accelerator of the reservoir pipeline.
//
// Import this package to run direct-lighting frames as compute kernels.
// Frames the kernels do not cover (global illumination, visibility reuse,
// split view) keep running on the CPU stages, as does everything when no
// Vulkan, Metal, DX12 or GLES adapter is available.
//
// Usage:
//
//	import _ "github.com/gogpu/restir/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/gogpu/restir"
	gpuimpl "github.com/gogpu/restir/internal/gpu"
)

func init() {
	if err := restir.RegisterAccelerator(&gpuimpl.Accelerator{}); err != nil {
		restir.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the accelerator share the GPU device of a host
// application instead of creating its own. The provider should be a
// gpucontext.DeviceProvider backed by gogpu/wgpu.
//
// Call this after the package is imported and before the first frame.
func SetDeviceProvider(provider any) error {
	return restir.SetAcceleratorDeviceProvider(provider)
}
