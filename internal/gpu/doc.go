//go:build !nogpu

// Package gpu implements the wgpu accelerator of the reservoir pipeline.
//
// Each stage is a WGSL compute kernel specialised by its define set. The
// kernels share one bind group (see gpucore for the slot layout) and run
// in a single submission per frame; the working and spatial stores are
// read back so the CPU stores stay the stores of record.
//
// Only direct lighting without visibility reuse and without split view is
// accelerated; every other frame falls back to the CPU stages.
package gpu
