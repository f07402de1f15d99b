// Package gpucore defines the GPU memory layouts and the dispatch plan of
// the reservoir pipeline.
//
// The structs here mirror the WGSL declarations of the compute kernels
// byte for byte (std430 rules, every vec3 widened to vec4). Host code packs
// restir values into these layouts before upload and unpacks the working
// stores after readback:
//
//	host restir.Store  --PackReservoirs-->  storage buffer
//	storage buffer     --UnpackReservoirs-> host restir.Store
//
// # Dispatch Plan
//
// A [FramePlan] lists the compute passes of one frame in execution order
// together with their grid size in workgroups:
//
//  1. generate: one lane per store element, RIS over light candidates.
//  2. temporal: merges the reprojected history (skipped on fresh stores).
//  3. spatial: merges random neighbours into the spatial store.
//  4. shade: one lane per frame pixel, writes color and diffuse.
//
// The package has no GPU dependency and is usable for tests and tooling.
package gpucore
