// Package restir implements reservoir-based spatiotemporal importance
// resampling (ReSTIR) as a render pass.
//
// # Overview
//
// Each pixel keeps a Reservoir: one retained sample plus the running
// statistics of weighted reservoir sampling. Every frame the pass
//
//  1. draws RIS candidates per pixel into a fresh reservoir,
//  2. merges it with the reprojected reservoir of the previous frame,
//  3. merges random similar neighbours,
//  4. shades the retained sample with its contribution weight,
//
// then swaps the reservoir stores so this frame's reservoirs become the
// next frame's history.
//
// # Quick Start
//
//	import "github.com/gogpu/restir"
//
//	p, err := restir.NewPass(restir.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//	p.SetScene(sc)
//
//	rd := restir.NewRenderData(w, h)
//	rd.SetTexture(restir.ChannelVBuffer, vbuf)
//	rd.SetTexture(restir.ChannelNormal, normals)
//	if err := p.Execute(ctx, rd); err != nil {
//	    // restir.ErrGeometryChanged: rebind the scene
//	}
//	color := rd.Texture(restir.ChannelColor)
//
// # Integrators
//
// IntegratorDirect resamples points on analytic lights (LightSample
// payload). IntegratorGlobal resamples secondary path vertices
// (PathSample payload) and adds one-sample direct lighting.
//
// # Execution
//
// The stages run on the CPU across a worker pool, one lane per pixel,
// reading neighbours only from stores that are not being written. A GPU
// accelerator can take over whole direct-lighting frames:
//
//	import _ "github.com/gogpu/restir/gpu" // enable wgpu compute stages
//
// Kernels for both paths are compiled per define set and cached until the
// configuration or the scene changes.
//
// # Determinism
//
// All randomness derives from a per-pass Stream seeded once from
// Config.Seed. Each stage of each pixel draws from its own lane generator,
// so enabling or disabling one stage leaves the draws of the others
// unchanged.
package restir

// Version is the current version of the library.
const Version = "0.1.0"
