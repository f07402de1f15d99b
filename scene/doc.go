// Package scene is a small CPU scene that implements restir.Scene: spheres
// and parallelograms with Lambertian materials, analytic point and quad
// lights, a constant environment and a pinhole or thin-lens camera.
//
// Rasterize fills the visibility-buffer, normal, depth, view-direction
// and motion-vector channels of a restir.RenderData by casting one primary
// ray per pixel, which stands in for the G-buffer passes of a host engine.
//
// Intersection is brute force; scenes are expected to hold tens of
// primitives.
package scene
