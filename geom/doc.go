// Package geom provides the small float32 vector toolkit shared by the
// reservoir pipeline, the synthetic scene and the GPU packing code.
//
// Vec3 is layout-compatible with golang.org/x/image/math/f32.Vec3, so
// values convert freely between the two and pack directly into GPU
// storage buffers as three consecutive float32 values.
package geom
