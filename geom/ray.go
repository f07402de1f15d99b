package geom

import "golang.org/x/image/math/f32"

// RayEpsilon offsets ray origins off surfaces to avoid self-intersection.
const RayEpsilon = 1e-3

// Ray is a half-line with a parametric validity interval.
type Ray struct {
	Origin Vec3
	Dir    Vec3
	TMin   float32
	TMax   float32
}

// NewRay creates a ray from origin along dir over (RayEpsilon, tMax).
func NewRay(origin, dir Vec3, tMax float32) Ray {
	return Ray{Origin: origin, Dir: dir, TMin: RayEpsilon, TMax: tMax}
}

// At returns the point at parameter t.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Frame is an orthonormal basis around a normal, stored as the rows of a
// 3x3 matrix (tangent, bitangent, normal).
type Frame f32.Mat3

// NewFrame builds a basis whose third axis is n (Duff et al. 2017).
func NewFrame(n Vec3) Frame {
	sign := float32(1)
	if n[2] < 0 {
		sign = -1
	}
	a := -1 / (sign + n[2])
	b := n[0] * n[1] * a
	t := Vec3{1 + sign*n[0]*n[0]*a, sign * b, -sign * n[0]}
	bt := Vec3{b, sign + n[1]*n[1]*a, -n[1]}
	return Frame{
		t[0], t[1], t[2],
		bt[0], bt[1], bt[2],
		n[0], n[1], n[2],
	}
}

// ToWorld transforms a local direction into world space.
func (f Frame) ToWorld(v Vec3) Vec3 {
	return Vec3{
		v[0]*f[0] + v[1]*f[3] + v[2]*f[6],
		v[0]*f[1] + v[1]*f[4] + v[2]*f[7],
		v[0]*f[2] + v[1]*f[5] + v[2]*f[8],
	}
}

// ToLocal transforms a world direction into the frame.
func (f Frame) ToLocal(v Vec3) Vec3 {
	return Vec3{
		v[0]*f[0] + v[1]*f[1] + v[2]*f[2],
		v[0]*f[3] + v[1]*f[4] + v[2]*f[5],
		v[0]*f[6] + v[1]*f[7] + v[2]*f[8],
	}
}
