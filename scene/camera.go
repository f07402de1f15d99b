package scene

import (
	"math"

	"github.com/gogpu/restir/geom"
)

// Camera is a look-at pinhole camera with an optional thin-lens aperture.
// The aperture only matters to passes that support depth of field.
type Camera struct {
	Position geom.Vec3
	Target   geom.Vec3
	Up       geom.Vec3
	FovY     float32 // vertical field of view in degrees
	Aperture float32 // lens radius; zero for a pinhole
}

type cameraBasis struct {
	pos                geom.Vec3
	forward, right, up geom.Vec3
	tanHalf, aspect    float32
	width, height      int
}

func (c Camera) basis(w, h int) cameraBasis {
	fwd := c.Target.Sub(c.Position).Normalize()
	right := fwd.Cross(c.Up).Normalize()
	up := right.Cross(fwd)
	return cameraBasis{
		pos:     c.Position,
		forward: fwd,
		right:   right,
		up:      up,
		tanHalf: float32(math.Tan(float64(c.FovY) * math.Pi / 360)),
		aspect:  float32(w) / float32(h),
		width:   w,
		height:  h,
	}
}

// ray returns the primary ray through the center of pixel (px, py).
func (b cameraBasis) ray(px, py int) geom.Ray {
	x := (2*(float32(px)+0.5)/float32(b.width) - 1) * b.aspect * b.tanHalf
	y := (1 - 2*(float32(py)+0.5)/float32(b.height)) * b.tanHalf
	dir := b.forward.Add(b.right.Mul(x)).Add(b.up.Mul(y)).Normalize()
	return geom.NewRay(b.pos, dir, math.MaxFloat32)
}

// project returns the continuous pixel coordinates of p, with pixel
// centers at integer coordinates, and whether p is in front of the camera.
func (b cameraBasis) project(p geom.Vec3) (float32, float32, bool) {
	d := p.Sub(b.pos)
	z := d.Dot(b.forward)
	if z <= 0 {
		return 0, 0, false
	}
	x := d.Dot(b.right) / (z * b.tanHalf * b.aspect)
	y := d.Dot(b.up) / (z * b.tanHalf)
	px := (x+1)/2*float32(b.width) - 0.5
	py := (1-y)/2*float32(b.height) - 0.5
	return px, py, true
}

// depth returns the view-space depth of p.
func (b cameraBasis) depth(p geom.Vec3) float32 {
	return p.Sub(b.pos).Dot(b.forward)
}
