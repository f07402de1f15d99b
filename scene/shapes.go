package scene

import (
	"math"

	"github.com/gogpu/restir/geom"
)

// Sphere is a sphere primitive.
type Sphere struct {
	Center   geom.Vec3
	Radius   float32
	Material uint32
}

func (s *Sphere) intersect(r geom.Ray) (float32, bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.LengthSq()
	b := oc.Dot(r.Dir)
	c := oc.LengthSq() - s.Radius*s.Radius
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-b - sq) / a
	if t <= r.TMin || t >= r.TMax {
		t = (-b + sq) / a
		if t <= r.TMin || t >= r.TMax {
			return 0, false
		}
	}
	return t, true
}

func (s *Sphere) normal(p geom.Vec3) geom.Vec3 {
	return p.Sub(s.Center).Mul(1 / s.Radius)
}

// Quad is a parallelogram spanned by Edge0 and Edge1 from Corner.
type Quad struct {
	Corner   geom.Vec3
	Edge0    geom.Vec3
	Edge1    geom.Vec3
	Material uint32
}

func (q *Quad) intersect(r geom.Ray) (float32, bool) {
	n := q.Edge0.Cross(q.Edge1)
	denom := n.Dot(r.Dir)
	if denom == 0 {
		return 0, false
	}
	t := n.Dot(q.Corner.Sub(r.Origin)) / denom
	if t <= r.TMin || t >= r.TMax {
		return 0, false
	}
	w := n.Mul(1 / n.LengthSq())
	p := r.At(t).Sub(q.Corner)
	alpha := w.Dot(p.Cross(q.Edge1))
	beta := w.Dot(q.Edge0.Cross(p))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, false
	}
	return t, true
}

func (q *Quad) normal() geom.Vec3 {
	return q.Edge0.Cross(q.Edge1).Normalize()
}
