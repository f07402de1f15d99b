package restir

import "github.com/gogpu/restir/geom"

// LightKind distinguishes analytic light shapes.
type LightKind uint32

const (
	// LightPoint is an isotropic point light; Radiance holds its intensity.
	LightPoint LightKind = iota

	// LightQuad is a one-sided parallelogram light spanned by Edge0 and
	// Edge1 from Position, emitting along Edge0 x Edge1.
	LightQuad
)

// Light is an analytic light.
type Light struct {
	Kind     LightKind
	Position geom.Vec3
	Edge0    geom.Vec3
	Edge1    geom.Vec3
	Radiance geom.Vec3
}

// Area returns the emitting area; zero for point lights.
func (l Light) Area() float32 {
	if l.Kind != LightQuad {
		return 0
	}
	return l.Edge0.Cross(l.Edge1).Length()
}

// LightSample is the reservoir payload of the direct-lighting integrator:
// a point on a light.
type LightSample struct {
	Light    uint32
	Position geom.Vec3
	Normal   geom.Vec3 // zero for point lights
	Radiance geom.Vec3
}

// sampleLight picks a light uniformly and a point on it uniformly by area.
// The returned density is in area measure (selection probability times
// 1/area); for point lights it is the selection probability alone.
func sampleLight(lights []Light, u0, u1, u2 float32) (LightSample, float32) {
	n := len(lights)
	if n == 0 {
		return LightSample{}, 0
	}
	i := min(int(u0*float32(n)), n-1)
	l := lights[i]
	sel := 1 / float32(n)

	s := LightSample{Light: uint32(i), Position: l.Position, Radiance: l.Radiance}
	if l.Kind == LightPoint {
		return s, sel
	}
	cr := l.Edge0.Cross(l.Edge1)
	area := cr.Length()
	if area == 0 {
		return LightSample{}, 0
	}
	s.Position = l.Position.Add(l.Edge0.Mul(u1)).Add(l.Edge1.Mul(u2))
	s.Normal = cr.Mul(1 / area)
	return s, sel / area
}

// lightContribution returns the unshadowed radiance a light sample adds
// at surface s: Le * brdf * G, with the geometry term in area measure.
func lightContribution(s *Surface, ls LightSample) geom.Vec3 {
	d := ls.Position.Sub(s.Position)
	dist2 := d.LengthSq()
	if dist2 == 0 {
		return geom.Vec3{}
	}
	wi := d.Mul(1 / sqrt32(dist2))
	cosX := s.Normal.Dot(wi)
	if cosX <= 0 {
		return geom.Vec3{}
	}
	g := cosX / dist2
	if !ls.Normal.IsZero() {
		cosY := -ls.Normal.Dot(wi)
		if cosY <= 0 {
			return geom.Vec3{}
		}
		g *= cosY
	}
	return ls.Radiance.MulV(s.brdf()).Mul(g)
}
