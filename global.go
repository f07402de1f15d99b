package restir

import (
	"math"

	"github.com/gogpu/restir/geom"
)

// escapeDistance places the vertex of an escaped path sample far enough
// that reconnecting from a neighbouring pixel keeps the direction.
const escapeDistance = 1e5

// PathSample is the reservoir payload of the global-illumination
// integrator: the secondary vertex of a path from the visible point and
// the radiance leaving it towards that point.
type PathSample struct {
	Position geom.Vec3
	Normal   geom.Vec3 // zero when the path escaped to the environment
	Radiance geom.Vec3
}

// globalIllumination resamples secondary path vertices (ReSTIR GI).
type globalIllumination struct {
	scene  Scene
	lights []Light
}

func (g *globalIllumination) candidate(k *kernel, s *Surface, rng *laneRNG) (PathSample, float32) {
	local, pdf := geom.CosineHemisphere(rng.float(), rng.float())
	if pdf <= 0 {
		return PathSample{}, 0
	}
	dir := geom.NewFrame(s.Normal).ToWorld(local)
	hit, ok := g.scene.Intersect(geom.NewRay(s.Position, dir, math.MaxFloat32))
	if !ok {
		ps := PathSample{Position: s.Position.Add(dir.Mul(escapeDistance))}
		if k.useEnv {
			ps.Radiance = g.scene.Environment(dir)
		}
		return ps, pdf
	}
	return PathSample{
		Position: hit.Position,
		Normal:   hit.Normal,
		Radiance: g.radiance(k, hit, rng, 1),
	}, pdf
}

// radiance estimates the radiance leaving a path vertex: emission, one
// light sample and a cosine-sampled continuation with Russian roulette.
func (g *globalIllumination) radiance(k *kernel, h Hit, rng *laneRNG, bounce uint32) geom.Vec3 {
	m := g.scene.Material(h.Material)
	var lo geom.Vec3
	if k.useEmissive {
		lo = m.Emission
	}
	surf := Surface{Position: h.Position, Normal: h.Normal, Albedo: m.Albedo, Material: h.Material, Valid: true}
	lo = lo.Add(g.nextEvent(k, &surf, rng))

	if bounce >= k.maxBounces || rng.float() < k.russianRoulette {
		return lo
	}
	survive := 1 - k.russianRoulette

	local, pdf := geom.CosineHemisphere(rng.float(), rng.float())
	if pdf <= 0 {
		return lo
	}
	dir := geom.NewFrame(h.Normal).ToWorld(local)
	next, ok := g.scene.Intersect(geom.NewRay(h.Position, dir, math.MaxFloat32))
	var li geom.Vec3
	switch {
	case ok:
		li = g.radiance(k, next, rng, bounce+1)
	case k.useEnv:
		li = g.scene.Environment(dir)
	}
	// brdf * cos / pdf reduces to the albedo for cosine sampling.
	return lo.Add(m.Albedo.MulV(li).Mul(1 / survive))
}

// nextEvent returns a one-sample shadowed estimate of direct lighting.
func (g *globalIllumination) nextEvent(k *kernel, s *Surface, rng *laneRNG) geom.Vec3 {
	u0, u1, u2 := rng.float(), rng.float(), rng.float()
	if !k.useAnalytic {
		return geom.Vec3{}
	}
	ls, pdf := sampleLight(g.lights, u0, u1, u2)
	if pdf <= 0 {
		return geom.Vec3{}
	}
	c := lightContribution(s, ls)
	if c.IsZero() || g.scene.Occluded(s.Position, ls.Position) {
		return geom.Vec3{}
	}
	return c.Mul(1 / pdf)
}

func (g *globalIllumination) contribution(s *Surface, ps PathSample) geom.Vec3 {
	d := ps.Position.Sub(s.Position)
	dist := d.Length()
	if dist == 0 {
		return geom.Vec3{}
	}
	wi := d.Mul(1 / dist)
	cos := s.Normal.Dot(wi)
	if cos <= 0 {
		return geom.Vec3{}
	}
	if !ps.Normal.IsZero() && ps.Normal.Dot(wi) >= 0 {
		// Sample vertex faces away from the shading point.
		return geom.Vec3{}
	}
	return ps.Radiance.MulV(s.brdf()).Mul(cos)
}

func (g *globalIllumination) visible(s *Surface, ps PathSample) bool {
	return !g.scene.Occluded(s.Position, ps.Position)
}

func (g *globalIllumination) extra(k *kernel, s *Surface, rng *laneRNG) geom.Vec3 {
	if !k.evalDirect {
		return geom.Vec3{}
	}
	return g.nextEvent(k, s, rng)
}
