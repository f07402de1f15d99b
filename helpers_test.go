package restir

import (
	"math"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir/geom"
)

// testScene is a ground plane at y = 0 with optional sphere occluders.
type testScene struct {
	lights    []Light
	materials []Material
	spheres   []testSphere
	updates   UpdateFlags
	aperture  float32
	env       geom.Vec3
}

type testSphere struct {
	center geom.Vec3
	radius float32
}

func (s *testSphere) hit(r geom.Ray) (float32, bool) {
	oc := r.Origin.Sub(s.center)
	b := oc.Dot(r.Dir)
	c := oc.LengthSq() - s.radius*s.radius
	disc := b*b - r.Dir.LengthSq()*c
	if disc < 0 {
		return 0, false
	}
	sq := sqrt32(disc)
	for _, t := range []float32{(-b - sq) / r.Dir.LengthSq(), (-b + sq) / r.Dir.LengthSq()} {
		if t > r.TMin && t < r.TMax {
			return t, true
		}
	}
	return 0, false
}

func newTestScene(lights ...Light) *testScene {
	return &testScene{
		lights:    lights,
		materials: []Material{{Albedo: geom.Splat(0.5)}},
	}
}

func (s *testScene) Lights() []Light { return s.lights }

func (s *testScene) Intersect(r geom.Ray) (Hit, bool) {
	var hit Hit
	found := false
	if r.Dir[1] != 0 {
		t := -r.Origin[1] / r.Dir[1]
		if t > r.TMin && t < r.TMax {
			r.TMax = t
			hit = Hit{T: t, Position: r.At(t), Normal: geom.V3(0, 1, 0)}
			found = true
		}
	}
	for i := range s.spheres {
		if t, ok := s.spheres[i].hit(r); ok {
			r.TMax = t
			p := r.At(t)
			hit = Hit{T: t, Position: p, Normal: p.Sub(s.spheres[i].center).Normalize()}
			found = true
		}
	}
	if found && hit.Normal.Dot(r.Dir) > 0 {
		hit.Normal = hit.Normal.Neg()
	}
	return hit, found
}

func (s *testScene) Occluded(from, to geom.Vec3) bool {
	d := to.Sub(from)
	dist := d.Length()
	r := geom.NewRay(from, d.Mul(1/dist), dist-geom.RayEpsilon)
	for i := range s.spheres {
		if _, ok := s.spheres[i].hit(r); ok {
			return true
		}
	}
	return false
}

func (s *testScene) Material(id uint32) Material {
	if int(id) >= len(s.materials) {
		return Material{}
	}
	return s.materials[id]
}

func (s *testScene) Environment(geom.Vec3) geom.Vec3 { return s.env }
func (s *testScene) Updates() UpdateFlags            { return s.updates }
func (s *testScene) Aperture() float32               { return s.aperture }

func (s *testScene) Features() Features {
	var f Features
	if len(s.lights) > 0 {
		f |= FeatureAnalyticLights
	}
	if !s.env.IsZero() {
		f |= FeatureEnvLight
	}
	return f
}

func pointLight(pos geom.Vec3, intensity float32) Light {
	return Light{Kind: LightPoint, Position: pos, Radiance: geom.Splat(intensity)}
}

// floorRenderData lays a w x h grid of floor points, spacing apart, into
// the visibility buffer, with normals, depth and zero motion.
func floorRenderData(w, h int, spacing float32) *RenderData {
	rd := NewRenderData(w, h)
	vbuf := NewTexture(w, h)
	nrm := NewTexture(w, h)
	depth := NewTexture(w, h)
	mvec := NewTexture(w, h)
	for y := range h {
		for x := range w {
			vbuf.Set(x, y, f32.Vec4{float32(x) * spacing, 0, float32(y) * spacing, 1})
			nrm.Set(x, y, f32.Vec4{0, 1, 0, 0})
			depth.Set(x, y, f32.Vec4{5, 0, 0, 0})
		}
	}
	rd.SetTexture(ChannelVBuffer, vbuf)
	rd.SetTexture(ChannelNormal, nrm)
	rd.SetTexture(ChannelDepth, depth)
	rd.SetTexture(ChannelMotion, mvec)
	return rd
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}

func newTestPass(t *testing.T, cfg Config, opts ...PassOption) *Pass {
	t.Helper()
	opts = append([]PassOption{WithoutAccelerator(), WithWorkers(2)}, opts...)
	p, err := NewPass(cfg, opts...)
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func execute(t *testing.T, p *Pass, rd *RenderData) {
	t.Helper()
	if err := p.Execute(t.Context(), rd); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func closeTo(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

// directStores returns the reservoir stores of a direct-lighting pass.
func directStores(t *testing.T, p *Pass) *pipeline[LightSample] {
	t.Helper()
	di, ok := p.run.(*pipeline[LightSample])
	if !ok {
		t.Fatalf("pass runs %T, want direct lighting", p.run)
	}
	return di
}
