package restir

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir/geom"
)

// pointLightRadiance is the exact direct lighting of a grey Lambertian
// floor point at p under an isotropic point light.
func pointLightRadiance(p, light geom.Vec3, intensity, albedo float64) float64 {
	d := light.Sub(p)
	dist2 := float64(d.LengthSq())
	cos := float64(d[1]) / math.Sqrt(dist2)
	return intensity * albedo / math.Pi * cos / dist2
}

func floorPoint(x, y int, spacing float32) geom.Vec3 {
	return geom.V3(float32(x)*spacing, 0, float32(y)*spacing)
}

// risReference replays the candidate stream of one lane and returns the
// RIS estimate of a floor point with albedo 0.5 under lights.
func risReference(seed, lane uint32, n int, p geom.Vec3, lights []Light) geom.Vec3 {
	brdf := geom.Splat(0.5).Mul(1 / math.Pi)
	contrib := func(pos, nrm, le geom.Vec3) geom.Vec3 {
		d := pos.Sub(p)
		dist2 := d.LengthSq()
		wi := d.Mul(1 / float32(math.Sqrt(float64(dist2))))
		if wi[1] <= 0 {
			return geom.Vec3{}
		}
		g := wi[1] / dist2
		if !nrm.IsZero() {
			cosY := -nrm.Dot(wi)
			if cosY <= 0 {
				return geom.Vec3{}
			}
			g *= cosY
		}
		return le.MulV(brdf).Mul(g)
	}

	rng := newLaneRNG(seed, lane, stageGenerate)
	var wsum, pSel float32
	var cSel geom.Vec3
	for range n {
		u0, u1, u2 := rng.float(), rng.float(), rng.float()
		l := lights[min(int(u0*float32(len(lights))), len(lights)-1)]
		pdf := 1 / float32(len(lights))
		pos, nrm := l.Position, geom.Vec3{}
		if l.Kind == LightQuad {
			cr := l.Edge0.Cross(l.Edge1)
			area := cr.Length()
			pos = l.Position.Add(l.Edge0.Mul(u1)).Add(l.Edge1.Mul(u2))
			nrm = cr.Mul(1 / area)
			pdf /= area
		}
		c := contrib(pos, nrm, l.Radiance)
		pHat := geom.Luminance(c)
		w := pHat / pdf
		u := rng.float()
		if w > 0 {
			wsum += w
			if u < w/wsum {
				cSel, pSel = c, pHat
			}
		}
	}
	if pSel == 0 {
		return geom.Vec3{}
	}
	return cSel.Mul(wsum / (float32(n) * pSel))
}

func TestExecuteMatchesRISReference(t *testing.T) {
	cfg := testConfig()
	cfg.RISSampleCount = 6
	cfg.TemporalReuse = false
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)

	// Coloured lights, so the estimate depends on which candidate won.
	lights := []Light{
		{
			Kind:     LightQuad,
			Position: geom.V3(0, 2, 0),
			Edge0:    geom.V3(2, 0, 0),
			Edge1:    geom.V3(0, 0, 2),
			Radiance: geom.V3(6, 1, 0.5),
		},
		{Kind: LightPoint, Position: geom.V3(3, 1.5, 3), Radiance: geom.V3(0.5, 2, 8)},
	}
	p.SetScene(newTestScene(lights...))
	rd := floorRenderData(4, 4, 1)
	execute(t, p, rd)

	seed := NewStream(cfg.Seed).Next()
	color := rd.Texture(ChannelColor)
	for y := range 4 {
		for x := range 4 {
			want := risReference(seed, uint32(y*4+x), 6, floorPoint(x, y, 1), lights)
			if want.IsZero() {
				t.Fatalf("reference at (%d, %d) is black", x, y)
			}
			got := color.RGB(x, y)
			for c := range 3 {
				if !closeTo(float64(got[c]), float64(want[c]), 1e-4) {
					t.Errorf("color(%d, %d)[%d] = %v, want %v", x, y, c, got[c], want[c])
				}
			}
		}
	}
}

func TestExecuteSinglePointLight(t *testing.T) {
	cfg := testConfig()
	cfg.RISSampleCount = 4
	cfg.TemporalReuse = false
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)

	light := geom.V3(1.5, 2, 1.5)
	p.SetScene(newTestScene(pointLight(light, 10)))
	rd := floorRenderData(4, 4, 1)
	execute(t, p, rd)

	color := rd.Texture(ChannelColor)
	diffuse := rd.Texture(ChannelDiffuse)
	specular := rd.Texture(ChannelSpecular)
	for y := range 4 {
		for x := range 4 {
			want := pointLightRadiance(floorPoint(x, y, 1), light, 10, 0.5)
			got := color.RGB(x, y)
			for c := range 3 {
				if !closeTo(float64(got[c]), want, 1e-4) {
					t.Errorf("color(%d, %d)[%d] = %v, want %v", x, y, c, got[c], want)
				}
			}
			if diffuse.RGB(x, y) != got {
				t.Errorf("diffuse(%d, %d) = %v, want color %v", x, y, diffuse.RGB(x, y), got)
			}
			if !specular.RGB(x, y).IsZero() {
				t.Errorf("specular(%d, %d) = %v, want zero", x, y, specular.RGB(x, y))
			}
		}
	}

	st := p.Stats()
	if st.Frames != 1 || st.Last.Shaded != 16 || st.StoreLen != 16 {
		t.Errorf("Stats() = %+v", st)
	}
	di := directStores(t, p)
	if m := di.history.Read().At(2, 2).M; m != 4 {
		t.Errorf("history M = %d, want 4", m)
	}
}

func TestExecuteMissedPixelsAreBlack(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	rd := floorRenderData(3, 3, 1)
	rd.Texture(ChannelVBuffer).Set(1, 1, f32.Vec4{})
	execute(t, p, rd)

	if got := rd.Texture(ChannelColor).RGB(1, 1); !got.IsZero() {
		t.Errorf("color of missed pixel = %v, want zero", got)
	}
	if got := p.Stats().Last.Shaded; got != 8 {
		t.Errorf("Shaded = %d, want 8", got)
	}
	if !directStores(t, p).history.Read().At(1, 1).IsEmpty() {
		t.Error("missed pixel holds a reservoir")
	}
}

func TestQuadLightConverges(t *testing.T) {
	cfg := testConfig()
	cfg.TemporalReuse = false
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)

	quad := Light{
		Kind:     LightQuad,
		Position: geom.V3(-0.5, 1, -0.5),
		Edge0:    geom.V3(1, 0, 0),
		Edge1:    geom.V3(0, 0, 1),
		Radiance: geom.Splat(4),
	}
	p.SetScene(newTestScene(quad))

	const (
		w, h    = 2, 2
		spacing = 0.4
		frames  = 512
	)
	sum := make([]float64, w*h)
	rd := floorRenderData(w, h, spacing)
	for range frames {
		execute(t, p, rd)
		for y := range h {
			for x := range w {
				sum[y*w+x] += float64(rd.Texture(ChannelColor).RGB(x, y)[0])
			}
		}
	}

	for y := range h {
		for x := range w {
			s := Surface{Position: floorPoint(x, y, spacing), Normal: geom.V3(0, 1, 0), Albedo: geom.Splat(0.5), Valid: true}
			want := integrateQuad(&s, quad, 128)
			got := sum[y*w+x] / frames
			if !closeTo(got, want, 0.03) {
				t.Errorf("mean radiance at (%d, %d) = %.5f, want %.5f", x, y, got, want)
			}
		}
	}
}

// integrateQuad evaluates the unshadowed direct lighting from a quad light
// with an n x n midpoint rule.
func integrateQuad(s *Surface, l Light, n int) float64 {
	normal := l.Edge0.Cross(l.Edge1).Normalize()
	var sum float64
	for j := range n {
		for i := range n {
			u := (float32(i) + 0.5) / float32(n)
			v := (float32(j) + 0.5) / float32(n)
			ls := LightSample{
				Position: l.Position.Add(l.Edge0.Mul(u)).Add(l.Edge1.Mul(v)),
				Normal:   normal,
				Radiance: l.Radiance,
			}
			sum += float64(lightContribution(s, ls)[0])
		}
	}
	return sum * float64(l.Area()) / float64(n*n)
}

func TestFirstFrameIgnoresTemporalSetting(t *testing.T) {
	render := func(temporal bool) []f32.Vec4 {
		cfg := testConfig()
		cfg.TemporalReuse = temporal
		p := newTestPass(t, cfg)
		p.SetScene(newTestScene(
			pointLight(geom.V3(1, 2, 1), 10),
			pointLight(geom.V3(3, 1, 0), 5),
			pointLight(geom.V3(0, 3, 3), 8),
		))
		rd := floorRenderData(6, 6, 0.5)
		execute(t, p, rd)
		if p.Stats().Last.TemporalRan {
			t.Error("temporal reuse ran on frame 0")
		}
		return rd.Texture(ChannelColor).Pix
	}

	if diff := cmp.Diff(render(false), render(true)); diff != "" {
		t.Errorf("frame 0 depends on the temporal setting (-off +on):\n%s", diff)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	render := func() []f32.Vec4 {
		p := newTestPass(t, testConfig(), WithWorkers(4))
		p.SetScene(newTestScene(
			pointLight(geom.V3(1, 2, 1), 10),
			pointLight(geom.V3(3, 1, 0), 5),
		))
		rd := floorRenderData(40, 12, 0.1)
		for range 3 {
			execute(t, p, rd)
		}
		return rd.Texture(ChannelColor).Pix
	}

	if diff := cmp.Diff(render(), render()); diff != "" {
		t.Errorf("equal seeds rendered different frames:\n%s", diff)
	}
}

func TestTemporalReuse(t *testing.T) {
	cfg := testConfig()
	cfg.RISSampleCount = 4
	p := newTestPass(t, cfg)
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)

	execute(t, p, rd)
	if p.State() != StateBoundSteady {
		t.Errorf("State() = %v, want BoundSteady", p.State())
	}
	execute(t, p, rd)

	last := p.Stats().Last
	if !last.TemporalRan || last.TemporalHits != 16 {
		t.Errorf("frame 1 temporal: ran=%v hits=%d, want 16 hits", last.TemporalRan, last.TemporalHits)
	}
	if !last.SpatialRan || last.SpatialHits == 0 {
		t.Errorf("frame 1 spatial: ran=%v hits=%d", last.SpatialRan, last.SpatialHits)
	}

	// History carries the temporal result, not the spatial one.
	di := directStores(t, p)
	for i, r := range di.history.Read().Reservoirs {
		if r.M != 8 {
			t.Fatalf("history[%d].M = %d, want 8", i, r.M)
		}
	}
}

func TestTemporalHistoryCap(t *testing.T) {
	cfg := testConfig()
	cfg.RISSampleCount = 4
	cfg.AutoMaxM = false
	cfg.TemporalMaxM = 6
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(3, 3, 0.5)

	for range 5 {
		execute(t, p, rd)
	}
	if m := directStores(t, p).history.Read().At(1, 1).M; m != 10 {
		t.Errorf("M after 5 frames = %d, want 4 + 6", m)
	}
}

func TestTemporalRejectsDissimilarHistory(t *testing.T) {
	cfg := testConfig()
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)

	depth := rd.Texture(ChannelDepth)
	for i := range depth.Pix {
		depth.Pix[i][0] = 10
	}
	execute(t, p, rd)
	if hits := p.Stats().Last.TemporalHits; hits != 0 {
		t.Errorf("TemporalHits = %d after a depth jump, want 0", hits)
	}
}

func TestTemporalFollowsMotion(t *testing.T) {
	cfg := testConfig()
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)

	// Every pixel came from two pixels to the left; only x >= 2 finds
	// history in bounds.
	mvec := rd.Texture(ChannelMotion)
	for i := range mvec.Pix {
		mvec.Pix[i] = f32.Vec4{-2, 0, 0, 0}
	}
	execute(t, p, rd)
	if hits := p.Stats().Last.TemporalHits; hits != 8 {
		t.Errorf("TemporalHits = %d, want 8", hits)
	}
}

func TestStoreReallocation(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	execute(t, p, floorRenderData(4, 4, 0.5))
	if got := p.Stats().StoreLen; got != 16 {
		t.Fatalf("StoreLen = %d, want 16", got)
	}

	execute(t, p, floorRenderData(6, 5, 0.5))
	st := p.Stats()
	if st.StoreLen != 30 || !st.Last.Reallocated || st.Last.TemporalRan {
		t.Errorf("after resize: StoreLen=%d reallocated=%v temporal=%v", st.StoreLen, st.Last.Reallocated, st.Last.TemporalRan)
	}
	if p.FrameCount() != 2 {
		t.Errorf("FrameCount() = %d, resize must not reset it", p.FrameCount())
	}

	cfg := p.Config()
	cfg.HalfResolution = true
	if err := p.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	execute(t, p, floorRenderData(6, 5, 0.5))
	st = p.Stats()
	if st.StoreLen != 9 || !st.Last.Reallocated {
		t.Errorf("after half-res: StoreLen=%d reallocated=%v", st.StoreLen, st.Last.Reallocated)
	}
	if st.Reallocations != 3 {
		t.Errorf("Reallocations = %d, want 3", st.Reallocations)
	}

	execute(t, p, floorRenderData(6, 5, 0.5))
	if p.Stats().Last.Reallocated || p.Stats().Reallocations != 3 {
		t.Error("steady frame reallocated")
	}
}

func TestHalfResolutionShading(t *testing.T) {
	cfg := testConfig()
	cfg.HalfResolution = true
	cfg.TemporalReuse = false
	cfg.SpatialReuse = false
	p := newTestPass(t, cfg)

	light := geom.V3(1, 2, 1)
	p.SetScene(newTestScene(pointLight(light, 10)))
	rd := floorRenderData(5, 4, 0.5)
	execute(t, p, rd)

	if got := p.Stats().Last.Shaded; got != 20 {
		t.Errorf("Shaded = %d, want 20", got)
	}
	color := rd.Texture(ChannelColor)
	for y := range 4 {
		for x := range 5 {
			// The reservoir weight was formed at the top-left pixel of
			// the tile and is re-evaluated at (x, y).
			tx, ty := x&^1, y&^1
			want := pointLightRadiance(floorPoint(tx, ty, 0.5), light, 10, 0.5)
			if got := float64(color.RGB(x, y)[1]); !closeTo(got, want, 1e-4) {
				t.Errorf("color(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestGeometryChangeAbortsFrame(t *testing.T) {
	p := newTestPass(t, testConfig())
	scene := newTestScene(pointLight(geom.V3(1, 2, 1), 10))
	p.SetScene(scene)
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)

	di := directStores(t, p)
	before := append([]Reservoir[LightSample](nil), di.history.Read().Reservoirs...)
	read := di.history.Read()

	scene.updates = GeometryChanged
	err := p.Execute(t.Context(), rd)
	if !errors.Is(err, ErrGeometryChanged) {
		t.Fatalf("Execute() = %v, want ErrGeometryChanged", err)
	}
	if di.history.Read() != read {
		t.Error("aborted frame swapped the stores")
	}
	if diff := cmp.Diff(before, di.history.Read().Reservoirs); diff != "" {
		t.Errorf("aborted frame modified history:\n%s", diff)
	}
	st := p.Stats()
	if st.Aborted != 1 || st.Frames != 1 || p.FrameCount() != 1 {
		t.Errorf("Stats() = %+v, FrameCount() = %d", st, p.FrameCount())
	}

	// Rebinding recovers.
	scene.updates = 0
	p.SetScene(scene)
	execute(t, p, rd)
}

func TestGeometryFlaggedBeforeFirstFrame(t *testing.T) {
	p := newTestPass(t, testConfig())
	scene := newTestScene(pointLight(geom.V3(1, 2, 1), 10))
	scene.updates = GeometryChanged | LightsChanged
	p.SetScene(scene)

	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)
	if p.FrameCount() != 1 || p.Stats().Aborted != 0 {
		t.Errorf("FrameCount() = %d, Stats() = %+v", p.FrameCount(), p.Stats())
	}

	// Still flagged on the next frame, which has history to invalidate.
	if err := p.Execute(t.Context(), rd); !errors.Is(err, ErrGeometryChanged) {
		t.Errorf("second Execute() = %v, want ErrGeometryChanged", err)
	}
}

func TestExecuteWithoutScene(t *testing.T) {
	p := newTestPass(t, testConfig())
	if p.State() != StateUnbound {
		t.Errorf("State() = %v, want Unbound", p.State())
	}

	rd := floorRenderData(2, 2, 1)
	color := NewTexture(2, 2)
	color.SetRGB(0, 0, geom.Splat(3))
	rd.SetTexture(ChannelColor, color)

	execute(t, p, rd)
	if !color.RGB(0, 0).IsZero() {
		t.Error("outputs not cleared without a scene")
	}
	for _, c := range []string{ChannelDiffuse, ChannelSpecular} {
		if rd.Texture(c) == nil {
			t.Errorf("output %s not allocated", c)
		}
	}
	if p.FrameCount() != 0 || p.Stats().Frames != 0 {
		t.Error("frame counted without a scene")
	}
}

func TestSetSceneResets(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	first := floorRenderData(4, 4, 0.5)
	execute(t, p, first)
	if first.RefreshFlags()&LightingChanged == 0 {
		t.Error("first frame after SetScene did not raise LightingChanged")
	}
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)
	if rd.RefreshFlags() != 0 {
		t.Errorf("steady frame raised %v", rd.RefreshFlags())
	}
	if p.FrameCount() != 2 {
		t.Fatalf("FrameCount() = %d, want 2", p.FrameCount())
	}

	p.SetScene(newTestScene(pointLight(geom.V3(2, 2, 2), 4)))
	if p.State() != StateBoundInitial || p.FrameCount() != 0 {
		t.Errorf("after SetScene: State=%v FrameCount=%d", p.State(), p.FrameCount())
	}
	st := p.Stats()
	if st.StoreLen != 0 || st.Kernels.Live != 0 {
		t.Errorf("after SetScene: StoreLen=%d live kernels=%d", st.StoreLen, st.Kernels.Live)
	}

	rd = floorRenderData(4, 4, 0.5)
	execute(t, p, rd)
	if p.Stats().Last.TemporalRan {
		t.Error("temporal reuse ran on the first frame of a new scene")
	}
	if rd.RefreshFlags()&LightingChanged == 0 {
		t.Error("rebinding did not raise LightingChanged")
	}

	p.SetScene(nil)
	if p.State() != StateUnbound {
		t.Errorf("State() = %v, want Unbound", p.State())
	}
}

func TestKernelCache(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)

	execute(t, p, rd)
	if k := p.Stats().Kernels; k.Builds != 4 || k.Live != 4 {
		t.Errorf("frame 0 kernels = %+v, want 4 builds", k)
	}
	execute(t, p, rd)
	if k := p.Stats().Kernels; k.Builds != 5 || k.Hits != 3 {
		t.Errorf("frame 1 kernels = %+v, want temporal variant built", k)
	}
	execute(t, p, rd)
	if k := p.Stats().Kernels; k.Builds != 5 || k.Hits != 7 {
		t.Errorf("frame 2 kernels = %+v, want all cached", k)
	}

	cfg := p.Config()
	cfg.SpatialRadius = 3
	if err := p.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if live := p.Stats().Kernels.Live; live != 0 {
		t.Errorf("live kernels after config change = %d, want 0", live)
	}
	execute(t, p, rd)
	if k := p.Stats().Kernels; k.Builds != 9 {
		t.Errorf("kernels after config change = %+v, want 9 builds", k)
	}
}

func TestConfigChangeRaisesRefreshFlag(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	execute(t, p, floorRenderData(2, 2, 1))

	if err := p.SetConfig(p.Config()); err != nil {
		t.Fatal(err)
	}
	rd := floorRenderData(2, 2, 1)
	execute(t, p, rd)
	if rd.RefreshFlags() != 0 {
		t.Errorf("unchanged config raised %v", rd.RefreshFlags())
	}

	if err := p.ApplySettings(map[string]any{KeyRISSampleCount: 2}); err != nil {
		t.Fatal(err)
	}
	rd = floorRenderData(2, 2, 1)
	execute(t, p, rd)
	if rd.RefreshFlags()&RenderOptionsChanged == 0 {
		t.Error("config change did not raise RenderOptionsChanged")
	}
	if p.Config().RISSampleCount != 2 {
		t.Errorf("RISSampleCount = %d, want 2", p.Config().RISSampleCount)
	}

	rd = floorRenderData(2, 2, 1)
	execute(t, p, rd)
	if rd.RefreshFlags() != 0 {
		t.Errorf("flag raised twice: %v", rd.RefreshFlags())
	}
}

func TestApplySettingsIgnoresUnknownKey(t *testing.T) {
	buf := captureLogs(t)
	p := newTestPass(t, testConfig())
	before := p.Settings()

	if err := p.ApplySettings(map[string]any{"useFixWeight": true}); err != nil {
		t.Fatalf("ApplySettings() = %v", err)
	}
	if diff := cmp.Diff(before, p.Settings()); diff != "" {
		t.Errorf("unknown key changed settings:\n%s", diff)
	}
	if !strings.Contains(buf.String(), "useFixWeight") {
		t.Errorf("no warning logged:\n%s", buf.String())
	}
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	if _, err := NewPass(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewPass(Config{}) = %v, want ErrInvalidConfig", err)
	}

	p := newTestPass(t, testConfig())
	bad := p.Config()
	bad.RISSampleCount = 0
	if err := p.SetConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetConfig() = %v, want ErrInvalidConfig", err)
	}
	if p.Config() != testConfig() {
		t.Error("rejected config was installed")
	}
	if err := p.ApplySettings(map[string]any{KeySpatialRadius: -4}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ApplySettings(negative radius) = %v", err)
	}
}

func TestMissingRequiredInput(t *testing.T) {
	buf := captureLogs(t)
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	rd := floorRenderData(3, 3, 1)
	rd.SetTexture(ChannelNormal, nil)
	execute(t, p, rd)

	if rd.Texture(ChannelColor) == nil {
		t.Fatal("color output not produced")
	}
	if p.FrameCount() != 0 {
		t.Error("frame with missing input was counted")
	}
	logs := buf.String()
	if !strings.Contains(logs, "level=WARN") || !strings.Contains(logs, ChannelNormal) {
		t.Errorf("missing input not reported:\n%s", logs)
	}
}

func TestOptionalInputsAbsent(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	rd := floorRenderData(4, 4, 0.5)
	rd.SetTexture(ChannelDepth, nil)
	rd.SetTexture(ChannelMotion, nil)
	execute(t, p, rd)
	execute(t, p, rd)
	if hits := p.Stats().Last.TemporalHits; hits != 16 {
		t.Errorf("TemporalHits = %d without motion and depth, want 16", hits)
	}
}

func TestDepthOfFieldWarning(t *testing.T) {
	buf := captureLogs(t)
	p := newTestPass(t, testConfig())
	scene := newTestScene(pointLight(geom.V3(1, 2, 1), 10))
	scene.aperture = 0.05
	p.SetScene(scene)

	rd := floorRenderData(2, 2, 1)
	execute(t, p, rd)
	execute(t, p, rd)
	if n := strings.Count(buf.String(), "depth of field"); n != 1 {
		t.Errorf("depth of field warning logged %d times, want 1", n)
	}
}

func TestWithoutRayQueries(t *testing.T) {
	buf := captureLogs(t)
	p := newTestPass(t, testConfig(), WithoutRayQueries())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))

	rd := floorRenderData(2, 2, 1)
	execute(t, p, rd)
	if !rd.Texture(ChannelColor).RGB(0, 0).IsZero() {
		t.Error("disabled pass produced lighting")
	}
	if !strings.Contains(buf.String(), "ray queries") {
		t.Errorf("unsupported device not logged:\n%s", buf.String())
	}
}

func TestVisibilityModes(t *testing.T) {
	tests := []struct {
		mode        VisibilityReuseMode
		occludedLit bool
	}{
		{VisibilityNever, true},
		{VisibilityPerNeighbor, false},
		{VisibilityFinalOnly, false},
	}
	light := geom.V3(0, 2, 0)
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			cfg := testConfig()
			cfg.VisibilityReuse = tt.mode
			p := newTestPass(t, cfg)
			scene := newTestScene(pointLight(light, 10))
			scene.spheres = []testSphere{{center: geom.V3(0, 1, 0), radius: 0.3}}
			p.SetScene(scene)

			rd := floorRenderData(3, 3, 1)
			execute(t, p, rd)
			execute(t, p, rd)

			color := rd.Texture(ChannelColor)
			if lit := !color.RGB(0, 0).IsZero(); lit != tt.occludedLit {
				t.Errorf("occluded pixel lit = %v, want %v", lit, tt.occludedLit)
			}
			want := pointLightRadiance(floorPoint(2, 2, 1), light, 10, 0.5)
			if got := float64(color.RGB(2, 2)[0]); !closeTo(got, want, 1e-4) {
				t.Errorf("unoccluded pixel = %v, want %v", got, want)
			}
		})
	}
}

func TestGlobalIlluminationDirectTerm(t *testing.T) {
	cfg := testConfig()
	cfg.Integrator = IntegratorGlobal
	p := newTestPass(t, cfg)

	light := geom.V3(1, 2, 1)
	p.SetScene(newTestScene(pointLight(light, 10)))
	rd := floorRenderData(3, 3, 0.5)
	for range 2 {
		execute(t, p, rd)
	}

	// An open floor has no indirect bounce; only the direct estimate is
	// left.
	color := rd.Texture(ChannelColor)
	for y := range 3 {
		for x := range 3 {
			want := pointLightRadiance(floorPoint(x, y, 0.5), light, 10, 0.5)
			if got := float64(color.RGB(x, y)[0]); !closeTo(got, want, 1e-4) {
				t.Errorf("color(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}

	cfg.EvalDirect = false
	if err := p.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	execute(t, p, rd)
	if !color.RGB(1, 1).IsZero() {
		t.Errorf("color without direct evaluation = %v, want zero", color.RGB(1, 1))
	}
}

func TestGlobalIlluminationEnvironment(t *testing.T) {
	cfg := testConfig()
	cfg.Integrator = IntegratorGlobal
	p := newTestPass(t, cfg)

	scene := newTestScene()
	scene.env = geom.Splat(1)
	p.SetScene(scene)

	// A Lambertian floor under a white sky reflects its albedo.
	rd := floorRenderData(4, 4, 0.5)
	for range 3 {
		execute(t, p, rd)
	}
	color := rd.Texture(ChannelColor)
	for y := range 4 {
		for x := range 4 {
			if got := float64(color.RGB(x, y)[0]); !closeTo(got, 0.5, 0.02) {
				t.Errorf("color(%d, %d) = %v, want 0.5", x, y, got)
			}
		}
	}
	if p.Stats().Last.TemporalHits == 0 {
		t.Error("global illumination reused no history")
	}
}

func TestSwitchIntegratorDropsStores(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)

	cfg := p.Config()
	cfg.Integrator = IntegratorGlobal
	if err := p.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	execute(t, p, rd)
	if !p.Stats().Last.Reallocated {
		t.Error("integrator switch kept the old stores")
	}
	if _, ok := p.run.(*pipeline[PathSample]); !ok {
		t.Errorf("pass runs %T after switching to global illumination", p.run)
	}
}

func TestCancelledFrameKeepsHistory(t *testing.T) {
	p := newTestPass(t, testConfig())
	p.SetScene(newTestScene(pointLight(geom.V3(1, 2, 1), 10)))
	rd := floorRenderData(4, 4, 0.5)
	execute(t, p, rd)

	di := directStores(t, p)
	read := di.history.Read()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := p.Execute(ctx, rd); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() = %v, want context.Canceled", err)
	}
	if di.history.Read() != read {
		t.Error("cancelled frame swapped the stores")
	}
	if p.FrameCount() != 1 {
		t.Errorf("FrameCount() = %d, want 1", p.FrameCount())
	}
}

func TestSplitView(t *testing.T) {
	cfg := testConfig()
	cfg.SplitView = true
	p := newTestPass(t, cfg)
	light := geom.V3(1, 2, 1)
	p.SetScene(newTestScene(pointLight(light, 10)))

	rd := floorRenderData(4, 2, 0.5)
	execute(t, p, rd)
	execute(t, p, rd)
	for x := range 4 {
		want := pointLightRadiance(floorPoint(x, 0, 0.5), light, 10, 0.5)
		if got := float64(rd.Texture(ChannelColor).RGB(x, 0)[0]); !closeTo(got, want, 1e-4) {
			t.Errorf("color(%d, 0) = %v, want %v", x, got, want)
		}
	}
}

func TestReflect(t *testing.T) {
	r := newTestPass(t, testConfig()).Reflect()
	var required []string
	for _, c := range r.Inputs {
		if !c.Optional {
			required = append(required, c.Name)
		}
	}
	if diff := cmp.Diff([]string{ChannelVBuffer, ChannelNormal}, required); diff != "" {
		t.Errorf("required inputs mismatch (-want +got):\n%s", diff)
	}
	if len(r.Outputs) != 3 {
		t.Errorf("Outputs = %v", r.Outputs)
	}
	r.Inputs[0].Name = "mutated"
	if Reflect().Inputs[0].Name != ChannelVBuffer {
		t.Error("Reflect() exposes shared state")
	}
}
