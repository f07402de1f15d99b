package restir

import "github.com/gogpu/restir/geom"

// directLighting resamples points on analytic lights (ReSTIR DI).
type directLighting struct {
	scene  Scene
	lights []Light
}

func (d *directLighting) candidate(k *kernel, s *Surface, rng *laneRNG) (LightSample, float32) {
	u0, u1, u2 := rng.float(), rng.float(), rng.float()
	if !k.useAnalytic {
		return LightSample{}, 0
	}
	return sampleLight(d.lights, u0, u1, u2)
}

func (d *directLighting) contribution(s *Surface, ls LightSample) geom.Vec3 {
	return lightContribution(s, ls)
}

func (d *directLighting) visible(s *Surface, ls LightSample) bool {
	return !d.scene.Occluded(s.Position, ls.Position)
}

func (d *directLighting) extra(*kernel, *Surface, *laneRNG) geom.Vec3 {
	return geom.Vec3{}
}
