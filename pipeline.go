package restir

import (
	"github.com/gogpu/restir/geom"
)

// integrand is what an integrator contributes to the shared pipeline.
type integrand[S any] interface {
	// candidate draws one candidate at s and returns it with its source
	// density.
	candidate(k *kernel, s *Surface, rng *laneRNG) (S, float32)

	// contribution returns the unshadowed integrand of sample at s. Its
	// luminance is the target density.
	contribution(s *Surface, sample S) geom.Vec3

	// visible traces a visibility ray from s to the sample.
	visible(s *Surface, sample S) bool

	// extra returns radiance estimated outside the reservoir.
	extra(k *kernel, s *Surface, rng *laneRNG) geom.Vec3
}

// pipeline runs the four resampling stages for one payload type.
type pipeline[S any] struct {
	integ   integrand[S]
	history *PingPong[S]
	spatial *Store[S]

	// fresh is set when the stores were just allocated and hold no
	// history.
	fresh bool
}

func newPipeline[S any](integ integrand[S]) *pipeline[S] {
	return &pipeline[S]{integ: integ}
}

// ensure allocates the stores for a w x h resampling grid. Returns true
// when a (re)allocation happened; previous contents are discarded.
func (p *pipeline[S]) ensure(w, h int) bool {
	if p.history != nil && p.spatial.Width == w && p.spatial.Height == h {
		return false
	}
	p.history = NewPingPong[S](w, h)
	p.spatial = NewStore[S](w, h)
	p.fresh = true
	return true
}

func (p *pipeline[S]) drop() {
	p.history = nil
	p.spatial = nil
	p.fresh = true
}

func (p *pipeline[S]) storeLen() int {
	if p.history == nil {
		return 0
	}
	return p.history.Len()
}

func (p *pipeline[S]) target(s *Surface, sample S) float32 {
	return geom.Luminance(p.integ.contribution(s, sample))
}

// execute runs all stages and promotes the working store to history.
// On error nothing is promoted, so the history of the last completed frame
// stays intact.
func (p *pipeline[S]) execute(f *frame) error {
	if err := p.generate(f); err != nil {
		return err
	}
	if f.kernel(stageTemporal).temporal && !p.fresh {
		if err := p.temporal(f); err != nil {
			return err
		}
	}
	final := p.history.Write()
	if f.kernel(stageSpatial).spatial {
		if err := p.spatialReuse(f); err != nil {
			return err
		}
		final = p.spatial
	}
	if err := p.shade(f, final); err != nil {
		return err
	}
	p.history.Swap()
	p.fresh = false
	return nil
}

// generate draws RIS candidates per element into the working store.
func (p *pipeline[S]) generate(f *frame) error {
	k := f.kernel(stageGenerate)
	out := p.history.Write()
	n := k.risSamples
	if !k.useReSTIR {
		n = 1
	}
	return f.dispatch(out.Width, out.Height, func(x, y int) {
		i := out.Index(x, y)
		px, py := f.pixelOf(k, x, y)
		s := f.gbuf.at(px, py)
		out.Surfaces[i] = *s

		var r Reservoir[S]
		if s.Valid {
			rng := newLaneRNG(f.seed, uint32(i), stageGenerate)
			for range n {
				sample, srcPdf := p.integ.candidate(k, s, &rng)
				pHat := p.target(s, sample)
				var w float32
				if srcPdf > 0 {
					w = pHat / srcPdf
				}
				r = r.Update(sample, pHat, w, rng.float())
			}
		}
		out.Reservoirs[i] = r
	})
}

// temporal merges each element with its reprojected history.
func (p *pipeline[S]) temporal(f *frame) error {
	k := f.kernel(stageTemporal)
	prev := p.history.Read()
	cur := p.history.Write()
	assertNoAlias(stageTemporal, cur, prev)

	return f.dispatch(cur.Width, cur.Height, func(x, y int) {
		i := cur.Index(x, y)
		s := &cur.Surfaces[i]
		if !s.Valid {
			return
		}
		px, py := f.pixelOf(k, x, y)
		qx, qy := px, py
		if k.motion {
			mv := f.gbuf.motionAt(px, py)
			qx = roundToInt(float32(px) + mv[0])
			qy = roundToInt(float32(py) + mv[1])
		}
		qx, qy = elementOf(k, qx, qy)
		if !prev.InBounds(qx, qy) {
			return
		}
		j := prev.Index(qx, qy)
		pr := prev.Reservoirs[j]
		if pr.IsEmpty() || !s.similar(&prev.Surfaces[j], k.depthT, k.normalT) {
			return
		}

		pr = pr.Cap(k.maxM)
		pr = pr.Retarget(p.target(s, pr.Sample))
		rng := newLaneRNG(f.seed, uint32(i), stageTemporal)
		cur.Reservoirs[i] = cur.Reservoirs[i].Merge(pr, rng.float())
		f.temporalMerges.Add(1)
	})
}

// spatialReuse merges each element with random similar neighbours of the
// working store into the spatial store.
func (p *pipeline[S]) spatialReuse(f *frame) error {
	k := f.kernel(stageSpatial)
	src := p.history.Write()
	dst := p.spatial
	assertNoAlias(stageSpatial, dst, src)

	return f.dispatch(src.Width, src.Height, func(x, y int) {
		i := src.Index(x, y)
		s := &src.Surfaces[i]
		r := src.Reservoirs[i]
		dst.Surfaces[i] = *s
		if !s.Valid {
			dst.Reservoirs[i] = r
			return
		}

		rng := newLaneRNG(f.seed, uint32(i), stageSpatial)
		merged := uint64(0)
		for range k.neighbors {
			dx, dy := geom.ConcentricDisk(rng.float(), rng.float())
			u := rng.float()
			nx := x + roundToInt(dx*k.radius)
			ny := y + roundToInt(dy*k.radius)
			if (nx == x && ny == y) || !src.InBounds(nx, ny) {
				continue
			}
			j := src.Index(nx, ny)
			nr := src.Reservoirs[j]
			if nr.IsEmpty() || !s.similar(&src.Surfaces[j], k.depthT, k.normalT) {
				continue
			}
			pHat := p.target(s, nr.Sample)
			if k.visibility == VisibilityPerNeighbor && pHat > 0 && !p.integ.visible(s, nr.Sample) {
				pHat = 0
			}
			r = r.Merge(nr.Retarget(pHat), u)
			merged++
		}
		dst.Reservoirs[i] = r.Cap(k.spatialMaxM)
		f.spatialMerges.Add(merged)
	})
}

// shade evaluates the final reservoirs per frame pixel and writes the
// outputs.
func (p *pipeline[S]) shade(f *frame, final *Store[S]) error {
	k := f.kernel(stageShade)
	w, h := f.gbuf.width, f.gbuf.height
	working := p.history.Write()

	return f.dispatch(w, h, func(x, y int) {
		s := f.gbuf.at(x, y)
		if !s.Valid {
			f.color.SetRGB(x, y, geom.Vec3{})
			f.diffuse.SetRGB(x, y, geom.Vec3{})
			f.specular.SetRGB(x, y, geom.Vec3{})
			return
		}

		src := final
		if k.splitView && x < w/2 {
			src = working
		}
		ex, ey := elementOf(k, x, y)
		r := src.At(ex, ey)
		rng := newLaneRNG(f.seed, uint32(y*w+x), stageShade)

		var diffuse geom.Vec3
		if !r.IsEmpty() {
			c := p.integ.contribution(s, r.Sample)
			r.TargetPdf = geom.Luminance(c)
			wt := r.ContributionWeight()
			if wt > 0 && (k.visibility == VisibilityNever || p.integ.visible(s, r.Sample)) {
				diffuse = c.Mul(wt)
			}
		}
		diffuse = diffuse.Add(p.integ.extra(k, s, &rng))
		if !diffuse.IsFinite() {
			diffuse = geom.Vec3{}
		}
		color := diffuse
		if k.useEmissive {
			color = color.Add(s.Emission)
		}

		f.color.SetRGB(x, y, color)
		f.diffuse.SetRGB(x, y, diffuse)
		f.specular.SetRGB(x, y, geom.Vec3{})
		f.shadedPixels.Add(1)
	})
}
