package restir

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir/geom"
)

// Surface is the shading point of a pixel reconstructed from the
// visibility buffer.
type Surface struct {
	Position geom.Vec3
	Normal   geom.Vec3
	ViewDir  geom.Vec3 // towards the camera; zero without viewW
	Depth    float32   // zero without a depth input
	Material uint32
	Albedo   geom.Vec3
	Emission geom.Vec3
	Valid    bool
}

// brdf returns the Lambertian reflectance albedo/pi.
func (s *Surface) brdf() geom.Vec3 {
	return s.Albedo.Mul(1 / math.Pi)
}

// similar reports whether o can share reservoirs with s: same material,
// normals within normalT and, when both depths are known, a relative
// depth difference below depthT.
func (s *Surface) similar(o *Surface, depthT, normalT float32) bool {
	if !s.Valid || !o.Valid || s.Material != o.Material {
		return false
	}
	if s.Normal.Dot(o.Normal) < normalT {
		return false
	}
	if s.Depth > 0 && o.Depth > 0 {
		if abs32(s.Depth-o.Depth) > depthT*max(s.Depth, o.Depth) {
			return false
		}
	}
	return true
}

// gbuffer is the per-frame surface set decoded from the input channels.
type gbuffer struct {
	width, height int
	surfaces      []Surface
	motion        []f32.Vec2 // nil without a motion input
}

func (g *gbuffer) at(x, y int) *Surface {
	return &g.surfaces[y*g.width+x]
}

// motionAt returns the pixel offset to the previous frame.
func (g *gbuffer) motionAt(x, y int) f32.Vec2 {
	if g.motion == nil {
		return f32.Vec2{}
	}
	return g.motion[y*g.width+x]
}

// loadGBuffer decodes the input channels. Optional inputs that are
// absent leave the corresponding surface fields zero.
func loadGBuffer(rd *RenderData, scene Scene, valid Defines) *gbuffer {
	w, h := rd.DefaultDims()
	g := &gbuffer{width: w, height: h, surfaces: make([]Surface, w*h)}

	vbuf := rd.Texture(ChannelVBuffer)
	nrm := rd.Texture(ChannelNormal)
	var depth, view, mvec *Texture
	if valid.Bool("is_valid_" + ChannelDepth) {
		depth = rd.Texture(ChannelDepth)
	}
	if valid.Bool("is_valid_" + ChannelViewW) {
		view = rd.Texture(ChannelViewW)
	}
	if valid.Bool("is_valid_" + ChannelMotion) {
		mvec = rd.Texture(ChannelMotion)
		g.motion = make([]f32.Vec2, w*h)
	}

	for i := range g.surfaces {
		v := vbuf.Pix[i]
		if mvec != nil {
			m := mvec.Pix[i]
			g.motion[i] = f32.Vec2{m[0], m[1]}
		}
		if v[3] < 1 {
			continue
		}
		s := &g.surfaces[i]
		s.Valid = true
		s.Position = geom.Vec3{v[0], v[1], v[2]}
		s.Material = uint32(v[3]) - 1
		n := nrm.Pix[i]
		s.Normal = geom.Vec3{n[0], n[1], n[2]}.Normalize()
		if depth != nil {
			s.Depth = depth.Pix[i][0]
		}
		if view != nil {
			vd := view.Pix[i]
			s.ViewDir = geom.Vec3{vd[0], vd[1], vd[2]}
		}
		m := scene.Material(s.Material)
		s.Albedo = m.Albedo
		s.Emission = m.Emission
	}
	return g
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
