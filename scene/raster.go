package scene

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir"
)

// GBufferOptions selects the optional channels Rasterize produces.
type GBufferOptions struct {
	Depth  bool
	Motion bool
	ViewW  bool
}

// AllChannels produces every optional channel.
var AllChannels = GBufferOptions{Depth: true, Motion: true, ViewW: true}

// Rasterize casts one primary ray per pixel and writes the visibility
// buffer and normal channels, plus the optional channels selected by opt,
// into rd. Motion vectors point from each pixel to where its surface was
// seen by the previous camera.
func (s *Scene) Rasterize(rd *restir.RenderData, opt GBufferOptions) {
	w, h := rd.DefaultDims()
	s.mu.Lock()
	cur := s.camera.basis(w, h)
	prev := s.prevCam.basis(w, h)
	s.mu.Unlock()

	vbuf := restir.NewTexture(w, h)
	nrm := restir.NewTexture(w, h)
	var depth, mvec, view *restir.Texture
	if opt.Depth {
		depth = restir.NewTexture(w, h)
	}
	if opt.Motion {
		mvec = restir.NewTexture(w, h)
	}
	if opt.ViewW {
		view = restir.NewTexture(w, h)
	}

	for y := range h {
		for x := range w {
			r := cur.ray(x, y)
			hit, ok := s.Intersect(r)
			if !ok {
				continue
			}
			p := hit.Position
			vbuf.Set(x, y, f32.Vec4{p[0], p[1], p[2], float32(hit.Material + 1)})
			nrm.Set(x, y, f32.Vec4{hit.Normal[0], hit.Normal[1], hit.Normal[2], 0})
			if depth != nil {
				depth.Set(x, y, f32.Vec4{cur.depth(p), 0, 0, 0})
			}
			if view != nil {
				v := r.Dir.Neg()
				view.Set(x, y, f32.Vec4{v[0], v[1], v[2], 0})
			}
			if mvec != nil {
				if px, py, ok := prev.project(p); ok {
					mvec.Set(x, y, f32.Vec4{px - float32(x), py - float32(y), 0, 0})
				}
			}
		}
	}

	rd.SetTexture(restir.ChannelVBuffer, vbuf)
	rd.SetTexture(restir.ChannelNormal, nrm)
	rd.SetTexture(restir.ChannelDepth, depth)
	rd.SetTexture(restir.ChannelMotion, mvec)
	rd.SetTexture(restir.ChannelViewW, view)
}
