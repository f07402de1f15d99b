package restir

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir/geom"
)

// Texture is a 2D RGBA float32 image, the exchange format of every input
// and output channel.
type Texture struct {
	Width, Height int
	Pix           []f32.Vec4
}

// NewTexture allocates a zeroed w x h texture.
func NewTexture(w, h int) *Texture {
	return &Texture{Width: w, Height: h, Pix: make([]f32.Vec4, w*h)}
}

// At returns the texel at (x, y).
func (t *Texture) At(x, y int) f32.Vec4 {
	return t.Pix[y*t.Width+x]
}

// Set stores the texel at (x, y).
func (t *Texture) Set(x, y int, v f32.Vec4) {
	t.Pix[y*t.Width+x] = v
}

// RGB returns the first three channels at (x, y).
func (t *Texture) RGB(x, y int) geom.Vec3 {
	v := t.Pix[y*t.Width+x]
	return geom.Vec3{v[0], v[1], v[2]}
}

// SetRGB stores c with alpha 1.
func (t *Texture) SetRGB(x, y int, c geom.Vec3) {
	t.Pix[y*t.Width+x] = f32.Vec4{c[0], c[1], c[2], 1}
}

// Clear zeroes every texel.
func (t *Texture) Clear() {
	clear(t.Pix)
}

// RefreshFlags signal downstream consumers that accumulated history must
// be reset.
type RefreshFlags uint32

const (
	// RenderOptionsChanged is raised on the first frame after the
	// configuration changed.
	RenderOptionsChanged RefreshFlags = 1 << iota

	// LightingChanged is raised when the bound scene changed.
	LightingChanged
)

// DictRefreshFlags is the dictionary key holding the RefreshFlags.
const DictRefreshFlags = "refreshFlags"

// RenderData is the per-frame resource set exchanged with the host: named
// textures, the default frame dimensions and a dictionary shared between
// passes.
type RenderData struct {
	width, height int
	textures      map[string]*Texture

	// Dictionary carries loosely typed values between passes of a frame.
	Dictionary map[string]any
}

// NewRenderData creates an empty resource set for a w x h frame.
func NewRenderData(w, h int) *RenderData {
	return &RenderData{
		width:      w,
		height:     h,
		textures:   make(map[string]*Texture),
		Dictionary: make(map[string]any),
	}
}

// DefaultDims returns the frame dimensions.
func (rd *RenderData) DefaultDims() (int, int) {
	return rd.width, rd.height
}

// Texture returns the named texture, or nil if absent.
func (rd *RenderData) Texture(name string) *Texture {
	return rd.textures[name]
}

// SetTexture binds a texture to a channel name. A nil texture unbinds it.
func (rd *RenderData) SetTexture(name string, t *Texture) {
	if t == nil {
		delete(rd.textures, name)
		return
	}
	rd.textures[name] = t
}

// RefreshFlags returns the flags raised so far this frame.
func (rd *RenderData) RefreshFlags() RefreshFlags {
	f, _ := rd.Dictionary[DictRefreshFlags].(RefreshFlags)
	return f
}

func (rd *RenderData) raiseRefreshFlags(f RefreshFlags) {
	rd.Dictionary[DictRefreshFlags] = rd.RefreshFlags() | f
}

// output returns the named output texture, allocating one at the frame
// dimensions if the host did not bind it.
func (rd *RenderData) output(name string) *Texture {
	t := rd.textures[name]
	if t == nil || t.Width != rd.width || t.Height != rd.height {
		t = NewTexture(rd.width, rd.height)
		rd.textures[name] = t
	}
	return t
}
