package gpucore

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/restir"
	"github.com/gogpu/restir/geom"
)

// Layout sizes in bytes. They must match the WGSL structs.
const (
	// ParamsSize is the size of the Params uniform.
	ParamsSize = 32

	// LightSize is the size of one Light.
	LightSize = 80

	// SurfaceSize is the size of one Surface.
	SurfaceSize = 80

	// ReservoirSize is the size of one Reservoir.
	ReservoirSize = 64

	// MotionSize is the size of one motion vector (vec2<f32>).
	MotionSize = 8

	// OutputTexelSize is the size of one output pixel: color then diffuse,
	// both vec4<f32>.
	OutputTexelSize = 32
)

// Params is the per-frame uniform block.
type Params struct {
	Width, Height           uint32
	StoreWidth, StoreHeight uint32
	Seed                    uint32
	LightCount              uint32
	_                       [2]uint32
}

// Light mirrors the WGSL Light struct.
type Light struct {
	Position [4]float32
	Edge0    [4]float32
	Edge1    [4]float32
	Radiance [4]float32
	Kind     uint32
	_        [3]uint32
}

// Surface mirrors the WGSL Surface struct.
type Surface struct {
	Position [4]float32
	Normal   [4]float32
	Albedo   [4]float32
	Emission [4]float32
	Material uint32
	Valid    uint32
	Depth    float32
	_        uint32
}

// Reservoir mirrors the WGSL Reservoir struct holding a light sample.
type Reservoir struct {
	Position  [4]float32
	Normal    [4]float32
	Radiance  [4]float32
	WeightSum float32
	M         uint32
	TargetPdf float32
	Light     uint32
}

func vec4(v geom.Vec3) [4]float32 {
	return [4]float32{v[0], v[1], v[2], 0}
}

func vec3(v [4]float32) geom.Vec3 {
	return geom.Vec3{v[0], v[1], v[2]}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// NewSurface converts a host surface.
func NewSurface(s *restir.Surface) Surface {
	return Surface{
		Position: vec4(s.Position),
		Normal:   vec4(s.Normal),
		Albedo:   vec4(s.Albedo),
		Emission: vec4(s.Emission),
		Material: s.Material,
		Valid:    b2u(s.Valid),
		Depth:    s.Depth,
	}
}

// NewLight converts a host light.
func NewLight(l restir.Light) Light {
	return Light{
		Position: vec4(l.Position),
		Edge0:    vec4(l.Edge0),
		Edge1:    vec4(l.Edge1),
		Radiance: vec4(l.Radiance),
		Kind:     uint32(l.Kind),
	}
}

// NewReservoir converts a host reservoir.
func NewReservoir(r restir.Reservoir[restir.LightSample]) Reservoir {
	return Reservoir{
		Position:  vec4(r.Sample.Position),
		Normal:    vec4(r.Sample.Normal),
		Radiance:  vec4(r.Sample.Radiance),
		WeightSum: r.WeightSum,
		M:         r.M,
		TargetPdf: r.TargetPdf,
		Light:     r.Sample.Light,
	}
}

// Host converts back to the host representation.
func (r Reservoir) Host() restir.Reservoir[restir.LightSample] {
	return restir.Reservoir[restir.LightSample]{
		Sample: restir.LightSample{
			Light:    r.Light,
			Position: vec3(r.Position),
			Normal:   vec3(r.Normal),
			Radiance: vec3(r.Radiance),
		},
		WeightSum: r.WeightSum,
		M:         r.M,
		TargetPdf: r.TargetPdf,
	}
}

// writer appends little-endian words to a fixed buffer.
type writer struct {
	buf []byte
	off int
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) vec4(v [4]float32) {
	for _, c := range v {
		w.f32(c)
	}
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) vec4() [4]float32 {
	return [4]float32{r.f32(), r.f32(), r.f32(), r.f32()}
}

// Bytes returns the uniform contents.
func (p Params) Bytes() []byte {
	w := writer{buf: make([]byte, ParamsSize)}
	w.u32(p.Width)
	w.u32(p.Height)
	w.u32(p.StoreWidth)
	w.u32(p.StoreHeight)
	w.u32(p.Seed)
	w.u32(p.LightCount)
	return w.buf
}

// PackLights packs lights. An empty list packs one zero light because
// storage bindings must not be empty; Params.LightCount stays zero.
func PackLights(lights []restir.Light) []byte {
	w := writer{buf: make([]byte, max(1, len(lights))*LightSize)}
	for _, l := range lights {
		g := NewLight(l)
		w.vec4(g.Position)
		w.vec4(g.Edge0)
		w.vec4(g.Edge1)
		w.vec4(g.Radiance)
		w.u32(g.Kind)
		w.off += 12
	}
	return w.buf
}

// PackSurfaces packs surfaces.
func PackSurfaces(surfaces []restir.Surface) []byte {
	w := writer{buf: make([]byte, max(1, len(surfaces))*SurfaceSize)}
	for i := range surfaces {
		g := NewSurface(&surfaces[i])
		w.vec4(g.Position)
		w.vec4(g.Normal)
		w.vec4(g.Albedo)
		w.vec4(g.Emission)
		w.u32(g.Material)
		w.u32(g.Valid)
		w.f32(g.Depth)
		w.off += 4
	}
	return w.buf
}

// PackMotion packs motion vectors; nil packs n zero vectors.
func PackMotion(motion []f32.Vec2, n int) []byte {
	w := writer{buf: make([]byte, max(1, n)*MotionSize)}
	for _, m := range motion {
		w.f32(m[0])
		w.f32(m[1])
	}
	return w.buf
}

// PackReservoirs packs the reservoirs of a store.
func PackReservoirs(s *restir.Store[restir.LightSample]) []byte {
	w := writer{buf: make([]byte, max(1, s.Len())*ReservoirSize)}
	for _, r := range s.Reservoirs {
		g := NewReservoir(r)
		w.vec4(g.Position)
		w.vec4(g.Normal)
		w.vec4(g.Radiance)
		w.f32(g.WeightSum)
		w.u32(g.M)
		w.f32(g.TargetPdf)
		w.u32(g.Light)
	}
	return w.buf
}

// UnpackReservoirs decodes data into the reservoirs of s.
func UnpackReservoirs(data []byte, s *restir.Store[restir.LightSample]) error {
	if want := s.Len() * ReservoirSize; len(data) < want {
		return fmt.Errorf("gpucore: reservoir data too short: %d < %d bytes", len(data), want)
	}
	r := reader{buf: data}
	for i := range s.Reservoirs {
		g := Reservoir{
			Position: r.vec4(),
			Normal:   r.vec4(),
			Radiance: r.vec4(),
		}
		g.WeightSum = r.f32()
		g.M = r.u32()
		g.TargetPdf = r.f32()
		g.Light = r.u32()
		s.Reservoirs[i] = g.Host()
	}
	return nil
}

// UnpackOutputs decodes the interleaved output buffer into the color and
// diffuse textures. Specular is cleared, the direct integrator has none.
func UnpackOutputs(data []byte, color, diffuse, specular *restir.Texture) error {
	n := len(color.Pix)
	if want := n * OutputTexelSize; len(data) < want {
		return fmt.Errorf("gpucore: output data too short: %d < %d bytes", len(data), want)
	}
	r := reader{buf: data}
	for i := range n {
		color.Pix[i] = f32.Vec4(r.vec4())
		diffuse.Pix[i] = f32.Vec4(r.vec4())
	}
	if specular != nil {
		for i := range specular.Pix {
			specular.Pix[i] = f32.Vec4{0, 0, 0, 1}
		}
	}
	return nil
}
