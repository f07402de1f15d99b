package scene

import (
	"sync"

	"github.com/gogpu/restir"
	"github.com/gogpu/restir/geom"
)

// Scene is a mutable collection of primitives, lights and materials.
// Queries are safe for concurrent use; mutations must not overlap a frame.
type Scene struct {
	Spheres   []Sphere
	Quads     []Quad
	LightList []restir.Light
	Materials []restir.Material
	Env       geom.Vec3

	mu      sync.Mutex
	camera  Camera
	prevCam Camera
	updates restir.UpdateFlags
}

// New creates an empty scene viewed by cam.
func New(cam Camera) *Scene {
	return &Scene{camera: cam, prevCam: cam}
}

// AddMaterial appends a material and returns its id.
func (s *Scene) AddMaterial(m restir.Material) uint32 {
	s.Materials = append(s.Materials, m)
	return uint32(len(s.Materials) - 1)
}

// AddSphere adds a sphere and flags a geometry change.
func (s *Scene) AddSphere(sp Sphere) {
	s.Spheres = append(s.Spheres, sp)
	s.markUpdate(restir.GeometryChanged)
}

// AddQuad adds a parallelogram and flags a geometry change.
func (s *Scene) AddQuad(q Quad) {
	s.Quads = append(s.Quads, q)
	s.markUpdate(restir.GeometryChanged)
}

// AddLight adds an analytic light.
func (s *Scene) AddLight(l restir.Light) {
	s.LightList = append(s.LightList, l)
	s.markUpdate(restir.LightsChanged)
}

// Camera returns the current camera.
func (s *Scene) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// SetCamera moves the camera. The previous camera is kept for motion
// vectors until EndFrame.
func (s *Scene) SetCamera(c Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = c
	s.updates |= restir.CameraMoved
}

// MarkGeometryChanged flags a geometry change for the next frame.
func (s *Scene) MarkGeometryChanged() {
	s.markUpdate(restir.GeometryChanged)
}

func (s *Scene) markUpdate(f restir.UpdateFlags) {
	s.mu.Lock()
	s.updates |= f
	s.mu.Unlock()
}

// EndFrame clears the update flags and makes the current camera the
// previous one.
func (s *Scene) EndFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = 0
	s.prevCam = s.camera
}

// Lights implements restir.Scene.
func (s *Scene) Lights() []restir.Light {
	return s.LightList
}

// Updates implements restir.Scene.
func (s *Scene) Updates() restir.UpdateFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Features implements restir.Scene.
func (s *Scene) Features() restir.Features {
	var f restir.Features
	if len(s.LightList) > 0 {
		f |= restir.FeatureAnalyticLights
	}
	for _, m := range s.Materials {
		if !m.Emission.IsZero() {
			f |= restir.FeatureEmissive
			break
		}
	}
	if !s.Env.IsZero() {
		f |= restir.FeatureEnvLight
	}
	return f
}

// Aperture implements restir.Scene.
func (s *Scene) Aperture() float32 {
	return s.Camera().Aperture
}

// Material implements restir.Scene. Unknown ids read as black.
func (s *Scene) Material(id uint32) restir.Material {
	if int(id) >= len(s.Materials) {
		return restir.Material{}
	}
	return s.Materials[id]
}

// Environment implements restir.Scene.
func (s *Scene) Environment(geom.Vec3) geom.Vec3 {
	return s.Env
}

// Intersect implements restir.Scene. The returned normal faces the ray
// origin.
func (s *Scene) Intersect(r geom.Ray) (restir.Hit, bool) {
	var hit restir.Hit
	found := false
	for i := range s.Spheres {
		sp := &s.Spheres[i]
		if t, ok := sp.intersect(r); ok {
			r.TMax = t
			p := r.At(t)
			hit = restir.Hit{T: t, Position: p, Normal: sp.normal(p), Material: sp.Material}
			found = true
		}
	}
	for i := range s.Quads {
		q := &s.Quads[i]
		if t, ok := q.intersect(r); ok {
			r.TMax = t
			hit = restir.Hit{T: t, Position: r.At(t), Normal: q.normal(), Material: q.Material}
			found = true
		}
	}
	if found && hit.Normal.Dot(r.Dir) > 0 {
		hit.Normal = hit.Normal.Neg()
	}
	return hit, found
}

// Occluded implements restir.Scene.
func (s *Scene) Occluded(from, to geom.Vec3) bool {
	d := to.Sub(from)
	dist := d.Length()
	if dist <= 2*geom.RayEpsilon {
		return false
	}
	r := geom.NewRay(from, d.Mul(1/dist), dist-geom.RayEpsilon)
	for i := range s.Spheres {
		if _, ok := s.Spheres[i].intersect(r); ok {
			return true
		}
	}
	for i := range s.Quads {
		if _, ok := s.Quads[i].intersect(r); ok {
			return true
		}
	}
	return false
}
