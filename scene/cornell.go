package scene

import (
	"github.com/gogpu/restir"
	"github.com/gogpu/restir/geom"
)

// CornellBox builds a unit Cornell box (x, y and z in [0, 1], open
// towards -z) with two spheres, a quad light under the ceiling and a
// small emissive panel. The camera looks into the box from the open side.
func CornellBox() *Scene {
	s := New(Camera{
		Position: geom.V3(0.5, 0.5, -0.9),
		Target:   geom.V3(0.5, 0.5, 0.5),
		Up:       geom.V3(0, 1, 0),
		FovY:     40,
	})

	white := s.AddMaterial(restir.Material{Albedo: geom.Splat(0.73)})
	red := s.AddMaterial(restir.Material{Albedo: geom.V3(0.65, 0.05, 0.05)})
	green := s.AddMaterial(restir.Material{Albedo: geom.V3(0.12, 0.45, 0.15)})
	glow := s.AddMaterial(restir.Material{Albedo: geom.Splat(0.5), Emission: geom.V3(2, 1.6, 0.8)})

	x := geom.V3(1, 0, 0)
	y := geom.V3(0, 1, 0)
	z := geom.V3(0, 0, 1)
	origin := geom.Vec3{}

	s.AddQuad(Quad{Corner: origin, Edge0: x, Edge1: z, Material: white})           // floor
	s.AddQuad(Quad{Corner: geom.V3(0, 1, 0), Edge0: z, Edge1: x, Material: white}) // ceiling
	s.AddQuad(Quad{Corner: geom.V3(0, 0, 1), Edge0: y, Edge1: x, Material: white}) // back
	s.AddQuad(Quad{Corner: origin, Edge0: z, Edge1: y, Material: red})             // left
	s.AddQuad(Quad{Corner: geom.V3(1, 0, 0), Edge0: y, Edge1: z, Material: green}) // right
	s.AddQuad(Quad{Corner: geom.V3(0.05, 0.05, 0.99), Edge0: geom.V3(0.15, 0, 0), Edge1: geom.V3(0, 0.1, 0), Material: glow})

	s.AddSphere(Sphere{Center: geom.V3(0.3, 0.18, 0.6), Radius: 0.18, Material: white})
	s.AddSphere(Sphere{Center: geom.V3(0.7, 0.14, 0.35), Radius: 0.14, Material: white})

	s.AddLight(restir.Light{
		Kind:     restir.LightQuad,
		Position: geom.V3(0.35, 0.999, 0.35),
		Edge0:    geom.V3(0.3, 0, 0),
		Edge1:    geom.V3(0, 0, 0.3),
		Radiance: geom.Splat(12),
	})
	s.AddLight(restir.Light{
		Kind:     restir.LightPoint,
		Position: geom.V3(0.8, 0.8, 0.2),
		Radiance: geom.V3(0.4, 0.35, 0.3),
	})

	s.EndFrame()
	return s
}
