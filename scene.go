package restir

import "github.com/gogpu/restir/geom"

// Scene is the host scene as seen by the pass: a light list, ray queries
// and material lookup. Implementations must be safe for concurrent
// queries; the stages trace from many goroutines at once.
type Scene interface {
	// Lights returns the analytic lights. The slice must not change while
	// the scene is bound.
	Lights() []Light

	// Intersect returns the closest hit along r within (r.TMin, r.TMax).
	Intersect(r geom.Ray) (Hit, bool)

	// Occluded reports whether the segment between two points is blocked.
	// The endpoints themselves are excluded.
	Occluded(from, to geom.Vec3) bool

	// Material returns the material with the given id.
	Material(id uint32) Material

	// Environment returns the radiance arriving from direction dir when a
	// ray escapes the scene.
	Environment(dir geom.Vec3) geom.Vec3

	// Updates returns the changes since the previous frame.
	Updates() UpdateFlags

	// Features describes which light types are present.
	Features() Features

	// Aperture returns the camera lens radius; zero for a pinhole.
	Aperture() float32
}

// Hit is a ray-surface intersection.
type Hit struct {
	T        float32
	Position geom.Vec3
	Normal   geom.Vec3
	Material uint32
}

// Material is a Lambertian material with optional emission.
type Material struct {
	Albedo   geom.Vec3
	Emission geom.Vec3
}

// UpdateFlags report per-frame scene changes.
type UpdateFlags uint32

const (
	// GeometryChanged means geometry moved or was added or removed.
	GeometryChanged UpdateFlags = 1 << iota

	// CameraMoved means the camera changed since the last frame.
	CameraMoved

	// LightsChanged means light parameters changed.
	LightsChanged
)

// Features are the scene capabilities that select kernel variants.
type Features uint32

const (
	// FeatureAnalyticLights is set when Lights is non-empty.
	FeatureAnalyticLights Features = 1 << iota

	// FeatureEmissive is set when some material emits light.
	FeatureEmissive

	// FeatureEnvLight is set when Environment is not black.
	FeatureEnvLight
)

// Has reports whether all bits of f are set.
func (fs Features) Has(f Features) bool {
	return fs&f == f
}
