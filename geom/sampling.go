package geom

import "math"

// CosineHemisphere maps two uniform numbers to a cosine-weighted direction
// around +Z. It returns the direction and its solid-angle density.
func CosineHemisphere(u1, u2 float32) (Vec3, float32) {
	x, y := ConcentricDisk(u1, u2)
	z := float32(math.Sqrt(float64(max(0, 1-x*x-y*y))))
	return Vec3{x, y, z}, z / math.Pi
}

// ConcentricDisk maps the unit square to the unit disk (Shirley-Chiu).
func ConcentricDisk(u1, u2 float32) (float32, float32) {
	ox := 2*u1 - 1
	oy := 2*u2 - 1
	if ox == 0 && oy == 0 {
		return 0, 0
	}
	var r, theta float64
	if abs(ox) > abs(oy) {
		r = float64(ox)
		theta = math.Pi / 4 * float64(oy/ox)
	} else {
		r = float64(oy)
		theta = math.Pi/2 - math.Pi/4*float64(ox/oy)
	}
	return float32(r * math.Cos(theta)), float32(r * math.Sin(theta))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
