package restir

// Store is a flat array of reservoirs, one per resampling pixel,
// addressed y*Width + x. Alongside each reservoir it keeps the surface
// the reservoir was produced for, which the next frame's temporal
// validity test compares against.
type Store[S any] struct {
	Width, Height int

	Reservoirs []Reservoir[S]
	Surfaces   []Surface
}

// NewStore allocates an empty store of w*h elements.
func NewStore[S any](w, h int) *Store[S] {
	return &Store[S]{
		Width:      w,
		Height:     h,
		Reservoirs: make([]Reservoir[S], w*h),
		Surfaces:   make([]Surface, w*h),
	}
}

// Len returns the element count.
func (s *Store[S]) Len() int {
	return len(s.Reservoirs)
}

// Index returns the element index of (x, y).
func (s *Store[S]) Index(x, y int) int {
	return y*s.Width + x
}

// InBounds reports whether (x, y) addresses an element.
func (s *Store[S]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

// At returns the reservoir at (x, y).
func (s *Store[S]) At(x, y int) Reservoir[S] {
	return s.Reservoirs[s.Index(x, y)]
}

// Reset empties every reservoir and surface.
func (s *Store[S]) Reset() {
	clear(s.Reservoirs)
	clear(s.Surfaces)
}

// storeDims returns the resampling grid for a frame of w*h pixels.
// Half resolution rounds up so that every pixel maps to an element.
func storeDims(w, h int, half bool) (int, int) {
	if !half {
		return w, h
	}
	return (w + 1) / 2, (h + 1) / 2
}
