package restir

import "fmt"

// PingPong holds the two reservoir stores that alternate between
// "previous frame" and "this frame" roles.
//
// Read returns last frame's reservoirs and Write the working store of the
// current frame. Swap promotes the working store to history; the pass
// calls it exactly once per executed frame, after final shading.
type PingPong[S any] struct {
	bufs [2]*Store[S]
	cur  int
}

// NewPingPong allocates both stores with w*h elements.
func NewPingPong[S any](w, h int) *PingPong[S] {
	return &PingPong[S]{bufs: [2]*Store[S]{NewStore[S](w, h), NewStore[S](w, h)}}
}

// Read returns the previous frame's store.
func (p *PingPong[S]) Read() *Store[S] {
	return p.bufs[p.cur]
}

// Write returns the current frame's store.
func (p *PingPong[S]) Write() *Store[S] {
	return p.bufs[1-p.cur]
}

// Swap exchanges the roles of the two stores.
func (p *PingPong[S]) Swap() {
	p.cur = 1 - p.cur
}

// Len returns the element count of each store.
func (p *PingPong[S]) Len() int {
	return p.bufs[0].Len()
}

// assertNoAlias panics with ErrPingPongHazard when write is one of the
// stores a stage reads from other pixels.
func assertNoAlias[S any](stage stageID, write *Store[S], reads ...*Store[S]) {
	for _, r := range reads {
		if r == write {
			panic(fmt.Errorf("%w: %s", ErrPingPongHazard, stage))
		}
	}
}
