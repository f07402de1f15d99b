package restir

import (
	"math/rand/v2"
	"time"
)

// Stream is the per-pass pseudorandom engine. It is seeded once when the
// pass is constructed and advanced once per executed frame; every random
// number a stage consumes is derived from the frame seed it yields.
type Stream struct {
	rng  *rand.Rand
	seed uint64
}

// NewStream creates a stream. A zero seed selects a time-based seed.
func NewStream(seed uint64) *Stream {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Stream{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Next returns the next frame seed.
func (s *Stream) Next() uint32 {
	return s.rng.Uint32()
}

// stageID separates the lane streams of the pipeline stages so that
// skipping one stage leaves the draws of the others unchanged.
type stageID uint32

const (
	stageGenerate stageID = iota + 1
	stageTemporal
	stageSpatial
	stageShade
)

// String returns the stage name used in logs, stats and kernel labels.
func (s stageID) String() string {
	switch s {
	case stageGenerate:
		return "generate"
	case stageTemporal:
		return "temporal"
	case stageSpatial:
		return "spatial"
	case stageShade:
		return "shade"
	default:
		return "unknown"
	}
}

// laneRNG is the generator of one pixel invocation. It is a 32-bit PCG
// (RXS-M-XS output) with the same arithmetic as the WGSL kernels.
type laneRNG struct {
	state uint32
}

func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func newLaneRNG(frameSeed, pixel uint32, stage stageID) laneRNG {
	return laneRNG{state: pcgHash(frameSeed ^ pcgHash(pixel^pcgHash(uint32(stage))))}
}

func (r *laneRNG) next() uint32 {
	r.state = r.state*747796405 + 2891336453
	word := ((r.state >> ((r.state >> 28) + 4)) ^ r.state) * 277803737
	return (word >> 22) ^ word
}

// float returns a uniform number in [0, 1).
func (r *laneRNG) float() float32 {
	return float32(r.next()>>8) * (1.0 / (1 << 24))
}
