package restir

import "time"

// FrameStats describes the last executed frame.
type FrameStats struct {
	Frame        uint64
	Seed         uint32
	Accelerator  string // empty when the CPU stages ran
	Reallocated  bool
	TemporalRan  bool
	SpatialRan   bool
	TemporalHits uint64 // elements merged with valid history
	SpatialHits  uint64 // neighbour merges
	Shaded       uint64 // pixels with a valid surface
	Duration     time.Duration
}

// Stats aggregates pass activity since construction.
type Stats struct {
	Frames        uint64
	Aborted       uint64
	Reallocations uint64
	StoreLen      int
	Kernels       KernelStats
	Last          FrameStats
}
