package restir

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/gogpu/restir/internal/parallel"
)

// frame is the transient state of one Execute call shared by the stages.
type frame struct {
	ctx     context.Context
	pool    *parallel.WorkerPool
	gbuf    *gbuffer
	seed    uint32
	kernels [4]*kernel

	color, diffuse, specular *Texture

	temporalMerges atomic.Uint64
	spatialMerges  atomic.Uint64
	shadedPixels   atomic.Uint64
}

func (f *frame) kernel(s stageID) *kernel {
	return f.kernels[s-1]
}

// dispatch launches one lane per element of a w x h grid.
func (f *frame) dispatch(w, h int, lane func(x, y int)) error {
	return parallel.Dispatch2D(f.ctx, f.pool, w, h, lane)
}

// pixelOf maps a store element to the frame pixel whose surface it was
// generated for: the top-left pixel of its 2x2 tile in half resolution.
func (f *frame) pixelOf(k *kernel, x, y int) (int, int) {
	if !k.halfRes {
		return x, y
	}
	return min(2*x, f.gbuf.width-1), min(2*y, f.gbuf.height-1)
}

// elementOf maps a frame pixel, possibly outside the frame, to its store
// element.
func elementOf(k *kernel, x, y int) (int, int) {
	if !k.halfRes {
		return x, y
	}
	return floorDiv2(x), floorDiv2(y)
}

func floorDiv2(v int) int {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}

func roundToInt(v float32) int {
	return int(math.Floor(float64(v) + 0.5))
}
