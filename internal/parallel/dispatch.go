package parallel

import "context"

// Dispatch2D runs fn once for every (x, y) of a w x h grid on the pool and
// waits for completion. Cancellation is observed per tile: once ctx is
// done the remaining tiles are skipped and ctx.Err() is returned. Lanes
// already running complete.
//
// A nil pool runs the dispatch on the calling goroutine.
func Dispatch2D(ctx context.Context, p *WorkerPool, w, h int, fn func(x, y int)) error {
	tiles := Tiles(w, h)
	run := func(t Tile) {
		if ctx.Err() != nil {
			return
		}
		for y := t.Y0; y < t.Y1; y++ {
			for x := t.X0; x < t.X1; x++ {
				fn(x, y)
			}
		}
	}

	if p == nil || len(tiles) == 1 {
		for _, t := range tiles {
			run(t)
		}
		return ctx.Err()
	}

	jobs := make([]func(), len(tiles))
	for i, t := range tiles {
		jobs[i] = func() { run(t) }
	}
	p.ExecuteAll(jobs)
	return ctx.Err()
}
