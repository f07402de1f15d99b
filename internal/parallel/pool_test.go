package parallel

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolExecuteAll(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var n atomic.Int64
	jobs := make([]func(), 100)
	for i := range jobs {
		jobs[i] = func() { n.Add(1) }
	}
	p.ExecuteAll(jobs)

	if got := n.Load(); got != 100 {
		t.Errorf("executed %d jobs, want 100", got)
	}
}

func TestWorkerPoolDefaultsToGOMAXPROCS(t *testing.T) {
	p := NewWorkerPool(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Errorf("Workers() = %d, want >= 1", p.Workers())
	}
}

func TestWorkerPoolClosedRunsInline(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	p.Close()

	if p.IsRunning() {
		t.Fatal("expected pool to be stopped")
	}
	ran := 0
	p.ExecuteAll([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran %d jobs on closed pool, want 2", ran)
	}
}

func TestTilesCoverGrid(t *testing.T) {
	tests := []struct {
		w, h  int
		tiles int
	}{
		{0, 10, 0},
		{1, 1, 1},
		{32, 8, 1},
		{33, 8, 2},
		{100, 20, 4 * 3},
	}
	for _, tt := range tests {
		tiles := Tiles(tt.w, tt.h)
		if len(tiles) != tt.tiles {
			t.Errorf("Tiles(%d, %d) returned %d tiles, want %d", tt.w, tt.h, len(tiles), tt.tiles)
		}
		area := 0
		for _, tile := range tiles {
			area += tile.Width() * tile.Height()
		}
		if area != tt.w*tt.h && tt.w > 0 && tt.h > 0 {
			t.Errorf("Tiles(%d, %d) cover %d lanes, want %d", tt.w, tt.h, area, tt.w*tt.h)
		}
	}
}

func TestDispatch2DVisitsEveryLaneOnce(t *testing.T) {
	p := NewWorkerPool(3)
	defer p.Close()

	const w, h = 70, 19
	var hits [w * h]atomic.Int32
	if err := Dispatch2D(context.Background(), p, w, h, func(x, y int) {
		hits[y*w+x].Add(1)
	}); err != nil {
		t.Fatalf("Dispatch2D() error = %v", err)
	}
	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("lane %d visited %d times, want 1", i, got)
		}
	}
}

func TestDispatch2DCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var n atomic.Int32
	err := Dispatch2D(ctx, nil, 64, 64, func(int, int) { n.Add(1) })
	if err != context.Canceled {
		t.Errorf("Dispatch2D() error = %v, want context.Canceled", err)
	}
	if n.Load() != 0 {
		t.Errorf("cancelled dispatch ran %d lanes", n.Load())
	}
}
