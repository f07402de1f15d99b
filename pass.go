package restir

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/restir/internal/cache"
	"github.com/gogpu/restir/internal/parallel"
)

// runner is a pipeline with its payload type erased.
type runner interface {
	ensure(w, h int) bool
	execute(f *frame) error
	storeLen() int
	drop()
}

// Pass is the reservoir resampling render pass. It owns the reservoir
// stores, the kernel cache and the random stream, and runs one frame per
// Execute call.
//
// Execute, SetScene and SetConfig serialise on an internal mutex; a Pass
// is meant to be driven from one render loop.
type Pass struct {
	mu sync.Mutex

	cfg      Config
	scene    Scene
	lights   []Light
	features Features

	frameCount uint64
	stream     *Stream
	pool       *parallel.WorkerPool
	kernels    *cache.Cache[string, *kernel]
	run        runner
	accel      Accelerator

	disabled       bool
	refreshPending bool
	sceneRebound   bool
	dofWarned      bool

	stats Stats
}

// NewPass creates a pass in the Unbound state.
//
// The random stream is seeded from cfg.Seed once, here. A device without
// ray queries (WithoutRayQueries) yields a pass that logs
// ErrUnsupportedDevice and produces cleared outputs.
func NewPass(cfg Config, opts ...PassOption) (*Pass, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultPassOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pass{
		cfg:     cfg,
		stream:  NewStream(cfg.Seed),
		pool:    parallel.NewWorkerPool(o.workers),
		kernels: newKernelCache(),
	}
	if o.accelSet {
		p.accel = o.accel
	} else {
		p.accel = RegisteredAccelerator()
	}
	if o.noRayQuery {
		p.disabled = true
		Logger().Error("restir: pass disabled", "err", ErrUnsupportedDevice)
	}
	Logger().Debug("restir: pass created",
		"integrator", cfg.Integrator, "seed", p.stream.Seed(), "workers", p.pool.Workers())
	return p, nil
}

// Close stops the worker pool. The pass must not be used afterwards.
func (p *Pass) Close() {
	p.pool.Close()
}

// Config returns the current configuration.
func (p *Pass) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig validates and installs a new configuration. Any change drops
// the cached kernels and raises RenderOptionsChanged on the next frame.
// Switching integrators discards the reservoir stores; toggling half
// resolution reallocates them on the next frame.
func (p *Pass) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg == p.cfg {
		return nil
	}
	if cfg.Seed != p.cfg.Seed {
		p.stream = NewStream(cfg.Seed)
	}
	if cfg.Integrator != p.cfg.Integrator {
		p.run = nil
	}
	p.cfg = cfg
	p.kernels.Clear()
	p.refreshPending = true
	return nil
}

// Settings returns the configuration as a key/value map.
func (p *Pass) Settings() map[string]any {
	return p.Config().Settings()
}

// ApplySettings applies key/value settings on top of the current
// configuration. Unknown keys are ignored with a warning.
func (p *Pass) ApplySettings(m map[string]any) error {
	cfg, err := p.Config().ApplySettings(m)
	if err != nil {
		return err
	}
	return p.SetConfig(cfg)
}

// Reflect returns the channel declarations.
func (p *Pass) Reflect() Reflection {
	return Reflect()
}

// SetScene binds a scene, or unbinds with nil. Binding resets the frame
// counter and drops the kernel cache and the reservoir stores.
func (p *Pass) SetScene(s Scene) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scene = s
	p.frameCount = 0
	p.kernels.Clear()
	if p.run != nil {
		p.run.drop()
		p.run = nil
	}
	p.dofWarned = false
	p.lights = nil
	p.features = 0
	if s != nil {
		p.lights = slices.Clone(s.Lights())
		p.features = s.Features()
		p.sceneRebound = true
	}
}

// State returns the lifecycle state.
func (p *Pass) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.scene == nil:
		return StateUnbound
	case p.frameCount == 0:
		return StateBoundInitial
	default:
		return StateBoundSteady
	}
}

// FrameCount returns the number of frames executed since the scene was
// bound.
func (p *Pass) FrameCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameCount
}

// Stats returns a snapshot of pass activity.
func (p *Pass) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	if p.run != nil {
		s.StoreLen = p.run.storeLen()
	}
	cs := p.kernels.Stats()
	s.Kernels = KernelStats{Live: cs.Len, Builds: cs.Builds, Hits: cs.Hits, Misses: cs.Misses}
	return s
}

// runner returns the pipeline of the configured integrator.
// Caller must hold p.mu.
func (p *Pass) runner() runner {
	if p.run != nil {
		return p.run
	}
	switch p.cfg.Integrator {
	case IntegratorGlobal:
		p.run = newPipeline[PathSample](&globalIllumination{scene: p.scene, lights: p.lights})
	default:
		p.run = newPipeline[LightSample](&directLighting{scene: p.scene, lights: p.lights})
	}
	return p.run
}

// Execute renders one frame.
//
// Without a bound scene, on a disabled pass or with required inputs
// missing, the outputs are cleared and nil is returned. A geometry change
// on the bound scene after its first frame aborts the frame with
// ErrGeometryChanged before any state is touched. A cancelled ctx aborts between tiles; the history of
// the last completed frame is kept.
func (p *Pass) Execute(ctx context.Context, rd *RenderData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refreshPending {
		rd.raiseRefreshFlags(RenderOptionsChanged)
		p.refreshPending = false
	}
	if p.scene == nil || p.disabled {
		clearOutputs(rd)
		return nil
	}
	// Changes made while building the scene, before its first frame,
	// invalidate nothing.
	if p.frameCount > 0 && p.scene.Updates()&GeometryChanged != 0 {
		p.stats.Aborted++
		return fmt.Errorf("frame %d: %w", p.frameCount, ErrGeometryChanged)
	}
	if missing := missingInputs(rd); len(missing) > 0 {
		Logger().Warn("restir: clearing outputs", "err", ErrMissingInput, "inputs", missing)
		clearOutputs(rd)
		return nil
	}
	if p.sceneRebound {
		rd.raiseRefreshFlags(LightingChanged)
		p.sceneRebound = false
	}

	channels := channelDefines(rd)
	if p.scene.Aperture() > 0 && !channels.Bool("is_valid_"+ChannelViewW) && !p.dofWarned {
		Logger().Warn("restir: depth of field needs viewW input, rendering as pinhole")
		p.dofWarned = true
	}

	start := time.Now()
	w, h := rd.DefaultDims()
	sw, sh := storeDims(w, h, p.cfg.HalfResolution)
	run := p.runner()
	reallocated := run.ensure(sw, sh)
	if reallocated {
		p.stats.Reallocations++
		Logger().Debug("restir: reservoir stores allocated", "width", sw, "height", sh, "elements", sw*sh)
	}

	f := &frame{
		ctx:      ctx,
		pool:     p.pool,
		seed:     p.stream.Next(),
		color:    rd.output(ChannelColor),
		diffuse:  rd.output(ChannelDiffuse),
		specular: rd.output(ChannelSpecular),
	}
	defines := make(map[string]Defines, len(f.kernels))
	for i := range f.kernels {
		stage := stageID(i + 1)
		d := stageDefines(stage, p.cfg, p.features, channels, p.frameCount)
		k, err := p.kernels.GetOrBuild(kernelKey(stage, d), func() (*kernel, error) {
			Logger().Debug("restir: building kernel", "stage", stage, "defines", d.Key())
			return compileKernel(stage, d)
		})
		if err != nil {
			return err
		}
		f.kernels[i] = k
		defines[stage.String()] = d
	}
	f.gbuf = loadGBuffer(rd, p.scene, channels)

	accelName := ""
	err := p.accelerate(f, defines)
	switch {
	case err == nil:
		accelName = p.accel.Name()
	case errors.Is(err, ErrFallbackToCPU):
		err = run.execute(f)
	default:
		Logger().Warn("restir: accelerator failed, falling back to CPU", "err", err)
		err = run.execute(f)
	}
	if err != nil {
		return fmt.Errorf("frame %d: %w", p.frameCount, err)
	}

	p.stats.Frames++
	p.stats.Last = FrameStats{
		Frame:        p.frameCount,
		Seed:         f.seed,
		Accelerator:  accelName,
		Reallocated:  reallocated,
		TemporalRan:  f.kernel(stageTemporal).temporal && !reallocated,
		SpatialRan:   f.kernel(stageSpatial).spatial,
		TemporalHits: f.temporalMerges.Load(),
		SpatialHits:  f.spatialMerges.Load(),
		Shaded:       f.shadedPixels.Load(),
		Duration:     time.Since(start),
	}
	p.frameCount++
	Logger().Debug("restir: frame done",
		"frame", p.stats.Last.Frame, "duration", p.stats.Last.Duration,
		"temporal", p.stats.Last.TemporalHits, "spatial", p.stats.Last.SpatialHits)
	return nil
}

// accelerate offers the frame to the accelerator. Only direct lighting
// is covered. Caller must hold p.mu.
func (p *Pass) accelerate(f *frame, defines map[string]Defines) error {
	if p.accel == nil || !p.accel.CanAccelerate(p.cfg, p.features) {
		return ErrFallbackToCPU
	}
	di, ok := p.run.(*pipeline[LightSample])
	if !ok {
		return ErrFallbackToCPU
	}
	job := &FrameJob{
		Width:        f.gbuf.width,
		Height:       f.gbuf.height,
		Seed:         f.seed,
		Defines:      defines,
		Temporal:     f.kernel(stageTemporal).temporal && !di.fresh,
		Spatial:      f.kernel(stageSpatial).spatial,
		Surfaces:     f.gbuf.surfaces,
		Motion:       f.gbuf.motion,
		Lights:       p.lights,
		History:      di.history.Read(),
		Current:      di.history.Write(),
		SpatialStore: di.spatial,
		Color:        f.color,
		Diffuse:      f.diffuse,
		Specular:     f.specular,
	}
	if err := p.accel.ExecuteFrame(f.ctx, job); err != nil {
		return err
	}
	di.history.Swap()
	di.fresh = false
	return nil
}
