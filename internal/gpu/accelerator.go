//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	// Register every native HAL backend (Vulkan, Metal, DX12, GLES).
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/restir"
	"github.com/gogpu/restir/gpucore"
	"github.com/gogpu/restir/internal/cache"
)

// kernelCacheSize bounds the number of compiled stage pipelines.
const kernelCacheSize = 64

var errSoftwareAdapter = errors.New("gpu: software adapter, CPU stages are faster")

// Accelerator runs direct-lighting frames as wgpu compute kernels. It
// implements restir.Accelerator.
//
// A zero Accelerator is usable; Init acquires a device. When no adapter is
// available Init logs the reason and every frame falls back to the CPU.
type Accelerator struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	bindLayout *wgpu.BindGroupLayout
	pipeLayout *wgpu.PipelineLayout
	kernels    *cache.Cache[string, *kernel]
	buffers    frameBuffers

	gpuReady       bool
	externalDevice bool // true when using a shared device (don't release on Close)
}

var (
	_ restir.Accelerator         = (*Accelerator)(nil)
	_ restir.DeviceProviderAware = (*Accelerator)(nil)
)

// kernel is the compiled pipeline of one stage variant.
type kernel struct {
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

func (k *kernel) release() {
	if k.pipeline != nil {
		k.pipeline.Release()
	}
	if k.module != nil {
		k.module.Release()
	}
}

// Name returns "wgpu".
func (a *Accelerator) Name() string { return "wgpu" }

// Init requests an adapter and a device. It never fails: without a usable
// GPU the accelerator stays registered but declines every frame.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		slogger().Warn("gpu: init failed, using CPU stages", "err", err)
		a.destroyLayouts()
		a.releaseDevice()
	}
	return nil
}

func (a *Accelerator) initGPU() error {
	inst, err := wgpu.CreateInstance(&wgpu.InstanceDescriptor{Backends: wgpu.BackendsPrimary})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = inst

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.adapter = adapter
	info := adapter.Info()
	if info.DeviceType == gputypes.DeviceTypeCPU {
		return fmt.Errorf("%w: %s", errSoftwareAdapter, info.Name)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "restir"})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.device = device
	a.queue = device.Queue()

	if err := a.createLayouts(); err != nil {
		return err
	}
	a.gpuReady = true
	slogger().Info("gpu: accelerator ready", "adapter", info.Name)
	return nil
}

// Close releases every GPU resource. A shared device is left alive.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyLayouts()
	if a.externalDevice {
		a.device = nil
		a.queue = nil
	} else {
		a.releaseDevice()
	}
	a.gpuReady = false
	a.externalDevice = false
}

// SetLogger receives the logger propagated by restir.SetLogger.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetDeviceProvider switches the accelerator to a device owned by the
// host application. The provider must be a gpucontext.DeviceProvider
// whose Device and Queue are *wgpu.Device and *wgpu.Queue. Software
// adapters are declined and the current device is kept.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	dp, ok := provider.(gpucontext.DeviceProvider)
	if !ok {
		return fmt.Errorf("gpu: provider %T is not a gpucontext.DeviceProvider", provider)
	}
	if info := dp.AdapterInfo(); info.Type == gpucontext.AdapterTypeSoftware {
		slogger().Info("gpu: declining shared software adapter", "adapter", info.Name)
		return nil
	}
	device, ok := dp.Device().(*wgpu.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider device %T is not *wgpu.Device", dp.Device())
	}
	queue, ok := dp.Queue().(*wgpu.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider queue %T is not *wgpu.Queue", dp.Queue())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyLayouts()
	if !a.externalDevice {
		a.releaseDevice()
	}
	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createLayouts(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu: create layouts with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("gpu: switched to shared device")
	return nil
}

// CanAccelerate reports whether frames of cfg run on the GPU. The kernels
// trace no rays, so visibility reuse and the global integrator stay on
// the CPU, as does split view.
func (a *Accelerator) CanAccelerate(cfg restir.Config, _ restir.Features) bool {
	a.mu.Lock()
	ready := a.gpuReady
	a.mu.Unlock()
	return ready &&
		cfg.Integrator == restir.IntegratorDirect &&
		cfg.VisibilityReuse == restir.VisibilityNever &&
		!cfg.SplitView
}

// ExecuteFrame uploads the frame, runs the stage kernels in one
// submission and reads the working store, the spatial store and the
// outputs back into job.
func (a *Accelerator) ExecuteFrame(ctx context.Context, job *restir.FrameJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return restir.ErrFallbackToCPU
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	plan, err := gpucore.NewFramePlan(gpucore.FrameConfig{
		Width:       job.Width,
		Height:      job.Height,
		StoreWidth:  job.Current.Width,
		StoreHeight: job.Current.Height,
		Temporal:    job.Temporal,
	})
	if err != nil {
		return err
	}

	pipes := make([]*kernel, len(plan.Passes))
	for i, p := range plan.Passes {
		k, err := a.kernel(p.Stage, job.Defines[p.Stage])
		if err != nil {
			return err
		}
		pipes[i] = k
	}

	if err := a.upload(job); err != nil {
		return err
	}
	if err := a.encode(plan, pipes); err != nil {
		return err
	}
	return a.readback(ctx, job)
}

// kernel returns the cached pipeline of a stage variant.
func (a *Accelerator) kernel(stage string, d restir.Defines) (*kernel, error) {
	return a.kernels.GetOrBuild(stage+":"+d.Key(), func() (*kernel, error) {
		src, _, err := compileKernel(stage, d)
		if err != nil {
			return nil, err
		}
		label := "restir-" + stage
		module, err := a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{Label: label, WGSL: src})
		if err != nil {
			return nil, fmt.Errorf("gpu: create %s module: %w", stage, err)
		}
		pipeline, err := a.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:      label,
			Layout:     a.pipeLayout,
			Module:     module,
			EntryPoint: "main",
		})
		if err != nil {
			module.Release()
			return nil, fmt.Errorf("gpu: create %s pipeline: %w", stage, err)
		}
		slogger().Debug("gpu: kernel built", "stage", stage, "defines", d.Key())
		return &kernel{module: module, pipeline: pipeline}, nil
	})
}

// createLayouts builds the shared bind group and pipeline layouts from
// the gpucore slot table.
func (a *Accelerator) createLayouts() error {
	entries := make([]wgpu.BindGroupLayoutEntry, gpucore.BindingCount)
	for i, kind := range gpucore.BindingKinds {
		t := gputypes.BufferBindingTypeStorage
		switch kind {
		case gpucore.BindingUniform:
			t = gputypes.BufferBindingTypeUniform
		case gpucore.BindingReadOnly:
			t = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}

	bgl, err := a.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "restir-bindings",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.bindLayout = bgl

	pl, err := a.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "restir-pipeline-layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.pipeLayout = pl

	a.kernels = cache.New[string, *kernel](kernelCacheSize)
	a.kernels.OnEvict(func(_ string, k *kernel) { k.release() })
	return nil
}

func (a *Accelerator) destroyLayouts() {
	a.buffers.release()
	if a.kernels != nil {
		a.kernels.Clear()
		a.kernels = nil
	}
	if a.pipeLayout != nil {
		a.pipeLayout.Release()
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.bindLayout.Release()
		a.bindLayout = nil
	}
	a.gpuReady = false
}

func (a *Accelerator) releaseDevice() {
	if a.device != nil {
		a.device.Release()
		a.device = nil
	}
	a.queue = nil
	if a.adapter != nil {
		a.adapter.Release()
		a.adapter = nil
	}
	if a.instance != nil {
		a.instance.Release()
		a.instance = nil
	}
}
