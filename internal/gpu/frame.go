//go:build !nogpu

package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/restir"
	"github.com/gogpu/restir/gpucore"
)

// frameBuffers holds one buffer per binding slot plus the staging buffers
// of the readback. Buffers are reused across frames and recreated only
// when a size changes.
type frameBuffers struct {
	slots   [gpucore.BindingCount]*wgpu.Buffer
	staging [3]*wgpu.Buffer // current, spatial, outputs
	group   *wgpu.BindGroup
}

const (
	stagingCurrent = iota
	stagingSpatial
	stagingOutputs
)

var slotLabels = [gpucore.BindingCount]string{
	gpucore.BindingParams:          "restir-params",
	gpucore.BindingLights:          "restir-lights",
	gpucore.BindingSurfaces:        "restir-surfaces",
	gpucore.BindingMotion:          "restir-motion",
	gpucore.BindingHistory:         "restir-history",
	gpucore.BindingHistorySurfaces: "restir-history-surfaces",
	gpucore.BindingCurrent:         "restir-current",
	gpucore.BindingSpatial:         "restir-spatial",
	gpucore.BindingOutputs:         "restir-outputs",
}

func slotUsage(slot int) wgpu.BufferUsage {
	switch gpucore.BindingKinds[slot] {
	case gpucore.BindingUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case gpucore.BindingReadWrite:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	default:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
}

// ensure makes sure slot has exactly size bytes. It reports whether the
// buffer was recreated.
func (b *frameBuffers) ensure(dev *wgpu.Device, slot int, size uint64) (bool, error) {
	if buf := b.slots[slot]; buf != nil && buf.Size() == size {
		return false, nil
	}
	if b.slots[slot] != nil {
		b.slots[slot].Release()
	}
	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: slotLabels[slot],
		Size:  size,
		Usage: slotUsage(slot),
	})
	if err != nil {
		b.slots[slot] = nil
		return false, fmt.Errorf("gpu: create %s buffer: %w", slotLabels[slot], err)
	}
	b.slots[slot] = buf
	return true, nil
}

func (b *frameBuffers) ensureStaging(dev *wgpu.Device, i int, size uint64) error {
	if buf := b.staging[i]; buf != nil && buf.Size() == size {
		return nil
	}
	if b.staging[i] != nil {
		b.staging[i].Release()
	}
	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "restir-staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.staging[i] = nil
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	b.staging[i] = buf
	return nil
}

func (b *frameBuffers) release() {
	if b.group != nil {
		b.group.Release()
		b.group = nil
	}
	for i, buf := range b.slots {
		if buf != nil {
			buf.Release()
			b.slots[i] = nil
		}
	}
	for i, buf := range b.staging {
		if buf != nil {
			buf.Release()
			b.staging[i] = nil
		}
	}
}

// upload packs job into the slot buffers, (re)creating buffers and the
// bind group as needed.
func (a *Accelerator) upload(job *restir.FrameJob) error {
	pixels := job.Width * job.Height
	data := [gpucore.BindingCount][]byte{
		gpucore.BindingParams: gpucore.Params{
			Width:       uint32(job.Width),
			Height:      uint32(job.Height),
			StoreWidth:  uint32(job.Current.Width),
			StoreHeight: uint32(job.Current.Height),
			Seed:        job.Seed,
			LightCount:  uint32(len(job.Lights)),
		}.Bytes(),
		gpucore.BindingLights:          gpucore.PackLights(job.Lights),
		gpucore.BindingSurfaces:        gpucore.PackSurfaces(job.Surfaces),
		gpucore.BindingMotion:          gpucore.PackMotion(job.Motion, pixels),
		gpucore.BindingHistory:         gpucore.PackReservoirs(job.History),
		gpucore.BindingHistorySurfaces: gpucore.PackSurfaces(job.History.Surfaces),
	}
	storeBytes := uint64(max(1, job.Current.Len()) * gpucore.ReservoirSize)
	outBytes := uint64(pixels * gpucore.OutputTexelSize)

	dirty := a.buffers.group == nil
	for slot := range gpucore.BindingCount {
		size := uint64(len(data[slot]))
		switch slot {
		case gpucore.BindingCurrent, gpucore.BindingSpatial:
			size = storeBytes
		case gpucore.BindingOutputs:
			size = outBytes
		}
		created, err := a.buffers.ensure(a.device, slot, size)
		if err != nil {
			return err
		}
		dirty = dirty || created
	}
	for i, size := range [3]uint64{storeBytes, storeBytes, outBytes} {
		if err := a.buffers.ensureStaging(a.device, i, size); err != nil {
			return err
		}
	}
	if dirty {
		if err := a.createBindGroup(); err != nil {
			return err
		}
	}

	for slot, d := range data {
		if d == nil {
			continue
		}
		if err := a.queue.WriteBuffer(a.buffers.slots[slot], 0, d); err != nil {
			return fmt.Errorf("gpu: write %s: %w", slotLabels[slot], err)
		}
	}
	return nil
}

func (a *Accelerator) createBindGroup() error {
	if a.buffers.group != nil {
		a.buffers.group.Release()
		a.buffers.group = nil
	}
	entries := make([]wgpu.BindGroupEntry, gpucore.BindingCount)
	for slot, buf := range a.buffers.slots {
		entries[slot] = wgpu.BindGroupEntry{
			Binding: uint32(slot),
			Buffer:  buf,
			Size:    buf.Size(),
		}
	}
	bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "restir-frame",
		Layout:  a.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	a.buffers.group = bg
	return nil
}

// encode records every pass of the plan and the staging copies, then
// submits them.
func (a *Accelerator) encode(plan *gpucore.FramePlan, pipes []*kernel) error {
	enc, err := a.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "restir-frame"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	for i, p := range plan.Passes {
		cp, err := enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "restir-" + p.Stage})
		if err != nil {
			return fmt.Errorf("gpu: begin %s pass: %w", p.Stage, err)
		}
		cp.SetPipeline(pipes[i].pipeline)
		cp.SetBindGroup(0, a.buffers.group, nil)
		cp.Dispatch(p.X, p.Y, 1)
		if err := cp.End(); err != nil {
			return fmt.Errorf("gpu: end %s pass: %w", p.Stage, err)
		}
	}

	copies := [3]int{gpucore.BindingCurrent, gpucore.BindingSpatial, gpucore.BindingOutputs}
	for i, slot := range copies {
		src := a.buffers.slots[slot]
		enc.CopyBufferToBuffer(src, 0, a.buffers.staging[i], 0, src.Size())
	}

	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("gpu: finish frame: %w", err)
	}
	if _, err := a.queue.Submit(cb); err != nil {
		cb.Release()
		return fmt.Errorf("gpu: submit frame: %w", err)
	}
	return nil
}

// readback maps the staging buffers and decodes them into job. The
// element surfaces are filled on the host the way the generate stage
// fills them on the CPU.
func (a *Accelerator) readback(ctx context.Context, job *restir.FrameJob) error {
	cur, err := readBuffer(ctx, a.buffers.staging[stagingCurrent])
	if err != nil {
		return err
	}
	sp, err := readBuffer(ctx, a.buffers.staging[stagingSpatial])
	if err != nil {
		return err
	}
	out, err := readBuffer(ctx, a.buffers.staging[stagingOutputs])
	if err != nil {
		return err
	}

	if err := gpucore.UnpackReservoirs(cur, job.Current); err != nil {
		return err
	}
	if err := gpucore.UnpackReservoirs(sp, job.SpatialStore); err != nil {
		return err
	}
	if err := gpucore.UnpackOutputs(out, job.Color, job.Diffuse, job.Specular); err != nil {
		return err
	}
	fillStoreSurfaces(job)
	return nil
}

func readBuffer(ctx context.Context, buf *wgpu.Buffer) ([]byte, error) {
	size := buf.Size()
	if err := buf.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("gpu: map %s: %w", buf.Label(), err)
	}
	defer func() { _ = buf.Unmap() }()

	mr, err := buf.MappedRange(0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: mapped range %s: %w", buf.Label(), err)
	}
	defer mr.Release()
	return append([]byte(nil), mr.Bytes()...), nil
}

// fillStoreSurfaces copies the generating pixel's surface into every
// element of the working and spatial stores.
func fillStoreSurfaces(job *restir.FrameJob) {
	cur := job.Current
	half := job.Defines["generate"].Bool("HALF_RESOLUTION")
	for y := range cur.Height {
		for x := range cur.Width {
			px, py := x, y
			if half {
				px, py = min(2*x, job.Width-1), min(2*y, job.Height-1)
			}
			s := job.Surfaces[py*job.Width+px]
			i := cur.Index(x, y)
			cur.Surfaces[i] = s
			job.SpatialStore.Surfaces[i] = s
		}
	}
}
