package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
	// Staging buffers of writes encoded into the current compute frame, released on submit
	computeFrameStaging []*wgpu.Buffer
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Lighting Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: DefaultDeviceLimits.wgpuLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}

	defer b.releaseComputeFrame()
	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) CancelComputeFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseComputeFrame()
}

// releaseComputeFrame drops the frame encoder and its staging buffers. Work recorded on an
// encoder that was never finished is discarded.
func (b *wgpuRendererBackendImpl) releaseComputeFrame() {
	if b.computeFrameEncoder != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}
	for _, staging := range b.computeFrameStaging {
		staging.Release()
	}
	b.computeFrameStaging = b.computeFrameStaging[:0]
}

func (b *wgpuRendererBackendImpl) EncodeWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoComputeFrame
	}
	dst := provider.Buffer(binding)
	if dst == nil {
		return fmt.Errorf("%s binding %d: no buffer to write", provider.Label(), binding)
	}
	if len(data) == 0 {
		return nil
	}

	staging, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    provider.Label() + " Frame Staging",
		Contents: data,
		Usage:    wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	b.computeFrameStaging = append(b.computeFrameStaging, staging)
	// Copy sizes must be multiples of 4; every record written here is word aligned.
	if err := b.computeFrameEncoder.CopyBufferToBuffer(staging, 0, dst, offset, uint64(len(data))); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return ErrNoComputeFrame
	}

	computePipeline := p.Pipeline()
	if computePipeline == nil {
		return fmt.Errorf("%w: %q has no compute pipeline", ErrPipelineNotFound, p.PipelineKey())
	}
	bindGroup := computeProvider.BindGroup()
	if bindGroup == nil {
		return fmt.Errorf("%s has no bind group", computeProvider.Label())
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader()
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	descriptors := computeShader.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		bgl, bglErr := b.device.CreateBindGroupLayout(&desc)
		if bglErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, bglErr)
		}
		bindGroupLayouts[g] = bgl
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	common.Logger().Debug("compute pipeline created", "pipeline", p.PipelineKey(), "entry", computeShader.EntryPoint())

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
		default:
			return fmt.Errorf("%s binding %d: only buffer bindings are supported", provider.Label(), binding)
		}
		if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
			usage |= overrideUsage
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			bufSize := entry.Buffer.MinBindingSize
			if overrideSize, ok := bufferSizeOverrides[binding]; ok {
				bufSize = overrideSize
			}
			if bufSize == 0 {
				return fmt.Errorf("%s binding %d: buffer size is zero", provider.Label(), binding)
			}
			var bufErr error
			buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
				Size:  bufSize,
				Usage: usage,
			})
			if bufErr != nil {
				return bufErr
			}
			provider.SetBuffer(binding, buf)
		}
		var bindSize uint64 = wgpu.WholeSize
		if entry.Buffer.HasDynamicOffset {
			// A dynamic binding views one slot; the offset picks which.
			bindSize = entry.Buffer.MinBindingSize
		}
		bindGroupEntries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    bindSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := b.queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return fmt.Errorf("%w: %s binding %d: %v", ErrDeviceLost, w.Provider.Label(), w.Binding, err)
		}
	}
	return nil
}

func (b *wgpuRendererBackendImpl) MapWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := provider.Buffer(binding)
	if dst == nil {
		return fmt.Errorf("%s binding %d: no buffer to map", provider.Label(), binding)
	}
	if len(data) == 0 {
		return nil
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            provider.Label() + " Upload Staging",
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	defer staging.Release()

	mapped := staging.GetMappedRange(0, uint(len(data)))
	if mapped == nil {
		return fmt.Errorf("%w: map for write refused", ErrDeviceLost)
	}
	copy(mapped, data)
	if err := staging.Unmap(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	defer encoder.Release()
	if err := encoder.CopyBufferToBuffer(staging, 0, dst, offset, uint64(len(data))); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := provider.Buffer(binding)
	if src == nil {
		return nil, fmt.Errorf("%s binding %d: no buffer to read", provider.Label(), binding)
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Readback Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(src, offset, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	mapped := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		mapped = s == wgpu.BufferMapAsyncStatusSuccess
	})
	b.device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("%w: readback map refused", ErrDeviceLost)
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseComputeFrame()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
