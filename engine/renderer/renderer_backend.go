package renderer

import (
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the compute backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend on a headless device.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHost selects the CPU backend, which runs each pipeline's HostKernel on a
	// worker pool against host buffers. It needs no GPU and backs the package tests.
	BackendTypeHost
)

// String returns a human readable backend name.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHost:
		return "host"
	default:
		return "unknown"
	}
}

// RendererBackend is the interface every compute backend implements. The Renderer serializes
// calls and resolves pipeline keys before delegating.
type RendererBackend interface {
	// RegisterComputePipeline creates the backend objects for a compute pipeline.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates the buffers a provider is missing plus its bind group.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to populate
	//   - descriptor: the layout descriptor of group 0 of the shader the provider is bound to
	//   - bufferUsageOverrides: extra usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: explicit buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if any resource could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers queues buffer writes ahead of the next submission.
	//
	// Parameters:
	//   - writes: the writes to apply
	//
	// Returns:
	//   - error: ErrDeviceLost if the device refused the writes
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// MapWrite maps a staging region for write, copies data into it, unmaps, and copies
	// it into the provider's buffer.
	//
	// Parameters:
	//   - provider: the provider owning the destination buffer
	//   - binding: the destination binding
	//   - offset: destination byte offset
	//   - data: bytes to copy
	//
	// Returns:
	//   - error: ErrDeviceLost if the map was refused
	MapWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error

	// BeginComputeFrame starts batching compute dispatches.
	//
	// Returns:
	//   - error: ErrDeviceLost if no encoder could be created
	BeginComputeFrame() error

	// EncodeWrite records a buffer write in the current compute frame. It lands only if the
	// frame is submitted, ordered with the frame's dispatches.
	//
	// Parameters:
	//   - provider: the provider owning the destination buffer
	//   - binding: the destination binding
	//   - offset: destination byte offset
	//   - data: bytes to copy, a multiple of 4 long
	//
	// Returns:
	//   - error: ErrNoComputeFrame outside a frame, ErrDeviceLost if staging failed
	EncodeWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error

	// DispatchCompute records one dispatch in the current compute frame.
	//
	// Parameters:
	//   - p: the registered compute pipeline
	//   - provider: the provider bound at group 0
	//   - workGroupCount: workgroups in x, y and z
	//
	// Returns:
	//   - error: ErrNoComputeFrame outside a frame
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CancelComputeFrame discards everything recorded since BeginComputeFrame.
	CancelComputeFrame()

	// EndComputeFrame submits (or, on the Host backend, executes) every recorded write and dispatch in order.
	//
	// Returns:
	//   - error: ErrDeviceLost if submission failed
	EndComputeFrame() error

	// ReadBuffer copies a range of a provider's buffer back to the CPU, waiting for all
	// submitted work first.
	//
	// Parameters:
	//   - provider: the provider owning the buffer
	//   - binding: the binding index
	//   - offset: source byte offset
	//   - size: number of bytes
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: ErrDeviceLost if the map failed
	ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, offset, size uint64) ([]byte, error)

	// Release frees backend-owned objects.
	Release()
}
