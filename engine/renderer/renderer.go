package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrDeviceLost reports that the device refused an operation. The frame should be skipped.
	ErrDeviceLost = errors.New("renderer: device lost")

	// ErrPipelineNotFound reports a dispatch against an unregistered pipeline key.
	ErrPipelineNotFound = errors.New("renderer: pipeline not found")

	// ErrNoComputeFrame reports a dispatch outside BeginComputeFrame/EndComputeFrame.
	ErrNoComputeFrame = errors.New("renderer: no compute frame in progress")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	computeWorkers       int
	workerIdleTimeout    time.Duration
	shaderValidation     bool
	faultHook            func(op string) error
	pendingPipelines     []pipeline.Pipeline
}

// Renderer defines the interface for the compute system.
//
// This is a high-level API that hides the backend behind a small, frame-oriented flow:
// register pipelines, initialize bind groups, write buffers, then batch dispatches between
// BeginComputeFrame and EndComputeFrame. The Renderer caches pipelines by key and serializes
// access to the backend.
type Renderer interface {
	// Backend returns the type of the active backend.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Backend() RendererBackendType

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more compute pipelines with the backend, then caches
	// them by PipelineKey. Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// InitBindGroup creates buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Buffers already set on the provider (for example through
	// ShareBuffer) are reused. Buffer usage and size can be overridden per binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers writes all staged buffer writes to the queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: wraps ErrDeviceLost if the device refused the writes
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// MapWrite maps a buffer region for write, copies data in, and unmaps it.
	//
	// Parameters:
	//   - provider: the provider owning the destination buffer
	//   - binding: the destination binding index
	//   - offset: destination byte offset
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: wraps ErrDeviceLost if the map was refused
	MapWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error

	// BeginComputeFrame starts batching all compute dispatches within a frame into one
	// submission. Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: wraps ErrDeviceLost if the command encoder could not be created
	BeginComputeFrame() error

	// EncodeWrite records a buffer write in the current compute frame. Unlike WriteBuffers
	// and MapWrite, the write is discarded with the frame if the frame is cancelled or its
	// submission fails.
	//
	// Parameters:
	//   - provider: the provider owning the destination buffer
	//   - binding: the destination binding index
	//   - offset: destination byte offset
	//   - data: the bytes to copy, a multiple of 4 long
	//
	// Returns:
	//   - error: ErrNoComputeFrame outside a frame, or wraps ErrDeviceLost
	EncodeWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error

	// DispatchCompute looks up the cached compute Pipeline by key, then records a dispatch
	// within the current compute frame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - computeProvider: the BindGroupProvider bound at group 0
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: ErrPipelineNotFound or ErrNoComputeFrame
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CancelComputeFrame discards every write and dispatch recorded since BeginComputeFrame.
	// Use it instead of EndComputeFrame when encoding a frame failed part way.
	CancelComputeFrame()

	// EndComputeFrame submits every write and dispatch recorded since BeginComputeFrame.
	//
	// Returns:
	//   - error: wraps ErrDeviceLost if submission failed
	EndComputeFrame() error

	// ReadBuffer copies a buffer range back to the CPU after all submitted work completes.
	// Intended for debugging and tests.
	//
	// Parameters:
	//   - provider: the provider owning the buffer
	//   - binding: the binding index
	//   - offset: source byte offset
	//   - size: number of bytes
	//
	// Returns:
	//   - []byte: the contents
	//   - error: wraps ErrDeviceLost if the read failed
	ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, offset, size uint64) ([]byte, error)

	// Release releases every cached pipeline and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer and its backend. The WebGPU backend requests a
// headless adapter and device; the Host backend needs no GPU.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend or a pre-registered pipeline could not be created
func NewRenderer(options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                &sync.Mutex{},
		pipelineCache:     make(map[string]pipeline.Pipeline),
		backendType:       BackendTypeWGPU,
		workerIdleTimeout: time.Second,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch r.backendType {
	case BackendTypeHost:
		workers := r.computeWorkers
		if workers < 1 {
			workers = max(runtime.NumCPU()-1, 1)
		}
		r.backend = newHostRendererBackend(workers, r.workerIdleTimeout, r.shaderValidation, r.faultHook)
	case BackendTypeWGPU:
		fallthrough
	default:
		b, err := newWGPURendererBackend(r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}
	common.Logger().Info("renderer created", "backend", r.backendType.String())

	if len(r.pendingPipelines) > 0 {
		if err := r.RegisterPipelines(r.pendingPipelines...); err != nil {
			r.Release()
			return nil, err
		}
		r.pendingPipelines = nil
	}
	return r, nil
}

func (r *renderer) Backend() RendererBackendType {
	return r.backendType
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := DefaultDeviceLimits.CheckWorkgroupSize(p.WorkgroupSize()); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		if err := r.backend.RegisterComputePipeline(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) MapWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.MapWrite(provider, binding, offset, data)
}

func (r *renderer) BeginComputeFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.EndComputeFrame()
}

func (r *renderer) EncodeWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.EncodeWrite(provider, binding, offset, data)
}

func (r *renderer) CancelComputeFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.CancelComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.pipelineCache[pipelineKey]
	if !exists {
		return fmt.Errorf("%w: %q", ErrPipelineNotFound, pipelineKey)
	}

	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, offset, size uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.ReadBuffer(provider, binding, offset, size)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.backend != nil {
		r.backend.Release()
	}
}
