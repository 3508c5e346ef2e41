package pipeline

import (
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// HostKernel executes a single compute invocation on the CPU. It is the Host backend's
// counterpart of a WGSL @compute entry point and must touch only the buffers it is given.
// Invocations of one dispatch may run concurrently; shared words must be accessed through
// the HostBuffer atomic helpers.
//
// Parameters:
//   - globalID: the global invocation id (workgroup id * workgroup size + local id)
//   - buffers: the group 0 host buffers of the dispatched provider, keyed by binding index
type HostKernel func(globalID [3]uint32, buffers map[int]*bind_group_provider.HostBuffer)

// pipeline is the implementation of the Pipeline interface.
// It holds the compute shader, the backend pipeline object, and the optional host kernel.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// computeShader is required to be set before registering the pipeline.
	computeShader shader.Shader

	// computePipeline is the WebGPU compute pipeline, nil until registered with a WebGPU backend.
	computePipeline *wgpu.ComputePipeline

	// hostKernel is executed by the Host backend in place of the WGSL entry point.
	hostKernel HostKernel
}

// Pipeline defines the interface for a compute pipeline. It pairs a WGSL compute shader
// with the WebGPU pipeline object created from it and, for the Host backend, a Go kernel
// that reproduces the shader's behavior on the CPU.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the compute shader of this pipeline, or nil if not set.
	//
	// Returns:
	//   - shader.Shader: the compute shader
	Shader() shader.Shader

	// Pipeline returns the WebGPU compute pipeline, or nil if the pipeline has not been
	// registered with a WebGPU backend.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline or nil
	Pipeline() *wgpu.ComputePipeline

	// HostKernel returns the CPU kernel used by the Host backend, or nil if none was set.
	//
	// Returns:
	//   - HostKernel: the kernel or nil
	HostKernel() HostKernel

	// WorkgroupSize returns the @workgroup_size of the compute shader, or [1, 1, 1] if no shader is set.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release releases the WebGPU compute pipeline if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new compute Pipeline.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) Pipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) HostKernel() HostKernel {
	return p.hostKernel
}

func (p *pipeline) WorkgroupSize() [3]uint32 {
	if p.computeShader == nil {
		return [3]uint32{1, 1, 1}
	}
	return p.computeShader.WorkgroupSize()
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
}
