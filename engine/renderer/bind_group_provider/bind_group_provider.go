package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer

	// hostBuffers holds the Host backend buffers for this provider, keyed by binding index.
	hostBuffers map[int]*HostBuffer

	// borrowed marks bindings whose buffers are owned by another provider. Release skips them.
	borrowed map[int]bool
}

// BindGroupProvider defines the interface for components that require bind group resources.
// The clustered lighting system holds one provider per compute kernel and shares buffers
// between them with ShareBuffer. The Renderer creates the GPU (or host) resources.
//
// Usage pattern:
//  1. Create a BindGroupProvider with a debug label
//  2. Optionally borrow buffers owned by another provider with ShareBuffer
//  3. Call Renderer.InitBindGroup(provider, ...) to create the missing buffers and the bind group
//  4. Call Renderer.WriteBuffers / Renderer.MapWrite to update contents
//  5. Pass the provider to Renderer.DispatchCompute
type BindGroupProvider interface {
	// Release releases any resources owned by this provider.
	// Borrowed buffers are forgotten but not released; their owner releases them.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer for a binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns a map of all GPU buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// HostBuffer returns the Host backend buffer for a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *HostBuffer: the host buffer or nil
	HostBuffer(binding int) *HostBuffer

	// HostBuffers returns all Host backend buffers keyed by binding index.
	//
	// Returns:
	//   - map[int]*HostBuffer: host buffers keyed by binding index
	HostBuffers() map[int]*HostBuffer

	// SetBindGroup sets the bind group after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the GPU buffer for a binding.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetHostBuffer sets the Host backend buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the host buffer
	SetHostBuffer(binding int, buf *HostBuffer)

	// ShareBuffer makes this provider bind the buffer (GPU and host) that another provider
	// holds at fromBinding. The owner keeps responsibility for releasing it. Must be called
	// after the owner was initialized and before this provider is.
	//
	// Parameters:
	//   - binding: the binding index on this provider
	//   - from: the owning provider
	//   - fromBinding: the binding index on the owner
	ShareBuffer(binding int, from BindGroupProvider, fromBinding int)

	// Borrowed reports whether the buffer at binding is owned by another provider.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if the buffer was shared into this provider
	Borrowed(binding int) bool
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label used for all resources created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:       label,
		buffers:     make(map[int]*wgpu.Buffer),
		hostBuffers: make(map[int]*HostBuffer),
		borrowed:    make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) HostBuffer(binding int) *HostBuffer {
	return p.hostBuffers[binding]
}

func (p *bindGroupProvider) HostBuffers() map[int]*HostBuffer {
	return p.hostBuffers
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetHostBuffer(binding int, buf *HostBuffer) {
	if p.hostBuffers == nil {
		p.hostBuffers = make(map[int]*HostBuffer)
	}
	p.hostBuffers[binding] = buf
}

func (p *bindGroupProvider) ShareBuffer(binding int, from BindGroupProvider, fromBinding int) {
	if buf := from.Buffer(fromBinding); buf != nil {
		p.SetBuffer(binding, buf)
	}
	if hb := from.HostBuffer(fromBinding); hb != nil {
		p.SetHostBuffer(binding, hb)
	}
	p.borrowed[binding] = true
}

func (p *bindGroupProvider) Borrowed(binding int) bool {
	return p.borrowed[binding]
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil && !p.borrowed[i] {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	for i := range p.hostBuffers {
		delete(p.hostBuffers, i)
	}
	clear(p.borrowed)

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
