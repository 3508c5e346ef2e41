package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer sets a GPU buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithHostBuffer sets a Host backend buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the host buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the host buffer for the specified binding
func WithHostBuffer(binding int, buf *HostBuffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.hostBuffers[binding] = buf
	}
}
