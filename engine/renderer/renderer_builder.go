package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithBackend selects the backend the renderer creates. Defaults to BackendTypeWGPU.
//
// Parameters:
//   - backendType: the backend to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backendType RendererBackendType) RendererBuilderOption {
	return func(r *renderer) {
		r.backendType = backendType
	}
}

// WithPipeline pre-registers a single Pipeline in the renderer's pipeline cache under the given key.
// The pipeline is registered with the backend during NewRenderer.
//
// Parameters:
//   - p: the Pipeline to cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPipelines = append(r.pendingPipelines, p)
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithComputeWorkers sets the maximum number of workers the Host backend uses to execute
// workgroups. Values below one select max(NumCPU-1, 1).
//
// Parameters:
//   - n: maximum worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker count to a renderer
func WithComputeWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.computeWorkers = n
	}
}

// WithWorkerIdleTimeout sets how long idle Host backend workers linger.
//
// Parameters:
//   - d: idle timeout
//
// Returns:
//   - RendererBuilderOption: a function that applies the timeout to a renderer
func WithWorkerIdleTimeout(d time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.workerIdleTimeout = d
	}
}

// WithShaderValidation makes the Host backend validate every registered WGSL kernel with naga.
// Validation failures are logged at Warn and do not fail registration, since the Host backend
// never executes the WGSL itself.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - RendererBuilderOption: a function that applies the validation option to a renderer
func WithShaderValidation(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderValidation = enabled
	}
}

// WithFaultInjection installs a hook the Host backend calls before each device operation.
// A non-nil return aborts the operation with that error. Used to exercise device loss and
// resource creation failure paths without a GPU.
//
// Parameters:
//   - fn: receives the operation name ("init_bind_group", "write_buffers", "map_write",
//     "begin_compute", "dispatch", "end_compute", "read_buffer")
//
// Returns:
//   - RendererBuilderOption: a function that installs the hook
func WithFaultInjection(fn func(op string) error) RendererBuilderOption {
	return func(r *renderer) {
		r.faultHook = fn
	}
}
