package renderer

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrWorkgroupTooLarge reports a compute shader whose @workgroup_size exceeds the device limits.
var ErrWorkgroupTooLarge = errors.New("renderer: workgroup exceeds device limits")

// DeviceLimits are the limits the renderer requests from the device and checks pipelines
// against. Both backends use the same values so a pipeline that runs on the Host backend
// also runs on WebGPU.
type DeviceLimits struct {
	// MaxComputeInvocationsPerWorkgroup bounds the product of the workgroup dimensions.
	MaxComputeInvocationsPerWorkgroup uint32
	// MaxComputeWorkgroupSize bounds each workgroup dimension.
	MaxComputeWorkgroupSize [3]uint32
	// MinStorageBufferOffsetAlignment is the alignment of dynamic storage buffer offsets.
	MinStorageBufferOffsetAlignment uint32
	// MaxDynamicStorageBuffersPerPipelineLayout bounds storage bindings with dynamic offsets.
	MaxDynamicStorageBuffersPerPipelineLayout uint32
}

// DefaultDeviceLimits are the WebGPU default limits, which every conformant adapter supports.
var DefaultDeviceLimits = DeviceLimits{
	MaxComputeInvocationsPerWorkgroup:         256,
	MaxComputeWorkgroupSize:                   [3]uint32{256, 256, 64},
	MinStorageBufferOffsetAlignment:           256,
	MaxDynamicStorageBuffersPerPipelineLayout: 4,
}

// CheckWorkgroupSize reports whether a @workgroup_size fits l.
//
// Parameters:
//   - size: the workgroup dimensions
//
// Returns:
//   - error: wraps ErrWorkgroupTooLarge if any dimension or the invocation count is too large
func (l DeviceLimits) CheckWorkgroupSize(size [3]uint32) error {
	for i, n := range size {
		if n == 0 || n > l.MaxComputeWorkgroupSize[i] {
			return fmt.Errorf("%w: dimension %d is %d, limit %d", ErrWorkgroupTooLarge, i, n, l.MaxComputeWorkgroupSize[i])
		}
	}
	if invocations := uint64(size[0]) * uint64(size[1]) * uint64(size[2]); invocations > uint64(l.MaxComputeInvocationsPerWorkgroup) {
		return fmt.Errorf("%w: %v is %d invocations, limit %d", ErrWorkgroupTooLarge, size, invocations, l.MaxComputeInvocationsPerWorkgroup)
	}
	return nil
}

// AlignStorageOffset rounds size up to the dynamic storage offset alignment.
func (l DeviceLimits) AlignStorageOffset(size uint64) uint64 {
	align := uint64(max(l.MinStorageBufferOffsetAlignment, 1))
	return (size + align - 1) / align * align
}

// wgpuLimits starts from the WebGPU defaults and pins the limits the renderer depends on,
// the way MaxBindGroups is raised for the render path.
func (l DeviceLimits) wgpuLimits() wgpu.Limits {
	limits := wgpu.DefaultLimits()
	limits.MaxComputeInvocationsPerWorkgroup = l.MaxComputeInvocationsPerWorkgroup
	limits.MaxComputeWorkgroupSizeX = l.MaxComputeWorkgroupSize[0]
	limits.MaxComputeWorkgroupSizeY = l.MaxComputeWorkgroupSize[1]
	limits.MaxComputeWorkgroupSizeZ = l.MaxComputeWorkgroupSize[2]
	limits.MinStorageBufferOffsetAlignment = l.MinStorageBufferOffsetAlignment
	limits.MaxDynamicStorageBuffersPerPipelineLayout = l.MaxDynamicStorageBuffersPerPipelineLayout
	return limits
}
