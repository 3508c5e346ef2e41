package renderer

import (
	"encoding/binary"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appendKernelSource = `//@oxy:include light_cull_uniforms
//@oxy:include light_counter
//@oxy:group 0 0 storage_uniform params light_cull_uniforms
//@oxy:provider 0 1 light_indices
@group(0) @binding(1) var<storage, read_write> light_indices: array<u32>;
//@oxy:group 0 2 storage_read_write counter light_counter

@compute @workgroup_size(8, 1, 1)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.light_count) {
        return;
    }
    light_indices[atomicAdd(&counter.value, 1u)] = gid.x;
}
`

// appendKernel appends every invocation id below light_count to light_indices.
func appendKernel(gid [3]uint32, buffers map[int]*bind_group_provider.HostBuffer) {
	if gid[0] >= buffers[0].Load(4) {
		return
	}
	slot := buffers[2].AtomicAdd(0, 1)
	buffers[1].Store(int(slot), gid[0])
}

func newAppendPipeline(t *testing.T, kernel pipeline.HostKernel) pipeline.Pipeline {
	t.Helper()
	s, err := shader.NewShader("append", appendKernelSource)
	require.NoError(t, err)
	return pipeline.NewPipeline("append", pipeline.WithComputeShader(s), pipeline.WithHostKernel(kernel))
}

func newHostRenderer(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(append([]RendererBuilderOption{WithBackend(BackendTypeHost), WithComputeWorkers(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func setupAppend(t *testing.T, r Renderer, count uint32) bind_group_provider.BindGroupProvider {
	t.Helper()
	p := r.Pipeline("append")
	require.NotNil(t, p)
	provider := bind_group_provider.NewBindGroupProvider("append")
	require.NoError(t, r.InitBindGroup(provider, p.Shader().BindGroupLayoutDescriptor(0), nil, map[int]uint64{1: 4096}))

	params := make([]byte, 32)
	binary.LittleEndian.PutUint32(params[16:], count)
	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: provider, Binding: 0, Data: params}}))
	return provider
}

func TestHostRenderer_Dispatch(t *testing.T) {
	r := newHostRenderer(t, WithPipeline(newAppendPipeline(t, appendKernel)))
	assert.Equal(t, BackendTypeHost, r.Backend())
	provider := setupAppend(t, r, 1000)

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("append", provider, [3]uint32{125, 1, 1}))
	require.NoError(t, r.EndComputeFrame())

	counter, err := r.ReadBuffer(provider, 2, 0, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), binary.LittleEndian.Uint32(counter))

	raw, err := r.ReadBuffer(provider, 1, 0, 4000)
	require.NoError(t, err)
	got := make([]int, 1000)
	for i := range got {
		got[i] = int(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	sort.Ints(got)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestHostRenderer_WritesLandBeforeDispatch(t *testing.T) {
	r := newHostRenderer(t, WithPipeline(newAppendPipeline(t, appendKernel)))
	provider := setupAppend(t, r, 0)

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("append", provider, [3]uint32{2, 1, 1}))
	params := make([]byte, 32)
	binary.LittleEndian.PutUint32(params[16:], 5)
	require.NoError(t, r.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: provider, Binding: 0, Data: params}}))
	require.NoError(t, r.EndComputeFrame())

	counter, err := r.ReadBuffer(provider, 2, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(counter))
}

func TestHostRenderer_DispatchErrors(t *testing.T) {
	r := newHostRenderer(t, WithPipeline(newAppendPipeline(t, appendKernel)))
	provider := setupAppend(t, r, 1)

	err := r.DispatchCompute("append", provider, [3]uint32{1, 1, 1})
	assert.True(t, errors.Is(err, ErrNoComputeFrame))

	require.NoError(t, r.BeginComputeFrame())
	err = r.DispatchCompute("nope", provider, [3]uint32{1, 1, 1})
	assert.True(t, errors.Is(err, ErrPipelineNotFound))
	require.NoError(t, r.EndComputeFrame())
}

func TestHostRenderer_KernelPanic(t *testing.T) {
	r := newHostRenderer(t, WithPipeline(newAppendPipeline(t, func(gid [3]uint32, buffers map[int]*bind_group_provider.HostBuffer) {
		buffers[1].Store(1<<20, 1)
	})))
	provider := setupAppend(t, r, 1)

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("append", provider, [3]uint32{1, 1, 1}))
	assert.Error(t, r.EndComputeFrame())
}

func TestHostRenderer_FaultInjection(t *testing.T) {
	fail := false
	r := newHostRenderer(t,
		WithPipeline(newAppendPipeline(t, appendKernel)),
		WithFaultInjection(func(op string) error {
			if fail && op == "map_write" {
				return ErrDeviceLost
			}
			return nil
		}),
	)
	provider := setupAppend(t, r, 1)

	require.NoError(t, r.MapWrite(provider, 1, 0, []byte{1, 0, 0, 0}))
	fail = true
	err := r.MapWrite(provider, 1, 0, []byte{2, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrDeviceLost))

	raw, err := r.ReadBuffer(provider, 1, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, raw)
}

func TestHostRenderer_EncodedWritesFollowTheFrame(t *testing.T) {
	r := newHostRenderer(t, WithPipeline(newAppendPipeline(t, appendKernel)))
	provider := setupAppend(t, r, 0)
	params := func(count uint32) []byte {
		data := make([]byte, 32)
		binary.LittleEndian.PutUint32(data[16:], count)
		return data
	}
	readCounter := func() uint32 {
		raw, err := r.ReadBuffer(provider, 2, 0, 4)
		require.NoError(t, err)
		return binary.LittleEndian.Uint32(raw)
	}

	err := r.EncodeWrite(provider, 0, 0, params(5))
	assert.True(t, errors.Is(err, ErrNoComputeFrame))

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.EncodeWrite(provider, 0, 0, params(5)))
	require.NoError(t, r.DispatchCompute("append", provider, [3]uint32{2, 1, 1}))
	require.NoError(t, r.EndComputeFrame())
	assert.Equal(t, uint32(5), readCounter())

	// A cancelled frame leaves no trace, neither its writes nor its dispatches.
	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.EncodeWrite(provider, 0, 0, params(9)))
	require.NoError(t, r.DispatchCompute("append", provider, [3]uint32{2, 1, 1}))
	r.CancelComputeFrame()
	assert.Equal(t, uint32(5), readCounter())
	raw, err := r.ReadBuffer(provider, 0, 16, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(raw))

	err = r.DispatchCompute("append", provider, [3]uint32{1, 1, 1})
	assert.True(t, errors.Is(err, ErrNoComputeFrame))
}

func TestDeviceLimits_CheckWorkgroupSize(t *testing.T) {
	limits := DefaultDeviceLimits
	tests := []struct {
		name string
		size [3]uint32
		ok   bool
	}{
		{"single", [3]uint32{1, 1, 1}, true},
		{"flat 256", [3]uint32{256, 1, 1}, true},
		{"8x8x4", [3]uint32{8, 8, 4}, true},
		{"16x16x1", [3]uint32{16, 16, 1}, true},
		{"16x16x4", [3]uint32{16, 16, 4}, false},
		{"z too deep", [3]uint32{1, 1, 128}, false},
		{"zero", [3]uint32{0, 1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := limits.CheckWorkgroupSize(tt.size)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrWorkgroupTooLarge))
			}
		})
	}

	assert.Equal(t, uint64(1792), limits.AlignStorageOffset(1696))
	assert.Equal(t, uint64(256), limits.AlignStorageOffset(256))
}

func TestRenderer_RejectsOversizedWorkgroup(t *testing.T) {
	src := strings.Replace(appendKernelSource, "@workgroup_size(8, 1, 1)", "@workgroup_size(16, 16, 4)", 1)
	s, err := shader.NewShader("wide", src)
	require.NoError(t, err)
	p := pipeline.NewPipeline("wide", pipeline.WithComputeShader(s), pipeline.WithHostKernel(appendKernel))

	r := newHostRenderer(t)
	err = r.RegisterPipelines(p)
	assert.True(t, errors.Is(err, ErrWorkgroupTooLarge))
	assert.Nil(t, r.Pipeline("wide"))
}

func TestHostRenderer_RequiresHostKernel(t *testing.T) {
	s, err := shader.NewShader("append", appendKernelSource)
	require.NoError(t, err)
	_, err = NewRenderer(WithBackend(BackendTypeHost), WithPipeline(pipeline.NewPipeline("append", pipeline.WithComputeShader(s))))
	assert.Error(t, err)
}

func TestRendererBackendType_String(t *testing.T) {
	assert.Equal(t, "wgpu", BackendTypeWGPU.String())
	assert.Equal(t, "host", BackendTypeHost.String())
	assert.Equal(t, "unknown", RendererBackendType(9).String())
}
