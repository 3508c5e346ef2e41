package shader

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernel = `//@oxy:define WG
//@oxy:include light_cull_uniforms
//@oxy:include light_grid
//@oxy:include light_counter
//@oxy:group 0 0 storage_uniform params light_cull_uniforms
//@oxy:group 0 1 storage_read_write grid array<light_grid>
//@oxy:provider 0 2 light_indices
@group(0) @binding(2) var<storage, read_write> light_indices: array<u32>;
//@oxy:group 0 3 storage_read_write counter light_counter

@compute @workgroup_size(WG, 2, 1)
fn count_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.light_count) {
        return;
    }
    let slot = atomicAdd(&counter.value, 1u);
    light_indices[slot] = gid.x;
    grid[gid.x].offset = slot;
    grid[gid.x].light_count = 1u;
}
`

func TestNewShader_ParsesKernel(t *testing.T) {
	s, err := NewShader("test", testKernel, WithDefine("WG", 8))
	require.NoError(t, err)

	assert.Equal(t, "count_main", s.EntryPoint())
	assert.Equal(t, [3]uint32{8, 2, 1}, s.WorkgroupSize())
	assert.Contains(t, s.Source(), "struct LightCullUniforms {")

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 4)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(32), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, desc.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(4), desc.Entries[3].Buffer.MinBindingSize)

	b, ok := s.BindingForRole("light_indices")
	assert.True(t, ok)
	assert.Equal(t, 2, b)
	b, ok = s.BindingForRole("counter")
	assert.True(t, ok)
	assert.Equal(t, 3, b)
	_, ok = s.BindingForRole("missing")
	assert.False(t, ok)

	assert.Equal(t, "grid", s.BindGroupVarName(0, 1))
}

func TestNewShader_RequiresComputeEntry(t *testing.T) {
	_, err := NewShader("frag", "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }")
	assert.Error(t, err)

	_, err = NewShader("empty", "")
	assert.Error(t, err)
}

func TestNewShader_MissingDefine(t *testing.T) {
	_, err := NewShader("test", testKernel)
	assert.Error(t, err)
}

func TestValidate_RejectsMalformedSource(t *testing.T) {
	err := Validate("fn broken( {")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidate_AcceptsKernel(t *testing.T) {
	s, err := NewShader("test", testKernel, WithDefine("WG", 8))
	require.NoError(t, err)

	if err := Validate(s.Source()); err != nil {
		// naga does not implement every WGSL feature yet.
		t.Skipf("naga rejected the kernel: %v", err)
	}
}
