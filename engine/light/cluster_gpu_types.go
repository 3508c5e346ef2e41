package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUClusterAABBSource is the canonical WGSL definition of the ClusterAABB struct.
// Matches GPUClusterAABB layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/cluster_aabb.wgsl
var GPUClusterAABBSource string

// GPUClusterAABB is the view-space bounding box of a single cluster.
// Size: 32 bytes.
type GPUClusterAABB struct {
	MinPoint [4]float32 // offset  0: xyz min corner, w unused
	MaxPoint [4]float32 // offset 16: xyz max corner, w unused
}

// Size returns the size of the GPUClusterAABB struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (a *GPUClusterAABB) Size() int {
	return int(unsafe.Sizeof(*a))
}

// Marshal serializes the GPUClusterAABB struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (a *GPUClusterAABB) Marshal() []byte {
	buf := make([]byte, 32)
	common.PutVec4(buf, 0, a.MinPoint)
	common.PutVec4(buf, 16, a.MaxPoint)
	return buf
}

// UnmarshalClusterAABBs decodes a cluster buffer into AABBs.
//
// Parameters:
//   - buf: the raw cluster buffer contents
//
// Returns:
//   - []GPUClusterAABB: one AABB per 32 bytes
func UnmarshalClusterAABBs(buf []byte) []GPUClusterAABB {
	out := make([]GPUClusterAABB, len(buf)/32)
	for i := range out {
		base := i * 32
		for c := 0; c < 4; c++ {
			out[i].MinPoint[c] = math.Float32frombits(binary.LittleEndian.Uint32(buf[base+c*4:]))
			out[i].MaxPoint[c] = math.Float32frombits(binary.LittleEndian.Uint32(buf[base+16+c*4:]))
		}
	}
	return out
}

// GPULightGridSource is the canonical WGSL definition of the LightGrid struct.
// Matches GPULightGrid layout exactly (8 bytes, std430 aligned).
//
//go:embed assets/light_grid.wgsl
var GPULightGridSource string

// GPULightGrid is one cluster's entry in the light grid: a contiguous region of
// the light index buffer. Offset is unspecified when Count is zero.
// Size: 8 bytes.
type GPULightGrid struct {
	Offset uint32 // offset 0: first index in the light index buffer
	Count  uint32 // offset 4: number of indices in the region
}

// Size returns the size of the GPULightGrid struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (8)
func (g *GPULightGrid) Size() int {
	return int(unsafe.Sizeof(*g))
}

// UnmarshalLightGrid decodes a light grid buffer.
//
// Parameters:
//   - buf: the raw light grid buffer contents
//
// Returns:
//   - []GPULightGrid: one entry per 8 bytes
func UnmarshalLightGrid(buf []byte) []GPULightGrid {
	out := make([]GPULightGrid, len(buf)/8)
	for i := range out {
		out[i].Offset = binary.LittleEndian.Uint32(buf[i*8:])
		out[i].Count = binary.LittleEndian.Uint32(buf[i*8+4:])
	}
	return out
}

// GPUClusterBuildUniformsSource is the canonical WGSL definition of the
// ClusterBuildUniforms struct (160 bytes).
//
//go:embed assets/cluster_build_uniforms.wgsl
var GPUClusterBuildUniformsSource string

// GPUClusterBuildUniforms is the uniform buffer consumed by the cluster build kernel.
// Size: 160 bytes.
//
// Layout:
//
//	array<mat4x4<f32>, 2>  inverse_projection  (offset   0)
//	vec4<u32>              cluster_size        (offset 128) x, y, z, eye_count
//	vec2<f32>              screen_size         (offset 144)
//	f32                    lights_near         (offset 152)
//	f32                    lights_far          (offset 156)
type GPUClusterBuildUniforms struct {
	InverseProjection [MaxEyes]mgl32.Mat4
	ClusterSize       [4]uint32
	ScreenSize        [2]float32
	LightsNear        float32
	LightsFar         float32
}

// Size returns the size of the GPUClusterBuildUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (u *GPUClusterBuildUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUClusterBuildUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload
func (u *GPUClusterBuildUniforms) Marshal() []byte {
	buf := make([]byte, u.Size())
	for eye := 0; eye < MaxEyes; eye++ {
		common.PutMat4(buf, eye*64, u.InverseProjection[eye])
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[128+i*4:], u.ClusterSize[i])
	}
	common.PutFloat32(buf, 144, u.ScreenSize[0])
	common.PutFloat32(buf, 148, u.ScreenSize[1])
	common.PutFloat32(buf, 152, u.LightsNear)
	common.PutFloat32(buf, 156, u.LightsFar)
	return buf
}

// GPULightCullUniformsSource is the canonical WGSL definition of the
// LightCullUniforms struct (32 bytes).
//
//go:embed assets/light_cull_uniforms.wgsl
var GPULightCullUniformsSource string

// GPULightCullUniforms is the uniform buffer consumed by the light assignment kernel.
// Size: 32 bytes.
//
// Layout:
//
//	vec4<u32>  cluster_size            (offset  0) x, y, z, eye_count
//	u32        light_count             (offset 16)
//	u32        max_lights_per_cluster  (offset 20)
//	u32 x2     padding                 (offset 24)
type GPULightCullUniforms struct {
	ClusterSize         [4]uint32
	LightCount          uint32
	MaxLightsPerCluster uint32
	_pad                [2]uint32
}

// Size returns the size of the GPULightCullUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (u *GPULightCullUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPULightCullUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (u *GPULightCullUniforms) Marshal() []byte {
	buf := make([]byte, u.Size())
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], u.ClusterSize[i])
	}
	binary.LittleEndian.PutUint32(buf[16:], u.LightCount)
	binary.LittleEndian.PutUint32(buf[20:], u.MaxLightsPerCluster)
	return buf
}

// LightsVisualisationMode selects what the debug light visualisation overlays.
type LightsVisualisationMode uint32

const (
	// VisualiseLightLimit highlights clusters that hit the per-cluster cap.
	VisualiseLightLimit LightsVisualisationMode = iota
	// VisualiseStrictCount shows the strict light count of interior draws.
	VisualiseStrictCount
	// VisualiseClusteredCount shows the clustered light count per pixel.
	VisualiseClusteredCount
	// VisualiseShadowMask shows which lights sample a shadow mask.
	VisualiseShadowMask
)

// GPUClusterUniformsSource is the canonical WGSL definition of the ClusterUniforms
// struct (48 bytes) read by the shading pass.
//
//go:embed assets/cluster_uniforms.wgsl
var GPUClusterUniformsSource string

// GPUClusterUniforms carries the per-frame constants the shading pass needs to
// locate a pixel's cluster. Size: 48 bytes.
//
// Layout:
//
//	vec4<u32>  cluster_size                 (offset  0) x, y, z, eye_count
//	vec2<f32>  screen_size                  (offset 16)
//	f32        lights_near                  (offset 24)
//	f32        lights_far                   (offset 28)
//	u32        enable_contact_shadows       (offset 32)
//	u32        enable_lights_visualisation  (offset 36)
//	u32        lights_visualisation_mode    (offset 40)
//	u32        max_lights_per_cluster       (offset 44)
type GPUClusterUniforms struct {
	ClusterSize               [4]uint32
	ScreenSize                [2]float32
	LightsNear                float32
	LightsFar                 float32
	EnableContactShadows      uint32
	EnableLightsVisualisation uint32
	LightsVisualisationMode   LightsVisualisationMode
	MaxLightsPerCluster       uint32
}

// Size returns the size of the GPUClusterUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (u *GPUClusterUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUClusterUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (u *GPUClusterUniforms) Marshal() []byte {
	buf := make([]byte, u.Size())
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], u.ClusterSize[i])
	}
	common.PutFloat32(buf, 16, u.ScreenSize[0])
	common.PutFloat32(buf, 20, u.ScreenSize[1])
	common.PutFloat32(buf, 24, u.LightsNear)
	common.PutFloat32(buf, 28, u.LightsFar)
	binary.LittleEndian.PutUint32(buf[32:], u.EnableContactShadows)
	binary.LittleEndian.PutUint32(buf[36:], u.EnableLightsVisualisation)
	binary.LittleEndian.PutUint32(buf[40:], uint32(u.LightsVisualisationMode))
	binary.LittleEndian.PutUint32(buf[44:], u.MaxLightsPerCluster)
	return buf
}

// GPULightCounterSource is the canonical WGSL definition of the LightCounter
// struct: the global atomic slot counter reset every frame.
//
//go:embed assets/light_counter.wgsl
var GPULightCounterSource string

// LightCounterSize is the byte size of the LightCounter struct.
const LightCounterSize = 4
