package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-lights/common"
)

// MaxGPULights is the maximum number of lights that can be marshaled into the
// GPU storage buffer per frame. The CPU-side light list is unbounded; this cap
// controls only how many lights the GPU evaluates.
const MaxGPULights = 1024

// MaxStrictLights is the capacity of the per-draw strict light list.
const MaxStrictLights = 15

// StrictSlotsPerFrame is the default number of strict light lists one frame can bind, one
// slot per draw that needs its own list.
const StrictSlotsPerFrame = 256

// MaxEyes is the number of per-eye position slots carried by every GPULight.
const MaxEyes = 2

// LightFlags is the bit set stored in GPULight.Flags.
type LightFlags uint32

const (
	// LightFlagPortalStrict marks a light confined to its rooms.
	LightFlagPortalStrict LightFlags = 1 << 0

	// LightFlagShadow marks a light whose ShadowMaskIndex is valid.
	LightFlagShadow LightFlags = 1 << 1
)

// Has reports whether every bit of f is set.
func (l LightFlags) Has(f LightFlags) bool {
	return l&f == f
}

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (112 bytes, std430 aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single clustered light.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 112 bytes (std430 / WGSL aligned).
//
// Layout:
//
//	vec3<f32>              color              (offset   0) pre-multiplied by fade and dimmer
//	f32                    radius             (offset  12)
//	array<vec4<f32>, 2>    position_ws        (offset  16) camera-relative world position per eye
//	array<vec4<f32>, 2>    position_vs        (offset  48) view-space position per eye
//	vec4<u32>              room_mask          (offset  80)
//	u32                    flags              (offset  96)
//	u32                    shadow_mask_index  (offset 100)
//	u32 x2                 padding            (offset 104)
type GPULight struct {
	Color           [3]float32
	Radius          float32
	PositionWS      [MaxEyes][4]float32
	PositionVS      [MaxEyes][4]float32
	RoomMask        RoomMask
	Flags           LightFlags
	ShadowMaskIndex uint32
	_pad            [2]uint32
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf)
	return buf
}

// MarshalInto serializes the GPULight into the first 112 bytes of buf.
//
// Parameters:
//   - buf: destination buffer, at least 112 bytes long
func (g *GPULight) MarshalInto(buf []byte) {
	for i := 0; i < 3; i++ {
		common.PutFloat32(buf, i*4, g.Color[i])
	}
	common.PutFloat32(buf, 12, g.Radius)
	for eye := 0; eye < MaxEyes; eye++ {
		for i := 0; i < 4; i++ {
			common.PutFloat32(buf, 16+eye*16+i*4, g.PositionWS[eye][i])
			common.PutFloat32(buf, 48+eye*16+i*4, g.PositionVS[eye][i])
		}
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[80+i*4:], g.RoomMask[i])
	}
	binary.LittleEndian.PutUint32(buf[96:100], uint32(g.Flags))
	binary.LittleEndian.PutUint32(buf[100:104], g.ShadowMaskIndex)
	binary.LittleEndian.PutUint32(buf[104:108], 0)
	binary.LittleEndian.PutUint32(buf[108:112], 0)
}

// UnmarshalGPULight decodes a GPULight from the first 112 bytes of buf.
//
// Parameters:
//   - buf: source buffer, at least 112 bytes long
//
// Returns:
//   - GPULight: the decoded light
func UnmarshalGPULight(buf []byte) GPULight {
	var g GPULight
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	for i := 0; i < 3; i++ {
		g.Color[i] = f(i * 4)
	}
	g.Radius = f(12)
	for eye := 0; eye < MaxEyes; eye++ {
		for i := 0; i < 4; i++ {
			g.PositionWS[eye][i] = f(16 + eye*16 + i*4)
			g.PositionVS[eye][i] = f(48 + eye*16 + i*4)
		}
	}
	for i := 0; i < 4; i++ {
		g.RoomMask[i] = binary.LittleEndian.Uint32(buf[80+i*4:])
	}
	g.Flags = LightFlags(binary.LittleEndian.Uint32(buf[96:]))
	g.ShadowMaskIndex = binary.LittleEndian.Uint32(buf[100:])
	return g
}

// MarshalLightBuffer serializes packed lights into a contiguous byte buffer for
// the light storage buffer. At most MaxGPULights records are written; lights
// beyond the budget are silently dropped.
//
// Parameters:
//   - lights: the packed lights to serialize
//
// Returns:
//   - []byte: the serialized buffer (112 bytes per light)
func MarshalLightBuffer(lights []GPULight) []byte {
	n := min(len(lights), MaxGPULights)
	stride := int(unsafe.Sizeof(GPULight{}))
	buf := make([]byte, n*stride)
	for i := 0; i < n; i++ {
		lights[i].MarshalInto(buf[i*stride:])
	}
	return buf
}

// GPUStrictLightDataSource is the canonical WGSL definition of the StrictLightData struct.
// Matches GPUStrictLightData layout exactly (1696 bytes, std430 aligned).
//
//go:embed assets/strict_light_data.wgsl
var GPUStrictLightDataSource string

// GPUStrictLightData is the per-draw strict light list bound for interior geometry.
// Matches the WGSL StrictLightData struct layout exactly (see GPUStrictLightDataSource).
// Size: 1696 bytes.
//
// Layout:
//
//	array<Light, 15>  lights             (offset    0)
//	u32               num_strict_lights  (offset 1680)
//	i32               room_index         (offset 1684) -1 when the draw has no room
//	u32 x2            padding            (offset 1688)
type GPUStrictLightData struct {
	Lights          [MaxStrictLights]GPULight
	NumStrictLights uint32
	RoomIndex       int32
	_pad            [2]uint32
}

// Size returns the size of the GPUStrictLightData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (1696)
func (s *GPUStrictLightData) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUStrictLightData struct into a byte buffer suitable for GPU upload.
// Slots beyond NumStrictLights are zeroed.
//
// Returns:
//   - []byte: 1696-byte buffer ready for GPU upload
func (s *GPUStrictLightData) Marshal() []byte {
	buf := make([]byte, s.Size())
	stride := int(unsafe.Sizeof(GPULight{}))
	n := min(int(s.NumStrictLights), MaxStrictLights)
	for i := 0; i < n; i++ {
		s.Lights[i].MarshalInto(buf[i*stride:])
	}
	tail := MaxStrictLights * stride
	binary.LittleEndian.PutUint32(buf[tail:], uint32(n))
	binary.LittleEndian.PutUint32(buf[tail+4:], uint32(s.RoomIndex))
	return buf
}
