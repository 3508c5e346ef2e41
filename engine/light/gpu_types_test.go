package light

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUTypeSizes(t *testing.T) {
	assert.Equal(t, 112, (&GPULight{}).Size())
	assert.Equal(t, 1696, (&GPUStrictLightData{}).Size())
	assert.Equal(t, 32, (&GPUClusterAABB{}).Size())
	assert.Equal(t, 8, (&GPULightGrid{}).Size())
	assert.Equal(t, 160, (&GPUClusterBuildUniforms{}).Size())
	assert.Equal(t, 32, (&GPULightCullUniforms{}).Size())
	assert.Equal(t, 48, (&GPUClusterUniforms{}).Size())
}

func TestGPULight_MarshalLayout(t *testing.T) {
	var mask RoomMask
	mask.Set(0)
	mask.Set(37)
	g := GPULight{
		Color:           [3]float32{1, 0.5, 0.25},
		Radius:          300,
		RoomMask:        mask,
		Flags:           LightFlagPortalStrict | LightFlagShadow,
		ShadowMaskIndex: 3,
	}
	g.PositionVS[1] = [4]float32{7, 8, 9, 0}

	buf := g.Marshal()
	require.Len(t, buf, 112)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(0.5), f(4))
	assert.Equal(t, float32(300), f(12))
	assert.Equal(t, float32(8), f(48+16+4))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[80:]))
	assert.Equal(t, uint32(1<<5), binary.LittleEndian.Uint32(buf[84:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[96:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[100:]))

	assert.Equal(t, g, UnmarshalGPULight(buf))
}

func TestGPUStrictLightData_Marshal(t *testing.T) {
	s := GPUStrictLightData{NumStrictLights: 2, RoomIndex: -1}
	s.Lights[0].Radius = 5
	s.Lights[1].Radius = 6
	s.Lights[2].Radius = 7 // beyond the count, must not be written

	buf := s.Marshal()
	require.Len(t, buf, 1696)
	assert.Equal(t, float32(6), UnmarshalGPULight(buf[112:]).Radius)
	assert.Equal(t, float32(0), UnmarshalGPULight(buf[224:]).Radius)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[1680:]))
	assert.Equal(t, int32(-1), int32(binary.LittleEndian.Uint32(buf[1684:])))
}

func TestMarshalLightBuffer_Caps(t *testing.T) {
	lights := make([]GPULight, MaxGPULights+10)
	assert.Len(t, MarshalLightBuffer(lights), MaxGPULights*112)
	assert.Empty(t, MarshalLightBuffer(nil))
}

func TestClusterBuildUniforms_Marshal(t *testing.T) {
	u := GPUClusterBuildUniforms{ClusterSize: [4]uint32{40, 23, 32, 1}, ScreenSize: [2]float32{2560, 1440}, LightsNear: 1, LightsFar: 16384}
	u.InverseProjection[1] = mgl32.Ident4()
	buf := u.Marshal()

	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[64:])))
	assert.Equal(t, uint32(23), binary.LittleEndian.Uint32(buf[132:]))
	assert.Equal(t, float32(16384), math.Float32frombits(binary.LittleEndian.Uint32(buf[156:])))
}

func TestUnmarshalLightGrid(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[8:], 10)
	binary.LittleEndian.PutUint32(buf[12:], 4)

	assert.Equal(t, []GPULightGrid{{}, {Offset: 10, Count: 4}}, UnmarshalLightGrid(buf))
}

func TestRoomMask(t *testing.T) {
	var m RoomMask
	assert.True(t, m.Empty())

	m.Set(0)
	m.Set(127)
	m.Set(128) // out of range, ignored
	m.Set(-1)

	assert.True(t, m.Has(0))
	assert.True(t, m.Has(127))
	assert.False(t, m.Has(64))
	assert.False(t, m.Has(128))
	assert.Equal(t, RoomMask{1, 0, 0, 1 << 31}, m)

	var other RoomMask
	other.Set(127)
	assert.True(t, m.Intersects(other))
	assert.False(t, m.Intersects(RoomMask{}))
}

func TestNewLight(t *testing.T) {
	room := NewRoomID()
	l := NewLight(LightTypePoint,
		WithPosition(1, 2, 3),
		WithColor(1, 0, 0),
		WithRadius(50),
		WithRooms(room),
		WithShadow(4),
	)

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, l.Position())
	assert.Equal(t, float32(50), l.Radius())
	assert.True(t, l.Enabled())
	assert.True(t, l.PortalStrict())
	assert.Equal(t, []RoomID{room}, l.Rooms())
	assert.True(t, l.CastsShadows())
	assert.Equal(t, uint32(4), l.ShadowSlot())

	l.SetRooms()
	assert.False(t, l.PortalStrict())
}

func TestValidShadowSlot(t *testing.T) {
	assert.True(t, ValidShadowSlot(0))
	assert.True(t, ValidShadowSlot(MaxShadowSlots-1))
	assert.False(t, ValidShadowSlot(MaxShadowSlots))
}

func TestWGSLSourcesEmbedded(t *testing.T) {
	for name, src := range map[string]string{
		"Light":                GPULightSource,
		"StrictLightData":      GPUStrictLightDataSource,
		"ClusterAABB":          GPUClusterAABBSource,
		"LightGrid":            GPULightGridSource,
		"ClusterBuildUniforms": GPUClusterBuildUniformsSource,
		"LightCullUniforms":    GPULightCullUniformsSource,
		"ClusterUniforms":      GPUClusterUniformsSource,
		"LightCounter":         GPULightCounterSource,
	} {
		assert.True(t, strings.Contains(src, "struct "+name+" {"), name)
	}
}

func TestTileCounts(t *testing.T) {
	x, y := TileCounts(2560, 1440, TileSize)
	assert.Equal(t, uint32(40), x)
	assert.Equal(t, uint32(23), y)

	x, y = TileCounts(0, 0, TileSize)
	assert.Equal(t, uint32(1), x)
	assert.Equal(t, uint32(1), y)
}
