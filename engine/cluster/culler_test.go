package cluster

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/Carmen-Shannon/oxy-lights/engine/camera"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomLights(seed int64, n int) []light.Light {
	rng := rand.New(rand.NewSource(seed))
	lights := make([]light.Light, n)
	for i := range lights {
		lights[i] = pointLight(
			rng.Float32()*120-60,
			rng.Float32()*80-40,
			-rng.Float32()*110,
			1+rng.Float32()*14,
		)
	}
	return lights
}

// expectedAssignment culls packed against the read back grid on the CPU.
func expectedAssignment(rb *Readback, packed PackedLights, capacity int) [][]uint32 {
	want := make([][]uint32, len(rb.Clusters))
	for idx, aabb := range rb.Clusters {
		eye, _, _, _ := rb.Dims.Coord(idx)
		for i, record := range packed.Records {
			if len(want[idx]) == capacity {
				break
			}
			vs := record.PositionVS[eye]
			if SphereIntersectsAABB(mgl32.Vec3{vs[0], vs[1], vs[2]}, record.Radius, aabb) {
				want[idx] = append(want[idx], uint32(i))
			}
		}
	}
	return want
}

func assertRegionsDisjoint(t *testing.T, rb *Readback) {
	t.Helper()
	type region struct{ start, end uint32 }
	var regions []region
	total := 0
	for _, g := range rb.Grid {
		if g.Count == 0 {
			continue
		}
		require.LessOrEqual(t, int(g.Offset+g.Count), len(rb.Indices))
		regions = append(regions, region{g.Offset, g.Offset + g.Count})
		total += int(g.Count)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	for i := 1; i < len(regions); i++ {
		assert.LessOrEqual(t, regions[i-1].end, regions[i].start, "regions overlap")
	}
	assert.Equal(t, len(rb.Indices), total)
}

func TestLightCuller_MatchesBruteForce(t *testing.T) {
	const capacity = 8
	c := newTestSystem(t, 640, 360, WithTileSize(64), WithDepthSlices(12), WithMaxLightsPerCluster(capacity))
	cam := newTestCamera(640, 360, 1, 128)
	frame := NewFrameContext(0, []camera.Camera{cam}, randomLights(7, 300))

	stats, err := c.Prepare(frame)
	require.NoError(t, err)
	require.Equal(t, 300, stats.Upload.Packed)

	rb, err := c.Readback()
	require.NoError(t, err)
	assertRegionsDisjoint(t, rb)

	packed, _ := c.Uploader().Pack(frame, c.Culler().PartitionRooms(frame.Lights))
	want := expectedAssignment(rb, packed, capacity)
	capped := 0
	for idx := range rb.Grid {
		eye, x, y, z := rb.Dims.Coord(idx)
		got := rb.LightsAt(Coord{Eye: eye, X: x, Y: y, Z: z})
		assert.True(t, equalIndices(want[idx], got), "cluster %d: want %v got %v", idx, want[idx], got)
		if len(got) == capacity {
			capped++
		}
	}
	assert.Positive(t, capped)
}

func equalIndices(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLightCuller_Overflow(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4))
	cam := newTestCamera(128, 128, 1, 100)
	lights := make([]light.Light, 200)
	for i := range lights {
		lights[i] = pointLight(0, 0, -10, 200)
	}

	_, err := c.Prepare(NewFrameContext(0, []camera.Camera{cam}, lights))
	require.NoError(t, err)
	rb, err := c.Readback()
	require.NoError(t, err)
	assertRegionsDisjoint(t, rb)

	for idx, g := range rb.Grid {
		require.Equal(t, uint32(light.MaxLightsPerCluster), g.Count, "cluster %d", idx)
		got := rb.Indices[g.Offset : g.Offset+g.Count]
		for i, v := range got {
			require.Equal(t, uint32(i), v)
		}
	}
	assert.Len(t, rb.Indices, c.Culler().IndexCapacity())
}

func TestLightCuller_ZeroLights(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4))
	cam := newTestCamera(128, 128, 1, 100)

	_, err := c.Prepare(NewFrameContext(0, []camera.Camera{cam}, []light.Light{pointLight(0, 0, -10, 50)}))
	require.NoError(t, err)
	rb, err := c.Readback()
	require.NoError(t, err)
	occupied, _ := rb.Totals()
	require.Positive(t, occupied)

	stats, err := c.Prepare(NewFrameContext(1, []camera.Camera{cam}, nil))
	require.NoError(t, err)
	assert.Zero(t, stats.Upload.Packed)

	rb, err = c.Readback()
	require.NoError(t, err)
	occupied, used := rb.Totals()
	assert.Zero(t, occupied)
	assert.Zero(t, used)
	for _, g := range rb.Grid {
		assert.Zero(t, g.Count)
	}
}

func TestLightCuller_LightBehindCamera(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4))
	cam := newTestCamera(128, 128, 1, 100)

	_, err := c.Prepare(NewFrameContext(0, []camera.Camera{cam}, []light.Light{pointLight(0, 0, 20, 5)}))
	require.NoError(t, err)
	rb, err := c.Readback()
	require.NoError(t, err)
	occupied, _ := rb.Totals()
	assert.Zero(t, occupied)
}

func TestLightCuller_Scenario(t *testing.T) {
	const w, h = 2560, 1440
	c := newTestSystem(t, w, h)
	cam := newTestCamera(w, h, 1, 16384)
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})
	frame := NewFrameContext(0, []camera.Camera{cam}, []light.Light{pointLight(0, 100, 0, 50)})

	_, err := c.Prepare(frame)
	require.NoError(t, err)
	assert.Equal(t, Dims{X: 40, Y: 23, Z: 32}, c.GridBuilder().Dims())

	packed, _ := c.Uploader().Pack(frame, nil)
	vs := packed.Records[0].PositionVS[0]
	assert.InDelta(t, 0, vs[0], 1e-3)
	assert.InDelta(t, 0, vs[1], 1e-3)
	assert.InDelta(t, -100, vs[2], 1e-3)

	coord := c.Locator(cam).ClusterCoord(0, w/2, h/2, 100)
	assert.Equal(t, Coord{Eye: 0, X: 20, Y: 11, Z: 15}, coord)

	rb, err := c.Readback()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, rb.LightsAt(coord))
	assertRegionsDisjoint(t, rb)

	far := c.Locator(cam).ClusterCoord(0, w/2, h/2, 1000)
	assert.Empty(t, rb.LightsAt(far))
}

func TestLightCuller_Stereo(t *testing.T) {
	const w, h = 256, 128
	c := newTestSystem(t, w, h, WithDepthSlices(8), WithEyeCount(2))
	left := newTestCamera(w, h, 1, 100)
	right := newTestCamera(w, h, 1, 100)
	left.LookAt(mgl32.Vec3{-3, 0, 0}, mgl32.Vec3{-3, 0, -1}, mgl32.Vec3{0, 1, 0})
	right.LookAt(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{3, 0, -1}, mgl32.Vec3{0, 1, 0})
	frame := NewFrameContext(0, []camera.Camera{left, right}, randomLights(3, 40))

	_, err := c.Prepare(frame)
	require.NoError(t, err)
	rb, err := c.Readback()
	require.NoError(t, err)
	require.Equal(t, 2, rb.Eyes)
	perEye := rb.Dims.ClusterCount(1)
	require.Len(t, rb.Clusters, 2*perEye)

	// Both eyes share a projection, so their grids match.
	for i := 0; i < perEye; i++ {
		assert.Equal(t, rb.Clusters[i], rb.Clusters[perEye+i])
	}

	packed, _ := c.Uploader().Pack(frame, nil)
	rec := packed.Records[0]
	assert.NotEqual(t, rec.PositionVS[0], rec.PositionVS[1])
	assert.InDelta(t, rec.PositionWS[0][0]-6, rec.PositionWS[1][0], 1e-3)

	want := expectedAssignment(rb, packed, light.MaxLightsPerCluster)
	differ := false
	for idx := 0; idx < perEye; idx++ {
		eye, x, y, z := rb.Dims.Coord(idx + perEye)
		require.Equal(t, 1, eye)
		got := rb.LightsAt(Coord{Eye: eye, X: x, Y: y, Z: z})
		assert.True(t, equalIndices(want[idx+perEye], got), "eye 1 cluster %d", idx)
		if !equalIndices(got, rb.LightsAt(Coord{X: x, Y: y, Z: z})) {
			differ = true
		}
	}
	assert.True(t, differ)
}

func TestLightCuller_PartitionRooms(t *testing.T) {
	c := newTestSystem(t, 64, 64, WithDepthSlices(2))
	kitchen, hall := light.NewRoomID(), light.NewRoomID()
	lights := []light.Light{
		pointLight(0, 0, -5, 2),
		pointLight(0, 0, -5, 2, light.WithRooms(kitchen)),
		pointLight(0, 0, -5, 2, light.WithRooms(hall, kitchen)),
	}

	masks := c.Culler().PartitionRooms(lights)
	require.Len(t, masks, 3)
	assert.True(t, masks[0].Empty())
	assert.True(t, masks[1].Has(0))
	assert.False(t, masks[1].Has(1))
	assert.True(t, masks[2].Has(0))
	assert.True(t, masks[2].Has(1))

	again := c.Culler().PartitionRooms(lights)
	assert.Equal(t, masks, again)
	assert.Equal(t, 2, c.Rooms().Len())
}

func TestLightCuller_LightAtCameraOrigin(t *testing.T) {
	const w, h = 2560, 1440
	c := newTestSystem(t, w, h)
	cam := newTestCamera(w, h, 1, 16384)
	cam.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})

	_, err := c.Prepare(NewFrameContext(0, []camera.Camera{cam}, []light.Light{pointLight(0, 0, 0, 512)}))
	require.NoError(t, err)
	rb, err := c.Readback()
	require.NoError(t, err)
	require.Equal(t, Dims{X: 40, Y: 23, Z: 32}, rb.Dims)

	hits := 0
	for idx, aabb := range rb.Clusters {
		g := rb.Grid[idx]
		if SphereIntersectsAABB(mgl32.Vec3{}, 512, aabb) {
			require.Equal(t, uint32(1), g.Count, "cluster %d", idx)
			require.Equal(t, uint32(0), rb.Indices[g.Offset])
			hits++
		} else {
			require.Zero(t, g.Count, "cluster %d", idx)
		}
	}
	// Slices closer than half the radius are lit across the whole screen.
	nearSlices := int(SliceForDepth(256, 1, 16384, 32))
	assert.GreaterOrEqual(t, hits, nearSlices*40*23)
	assert.Less(t, hits, rb.Dims.ClusterCount(1))

	_, err = c.Prepare(NewFrameContext(1, []camera.Camera{cam}, nil))
	require.NoError(t, err)
	rb, err = c.Readback()
	require.NoError(t, err)
	for _, g := range rb.Grid {
		require.Zero(t, g.Count)
	}
}
