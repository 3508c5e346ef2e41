package cluster

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-lights/engine/camera"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimsForScreen(t *testing.T) {
	d := DimsForScreen(2560, 1440, 64, 32)
	assert.Equal(t, Dims{X: 40, Y: 23, Z: 32}, d)
	assert.Equal(t, 40*23*32, d.ClusterCount(1))
	assert.Equal(t, 2*40*23*32, d.ClusterCount(2))
	assert.Equal(t, [3]uint32{5, 3, 8}, d.CullWorkgroups(1))
	assert.Equal(t, [3]uint32{5, 3, 16}, d.CullWorkgroups(2))
	assert.Equal(t, [3]uint32{40, 23, 64}, d.BuildWorkgroups(2))
	assert.Equal(t, [4]uint32{40, 23, 32, 2}, d.Vec4(2))

	assert.Equal(t, Dims{X: 1, Y: 1, Z: 1}, DimsForScreen(1, 1, 0, 0))
}

func TestDims_IndexCoord(t *testing.T) {
	d := Dims{X: 5, Y: 3, Z: 4}
	assert.Equal(t, 0, d.Index(0, 0, 0, 0))
	assert.Equal(t, 1*60+2*15+1*5+3, d.Index(1, 3, 1, 2))

	seen := make(map[int]bool)
	for eye := 0; eye < 2; eye++ {
		for z := uint32(0); z < d.Z; z++ {
			for y := uint32(0); y < d.Y; y++ {
				for x := uint32(0); x < d.X; x++ {
					idx := d.Index(eye, x, y, z)
					require.False(t, seen[idx])
					seen[idx] = true
					e, cx, cy, cz := d.Coord(idx)
					assert.Equal(t, []uint32{uint32(eye), x, y, z}, []uint32{uint32(e), cx, cy, cz})
				}
			}
		}
	}
	assert.Len(t, seen, d.ClusterCount(2))
}

func TestSliceDepth_Coverage(t *testing.T) {
	const near, far, slices = 1, 16384, 32
	assert.Equal(t, float32(near), SliceDepth(0, near, far, slices))
	assert.Equal(t, float32(far), SliceDepth(slices, near, far, slices))

	var total float32
	for k := uint32(0); k < slices; k++ {
		lo, hi := SliceDepth(k, near, far, slices), SliceDepth(k+1, near, far, slices)
		require.Greater(t, hi, lo)
		total += hi - lo
		mid := (lo + hi) / 2
		assert.Equal(t, k, SliceForDepth(mid, near, far, slices))
	}
	assert.InDelta(t, far-near, total, 0.5)

	assert.Equal(t, uint32(0), SliceForDepth(0.1, near, far, slices))
	assert.Equal(t, uint32(slices-1), SliceForDepth(1e6, near, far, slices))
}

func TestBuildGrid_Bounds(t *testing.T) {
	cam := newTestCamera(256, 128, 1, 100)
	dims := DimsForScreen(256, 128, 64, 8)
	grid := BuildGrid([]camera.Camera{cam}, dims, [2]float32{256, 128})
	require.Len(t, grid, dims.ClusterCount(1))

	for idx, aabb := range grid {
		_, _, _, z := dims.Coord(idx)
		for i := 0; i < 3; i++ {
			assert.LessOrEqual(t, aabb.MinPoint[i], aabb.MaxPoint[i])
		}
		assert.Equal(t, -SliceDepth(z+1, 1, 100, dims.Z), aabb.MinPoint[2])
		assert.Equal(t, -SliceDepth(z, 1, 100, dims.Z), aabb.MaxPoint[2])
	}

	// Neighbouring slices share their boundary plane.
	for z := uint32(1); z < dims.Z; z++ {
		assert.Equal(t, grid[dims.Index(0, 0, 0, z-1)].MinPoint[2], grid[dims.Index(0, 0, 0, z)].MaxPoint[2])
	}

	// Left and right halves mirror each other.
	left := grid[dims.Index(0, 0, 0, 3)]
	right := grid[dims.Index(0, dims.X-1, 0, 3)]
	assert.InDelta(t, -left.MinPoint[0], right.MaxPoint[0], 1e-3)

	again := BuildGrid([]camera.Camera{cam}, dims, [2]float32{256, 128})
	assert.Equal(t, grid, again)
}

// aabbHolds reports whether p lies in a, allowing for float error.
func aabbHolds(a light.GPUClusterAABB, p mgl32.Vec3) bool {
	const tol = 1e-3
	for i := 0; i < 3; i++ {
		if p[i] < a.MinPoint[i]-tol || p[i] > a.MaxPoint[i]+tol {
			return false
		}
	}
	return true
}

func TestBuildGrid_NeighbouringTilesShareEdges(t *testing.T) {
	screen := [2]float32{256, 128}
	cam := newTestCamera(256, 128, 1, 100)
	dims := DimsForScreen(256, 128, 32, 6)
	grid := BuildGrid([]camera.Camera{cam}, dims, screen)
	inv := cam.InverseProjectionMatrix()
	tileW := screen[0] / float32(dims.X)
	tileH := screen[1] / float32(dims.Y)

	// edgePoint is the pixel (px, py) pushed out to view depth d.
	edgePoint := func(px, py, d float32) mgl32.Vec3 {
		ray := screenToView(inv, screen, px, py)
		return ray.Mul(-d / ray.Z())
	}

	for z := uint32(0); z < dims.Z; z++ {
		depths := []float32{SliceDepth(z, 1, 100, dims.Z), SliceDepth(z+1, 1, 100, dims.Z)}
		for y := uint32(0); y < dims.Y; y++ {
			for x := uint32(0); x < dims.X; x++ {
				here := grid[dims.Index(0, x, y, z)]
				if x+1 < dims.X {
					right := grid[dims.Index(0, x+1, y, z)]
					assert.GreaterOrEqual(t, here.MaxPoint[0]+1e-4, right.MinPoint[0], "gap at x=%d y=%d z=%d", x, y, z)
					for _, d := range depths {
						for _, py := range []float32{float32(y) * tileH, float32(y+1) * tileH} {
							p := edgePoint(float32(x+1)*tileW, py, d)
							assert.True(t, aabbHolds(here, p) && aabbHolds(right, p), "x edge %d,%d,%d at depth %v", x, y, z, d)
						}
					}
				}
				if y+1 < dims.Y {
					below := grid[dims.Index(0, x, y+1, z)]
					assert.GreaterOrEqual(t, below.MaxPoint[1]+1e-4, here.MinPoint[1], "gap at x=%d y=%d z=%d", x, y, z)
					for _, d := range depths {
						for _, px := range []float32{float32(x) * tileW, float32(x+1) * tileW} {
							p := edgePoint(px, float32(y+1)*tileH, d)
							assert.True(t, aabbHolds(here, p) && aabbHolds(below, p), "y edge %d,%d,%d at depth %v", x, y, z, d)
						}
					}
				}
			}
		}
	}

	// The outer tiles reach the frustum sides at the far plane.
	farCorner := edgePoint(screen[0], 0, 100)
	assert.InDelta(t, farCorner[0], grid[dims.Index(0, dims.X-1, 0, dims.Z-1)].MaxPoint[0], 1e-3)
	assert.InDelta(t, farCorner[1], grid[dims.Index(0, dims.X-1, 0, dims.Z-1)].MaxPoint[1], 1e-3)
}

func TestGridBuilder_MatchesCPUGrid(t *testing.T) {
	c := newTestSystem(t, 320, 192, WithDepthSlices(6))
	cam := newTestCamera(320, 192, 0.5, 250)
	_, err := c.Prepare(NewFrameContext(0, []camera.Camera{cam}, nil))
	require.NoError(t, err)

	rb, err := c.Readback()
	require.NoError(t, err)
	want := BuildGrid([]camera.Camera{cam}, rb.Dims, [2]float32{320, 192})
	require.Len(t, rb.Clusters, len(want))
	for i := range want {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, want[i].MinPoint[k], rb.Clusters[i].MinPoint[k], 1e-3)
			assert.InDelta(t, want[i].MaxPoint[k], rb.Clusters[i].MaxPoint[k], 1e-3)
		}
	}
}

func TestGridBuilder_DirtyTracking(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4))
	cam := newTestCamera(128, 128, 1, 100)
	prepare := func(i uint64) bool {
		t.Helper()
		stats, err := c.Prepare(NewFrameContext(i, []camera.Camera{cam}, nil))
		require.NoError(t, err)
		return stats.GridRebuilt
	}

	assert.True(t, prepare(0))
	assert.False(t, prepare(1))

	cam.SetFov(camera.DefaultFov + 5e-5)
	assert.False(t, prepare(2))

	cam.SetFov(camera.DefaultFov + 1e-2)
	assert.True(t, prepare(3))
	assert.False(t, prepare(4))

	cam.SetClipPlanes(1, 200)
	assert.True(t, prepare(5))

	c.GridBuilder().Force()
	assert.True(t, prepare(6))
	assert.False(t, prepare(7))

	assert.Equal(t, uint64(4), c.GridBuilder().Rebuilds())
	assert.Equal(t, uint64(4), c.Stats().GridRebuilds)
}

func TestGridBuilder_Build(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4))
	cam := newTestCamera(128, 128, 1, 100)
	frame := NewFrameContext(0, []camera.Camera{cam}, nil)

	g := c.GridBuilder()
	assert.True(t, g.Dirty(frame))
	rebuilt, err := g.Build(frame)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.False(t, g.Dirty(frame))

	rebuilt, err = g.Build(frame)
	require.NoError(t, err)
	assert.False(t, rebuilt)

	require.NoError(t, c.Culler().Cull(0))
	rb, err := c.Readback()
	require.NoError(t, err)
	assert.Equal(t, BuildGrid([]camera.Camera{cam}, g.Dims(), [2]float32{128, 128})[0].MaxPoint[2], rb.Clusters[0].MaxPoint[2])
}

func TestGridBuilder_StereoDirty(t *testing.T) {
	c := newTestSystem(t, 128, 128, WithDepthSlices(4), WithEyeCount(2))
	left, right := newTestCamera(128, 128, 1, 100), newTestCamera(128, 128, 1, 100)
	frame := NewFrameContext(0, []camera.Camera{left, right}, nil)
	_, err := c.Prepare(frame)
	require.NoError(t, err)
	assert.False(t, c.GridBuilder().Dirty(frame))

	right.SetFov(1.0)
	assert.True(t, c.GridBuilder().Dirty(frame))
}

func TestSphereIntersectsAABB(t *testing.T) {
	box := light.GPUClusterAABB{MinPoint: [4]float32{-1, -1, -1}, MaxPoint: [4]float32{1, 1, 1}}
	assert.True(t, SphereIntersectsAABB([3]float32{0, 0, 0}, 0.1, box))
	assert.True(t, SphereIntersectsAABB([3]float32{2, 0, 0}, 1, box))
	assert.False(t, SphereIntersectsAABB([3]float32{2.01, 0, 0}, 1, box))
	assert.False(t, SphereIntersectsAABB([3]float32{2, 2, 0}, 1.4, box))
	assert.True(t, SphereIntersectsAABB([3]float32{2, 2, 0}, 1.5, box))
}
