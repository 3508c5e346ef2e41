package cluster

import (
	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
)

// Dims is the size of the cluster grid of one eye.
type Dims struct {
	X uint32
	Y uint32
	Z uint32
}

// DimsForScreen derives the grid from a per-eye viewport: ceil(w/tile) by ceil(h/tile) tiles
// with slices depth slices each.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//   - tileSize: tile edge in pixels
//   - slices: depth slice count
//
// Returns:
//   - Dims: the grid dimensions
func DimsForScreen(width, height int, tileSize, slices uint32) Dims {
	x, y := light.TileCounts(width, height, max(tileSize, 1))
	return Dims{X: x, Y: y, Z: max(slices, 1)}
}

// ClusterCount returns the number of clusters across eyes eyes.
func (d Dims) ClusterCount(eyes int) int {
	return int(d.X) * int(d.Y) * int(d.Z) * max(eyes, 1)
}

// Index returns the flat cluster index of (x, y, z) for eye: eye*X*Y*Z + z*X*Y + y*X + x.
func (d Dims) Index(eye int, x, y, z uint32) int {
	return ((eye*int(d.Z)+int(z))*int(d.Y)+int(y))*int(d.X) + int(x)
}

// Coord is the inverse of Index.
func (d Dims) Coord(index int) (eye int, x, y, z uint32) {
	perSlice := int(d.X) * int(d.Y)
	globalZ := index / perSlice
	rem := index % perSlice
	return globalZ / int(d.Z), uint32(rem % int(d.X)), uint32(rem / int(d.X)), uint32(globalZ % int(d.Z))
}

// Vec4 packs the dims plus eye count in the vec4<u32> layout the kernels read.
func (d Dims) Vec4(eyes int) [4]uint32 {
	return [4]uint32{d.X, d.Y, d.Z, uint32(max(eyes, 1))}
}

// CullWorkgroups is the dispatch size of the light assignment kernel for eyes eyes.
func (d Dims) CullWorkgroups(eyes int) [3]uint32 {
	wg := light.ClusterWorkgroupSize
	return [3]uint32{
		common.CeilDiv(d.X, wg[0]),
		common.CeilDiv(d.Y, wg[1]),
		common.CeilDiv(d.Z*uint32(max(eyes, 1)), wg[2]),
	}
}

// BuildWorkgroups is the dispatch size of the grid build kernel: one single-invocation
// workgroup per cluster per eye.
func (d Dims) BuildWorkgroups(eyes int) [3]uint32 {
	return [3]uint32{d.X, d.Y, d.Z * uint32(max(eyes, 1))}
}
