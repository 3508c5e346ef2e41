package cluster

import (
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/shader"
)

// Coord addresses one cluster.
type Coord struct {
	Eye int
	X   uint32
	Y   uint32
	Z   uint32
}

// Locator maps fragments to clusters the way the shading pass does (see ShadingSource).
type Locator struct {
	Dims   Dims
	Screen [2]float32
	Near   float32
	Far    float32
}

// ClusterCoord returns the cluster holding a fragment. Pixel y grows downward and
// viewDepth is the positive distance along the view axis; values outside the grid clamp
// to the nearest edge cluster.
//
// Parameters:
//   - eye: the eye index
//   - screenX, screenY: the fragment position in pixels
//   - viewDepth: the fragment's view depth
//
// Returns:
//   - Coord: the cluster
func (l Locator) ClusterCoord(eye int, screenX, screenY, viewDepth float32) Coord {
	tileW := l.Screen[0] / float32(l.Dims.X)
	tileH := l.Screen[1] / float32(l.Dims.Y)
	return Coord{
		Eye: eye,
		X:   clampTile(screenX/tileW, l.Dims.X),
		Y:   clampTile(screenY/tileH, l.Dims.Y),
		Z:   SliceForDepth(viewDepth, l.Near, l.Far, l.Dims.Z),
	}
}

// ClusterIndex flattens c for this grid.
func (l Locator) ClusterIndex(c Coord) int {
	return l.Dims.Index(c.Eye, c.X, c.Y, c.Z)
}

func clampTile(v float32, n uint32) uint32 {
	if v <= 0 {
		return 0
	}
	return min(uint32(v), n-1)
}

// LightsAt returns the light buffer indices assigned to cluster c, in assignment order.
//
// Parameters:
//   - c: the cluster
//
// Returns:
//   - []uint32: the indices, nil for an empty cluster
func (r *Readback) LightsAt(c Coord) []uint32 {
	entry := r.Grid[r.Dims.Index(c.Eye, c.X, c.Y, c.Z)]
	if entry.Count == 0 {
		return nil
	}
	return r.Indices[entry.Offset : entry.Offset+entry.Count]
}

// Totals returns how many clusters hold at least one light and the number of index slots
// in use.
func (r *Readback) Totals() (occupied, indices int) {
	for _, g := range r.Grid {
		if g.Count > 0 {
			occupied++
		}
	}
	return occupied, len(r.Indices)
}

// ShadingSource returns the WGSL helpers the shading pass includes to find a fragment's
// cluster, with the Light, LightGrid, ClusterUniforms and StrictLightData structs expanded.
//
// Returns:
//   - string: the WGSL source
//   - error: an error if pre-processing fails
func ShadingSource() (string, error) {
	return shader.NewPreProcessor(nil).Process(clusterLookupSource)
}
