package light

import "github.com/Carmen-Shannon/oxy-lights/common"

// TileSize is the width and height in pixels of each screen-space cluster tile.
// The screen is divided into a grid of tiles and each tile column is split into
// DepthSlices slices along view depth.
const TileSize = 64

// DepthSlices is the default number of exponential depth slices in the cluster grid.
const DepthSlices = 32

// MaxLightsPerCluster is the maximum number of light indices stored per cluster
// in the light index buffer. If more lights overlap a cluster, excess lights are
// silently dropped.
const MaxLightsPerCluster = 128

// ClusterWorkgroupSize is the @workgroup_size of the light assignment kernel. Its 256
// invocations are the most a WebGPU device grants without raising limits.
var ClusterWorkgroupSize = [3]uint32{8, 8, 4}

// TileCounts computes the number of tiles in each dimension for a given screen
// resolution and tile size.
//
// Parameters:
//   - screenWidth: screen width in pixels
//   - screenHeight: screen height in pixels
//   - tileSize: tile edge length in pixels
//
// Returns:
//   - tileCountX: number of tile columns
//   - tileCountY: number of tile rows
func TileCounts(screenWidth, screenHeight int, tileSize uint32) (tileCountX, tileCountY uint32) {
	tileCountX = common.CeilDiv(uint32(max(screenWidth, 1)), tileSize)
	tileCountY = common.CeilDiv(uint32(max(screenHeight, 1)), tileSize)
	return
}
