package cluster

import (
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/profiler"
)

// ClusteredLightingBuilderOption is a functional option applied during New.
type ClusteredLightingBuilderOption func(*clusteredLighting)

// WithTileSize sets the screen tile edge in pixels. Defaults to light.TileSize.
//
// Parameters:
//   - px: tile edge in pixels
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithTileSize(px uint32) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.tileSize = max(px, 1)
	}
}

// WithDepthSlices sets the number of exponential depth slices. Defaults to light.DepthSlices.
//
// Parameters:
//   - n: slice count
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithDepthSlices(n uint32) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.depthSlices = max(n, 1)
	}
}

// WithMaxLightsPerCluster sets the per-cluster light cap. Defaults to light.MaxLightsPerCluster.
//
// Parameters:
//   - n: the cap
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithMaxLightsPerCluster(n uint32) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.maxPerCluster = max(n, 1)
	}
}

// WithMaxLights sets the light buffer capacity, clamped to [1, light.MaxGPULights].
//
// Parameters:
//   - n: records per frame
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithMaxLights(n int) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.maxLights = min(max(n, 1), light.MaxGPULights)
	}
}

// WithDirtyEpsilon sets the tolerance of the grid rebuild check. Defaults to camera.DefaultParamsEpsilon.
//
// Parameters:
//   - eps: the tolerance
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithDirtyEpsilon(eps float32) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.eps = eps
	}
}

// WithEyeCount sets mono (1) or stereo (2) rendering. Defaults to 1.
//
// Parameters:
//   - n: the eye count, clamped to [1, light.MaxEyes]
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithEyeCount(n int) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.eyes = min(max(n, 1), light.MaxEyes)
	}
}

// WithStrictSlots sets how many draws per frame can bind their own strict light list.
// Defaults to light.StrictSlotsPerFrame.
//
// Parameters:
//   - n: slots per frame
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithStrictSlots(n int) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.strictSlots = max(n, 1)
	}
}

// WithContactShadows sets the contact shadow flag of the shading uniforms.
func WithContactShadows(enabled bool) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.contactShadows = enabled
	}
}

// WithLightsVisualisation enables the debug light overlay of the shading pass.
//
// Parameters:
//   - mode: what the overlay shows
//
// Returns:
//   - ClusteredLightingBuilderOption: a function that applies the option
func WithLightsVisualisation(mode light.LightsVisualisationMode) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.visualise = true
		c.visualiseMode = mode
	}
}

// WithRoomTable shares a room table instead of creating one.
func WithRoomTable(t *RoomTable) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.rooms = t
	}
}

// WithProfiler reports every prepared frame to p.
func WithProfiler(p *profiler.Profiler) ClusteredLightingBuilderOption {
	return func(c *clusteredLighting) {
		c.profiler = p
	}
}
