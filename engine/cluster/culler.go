package cluster

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
)

// LightCuller assigns lights to clusters. Phase A runs on the device and produces the light
// grid and light index buffer. Phase B runs on the CPU and tags portal-strict lights with
// the rooms they may light.
type LightCuller struct {
	r        renderer.Renderer
	provider bind_group_provider.BindGroupProvider
	bindings cullBindings
	pipeline string
	rooms    *RoomTable

	dims          Dims
	eyes          int
	maxPerCluster uint32
}

func newLightCuller(r renderer.Renderer, provider bind_group_provider.BindGroupProvider, bindings cullBindings, pipelineKey string, rooms *RoomTable, dims Dims, eyes int, maxPerCluster uint32) *LightCuller {
	return &LightCuller{
		r:             r,
		provider:      provider,
		bindings:      bindings,
		pipeline:      pipelineKey,
		rooms:         rooms,
		dims:          dims,
		eyes:          eyes,
		maxPerCluster: maxPerCluster,
	}
}

// IndexCapacity is the length of the light index buffer: every cluster at its cap.
func (c *LightCuller) IndexCapacity() int {
	return c.dims.ClusterCount(c.eyes) * int(c.maxPerCluster)
}

// Cull runs Phase A in its own compute frame.
//
// Parameters:
//   - lightCount: the number of records in the light buffer
//
// Returns:
//   - error: wraps ErrDeviceLost if the device refused the pass
func (c *LightCuller) Cull(lightCount uint32) error {
	if err := c.r.BeginComputeFrame(); err != nil {
		return deviceErr("cull", err)
	}
	if err := c.encode(lightCount); err != nil {
		c.r.CancelComputeFrame()
		return err
	}
	if err := c.r.EndComputeFrame(); err != nil {
		return deviceErr("cull", err)
	}
	return nil
}

// encode resets the global counter, writes the cull uniforms and records the dispatch into
// the open compute frame. The pass runs even with no lights so every count is rewritten.
func (c *LightCuller) encode(lightCount uint32) error {
	uniforms := light.GPULightCullUniforms{
		ClusterSize:         c.dims.Vec4(c.eyes),
		LightCount:          lightCount,
		MaxLightsPerCluster: c.maxPerCluster,
	}
	err := c.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: c.provider, Binding: c.bindings.uniforms, Data: uniforms.Marshal()},
		{Provider: c.provider, Binding: c.bindings.counter, Data: make([]byte, light.LightCounterSize)},
	})
	if err != nil {
		return deviceErr("cull uniforms", err)
	}
	if err := c.r.DispatchCompute(c.pipeline, c.provider, c.dims.CullWorkgroups(c.eyes)); err != nil {
		return deviceErr("cull dispatch", err)
	}
	return nil
}

// PartitionRooms is Phase B. Every portal-strict light gets its rooms assigned indices in
// the room table; the returned masks are parallel to lights and zero for global lights.
//
// Parameters:
//   - lights: the frame's light snapshot
//
// Returns:
//   - []light.RoomMask: one mask per light
func (c *LightCuller) PartitionRooms(lights []light.Light) []light.RoomMask {
	masks := make([]light.RoomMask, len(lights))
	for i, l := range lights {
		if !l.PortalStrict() {
			continue
		}
		masks[i] = c.rooms.Mask(l.Rooms())
	}
	return masks
}

// Readback is a CPU copy of the culling output.
type Readback struct {
	Dims     Dims
	Eyes     int
	Clusters []light.GPUClusterAABB
	Grid     []light.GPULightGrid
	Indices  []uint32
}

// Readback copies the cluster AABBs, light grid and the used part of the light index buffer
// back to the CPU. It waits for all submitted work and is meant for tests and debugging.
//
// Returns:
//   - *Readback: the decoded buffers
//   - error: wraps ErrDeviceLost if a read failed
func (c *LightCuller) Readback() (*Readback, error) {
	count := c.dims.ClusterCount(c.eyes)
	aabbs, err := c.r.ReadBuffer(c.provider, c.bindings.clusters, 0, uint64(count*aabbWords*4))
	if err != nil {
		return nil, deviceErr("read clusters", err)
	}
	grid, err := c.r.ReadBuffer(c.provider, c.bindings.grid, 0, uint64(count*gridWords*4))
	if err != nil {
		return nil, deviceErr("read light grid", err)
	}
	counter, err := c.r.ReadBuffer(c.provider, c.bindings.counter, 0, light.LightCounterSize)
	if err != nil {
		return nil, deviceErr("read light counter", err)
	}
	used := min(int(binary.LittleEndian.Uint32(counter)), c.IndexCapacity())

	rb := &Readback{
		Dims:     c.dims,
		Eyes:     c.eyes,
		Grid:     light.UnmarshalLightGrid(grid),
		Clusters: light.UnmarshalClusterAABBs(aabbs),
	}
	if used > 0 {
		raw, err := c.r.ReadBuffer(c.provider, c.bindings.indices, 0, uint64(used*4))
		if err != nil {
			return nil, deviceErr("read light indices", err)
		}
		rb.Indices = make([]uint32, used)
		for i := range rb.Indices {
			rb.Indices[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	}
	return rb, nil
}
