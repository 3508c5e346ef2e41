package cluster

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/camera"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/profiler"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Binding indices of the shading provider returned by Bindings. They match the names used
// by ShadingSource.
const (
	ShadingBindingUniforms     = 0
	ShadingBindingLights       = 1
	ShadingBindingLightGrid    = 2
	ShadingBindingLightIndices = 3
	ShadingBindingStrictLights = 4
)

// FrameStats reports one Prepare call.
type FrameStats struct {
	Upload      UploadStats
	GridRebuilt bool
	Duration    time.Duration
}

// Stats are the running totals of a ClusteredLighting.
type Stats struct {
	Frames        uint64
	SkippedFrames uint64
	GridRebuilds  uint64
	StrictUploads uint64
	StrictSkips   uint64
	StrictFlushes uint64
	Rooms         int
	AliasedRooms  int
	LastFrame     FrameStats
}

// ClusteredLighting drives the lighting core for a frame: it uploads the light snapshot,
// rebuilds the cluster grid when the camera changed, assigns lights to clusters and binds
// a strict light list per draw.
type ClusteredLighting interface {
	// Init creates pipelines, buffers and bind groups for a per-eye viewport. Calling it
	// again releases and recreates everything for the new size.
	//
	// Parameters:
	//   - width: per-eye viewport width in pixels
	//   - height: per-eye viewport height in pixels
	//
	// Returns:
	//   - error: wraps ErrResourceCreation on failure
	Init(width, height int) error

	// Prepare runs the per-frame work: Phase B room partition, then one compute frame with
	// the light upload, the cluster uniforms, a grid rebuild if dirty and Phase A culling.
	// If the device refuses any step the whole frame is discarded and the previous frame's
	// lights, grid and indices stay bound together. Prepare also starts a new frame of strict
	// list slots.
	//
	// Parameters:
	//   - frame: the frame; needs at least one eye
	//
	// Returns:
	//   - FrameStats: what the frame did
	//   - error: ErrNotInitialized, or wraps ErrDeviceLost
	Prepare(frame *FrameContext) (FrameStats, error)

	// SetupDraw selects the strict light list of one draw and stages it in a slot of the
	// strict list buffer. The draw binds ShadingBindingStrictLights with the returned offset.
	//
	// Parameters:
	//   - draw: the draw
	//
	// Returns:
	//   - StrictBinding: the selected list and its dynamic offset
	//   - error: ErrNotInitialized, or wraps ErrStrictSlotsExhausted
	SetupDraw(draw DrawContext) (StrictBinding, error)

	// FlushDraws uploads the strict lists staged by SetupDraw since the last flush in one
	// write. Call it before submitting the pass that draws them.
	//
	// Returns:
	//   - error: ErrNotInitialized, or wraps ErrDeviceLost
	FlushDraws() error

	// Bindings returns the provider the shading pass binds: cluster uniforms, lights,
	// light grid, light indices and the strict light list (see the ShadingBinding constants).
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, nil before Init
	Bindings() bind_group_provider.BindGroupProvider

	// Locator returns the fragment-to-cluster mapping of the current grid.
	//
	// Parameters:
	//   - cam: the camera supplying near and far
	//
	// Returns:
	//   - Locator: the locator
	Locator(cam camera.Camera) Locator

	// Readback copies the culling output to the CPU. Meant for tests and debugging.
	//
	// Returns:
	//   - *Readback: the decoded buffers
	//   - error: ErrNotInitialized, or wraps ErrDeviceLost
	Readback() (*Readback, error)

	// GridBuilder returns the grid builder, nil before Init.
	GridBuilder() *GridBuilder

	// Uploader returns the light uploader, nil before Init.
	Uploader() *LightUploader

	// Culler returns the light culler, nil before Init.
	Culler() *LightCuller

	// StrictLists returns the strict list builder, nil before Init.
	StrictLists() *StrictListBuilder

	// Rooms returns the room table.
	Rooms() *RoomTable

	// Stats returns the running totals.
	Stats() Stats

	// Release frees every buffer and bind group. The renderer is left to its owner.
	Release()
}

// clusteredLighting is the implementation of the ClusteredLighting interface.
type clusteredLighting struct {
	mu *sync.Mutex
	r  renderer.Renderer

	tileSize       uint32
	depthSlices    uint32
	maxPerCluster  uint32
	maxLights      int
	eps            float32
	eyes           int
	contactShadows bool
	visualise      bool
	visualiseMode  light.LightsVisualisationMode
	strictSlots    int

	rooms    *RoomTable
	profiler *profiler.Profiler

	initialized bool
	dims        Dims
	screen      [2]float32

	buildProvider   bind_group_provider.BindGroupProvider
	cullProvider    bind_group_provider.BindGroupProvider
	shadingProvider bind_group_provider.BindGroupProvider

	grid     *GridBuilder
	uploader *LightUploader
	culler   *LightCuller
	strict   *StrictListBuilder

	frames  uint64
	skipped uint64
	last    FrameStats
}

var _ ClusteredLighting = &clusteredLighting{}

// New creates a ClusteredLighting on r. Nothing touches the device until Init.
//
// Parameters:
//   - r: the renderer to create resources on
//   - options: ClusteredLightingBuilderOption values
//
// Returns:
//   - ClusteredLighting: the lighting system
func New(r renderer.Renderer, options ...ClusteredLightingBuilderOption) ClusteredLighting {
	if r == nil {
		panic("cluster: New requires a renderer")
	}
	c := &clusteredLighting{
		mu:            &sync.Mutex{},
		r:             r,
		tileSize:      light.TileSize,
		depthSlices:   light.DepthSlices,
		maxPerCluster: light.MaxLightsPerCluster,
		maxLights:     light.MaxGPULights,
		eps:           camera.DefaultParamsEpsilon,
		eyes:          1,
		strictSlots:   light.StrictSlotsPerFrame,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.rooms == nil {
		c.rooms = NewRoomTable()
	}
	return c
}

func (c *clusteredLighting) Init(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if width <= 0 || height <= 0 {
		return resourceErr("init", fmt.Errorf("invalid viewport %dx%d", width, height))
	}
	if c.initialized {
		c.release()
	}
	if err := c.init(width, height); err != nil {
		c.release()
		common.Logger().Error("clustered lighting init failed", "error", err)
		return err
	}
	c.initialized = true
	common.Logger().Info("clustered lighting initialized",
		"x", c.dims.X, "y", c.dims.Y, "z", c.dims.Z, "eyes", c.eyes,
		"clusters", c.dims.ClusterCount(c.eyes), "max_lights", c.maxLights)
	return nil
}

func (c *clusteredLighting) init(width, height int) error {
	c.dims = DimsForScreen(width, height, c.tileSize, c.depthSlices)
	c.screen = [2]float32{float32(width), float32(height)}
	clusterCount := c.dims.ClusterCount(c.eyes)

	buildPipeline, buildBind, err := newBuildPipeline()
	if err != nil {
		return resourceErr("build shader", err)
	}
	cullPipeline, cullBind, err := newCullPipeline(c.maxPerCluster)
	if err != nil {
		return resourceErr("cull shader", err)
	}
	if err := c.r.RegisterPipelines(buildPipeline, cullPipeline); err != nil {
		return resourceErr("pipelines", err)
	}
	// The renderer keeps the first pipeline registered under a key.
	buildPipeline = c.registered(buildPipeline)
	cullPipeline = c.registered(cullPipeline)

	c.buildProvider = bind_group_provider.NewBindGroupProvider("Cluster Build")
	err = c.r.InitBindGroup(c.buildProvider, buildPipeline.Shader().BindGroupLayoutDescriptor(0), nil, map[int]uint64{
		buildBind.clusters: uint64(clusterCount * aabbWords * 4),
	})
	if err != nil {
		return resourceErr("build bind group", err)
	}

	indexCapacity := clusterCount * int(c.maxPerCluster)
	c.cullProvider = bind_group_provider.NewBindGroupProvider("Cluster Cull")
	c.cullProvider.ShareBuffer(cullBind.clusters, c.buildProvider, buildBind.clusters)
	err = c.r.InitBindGroup(c.cullProvider, cullPipeline.Shader().BindGroupLayoutDescriptor(0), nil, map[int]uint64{
		cullBind.lights:  uint64(c.maxLights * lightWords * 4),
		cullBind.grid:    uint64(clusterCount * gridWords * 4),
		cullBind.indices: uint64(indexCapacity * 4),
		cullBind.counter: light.LightCounterSize,
	})
	if err != nil {
		return resourceErr("cull bind group", err)
	}

	c.shadingProvider = bind_group_provider.NewBindGroupProvider("Cluster Shading")
	c.shadingProvider.ShareBuffer(ShadingBindingLights, c.cullProvider, cullBind.lights)
	c.shadingProvider.ShareBuffer(ShadingBindingLightGrid, c.cullProvider, cullBind.grid)
	c.shadingProvider.ShareBuffer(ShadingBindingLightIndices, c.cullProvider, cullBind.indices)
	err = c.r.InitBindGroup(c.shadingProvider, shadingLayout(), nil, map[int]uint64{
		ShadingBindingStrictLights: uint64(c.strictSlots) * strictSlotStride(),
	})
	if err != nil {
		return resourceErr("shading bind group", err)
	}

	c.grid = newGridBuilder(c.r, c.buildProvider, buildBind, buildPipeline.PipelineKey(), c.dims, c.eyes, c.screen, c.eps)
	c.uploader = newLightUploader(c.r, c.cullProvider, cullBind.lights, c.maxLights)
	c.culler = newLightCuller(c.r, c.cullProvider, cullBind, cullPipeline.PipelineKey(), c.rooms, c.dims, c.eyes, c.maxPerCluster)
	c.strict = newStrictListBuilder(c.r, c.shadingProvider, ShadingBindingStrictLights, c.rooms, c.strictSlots)
	return nil
}

func (c *clusteredLighting) registered(p pipeline.Pipeline) pipeline.Pipeline {
	if cached := c.r.Pipeline(p.PipelineKey()); cached != nil {
		return cached
	}
	return p
}

// shadingLayout is the group the shading pass binds. Every entry is read-only; the strict
// list is bound per draw through a dynamic offset.
func shadingLayout() wgpu.BindGroupLayoutDescriptor {
	visibility := wgpu.ShaderStageFragment | wgpu.ShaderStageCompute
	readOnly := func(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: visibility,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: size},
		}
	}
	uniforms := light.GPUClusterUniforms{}
	strict := light.GPUStrictLightData{}
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Cluster Shading Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    ShadingBindingUniforms,
				Visibility: visibility,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: uint64(uniforms.Size())},
			},
			readOnly(ShadingBindingLights, lightWords*4),
			readOnly(ShadingBindingLightGrid, gridWords*4),
			readOnly(ShadingBindingLightIndices, 4),
			{
				Binding:    ShadingBindingStrictLights,
				Visibility: visibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeReadOnlyStorage,
					HasDynamicOffset: true,
					MinBindingSize:   uint64(strict.Size()),
				},
			},
		},
	}
}

func (c *clusteredLighting) Prepare(frame *FrameContext) (FrameStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return FrameStats{}, ErrNotInitialized
	}
	if frame == nil || len(frame.Eyes) == 0 {
		return FrameStats{}, errors.New("cluster: frame has no eyes")
	}
	start := time.Now()

	stats, err := c.prepare(frame)
	stats.Duration = time.Since(start)
	c.frames++
	if err != nil {
		c.skipped++
		common.Logger().Warn("lighting frame skipped", "frame", frame.Index, "id", frame.ID, "error", err)
	} else {
		c.last = stats
		common.Logger().Debug("lighting frame prepared", "frame", frame.Index,
			"lights", stats.Upload.Packed, "rejected", stats.Upload.Rejected,
			"dropped", stats.Upload.Dropped, "grid_rebuilt", stats.GridRebuilt)
	}
	if c.profiler != nil {
		c.profiler.Tick(profiler.Sample{
			Lights:      stats.Upload.Packed,
			Rejected:    stats.Upload.Rejected,
			Dropped:     stats.Upload.Dropped,
			GridRebuilt: stats.GridRebuilt,
			Skipped:     err != nil,
			Duration:    stats.Duration,
		})
	}
	return stats, err
}

func (c *clusteredLighting) prepare(frame *FrameContext) (FrameStats, error) {
	var stats FrameStats

	masks := c.culler.PartitionRooms(frame.Lights)

	eye := frame.Eyes[0]
	uniforms := light.GPUClusterUniforms{
		ClusterSize:             c.dims.Vec4(c.eyes),
		ScreenSize:              c.screen,
		LightsNear:              eye.Near(),
		LightsFar:               eye.Far(),
		LightsVisualisationMode: c.visualiseMode,
		MaxLightsPerCluster:     c.maxPerCluster,
	}
	if c.contactShadows {
		uniforms.EnableContactShadows = 1
	}
	if c.visualise {
		uniforms.EnableLightsVisualisation = 1
	}

	if err := c.r.BeginComputeFrame(); err != nil {
		return stats, deviceErr("compute frame", err)
	}
	packed, upload, err := c.uploader.encode(frame, masks)
	stats.Upload = upload
	if err == nil {
		if uerr := c.r.EncodeWrite(c.shadingProvider, ShadingBindingUniforms, 0, uniforms.Marshal()); uerr != nil {
			err = deviceErr("cluster uniforms", uerr)
		}
	}
	var rebuilt bool
	if err == nil {
		rebuilt, err = c.grid.encode(frame)
	}
	if err == nil {
		err = c.culler.encode(uint32(len(packed.Records)))
	}
	if err != nil {
		c.r.CancelComputeFrame()
		return stats, err
	}
	if err := c.r.EndComputeFrame(); err != nil {
		return stats, deviceErr("compute frame", err)
	}
	if rebuilt {
		c.grid.commit()
	}
	stats.GridRebuilt = rebuilt

	c.strict.Update(packed, eye.Position())
	return stats, nil
}

func (c *clusteredLighting) SetupDraw(draw DrawContext) (StrictBinding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return StrictBinding{}, ErrNotInitialized
	}
	binding, err := c.strict.Bind(draw)
	if err != nil {
		common.Logger().Warn("strict light list not bound", "error", err)
	}
	return binding, err
}

func (c *clusteredLighting) FlushDraws() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.strict.Flush(); err != nil {
		common.Logger().Warn("strict light upload failed", "error", err)
		return err
	}
	return nil
}

func (c *clusteredLighting) Bindings() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shadingProvider
}

func (c *clusteredLighting) Locator(cam camera.Camera) Locator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Locator{Dims: c.dims, Screen: c.screen, Near: cam.Near(), Far: cam.Far()}
}

func (c *clusteredLighting) Readback() (*Readback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	return c.culler.Readback()
}

func (c *clusteredLighting) GridBuilder() *GridBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid
}

func (c *clusteredLighting) Uploader() *LightUploader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploader
}

func (c *clusteredLighting) Culler() *LightCuller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.culler
}

func (c *clusteredLighting) StrictLists() *StrictListBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strict
}

func (c *clusteredLighting) Rooms() *RoomTable {
	return c.rooms
}

func (c *clusteredLighting) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Frames:        c.frames,
		SkippedFrames: c.skipped,
		Rooms:         c.rooms.Len(),
		AliasedRooms:  c.rooms.Aliased(),
		LastFrame:     c.last,
	}
	if c.grid != nil {
		s.GridRebuilds = c.grid.Rebuilds()
	}
	if c.strict != nil {
		s.StrictUploads = c.strict.Uploads()
		s.StrictSkips = c.strict.Skips()
		s.StrictFlushes = c.strict.Flushes()
	}
	return s
}

func (c *clusteredLighting) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
}

func (c *clusteredLighting) release() {
	for _, p := range []bind_group_provider.BindGroupProvider{c.shadingProvider, c.cullProvider, c.buildProvider} {
		if p != nil {
			p.Release()
		}
	}
	c.buildProvider, c.cullProvider, c.shadingProvider = nil, nil, nil
	c.grid, c.uploader, c.culler, c.strict = nil, nil, nil, nil
	c.initialized = false
}
