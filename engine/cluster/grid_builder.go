package cluster

import (
	"math"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/camera"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// gridKey is the camera state a built grid depends on.
type gridKey struct {
	params camera.Params
	aspect float32
}

// GridBuilder owns the cluster AABB buffer and rebuilds it on the GPU whenever the
// projection of any eye changes by more than the dirty epsilon.
type GridBuilder struct {
	r        renderer.Renderer
	provider bind_group_provider.BindGroupProvider
	bindings buildBindings
	pipeline string

	dims   Dims
	eyes   int
	screen [2]float32
	eps    float32

	valid   bool
	built   [light.MaxEyes]gridKey
	pending [light.MaxEyes]gridKey

	rebuilds uint64
}

func newGridBuilder(r renderer.Renderer, provider bind_group_provider.BindGroupProvider, bindings buildBindings, pipelineKey string, dims Dims, eyes int, screen [2]float32, eps float32) *GridBuilder {
	return &GridBuilder{
		r:        r,
		provider: provider,
		bindings: bindings,
		pipeline: pipelineKey,
		dims:     dims,
		eyes:     eyes,
		screen:   screen,
		eps:      eps,
	}
}

// Dims returns the grid dimensions of one eye.
func (g *GridBuilder) Dims() Dims {
	return g.dims
}

// Rebuilds returns how many times the grid has been rebuilt.
func (g *GridBuilder) Rebuilds() uint64 {
	return g.rebuilds
}

// Force invalidates the grid so the next Build rebuilds it regardless of camera changes.
func (g *GridBuilder) Force() {
	g.valid = false
}

// Dirty reports whether the grid built for the cached camera state is stale for frame.
func (g *GridBuilder) Dirty(frame *FrameContext) bool {
	if !g.valid {
		return true
	}
	for eye := 0; eye < g.eyes; eye++ {
		key := keyFor(frame.eye(eye))
		if key.params.Changed(g.built[eye].params, g.eps) || !common.NearlyEqual(key.aspect, g.built[eye].aspect, g.eps) {
			return true
		}
	}
	return false
}

// Build rebuilds the grid in its own compute frame when it is dirty. On failure the cached
// camera state is left untouched, so the previous grid stays in use and the next frame
// retries.
//
// Parameters:
//   - frame: the current frame
//
// Returns:
//   - bool: true if the grid was rebuilt
//   - error: wraps ErrDeviceLost if the device refused the rebuild
func (g *GridBuilder) Build(frame *FrameContext) (bool, error) {
	if !g.Dirty(frame) {
		return false, nil
	}
	if err := g.r.BeginComputeFrame(); err != nil {
		return false, deviceErr("grid build", err)
	}
	if _, err := g.encode(frame); err != nil {
		g.r.CancelComputeFrame()
		return false, err
	}
	if err := g.r.EndComputeFrame(); err != nil {
		return false, deviceErr("grid build", err)
	}
	g.commit()
	return true, nil
}

// encode writes the build uniforms and records the build dispatch into the open compute
// frame if the grid is dirty. commit must follow once the frame is submitted.
func (g *GridBuilder) encode(frame *FrameContext) (bool, error) {
	if !g.Dirty(frame) {
		return false, nil
	}
	var uniforms light.GPUClusterBuildUniforms
	for eye := 0; eye < light.MaxEyes; eye++ {
		cam := frame.eye(eye)
		uniforms.InverseProjection[eye] = cam.InverseProjectionMatrix()
		g.pending[eye] = keyFor(cam)
	}
	uniforms.ClusterSize = g.dims.Vec4(g.eyes)
	uniforms.ScreenSize = g.screen
	uniforms.LightsNear = frame.Eyes[0].Near()
	uniforms.LightsFar = frame.Eyes[0].Far()

	err := g.r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: g.provider,
		Binding:  g.bindings.uniforms,
		Data:     uniforms.Marshal(),
	}})
	if err != nil {
		return false, deviceErr("grid uniforms", err)
	}
	if err := g.r.DispatchCompute(g.pipeline, g.provider, g.dims.BuildWorkgroups(g.eyes)); err != nil {
		return false, deviceErr("grid dispatch", err)
	}
	return true, nil
}

func (g *GridBuilder) commit() {
	g.built = g.pending
	g.valid = true
	g.rebuilds++
	common.Logger().Debug("cluster grid rebuilt", "x", g.dims.X, "y", g.dims.Y, "z", g.dims.Z, "eyes", g.eyes)
}

func keyFor(cam camera.Camera) gridKey {
	return gridKey{params: cam.Params(), aspect: cam.Aspect()}
}

// SliceDepth returns the view distance of the k-th exponential slice boundary:
// near·(far/near)^(k/slices). SliceDepth(0) is near and SliceDepth(slices) is far.
//
// Parameters:
//   - k: the boundary index in [0, slices]
//   - near: near distance (> 0)
//   - far: far distance (> near)
//   - slices: the slice count
//
// Returns:
//   - float32: the boundary distance
func SliceDepth(k uint32, near, far float32, slices uint32) float32 {
	if k == 0 {
		return near
	}
	if k >= slices {
		return far
	}
	return float32(float64(near) * math.Pow(float64(far)/float64(near), float64(k)/float64(slices)))
}

// SliceForDepth is the inverse of SliceDepth: the slice containing view distance depth,
// clamped to [0, slices-1].
func SliceForDepth(depth, near, far float32, slices uint32) uint32 {
	if depth <= near {
		return 0
	}
	s := math.Floor(math.Log(float64(depth)/float64(near)) * float64(slices) / math.Log(float64(far)/float64(near)))
	return uint32(min(max(s, 0), float64(slices-1)))
}

// screenToView unprojects a pixel position on the near plane (NDC z = -1) into view space.
// Pixel y grows downward.
func screenToView(invProj mgl32.Mat4, screen [2]float32, px, py float32) mgl32.Vec3 {
	ndc := mgl32.Vec4{px/screen[0]*2 - 1, 1 - py/screen[1]*2, -1, 1}
	v := invProj.Mul4x1(ndc)
	return v.Vec3().Mul(1 / v.W())
}

// clusterBounds computes the view-space AABB of cluster (x, y, slice). Tiles divide the
// viewport evenly into size[0] by size[1] cells.
func clusterBounds(invProj mgl32.Mat4, size [4]uint32, screen [2]float32, near, far float32, x, y, slice uint32) light.GPUClusterAABB {
	tileW := screen[0] / float32(size[0])
	tileH := screen[1] / float32(size[1])
	minVS := screenToView(invProj, screen, float32(x)*tileW, float32(y)*tileH)
	maxVS := screenToView(invProj, screen, float32(x+1)*tileW, float32(y+1)*tileH)

	sliceNear := -SliceDepth(slice, near, far, size[2])
	sliceFar := -SliceDepth(slice+1, near, far, size[2])

	corners := [4]mgl32.Vec3{
		minVS.Mul(sliceNear / minVS.Z()),
		minVS.Mul(sliceFar / minVS.Z()),
		maxVS.Mul(sliceNear / maxVS.Z()),
		maxVS.Mul(sliceFar / maxVS.Z()),
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], c[i])
			hi[i] = max(hi[i], c[i])
		}
	}
	// The slice planes bound depth exactly.
	lo[2], hi[2] = sliceFar, sliceNear
	return light.GPUClusterAABB{
		MinPoint: [4]float32{lo[0], lo[1], lo[2], 0},
		MaxPoint: [4]float32{hi[0], hi[1], hi[2], 0},
	}
}

// BuildGrid computes the cluster AABBs on the CPU, in cluster index order, for every eye.
// It produces the same grid as the build kernel and is deterministic for identical inputs.
//
// Parameters:
//   - eyes: one or two cameras; eye 0 supplies near and far
//   - dims: the per-eye grid dimensions
//   - screen: the per-eye viewport in pixels
//
// Returns:
//   - []light.GPUClusterAABB: dims.ClusterCount(len(eyes)) AABBs
func BuildGrid(eyes []camera.Camera, dims Dims, screen [2]float32) []light.GPUClusterAABB {
	out := make([]light.GPUClusterAABB, dims.ClusterCount(len(eyes)))
	size := dims.Vec4(len(eyes))
	near, far := eyes[0].Near(), eyes[0].Far()
	for eye, cam := range eyes {
		inv := cam.InverseProjectionMatrix()
		for z := uint32(0); z < dims.Z; z++ {
			for y := uint32(0); y < dims.Y; y++ {
				for x := uint32(0); x < dims.X; x++ {
					out[dims.Index(eye, x, y, z)] = clusterBounds(inv, size, screen, near, far, x, y, z)
				}
			}
		}
	}
	return out
}
