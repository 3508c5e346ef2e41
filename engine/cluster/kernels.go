package cluster

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed assets/cluster_build.wgsl
var clusterBuildSource string

//go:embed assets/cluster_cull.wgsl
var clusterCullSource string

//go:embed assets/cluster_lookup.wgsl
var clusterLookupSource string

const (
	buildPipelineKey = "cluster_build"
	cullPipelineKey  = "cluster_cull"

	// maxLightsDefine is the @oxy:define constant sizing the cull kernel's local list.
	maxLightsDefine = "MAX_LIGHTS_PER_CLUSTER"
)

// Word strides and offsets of the GPU records as the host kernels see them.
const (
	lightWords     = 28 // 112-byte Light
	lightRadiusW   = 3
	lightPosVSW    = 12
	aabbWords      = 8
	gridWords      = 2
	buildSizeW     = 32
	buildScreenW   = 36
	buildNearW     = 38
	buildFarW      = 39
	cullLightCount = 4
	cullMaxLights  = 5
)

// buildBindings are the binding indices of the grid build kernel.
type buildBindings struct {
	uniforms int
	clusters int
}

// cullBindings are the binding indices of the light assignment kernel.
type cullBindings struct {
	uniforms int
	clusters int
	lights   int
	grid     int
	indices  int
	counter  int
}

// resolve looks up the binding of each role in s.
func resolve(s shader.Shader, roles ...string) ([]int, error) {
	out := make([]int, len(roles))
	for i, role := range roles {
		b, ok := s.BindingForRole(role)
		if !ok {
			return nil, fmt.Errorf("shader %s declares no %q binding", s.Key(), role)
		}
		out[i] = b
	}
	return out, nil
}

// newBuildPipeline compiles the grid build kernel and pairs it with its host kernel.
func newBuildPipeline() (pipeline.Pipeline, buildBindings, error) {
	s, err := shader.NewShader(buildPipelineKey, clusterBuildSource)
	if err != nil {
		return nil, buildBindings{}, err
	}
	b, err := resolve(s, "build_uniforms", "clusters")
	if err != nil {
		return nil, buildBindings{}, err
	}
	bindings := buildBindings{uniforms: b[0], clusters: b[1]}
	p := pipeline.NewPipeline(buildPipelineKey,
		pipeline.WithComputeShader(s),
		pipeline.WithHostKernel(buildKernel(bindings)),
	)
	return p, bindings, nil
}

// newCullPipeline compiles the light assignment kernel with its per-cluster cap baked in.
// The key carries the cap so renderers shared between systems never mix kernels.
func newCullPipeline(maxLightsPerCluster uint32) (pipeline.Pipeline, cullBindings, error) {
	key := fmt.Sprintf("%s_%d", cullPipelineKey, maxLightsPerCluster)
	s, err := shader.NewShader(key, clusterCullSource, shader.WithDefine(maxLightsDefine, maxLightsPerCluster))
	if err != nil {
		return nil, cullBindings{}, err
	}
	b, err := resolve(s, "cull_uniforms", "clusters", "lights", "light_grid", string(shader.AnnotationArgLightIndices), "light_counter")
	if err != nil {
		return nil, cullBindings{}, err
	}
	bindings := cullBindings{uniforms: b[0], clusters: b[1], lights: b[2], grid: b[3], indices: b[4], counter: b[5]}
	p := pipeline.NewPipeline(key,
		pipeline.WithComputeShader(s),
		pipeline.WithHostKernel(cullKernel(bindings, maxLightsPerCluster)),
	)
	return p, bindings, nil
}

func loadSize(u *bind_group_provider.HostBuffer, base int) [4]uint32 {
	return [4]uint32{u.Load(base), u.Load(base + 1), u.Load(base + 2), u.Load(base + 3)}
}

func inGrid(gid [3]uint32, size [4]uint32) bool {
	return gid[0] < size[0] && gid[1] < size[1] && gid[2] < size[2]*size[3]
}

func flatIndex(gid [3]uint32, size [4]uint32) int {
	return int(gid[0]) + int(gid[1])*int(size[0]) + int(gid[2])*int(size[0])*int(size[1])
}

// buildKernel is the host rendition of cluster_build.wgsl.
func buildKernel(b buildBindings) pipeline.HostKernel {
	return func(gid [3]uint32, buffers map[int]*bind_group_provider.HostBuffer) {
		u := buffers[b.uniforms]
		size := loadSize(u, buildSizeW)
		if !inGrid(gid, size) {
			return
		}
		eye := int(gid[2] / size[2])
		var inv mgl32.Mat4
		for i := range inv {
			inv[i] = u.LoadFloat(eye*16 + i)
		}
		screen := [2]float32{u.LoadFloat(buildScreenW), u.LoadFloat(buildScreenW + 1)}
		aabb := clusterBounds(inv, size, screen, u.LoadFloat(buildNearW), u.LoadFloat(buildFarW), gid[0], gid[1], gid[2]%size[2])

		out := buffers[b.clusters]
		base := flatIndex(gid, size) * aabbWords
		for c := 0; c < 4; c++ {
			out.StoreFloat(base+c, aabb.MinPoint[c])
			out.StoreFloat(base+4+c, aabb.MaxPoint[c])
		}
	}
}

// cullKernel is the host rendition of cluster_cull.wgsl.
func cullKernel(b cullBindings, capacity uint32) pipeline.HostKernel {
	return func(gid [3]uint32, buffers map[int]*bind_group_provider.HostBuffer) {
		u := buffers[b.uniforms]
		size := loadSize(u, 0)
		if !inGrid(gid, size) {
			return
		}
		eye := int(gid[2] / size[2])
		index := flatIndex(gid, size)

		clusters := buffers[b.clusters]
		var aabb light.GPUClusterAABB
		for c := 0; c < 4; c++ {
			aabb.MinPoint[c] = clusters.LoadFloat(index*aabbWords + c)
			aabb.MaxPoint[c] = clusters.LoadFloat(index*aabbWords + 4 + c)
		}

		lights := buffers[b.lights]
		lightCount := u.Load(cullLightCount)
		limit := min(u.Load(cullMaxLights), capacity)
		visible := make([]uint32, 0, limit)
		for i := uint32(0); i < lightCount && uint32(len(visible)) < limit; i++ {
			base := int(i)*lightWords + lightPosVSW + eye*4
			center := mgl32.Vec3{lights.LoadFloat(base), lights.LoadFloat(base + 1), lights.LoadFloat(base + 2)}
			if SphereIntersectsAABB(center, lights.LoadFloat(int(i)*lightWords+lightRadiusW), aabb) {
				visible = append(visible, i)
			}
		}

		offset := buffers[b.counter].AtomicAdd(0, uint32(len(visible)))
		indices := buffers[b.indices]
		for j, li := range visible {
			indices.Store(int(offset)+j, li)
		}
		grid := buffers[b.grid]
		grid.Store(index*gridWords, offset)
		grid.Store(index*gridWords+1, uint32(len(visible)))
	}
}

// SphereIntersectsAABB reports whether a sphere touches a box: the closest point of the box
// lies within radius of the center.
//
// Parameters:
//   - center: the sphere center
//   - radius: the sphere radius
//   - aabb: the box
//
// Returns:
//   - bool: true if they overlap
func SphereIntersectsAABB(center mgl32.Vec3, radius float32, aabb light.GPUClusterAABB) bool {
	var distSq float32
	for i := 0; i < 3; i++ {
		closest := min(max(center[i], aabb.MinPoint[i]), aabb.MaxPoint[i])
		d := closest - center[i]
		distSq += d * d
	}
	return distSq <= radius*radius
}
