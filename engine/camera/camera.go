package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultFov is the vertical field of view in radians used when none is provided (70°).
	DefaultFov float32 = 70 * math.Pi / 180

	// DefaultNear is the near plane distance used when none is provided.
	DefaultNear float32 = 1

	// DefaultFar is the far plane distance used when none is provided.
	DefaultFar float32 = 16384

	// DefaultParamsEpsilon is the tolerance below which a change in FOV, near or far
	// does not count as a change for grid rebuilding purposes.
	DefaultParamsEpsilon float32 = 1e-4
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32

	position mgl32.Vec3

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4
}

// Camera holds the parameters of a single eye: projection, inverse projection,
// view transform, world position and the near/far/FOV values the cluster grid is
// derived from. Stereo rendering uses one Camera per eye.
//
// Matrices are column-major and follow the OpenGL convention produced by
// mgl32.Perspective: view space looks down -Z and NDC depth spans [-1, 1].
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Position returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// ViewMatrix returns the world-to-view transform.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the view-to-clip transform.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// InverseProjectionMatrix returns the clip-to-view transform used by the
	// cluster build pass to unproject tile corners.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	InverseProjectionMatrix() mgl32.Mat4

	// Params returns a snapshot of the values the cluster grid geometry depends on.
	//
	// Returns:
	//   - Params: the current FOV, near and far values
	Params() Params

	// SetFov sets the vertical field of view in radians and recomputes the projection.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio and recomputes the projection.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// SetClipPlanes sets the near and far planes and recomputes the projection.
	//
	// Parameters:
	//   - near: near plane distance (> 0)
	//   - far: far plane distance (> near)
	SetClipPlanes(near, far float32)

	// SetProjection replaces the projection with one supplied by the host renderer.
	// FOV, aspect, near and far are derived back from the matrix.
	//
	// Parameters:
	//   - proj: an OpenGL-style perspective projection
	SetProjection(proj mgl32.Mat4)

	// LookAt positions the eye and rebuilds the view matrix.
	//
	// Parameters:
	//   - eye: world-space eye position
	//   - target: world-space point the eye looks at
	//   - up: world-space up vector
	LookAt(eye, target, up mgl32.Vec3)

	// SetView replaces the view matrix and eye position directly.
	//
	// Parameters:
	//   - view: the world-to-view transform
	//   - position: world-space eye position
	SetView(view mgl32.Mat4, position mgl32.Vec3)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with the default 70° FOV, 1/16384 clip planes and
// a 16:9 aspect, positioned at the origin looking down -Z, then applies options.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions to configure the Camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		fov:        DefaultFov,
		aspect:     16.0 / 9.0,
		near:       DefaultNear,
		far:        DefaultFar,
		viewMatrix: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.updateProjection()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Params{Fov: FovFromProjection(c.projectionMatrix), Near: c.near, Far: c.far}
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateProjection()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateProjection()
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.updateProjection()
}

func (c *cameraImpl) SetProjection(proj mgl32.Mat4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectionMatrix = proj
	c.inverseProjectionMatrix = proj.Inv()
	c.fov = FovFromProjection(proj)
	c.near, c.far = ClipPlanesFromProjection(proj)
	if proj[0] != 0 {
		c.aspect = proj[5] / proj[0]
	}
}

func (c *cameraImpl) LookAt(eye, target, up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = eye
	c.viewMatrix = mgl32.LookAtV(eye, target, up)
}

func (c *cameraImpl) SetView(view mgl32.Mat4, position mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewMatrix = view
	c.position = position
}

// updateProjection rebuilds the projection and its inverse from fov/aspect/near/far.
// Callers must hold c.mu (or be in construction).
func (c *cameraImpl) updateProjection() {
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	c.inverseProjectionMatrix = c.projectionMatrix.Inv()
}

// FovFromProjection derives the vertical field of view (radians) from a
// perspective projection: 2·atan(1 / P[1][1]).
//
// Parameters:
//   - proj: a perspective projection matrix
//
// Returns:
//   - float32: vertical field of view in radians, or 0 for a degenerate matrix
func FovFromProjection(proj mgl32.Mat4) float32 {
	if proj[5] == 0 {
		return 0
	}
	return float32(2 * math.Atan(1/float64(proj[5])))
}

// ClipPlanesFromProjection recovers near and far distances from an OpenGL-style
// perspective projection (depth mapped to [-1, 1]).
//
// Parameters:
//   - proj: a perspective projection matrix
//
// Returns:
//   - near: near plane distance
//   - far: far plane distance
func ClipPlanesFromProjection(proj mgl32.Mat4) (near, far float32) {
	a, b := proj[10], proj[14]
	if a == 1 || a == -1 {
		return 0, 0
	}
	return b / (a - 1), b / (a + 1)
}

// Params is the subset of camera state that determines cluster grid geometry.
type Params struct {
	Fov  float32
	Near float32
	Far  float32
}

// Changed reports whether any of FOV, near or far differ from other by more than eps.
//
// Parameters:
//   - other: the previously recorded parameters
//   - eps: the tolerance (DefaultParamsEpsilon is typical)
//
// Returns:
//   - bool: true if the grid built for other is stale
func (p Params) Changed(other Params, eps float32) bool {
	return !common.NearlyEqual(p.Fov, other.Fov, eps) ||
		!common.NearlyEqual(p.Near, other.Near, eps) ||
		!common.NearlyEqual(p.Far, other.Far, eps)
}
