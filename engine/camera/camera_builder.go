package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithLookAt positions the camera at eye looking toward target.
//
// Parameters:
//   - eye: world-space eye position
//   - target: world-space point to look at
//   - up: world-space up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the view transform
func WithLookAt(eye, target, up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = eye
		c.viewMatrix = mgl32.LookAtV(eye, target, up)
	}
}

// WithView sets an explicit view matrix and eye position.
//
// Parameters:
//   - view: the world-to-view transform
//   - position: the world-space eye position
//
// Returns:
//   - CameraBuilderOption: a function that sets the view transform
func WithView(view mgl32.Mat4, position mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewMatrix = view
		c.position = position
	}
}
