package cluster

import (
	"github.com/Carmen-Shannon/oxy-lights/engine/camera"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/google/uuid"
)

// FrameContext is everything a frame hands the lighting system: the per-eye cameras and a
// snapshot of the scene's lights. It is built fresh every frame and never retained.
type FrameContext struct {
	// ID identifies the frame in logs.
	ID uuid.UUID

	// Index is the monotonically increasing frame number.
	Index uint64

	// Eyes holds one camera for mono rendering or two for stereo. Eye 0 is the reference
	// for camera-relative light positions.
	Eyes []camera.Camera

	// Lights is the light snapshot for this frame, in the order culling preserves.
	Lights []light.Light
}

// NewFrameContext builds a FrameContext with a fresh ID.
//
// Parameters:
//   - index: the frame number
//   - eyes: one or two cameras
//   - lights: the light snapshot
//
// Returns:
//   - *FrameContext: the frame
func NewFrameContext(index uint64, eyes []camera.Camera, lights []light.Light) *FrameContext {
	return &FrameContext{
		ID:     uuid.New(),
		Index:  index,
		Eyes:   eyes,
		Lights: lights,
	}
}

// eye returns camera i, falling back to eye 0 when the frame is mono.
func (f *FrameContext) eye(i int) camera.Camera {
	if i < len(f.Eyes) {
		return f.Eyes[i]
	}
	return f.Eyes[0]
}
