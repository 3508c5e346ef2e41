package cluster

import (
	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// degenerateEpsilon is the threshold below which a light's color sum or radius makes it
// contribute nothing.
const degenerateEpsilon = 1e-4

// UploadStats counts what happened to a frame's light snapshot.
type UploadStats struct {
	// Submitted is the number of lights in the snapshot.
	Submitted int
	// Packed is the number of records written to the light buffer.
	Packed int
	// Rejected counts disabled, degenerate and non-finite lights.
	Rejected int
	// Dropped counts valid lights beyond the buffer capacity.
	Dropped int
}

// PackedLights is a frame's light buffer contents. Source maps each record back to its
// position in the snapshot.
type PackedLights struct {
	Records []light.GPULight
	Source  []int
}

// LightUploader packs the frame's light snapshot into GPU records and writes them to the
// light buffer.
type LightUploader struct {
	r        renderer.Renderer
	provider bind_group_provider.BindGroupProvider
	binding  int
	capacity int
}

func newLightUploader(r renderer.Renderer, provider bind_group_provider.BindGroupProvider, binding, capacity int) *LightUploader {
	return &LightUploader{
		r:        r,
		provider: provider,
		binding:  binding,
		capacity: min(capacity, light.MaxGPULights),
	}
}

// Capacity returns the maximum number of records per frame.
func (u *LightUploader) Capacity() int {
	return u.capacity
}

// Pack converts the frame's lights into GPU records without touching the device. Lights
// keep their snapshot order; the first Capacity valid lights win.
//
// Parameters:
//   - frame: the frame whose lights to pack
//   - masks: per-light room masks from PartitionRooms, parallel to frame.Lights (nil safe)
//
// Returns:
//   - PackedLights: the records and their snapshot indices
//   - UploadStats: the counts
func (u *LightUploader) Pack(frame *FrameContext, masks []light.RoomMask) (PackedLights, UploadStats) {
	stats := UploadStats{Submitted: len(frame.Lights)}
	packed := PackedLights{
		Records: make([]light.GPULight, 0, min(len(frame.Lights), u.capacity)),
		Source:  make([]int, 0, min(len(frame.Lights), u.capacity)),
	}

	for i, l := range frame.Lights {
		record, ok := packLight(frame, l)
		if !ok {
			stats.Rejected++
			continue
		}
		if len(packed.Records) == u.capacity {
			stats.Dropped++
			continue
		}
		if i < len(masks) && record.Flags.Has(light.LightFlagPortalStrict) {
			record.RoomMask = masks[i]
		}
		packed.Records = append(packed.Records, record)
		packed.Source = append(packed.Source, i)
	}
	stats.Packed = len(packed.Records)
	return packed, stats
}

// Upload packs the frame's lights and writes them through a mapped staging write.
//
// Parameters:
//   - frame: the frame whose lights to upload
//   - masks: per-light room masks from PartitionRooms (nil safe)
//
// Returns:
//   - PackedLights: what was written
//   - UploadStats: the counts
//   - error: wraps ErrDeviceLost if the map was refused
func (u *LightUploader) Upload(frame *FrameContext, masks []light.RoomMask) (PackedLights, UploadStats, error) {
	packed, stats := u.pack(frame, masks)
	if len(packed.Records) == 0 {
		return packed, stats, nil
	}
	if err := u.r.MapWrite(u.provider, u.binding, 0, light.MarshalLightBuffer(packed.Records)); err != nil {
		return PackedLights{}, stats, deviceErr("light upload", err)
	}
	return packed, stats, nil
}

// encode packs the frame's lights and records the light buffer write into the open compute
// frame, so the lights land together with the grid and cull results of the same frame.
func (u *LightUploader) encode(frame *FrameContext, masks []light.RoomMask) (PackedLights, UploadStats, error) {
	packed, stats := u.pack(frame, masks)
	if len(packed.Records) == 0 {
		return packed, stats, nil
	}
	if err := u.r.EncodeWrite(u.provider, u.binding, 0, light.MarshalLightBuffer(packed.Records)); err != nil {
		return PackedLights{}, stats, deviceErr("light upload", err)
	}
	return packed, stats, nil
}

func (u *LightUploader) pack(frame *FrameContext, masks []light.RoomMask) (PackedLights, UploadStats) {
	packed, stats := u.Pack(frame, masks)
	if stats.Dropped > 0 {
		common.Logger().Debug("light buffer full", "frame", frame.Index, "dropped", stats.Dropped)
	}
	return packed, stats
}

// packLight builds the GPU record of l, or reports false if l contributes nothing.
func packLight(frame *FrameContext, l light.Light) (light.GPULight, bool) {
	if !l.Enabled() {
		return light.GPULight{}, false
	}
	color := l.Color().Mul(l.Fade() * l.Dimmer())
	pos := l.Position()
	radius := l.Radius()
	if !common.AllFinite(color[0], color[1], color[2], pos[0], pos[1], pos[2], radius) {
		return light.GPULight{}, false
	}
	if color[0]+color[1]+color[2] <= degenerateEpsilon || radius <= degenerateEpsilon {
		return light.GPULight{}, false
	}

	record := light.GPULight{Color: color, Radius: radius}
	for eye := 0; eye < light.MaxEyes; eye++ {
		cam := frame.eye(eye)
		ws := pos.Sub(cam.Position())
		vs := cam.ViewMatrix().Mul4x1(pos.Vec4(1))
		record.PositionWS[eye] = [4]float32{ws[0], ws[1], ws[2], 0}
		record.PositionVS[eye] = [4]float32{vs[0], vs[1], vs[2], 0}
	}
	if l.PortalStrict() {
		record.Flags |= light.LightFlagPortalStrict
	}
	// Out-of-range slots leave the light unshadowed rather than sampling a foreign channel.
	if l.CastsShadows() && light.ValidShadowSlot(l.ShadowSlot()) {
		record.Flags |= light.LightFlagShadow
		record.ShadowMaskIndex = l.ShadowSlot()
	}
	return record, true
}

// worldPosition recovers a record's world position from its eye 0 camera-relative one.
func worldPosition(record light.GPULight, origin mgl32.Vec3) mgl32.Vec3 {
	ws := record.PositionWS[0]
	return mgl32.Vec3{ws[0], ws[1], ws[2]}.Add(origin)
}
