package cluster

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// DrawKind tells world draws from interior draws.
type DrawKind int

const (
	// DrawWorld is an exterior draw. It never gets strict lights.
	DrawWorld DrawKind = iota
	// DrawInterior is a draw inside a cell with rooms and portals.
	DrawInterior
)

// Sphere is a world-space bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// DrawContext describes one draw for strict list selection.
type DrawContext struct {
	Kind DrawKind
	// Room is the room the geometry belongs to, or nil.
	Room *light.RoomID
	// Bounds optionally limits roomless interior draws to lights touching the geometry.
	Bounds *Sphere
}

// strictState is what the last staged strict list was built for.
type strictState struct {
	empty bool
	world bool
	room  int32
}

// StrictBinding is the strict list of one draw and where it lives in the strict list buffer.
type StrictBinding struct {
	List light.GPUStrictLightData
	// Offset is the dynamic offset to bind ShadingBindingStrictLights with for this draw.
	Offset uint32
	// Staged is false when the draw reuses the slot of the previous draw.
	Staged bool
}

// StrictListBuilder selects the strict light list of each draw from the frame's packed
// lights. Every list that differs from the previous one gets its own slot of the strict
// list buffer, so draws recorded into one render pass each read their own list. Slots
// are staged on the CPU and uploaded together by Flush.
type StrictListBuilder struct {
	r        renderer.Renderer
	provider bind_group_provider.BindGroupProvider
	binding  int
	rooms    *RoomTable

	records []light.GPULight
	origin  mgl32.Vec3

	stride   uint64
	slots    int
	staged   []byte
	used     int
	flushed  int
	lastSlot int
	last     strictState

	uploads uint64
	skips   uint64
	flushes uint64
}

func newStrictListBuilder(r renderer.Renderer, provider bind_group_provider.BindGroupProvider, binding int, rooms *RoomTable, slots int) *StrictListBuilder {
	stride := strictSlotStride()
	s := &StrictListBuilder{
		r:        r,
		provider: provider,
		binding:  binding,
		rooms:    rooms,
		stride:   stride,
		slots:    slots,
		staged:   make([]byte, uint64(slots)*stride),
	}
	s.reset()
	return s
}

// strictSlotStride is the byte distance between strict list slots.
func strictSlotStride() uint64 {
	var list light.GPUStrictLightData
	return renderer.DefaultDeviceLimits.AlignStorageOffset(uint64(list.Size()))
}

// reset starts a new frame: slots are reused from the first one.
func (s *StrictListBuilder) reset() {
	s.used, s.flushed = 0, 0
	s.lastSlot = -1
	s.last = strictState{room: -1}
}

// Update replaces the light records draws select from and starts a new frame of slots.
//
// Parameters:
//   - packed: the frame's packed lights
//   - origin: world position of eye 0, which record positions are relative to
func (s *StrictListBuilder) Update(packed PackedLights, origin mgl32.Vec3) {
	s.records = packed.Records
	s.origin = origin
	s.reset()
}

// Build selects the strict light list for draw:
//   - world draws get no lights, though the room index is still resolved
//   - interior draws in a known room get the lights whose room mask has that room
//   - other interior draws get the global lights, limited to Bounds when set
//
// At most light.MaxStrictLights are kept, in light buffer order.
//
// Parameters:
//   - draw: the draw
//
// Returns:
//   - light.GPUStrictLightData: the list
func (s *StrictListBuilder) Build(draw DrawContext) light.GPUStrictLightData {
	list := light.GPUStrictLightData{RoomIndex: -1}
	if draw.Room != nil {
		if idx, ok := s.rooms.Lookup(*draw.Room); ok {
			list.RoomIndex = int32(idx)
		}
	}
	if draw.Kind == DrawWorld {
		return list
	}

	n := 0
	for _, record := range s.records {
		if n == light.MaxStrictLights {
			break
		}
		if !s.selects(draw, list.RoomIndex, record) {
			continue
		}
		list.Lights[n] = record
		n++
	}
	list.NumStrictLights = uint32(n)
	return list
}

func (s *StrictListBuilder) selects(draw DrawContext, room int32, record light.GPULight) bool {
	if room >= 0 {
		return record.RoomMask.Has(int(room))
	}
	if record.Flags.Has(light.LightFlagPortalStrict) {
		return false
	}
	if draw.Bounds == nil {
		return true
	}
	reach := draw.Bounds.Radius + record.Radius
	return worldPosition(record, s.origin).Sub(draw.Bounds.Center).LenSqr() <= reach*reach
}

// Bind builds the strict list for draw and stages it in the next free slot, unless it would
// leave the previous draw's slot unchanged. A new slot is taken when the list is non-empty,
// when it just became empty, or when the draw kind or room differs from the previous draw.
//
// Parameters:
//   - draw: the draw
//
// Returns:
//   - StrictBinding: the list and its slot offset
//   - error: wraps ErrStrictSlotsExhausted when the frame has used every slot
func (s *StrictListBuilder) Bind(draw DrawContext) (StrictBinding, error) {
	list := s.Build(draw)
	next := strictState{
		empty: list.NumStrictLights == 0,
		world: draw.Kind == DrawWorld,
		room:  list.RoomIndex,
	}
	if s.lastSlot >= 0 && next.empty && s.last.empty && next.world == s.last.world && next.room == s.last.room {
		s.skips++
		return StrictBinding{List: list, Offset: s.offset(s.lastSlot)}, nil
	}
	if s.used == s.slots {
		return StrictBinding{List: list}, fmt.Errorf("%w: %d slots", ErrStrictSlotsExhausted, s.slots)
	}

	slot := s.used
	copy(s.staged[uint64(slot)*s.stride:], list.Marshal())
	s.used++
	s.lastSlot = slot
	s.last = next
	s.uploads++
	common.Logger().Debug("strict lights staged", "slot", slot, "count", list.NumStrictLights, "room", list.RoomIndex)
	return StrictBinding{List: list, Offset: s.offset(slot), Staged: true}, nil
}

func (s *StrictListBuilder) offset(slot int) uint32 {
	return uint32(uint64(slot) * s.stride)
}

// Flush uploads every slot staged since the last flush in one write. The pass that draws
// with the staged lists must be submitted after Flush.
//
// Returns:
//   - error: wraps ErrDeviceLost if the map was refused; the slots stay pending
func (s *StrictListBuilder) Flush() error {
	if s.flushed == s.used {
		return nil
	}
	from, to := uint64(s.flushed)*s.stride, uint64(s.used)*s.stride
	if err := s.r.MapWrite(s.provider, s.binding, from, s.staged[from:to]); err != nil {
		return deviceErr("strict list upload", err)
	}
	s.flushed = s.used
	s.flushes++
	return nil
}

// Slots returns the number of slots per frame.
func (s *StrictListBuilder) Slots() int {
	return s.slots
}

// Stride returns the byte distance between slots, a multiple of the storage offset alignment.
func (s *StrictListBuilder) Stride() uint64 {
	return s.stride
}

// Uploads returns how many strict lists were given a slot.
func (s *StrictListBuilder) Uploads() uint64 {
	return s.uploads
}

// Skips returns how many binds reused the previous draw's slot.
func (s *StrictListBuilder) Skips() uint64 {
	return s.skips
}

// Flushes returns how many batched writes reached the device.
func (s *StrictListBuilder) Flushes() uint64 {
	return s.flushes
}
