package light

import "github.com/google/uuid"

// MaxRooms is the number of distinct rooms a RoomMask can address.
const MaxRooms = 128

// RoomID is the opaque identity of an interior room or portal-graph node,
// assigned by the host scene graph.
type RoomID = uuid.UUID

// NoRoom is the zero RoomID, used where a draw has no room context.
var NoRoom RoomID = uuid.Nil

// NewRoomID allocates a fresh random RoomID.
func NewRoomID() RoomID {
	return uuid.New()
}

// RoomMask is a 128-bit set of room indices, laid out as the vec4<u32> the
// shaders test against.
type RoomMask [4]uint32

// Set adds room index i to the mask. Indices outside [0, MaxRooms) are ignored.
func (m *RoomMask) Set(i int) {
	if i < 0 || i >= MaxRooms {
		return
	}
	m[i/32] |= 1 << uint(i%32)
}

// Has reports whether room index i is in the mask.
func (m RoomMask) Has(i int) bool {
	if i < 0 || i >= MaxRooms {
		return false
	}
	return m[i/32]&(1<<uint(i%32)) != 0
}

// Intersects reports whether the two masks share any room.
func (m RoomMask) Intersects(other RoomMask) bool {
	return m[0]&other[0] != 0 || m[1]&other[1] != 0 || m[2]&other[2] != 0 || m[3]&other[3] != 0
}

// Empty reports whether no room bit is set.
func (m RoomMask) Empty() bool {
	return m == RoomMask{}
}
