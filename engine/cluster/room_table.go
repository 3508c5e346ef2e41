package cluster

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-lights/engine/light"
)

// RoomTable maps room identities to bit indices of light.RoomMask. Indices are handed out
// in first-seen order and stay stable until Reset. Once all light.MaxRooms indices are
// taken, further rooms alias to the last index.
type RoomTable struct {
	mu      sync.Mutex
	indices map[light.RoomID]int
	aliased int
}

// NewRoomTable returns an empty table.
func NewRoomTable() *RoomTable {
	return &RoomTable{indices: make(map[light.RoomID]int)}
}

// AssignRoom returns the index of id, assigning the next free one if id is new.
//
// Parameters:
//   - id: the room identity
//
// Returns:
//   - int: the bit index in [0, light.MaxRooms), or -1 for light.NoRoom
func (t *RoomTable) AssignRoom(id light.RoomID) int {
	if id == light.NoRoom {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.indices[id]; ok {
		return idx
	}
	idx := len(t.indices)
	if idx >= light.MaxRooms {
		idx = light.MaxRooms - 1
		t.aliased++
	}
	t.indices[id] = idx
	return idx
}

// Lookup returns the index of id without assigning one.
func (t *RoomTable) Lookup(id light.RoomID) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.indices[id]
	return idx, ok
}

// Len returns the number of known rooms, aliased ones included.
func (t *RoomTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.indices)
}

// Aliased returns how many rooms share the last index because the table was full.
func (t *RoomTable) Aliased() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aliased
}

// Reset forgets every room. Call it when the set of rooms changes wholesale, such as on a
// cell transition.
func (t *RoomTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.indices)
	t.aliased = 0
}

// Mask returns the mask of rooms, assigning indices as needed.
func (t *RoomTable) Mask(rooms []light.RoomID) light.RoomMask {
	var m light.RoomMask
	for _, id := range rooms {
		if idx := t.AssignRoom(id); idx >= 0 {
			m.Set(idx)
		}
	}
	return m
}
