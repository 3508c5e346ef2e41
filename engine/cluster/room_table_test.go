package cluster

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-lights/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTable_FirstSeenOrder(t *testing.T) {
	table := NewRoomTable()
	a, b := light.NewRoomID(), light.NewRoomID()

	assert.Equal(t, 0, table.AssignRoom(a))
	assert.Equal(t, 1, table.AssignRoom(b))
	assert.Equal(t, 0, table.AssignRoom(a))
	assert.Equal(t, -1, table.AssignRoom(light.NoRoom))
	assert.Equal(t, 2, table.Len())

	idx, ok := table.Lookup(b)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = table.Lookup(light.NewRoomID())
	assert.False(t, ok)
	assert.Equal(t, 2, table.Len())
}

func TestRoomTable_Aliasing(t *testing.T) {
	table := NewRoomTable()
	rooms := make([]light.RoomID, 130)
	for i := range rooms {
		rooms[i] = light.NewRoomID()
		idx := table.AssignRoom(rooms[i])
		if i < light.MaxRooms {
			require.Equal(t, i, idx)
		} else {
			require.Equal(t, light.MaxRooms-1, idx)
		}
	}
	assert.Equal(t, 130, table.Len())
	assert.Equal(t, 2, table.Aliased())
	assert.Equal(t, light.MaxRooms-1, table.AssignRoom(rooms[129]))
	assert.Equal(t, 2, table.Aliased())

	m := table.Mask(rooms[128:])
	assert.True(t, m.Has(light.MaxRooms-1))
	assert.False(t, m.Has(0))

	table.Reset()
	assert.Zero(t, table.Len())
	assert.Zero(t, table.Aliased())
	assert.Equal(t, 0, table.AssignRoom(rooms[129]))
}

func TestRoomTable_Mask(t *testing.T) {
	table := NewRoomTable()
	a, b, c := light.NewRoomID(), light.NewRoomID(), light.NewRoomID()
	table.AssignRoom(a)

	m := table.Mask([]light.RoomID{c, light.NoRoom, a})
	assert.True(t, m.Has(0))
	assert.True(t, m.Has(1))
	assert.False(t, m.Has(2))

	idx, ok := table.Lookup(c)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = table.Lookup(b)
	assert.False(t, ok)
	assert.True(t, table.Mask(nil).Empty())
}

func TestRoomTable_Concurrent(t *testing.T) {
	table := NewRoomTable()
	rooms := make([]light.RoomID, 64)
	for i := range rooms {
		rooms[i] = light.NewRoomID()
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range rooms {
				table.AssignRoom(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(rooms), table.Len())
	seen := make(map[int]bool)
	for _, id := range rooms {
		idx, ok := table.Lookup(id)
		require.True(t, ok)
		require.False(t, seen[idx])
		seen[idx] = true
	}
}
