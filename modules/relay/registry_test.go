package relay

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestRegistry_Join(t *testing.T) {
	r := NewRegistry()

	occ, left := r.Join("s1", "room1")
	if occ != 1 {
		t.Errorf("Join() occupancy = %d, want 1", occ)
	}
	if left != nil {
		t.Errorf("Join() left = %+v, want nil", left)
	}

	occ, _ = r.Join("s2", "room1")
	if occ != 2 {
		t.Errorf("Join() occupancy = %d, want 2", occ)
	}
}

func TestRegistry_JoinSameRoomIsNoOp(t *testing.T) {
	r := NewRegistry()

	r.Join("s1", "room1")
	r.Join("s2", "room1")

	occ, left := r.Join("s1", "room1")
	if occ != 2 {
		t.Errorf("Join() same room occupancy = %d, want 2 (no double count)", occ)
	}
	if left != nil {
		t.Errorf("Join() same room left = %+v, want nil", left)
	}
	if got := r.Occupancy("room1"); got != 2 {
		t.Errorf("Occupancy() = %d, want 2", got)
	}
}

func TestRegistry_JoinSwitchesRooms(t *testing.T) {
	r := NewRegistry()

	r.Join("s1", "roomA")
	r.Join("s2", "roomA")

	occ, left := r.Join("s1", "roomB")
	if occ != 1 {
		t.Errorf("Join() new room occupancy = %d, want 1", occ)
	}
	if left == nil {
		t.Fatal("Join() switch did not report the vacated room")
	}
	if left.Room != "roomA" || left.Occupancy != 1 {
		t.Errorf("Join() left = %+v, want {roomA 1}", left)
	}

	if room, _ := r.Room("s1"); room != "roomB" {
		t.Errorf("Room(s1) = %q, want roomB", room)
	}
}

func TestRegistry_SwitchRemovesEmptiedRoom(t *testing.T) {
	r := NewRegistry()

	r.Join("s1", "roomA")
	_, left := r.Join("s1", "roomB")
	if left == nil || left.Occupancy != 0 {
		t.Fatalf("Join() left = %+v, want roomA at occupancy 0", left)
	}
	if got := r.Occupancy("roomA"); got != 0 {
		t.Errorf("Occupancy(roomA) = %d, want 0", got)
	}
	if members := r.Members("roomA"); members != nil {
		t.Errorf("Members(roomA) = %v, want nil", members)
	}
}

func TestRegistry_Leave(t *testing.T) {
	r := NewRegistry()

	r.Join("s1", "room1")
	r.Join("s2", "room1")

	left, ok := r.Leave("s1")
	if !ok {
		t.Fatal("Leave() ok = false, want true")
	}
	if left.Room != "room1" || left.Occupancy != 1 {
		t.Errorf("Leave() = %+v, want {room1 1}", left)
	}

	left, ok = r.Leave("s2")
	if !ok || left.Occupancy != 0 {
		t.Errorf("Leave() = %+v ok=%v, want {room1 0} true", left, ok)
	}

	if got := r.Occupancy("room1"); got != 0 {
		t.Errorf("Occupancy() after all left = %d, want 0", got)
	}
}

func TestRegistry_LeaveWithoutRoom(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Leave("ghost"); ok {
		t.Error("Leave() on unknown session ok = true, want false")
	}

	r.Join("s1", "room1")
	r.Leave("s1")
	if _, ok := r.Leave("s1"); ok {
		t.Error("Leave() twice ok = true, want false")
	}
}

func TestRegistry_OccupancyUnknownRoom(t *testing.T) {
	r := NewRegistry()
	if got := r.Occupancy("nowhere"); got != 0 {
		t.Errorf("Occupancy() = %d, want 0", got)
	}
}

func TestRegistry_MembersSnapshot(t *testing.T) {
	r := NewRegistry()

	r.Join("s1", "room1")
	r.Join("s2", "room1")
	r.Join("s3", "room2")

	members := r.Members("room1")
	sort.Strings(members)
	if len(members) != 2 || members[0] != "s1" || members[1] != "s2" {
		t.Errorf("Members(room1) = %v, want [s1 s2]", members)
	}

	// Mutations after the snapshot must not affect it.
	r.Leave("s2")
	if len(members) != 2 {
		t.Errorf("snapshot length changed to %d after Leave", len(members))
	}
}

// TestRegistry_ConcurrentChurn hammers join/leave/switch from many goroutines
// and verifies the occupancy counters stay consistent with the membership.
func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	rooms := []string{"a", "b", "c"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", i)
			for j := 0; j < 200; j++ {
				occ, _ := r.Join(id, rooms[(i+j)%len(rooms)])
				if occ < 1 {
					t.Errorf("Join() occupancy = %d, want >= 1", occ)
					return
				}
				if j%5 == 0 {
					if left, ok := r.Leave(id); ok && left.Occupancy < 0 {
						t.Errorf("Leave() occupancy = %d, want >= 0", left.Occupancy)
						return
					}
				}
			}
			r.Leave(id)
		}(i)
	}
	wg.Wait()

	for _, room := range rooms {
		if got := r.Occupancy(room); got != 0 {
			t.Errorf("Occupancy(%s) after drain = %d, want 0", room, got)
		}
		if members := r.Members(room); members != nil {
			t.Errorf("Members(%s) after drain = %v, want nil", room, members)
		}
	}
}
