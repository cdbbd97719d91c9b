package chat

import "sync"

// room is a named sub-channel with its own member set and history ring.
// Rooms exist only while they have members.
//
// The member set and the members' back-references are guarded by the server
// state lock; the bucket chain and room count are guarded by the table
// mutex. Composite operations hold the server write lock around the whole
// mutation, with the table mutex taken inside (lock order: server lock, then
// table mutex).
type room struct {
	name    string
	members map[*client]struct{}
	history *historyRing
	next    *room
}

// addMember links c into the room and sets its back-reference. A repeated
// add is a no-op.
func (r *room) addMember(c *client) {
	if _, ok := r.members[c]; ok {
		return
	}
	r.members[c] = struct{}{}
	c.room = r
}

// removeMember unlinks c from the member set only. The caller clears c.room
// in the same critical section.
func (r *room) removeMember(c *client) {
	delete(r.members, c)
}

// djb2 is the room-name hash: h(n) = h(n-1)*33 + byte.
func djb2(s string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// roomTable is a fixed-bucket hash table of rooms keyed by djb2 of the room
// name, with singly linked bucket chains.
type roomTable struct {
	mu      sync.Mutex
	buckets []*room
	histCap int
	count   int
}

func newRoomTable(buckets, histCap int) *roomTable {
	if buckets < 1 {
		buckets = 1
	}
	return &roomTable{
		buckets: make([]*room, buckets),
		histCap: histCap,
	}
}

func (t *roomTable) bucket(name string) int {
	return int(djb2(name) % uint32(len(t.buckets)))
}

// find returns the room with the given name or nil.
func (t *roomTable) find(name string) *room {
	t.mu.Lock()
	defer t.mu.Unlock()

	for r := t.buckets[t.bucket(name)]; r != nil; r = r.next {
		if r.name == name {
			return r
		}
	}
	return nil
}

// insert creates a room with an empty member set. Fails on duplicate name.
func (t *roomTable) insert(name string) (*room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.bucket(name)
	for r := t.buckets[i]; r != nil; r = r.next {
		if r.name == name {
			return nil, false
		}
	}

	r := &room{
		name:    name,
		members: make(map[*client]struct{}),
		history: newHistoryRing(t.histCap),
		next:    t.buckets[i],
	}
	t.buckets[i] = r
	t.count++
	return r, true
}

// remove unlinks the named room from its bucket chain.
func (t *roomTable) remove(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.bucket(name)
	var prev *room
	for r := t.buckets[i]; r != nil; prev, r = r, r.next {
		if r.name != name {
			continue
		}
		if prev == nil {
			t.buckets[i] = r.next
		} else {
			prev.next = r.next
		}
		r.next = nil
		t.count--
		return true
	}
	return false
}

// detachClient removes c from its current room, clears the back-reference,
// and deletes the room the moment its member set empties. Returns the room
// name and whether the room was deleted. The sole enforcer of the
// room-member consistency invariants; runs under the server write lock.
func (t *roomTable) detachClient(c *client) (roomName string, deleted bool) {
	r := c.room
	if r == nil {
		return "", false
	}

	r.removeMember(c)
	c.room = nil

	if len(r.members) == 0 {
		t.remove(r.name)
		return r.name, true
	}
	return r.name, false
}

func (t *roomTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
