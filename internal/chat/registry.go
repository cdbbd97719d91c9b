package chat

import (
	"net"
	"time"
)

// registry indexes active clients by display name and by source address and
// owns the activity heap. Both indexes always hold the same set of clients.
//
// Not self-locking: every call runs under the server state lock. Composite
// operations that also touch the room table (client destruction, room
// membership) are orchestrated by the server so the lock covers the whole
// mutation.
type registry struct {
	byName  map[string]*client
	byAddr  map[string]*client
	heap    activityHeap
	muteCap int
}

func newRegistry(muteCap int) *registry {
	return &registry{
		byName:  make(map[string]*client),
		byAddr:  make(map[string]*client),
		muteCap: muteCap,
	}
}

// add registers a new client when both the name and the address are free.
// The client starts with last activity now, an empty mute list, no room, and
// a live heap slot.
func (r *registry) add(addr *net.UDPAddr, name string, now time.Time) *client {
	if name == "" {
		return nil
	}
	key := addrKey(addr)
	if _, taken := r.byName[name]; taken {
		return nil
	}
	if _, taken := r.byAddr[key]; taken {
		return nil
	}

	c := &client{
		name:       name,
		addr:       addr,
		addrKey:    key,
		lastActive: now,
		heapIndex:  -1,
	}
	r.byName[name] = c
	r.byAddr[key] = c
	r.heap.push(c)
	return c
}

func (r *registry) findByName(name string) *client {
	return r.byName[name]
}

func (r *registry) findByAddr(key string) *client {
	return r.byAddr[key]
}

// remove drops c from both indexes and the heap. Room detachment is the
// caller's responsibility and must happen in the same critical section.
func (r *registry) remove(c *client) {
	delete(r.byName, c.name)
	delete(r.byAddr, c.addrKey)
	r.heap.remove(c)
}

// rename gives the client at key a new display name iff the name is unused.
func (r *registry) rename(key, newName string) bool {
	if newName == "" {
		return false
	}
	c := r.byAddr[key]
	if c == nil {
		return false
	}
	if _, taken := r.byName[newName]; taken {
		return false
	}

	delete(r.byName, c.name)
	c.name = newName
	r.byName[newName] = c
	return true
}

// touch refreshes c's activity: new timestamp, pong no longer awaited, heap
// reordered. Runs for every valid command from a registered address.
func (r *registry) touch(c *client, now time.Time) {
	c.lastActive = now
	c.awaitingPong = false
	r.heap.update(c)
}

// peekOldest returns the stalest client or nil.
func (r *registry) peekOldest() *client {
	return r.heap.peek()
}

// each calls fn for every registered client. Fan-out order is unspecified.
func (r *registry) each(fn func(*client)) {
	for _, c := range r.byName {
		fn(c)
	}
}

func (r *registry) len() int {
	return len(r.byName)
}
