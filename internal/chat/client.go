package chat

import (
	"net"
	"time"
)

// client is one active chat participant. Every field is guarded by the
// server state lock; the struct has no lock of its own.
type client struct {
	name    string
	addr    *net.UDPAddr
	addrKey string

	// muted holds sender names this client refuses delivery from, in the
	// order they were added, capped by the registry's mute capacity.
	muted []string

	// room is nil or the one room this client is a member of. Kept mutually
	// consistent with that room's member set.
	room *room

	lastActive   time.Time
	awaitingPong bool
	lastPingSent time.Time

	// heapIndex is this client's slot in the activity heap, -1 when absent.
	heapIndex int
}

// addrKey is the registry key for a source address.
func addrKey(addr *net.UDPAddr) string {
	return addr.String()
}

// mute appends target to the mute list. Duplicates and additions beyond
// capacity are rejected.
func (c *client) mute(target string, capacity int) bool {
	for _, m := range c.muted {
		if m == target {
			return false
		}
	}
	if len(c.muted) >= capacity {
		return false
	}
	c.muted = append(c.muted, target)
	return true
}

// unmute removes target from the mute list, compacting the remainder.
func (c *client) unmute(target string) bool {
	for i, m := range c.muted {
		if m == target {
			c.muted = append(c.muted[:i], c.muted[i+1:]...)
			return true
		}
	}
	return false
}

// hasMuted reports whether messages from sender are blocked.
func (c *client) hasMuted(sender string) bool {
	for _, m := range c.muted {
		if m == sender {
			return true
		}
	}
	return false
}
