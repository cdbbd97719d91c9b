package chat

import (
	"net"
	"testing"
	"time"
)

func heapClient(name string, port int, at time.Time) *client {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	return &client{
		name:       name,
		addr:       addr,
		addrKey:    addrKey(addr),
		lastActive: at,
		heapIndex:  -1,
	}
}

// verifyHeap asserts the two structural properties everything else leans on:
// parent timestamps are never later than their children, and every stored
// index points back at its own slot.
func verifyHeap(t *testing.T, h activityHeap) {
	t.Helper()
	for i := range h {
		if h[i].heapIndex != i {
			t.Fatalf("slot %d holds client %q with stored index %d", i, h[i].name, h[i].heapIndex)
		}
		if i > 0 {
			parent := (i - 1) / 2
			if h[i].lastActive.Before(h[parent].lastActive) {
				t.Fatalf("min-heap order violated between slot %d and parent %d", i, parent)
			}
		}
	}
}

func TestActivityHeapPeeksOldest(t *testing.T) {
	base := time.Now()
	clients := make([]*client, 5)
	for i := range clients {
		clients[i] = heapClient("c", 40000+i, base.Add(time.Duration(i)*time.Second))
	}

	var h activityHeap
	for _, i := range []int{3, 0, 4, 1, 2} {
		h.push(clients[i])
		verifyHeap(t, h)
	}

	if got := h.peek(); got != clients[0] {
		t.Fatalf("expected oldest client at root, got %q", got.name)
	}
}

func TestActivityHeapRemoveByHandle(t *testing.T) {
	base := time.Now()
	clients := make([]*client, 6)
	var h activityHeap
	for i := range clients {
		clients[i] = heapClient("c", 40000+i, base.Add(time.Duration(i)*time.Second))
		h.push(clients[i])
	}

	h.remove(clients[2])
	verifyHeap(t, h)
	if clients[2].heapIndex != -1 {
		t.Fatalf("removed client should have index -1, got %d", clients[2].heapIndex)
	}
	if len(h) != 5 {
		t.Fatalf("expected 5 clients after removal, got %d", len(h))
	}

	h.remove(clients[0])
	verifyHeap(t, h)
	if got := h.peek(); got != clients[1] {
		t.Fatalf("expected clients[1] at root after removing the oldest, got %q", got.name)
	}
}

func TestActivityHeapUpdateReorders(t *testing.T) {
	base := time.Now()
	clients := make([]*client, 4)
	var h activityHeap
	for i := range clients {
		clients[i] = heapClient("c", 40000+i, base.Add(time.Duration(i)*time.Second))
		h.push(clients[i])
	}

	// The root becomes the most recently active; the heap must rotate.
	clients[0].lastActive = base.Add(time.Hour)
	h.update(clients[0])
	verifyHeap(t, h)
	if got := h.peek(); got != clients[1] {
		t.Fatalf("expected clients[1] at root after touching clients[0], got %q", got.name)
	}

	// And back again.
	clients[0].lastActive = base.Add(-time.Hour)
	h.update(clients[0])
	verifyHeap(t, h)
	if got := h.peek(); got != clients[0] {
		t.Fatalf("expected clients[0] back at root, got %q", got.name)
	}
}

func TestActivityHeapIgnoresStaleHandles(t *testing.T) {
	base := time.Now()
	var h activityHeap
	member := heapClient("member", 40000, base)
	h.push(member)

	// A client that was never pushed, with an index that happens to point at
	// an occupied slot, must not disturb the heap.
	stranger := heapClient("stranger", 40001, base.Add(time.Second))
	stranger.heapIndex = 0
	h.remove(stranger)
	h.update(stranger)

	if len(h) != 1 || h.peek() != member {
		t.Fatalf("heap disturbed by a foreign handle: len=%d", len(h))
	}

	h.remove(member)
	h.remove(member) // second removal is a no-op
	if len(h) != 0 {
		t.Fatalf("expected empty heap, got %d entries", len(h))
	}
	if h.peek() != nil {
		t.Fatal("expected nil peek on empty heap")
	}
}
