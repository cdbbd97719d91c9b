package chat

import "container/heap"

// activityHeap orders clients by last activity, oldest at the root, so the
// sweeper finds the stalest client in O(1). Swap keeps every client's stored
// heapIndex equal to its slot, which is what makes removal and update by
// handle possible.
//
// Guarded by the server state lock, like the registry that owns it.
type activityHeap []*client

func (h activityHeap) Len() int { return len(h) }

func (h activityHeap) Less(i, j int) bool {
	return h[i].lastActive.Before(h[j].lastActive)
}

func (h activityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *activityHeap) Push(x any) {
	c := x.(*client)
	c.heapIndex = len(*h)
	*h = append(*h, c)
}

func (h *activityHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.heapIndex = -1
	*h = old[:n-1]
	return c
}

// push inserts c and records its slot in c.heapIndex.
func (h *activityHeap) push(c *client) {
	heap.Push(h, c)
}

// remove deletes c by its stored index and marks it out of the heap.
// A stale or foreign handle is ignored.
func (h *activityHeap) remove(c *client) {
	i := c.heapIndex
	if i < 0 || i >= len(*h) || (*h)[i] != c {
		return
	}
	heap.Remove(h, i)
}

// update restores heap order after c's lastActive changed in either
// direction.
func (h *activityHeap) update(c *client) {
	i := c.heapIndex
	if i < 0 || i >= len(*h) || (*h)[i] != c {
		return
	}
	heap.Fix(h, i)
}

// peek returns the stalest client without removing it, or nil when empty.
func (h activityHeap) peek() *client {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
