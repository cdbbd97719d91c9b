package chat

// historyRing is a fixed-capacity FIFO of recent message text. Append
// overwrites the oldest entry once the ring is full. Iteration yields
// entries oldest first.
//
// Not self-locking: the global ring is guarded by the server state lock and
// room rings live inside the same critical sections.
type historyRing struct {
	entries []string
	head    int
	size    int
}

func newHistoryRing(capacity int) *historyRing {
	if capacity < 1 {
		capacity = 1
	}
	return &historyRing{entries: make([]string, capacity)}
}

// Append stores text in the next slot, discarding the oldest entry when the
// ring is full.
func (r *historyRing) Append(text string) {
	tail := (r.head + r.size) % len(r.entries)
	r.entries[tail] = text
	if r.size < len(r.entries) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.entries)
	}
}

// Items returns the stored entries in insertion order, oldest first.
func (r *historyRing) Items() []string {
	items := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		items = append(items, r.entries[(r.head+i)%len(r.entries)])
	}
	return items
}

func (r *historyRing) Len() int {
	return r.size
}
