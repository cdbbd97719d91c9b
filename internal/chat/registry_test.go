package chat

import (
	"net"
	"testing"
	"time"
)

func regAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := newRegistry(16)
	now := time.Now()

	if r.add(regAddr(40001), "alice", now) == nil {
		t.Fatal("first add should succeed")
	}
	if r.add(regAddr(40002), "alice", now) != nil {
		t.Fatal("duplicate name must be rejected")
	}
	if r.add(regAddr(40001), "bob", now) != nil {
		t.Fatal("duplicate address must be rejected")
	}
	if r.add(regAddr(40003), "", now) != nil {
		t.Fatal("empty name must be rejected")
	}
	if r.len() != 1 {
		t.Fatalf("expected 1 registered client, got %d", r.len())
	}
}

func TestRegistryLookups(t *testing.T) {
	r := newRegistry(16)
	now := time.Now()
	addr := regAddr(40001)
	c := r.add(addr, "alice", now)

	if r.findByName("alice") != c {
		t.Fatal("findByName should return the registered client")
	}
	if r.findByAddr(addrKey(addr)) != c {
		t.Fatal("findByAddr should return the registered client")
	}
	if r.findByName("bob") != nil {
		t.Fatal("unknown name should return nil")
	}
	if r.findByAddr("10.0.0.1:1") != nil {
		t.Fatal("unknown address should return nil")
	}
}

func TestRegistryRemoveClearsIndexes(t *testing.T) {
	r := newRegistry(16)
	now := time.Now()
	c := r.add(regAddr(40001), "alice", now)

	r.remove(c)
	if r.findByName("alice") != nil || r.findByAddr(c.addrKey) != nil {
		t.Fatal("removed client still reachable through an index")
	}
	if c.heapIndex != -1 {
		t.Fatalf("removed client should leave the heap, index %d", c.heapIndex)
	}
	if r.len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.len())
	}

	// The freed name and address are reusable.
	if r.add(regAddr(40001), "alice", now.Add(time.Second)) == nil {
		t.Fatal("re-adding a removed client should succeed")
	}
}

func TestRegistryRename(t *testing.T) {
	r := newRegistry(16)
	now := time.Now()
	alice := r.add(regAddr(40001), "alice", now)
	r.add(regAddr(40002), "bob", now)

	if r.rename(alice.addrKey, "bob") {
		t.Fatal("rename to a taken name must fail")
	}
	if alice.name != "alice" {
		t.Fatalf("failed rename must not change the name, got %q", alice.name)
	}

	if r.rename("10.0.0.1:1", "carol") {
		t.Fatal("rename for an unknown address must fail")
	}

	if !r.rename(alice.addrKey, "carol") {
		t.Fatal("rename to a free name should succeed")
	}
	if alice.name != "carol" {
		t.Fatalf("expected name carol, got %q", alice.name)
	}
	if r.findByName("alice") != nil {
		t.Fatal("old name still resolves after rename")
	}
	if r.findByName("carol") != alice {
		t.Fatal("new name does not resolve after rename")
	}
}

func TestRegistryTouchReordersHeap(t *testing.T) {
	r := newRegistry(16)
	base := time.Now()
	alice := r.add(regAddr(40001), "alice", base)
	bob := r.add(regAddr(40002), "bob", base.Add(time.Second))

	if r.peekOldest() != alice {
		t.Fatal("alice should start as the stalest client")
	}

	alice.awaitingPong = true
	r.touch(alice, base.Add(2*time.Second))

	if alice.awaitingPong {
		t.Fatal("touch must clear awaitingPong")
	}
	if r.peekOldest() != bob {
		t.Fatal("bob should be the stalest client after alice is touched")
	}
	if !alice.lastActive.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("touch did not update lastActive: %v", alice.lastActive)
	}
}
