package chat

import (
	"testing"
	"time"
)

func TestSweepIdleServerWaitsDefaultInterval(t *testing.T) {
	s, _ := newTestServer(t)

	if wait := s.sweepOnce(time.Now()); wait != s.cfg.SweepInterval {
		t.Fatalf("empty heap should wait the default interval, got %v", wait)
	}
}

func TestSweepWaitsUntilThresholdCrossing(t *testing.T) {
	s, _ := newTestServer(t)
	alice := testAddr(40001)
	s.command(alice, "conn$alice")

	base := time.Now()
	s.mu.Lock()
	c := s.clients.findByName("alice")
	c.lastActive = base
	s.clients.heap.update(c)
	s.mu.Unlock()

	// Far from the threshold: the wait is capped at the default interval.
	if wait := s.sweepOnce(base); wait != s.cfg.SweepInterval {
		t.Fatalf("expected capped wait, got %v", wait)
	}

	// 200ms from crossing: the sweeper sleeps exactly that long.
	near := base.Add(s.cfg.InactivityThreshold - 200*time.Millisecond)
	if wait := s.sweepOnce(near); wait != 200*time.Millisecond {
		t.Fatalf("expected 200ms wait, got %v", wait)
	}
}

func TestSweepPingsStalestClient(t *testing.T) {
	s, sink := newTestServer(t)
	alice := testAddr(40001)
	s.command(alice, "conn$alice")

	base := time.Now()
	wait := s.sweepOnce(base.Add(301 * time.Second))
	if wait != s.cfg.SweepInterval {
		t.Fatalf("expected default interval after a ping, got %v", wait)
	}

	got := textsFor(t, sink, alice)
	if got[len(got)-1] != "ping$" {
		t.Fatalf("expected ping frame, got %q", got[len(got)-1])
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.clients.findByName("alice")
	if !c.awaitingPong {
		t.Fatal("pinged client must be marked awaiting-pong")
	}
}

func TestSweepWaitsOutThePongDeadline(t *testing.T) {
	s, _ := newTestServer(t)
	alice := testAddr(40001)
	s.command(alice, "conn$alice")

	base := time.Now()
	s.sweepOnce(base.Add(301 * time.Second)) // ping at +301s

	// 4s into the 10s timeout: remaining 6s, capped at the interval.
	if wait := s.sweepOnce(base.Add(305 * time.Second)); wait != s.cfg.SweepInterval {
		t.Fatalf("expected capped wait during pong window, got %v", wait)
	}

	// 200ms before the deadline: exact remainder.
	near := base.Add(301*time.Second + s.cfg.PingTimeout - 200*time.Millisecond)
	if wait := s.sweepOnce(near); wait != 200*time.Millisecond {
		t.Fatalf("expected 200ms wait before the deadline, got %v", wait)
	}
}

func TestSweepEvictsOnPingTimeout(t *testing.T) {
	s, sink := newTestServer(t)
	alice := testAddr(40001)
	bob := testAddr(40002)
	s.command(alice, "conn$alice")
	s.command(bob, "conn$bob")

	base := time.Now()
	s.sweepOnce(base.Add(301 * time.Second)) // ping alice

	wait := s.sweepOnce(base.Add(312 * time.Second))
	if wait != 0 {
		t.Fatalf("eviction pass should rerun immediately, got wait %v", wait)
	}

	s.mu.RLock()
	if s.clients.findByName("alice") != nil {
		t.Fatal("alice must be evicted after the ping timeout")
	}
	if s.clients.findByName("bob") == nil {
		t.Fatal("bob must survive the eviction pass")
	}
	s.mu.RUnlock()

	aliceGot := textsFor(t, sink, alice)
	if aliceGot[len(aliceGot)-1] != "[Server] Disconnected due to inactivity." {
		t.Fatalf("evicted client notice missing, got %q", aliceGot[len(aliceGot)-1])
	}
	bobGot := textsFor(t, sink, bob)
	if bobGot[len(bobGot)-1] != "[Server] alice was disconnected due to inactivity" {
		t.Fatalf("eviction broadcast missing, got %q", bobGot[len(bobGot)-1])
	}
}

func TestPongCancelsPendingEviction(t *testing.T) {
	s, sink := newTestServer(t)
	alice := testAddr(40001)
	s.command(alice, "conn$alice")

	base := time.Now()
	s.sweepOnce(base.Add(301 * time.Second)) // ping
	s.command(alice, "re-ping$")             // answered in time

	// lastActive is back near base, so by +312s alice is stale again, but
	// the cleared awaiting-pong flag means she is re-pinged, not evicted.
	s.sweepOnce(base.Add(312 * time.Second))

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clients.findByName("alice") == nil {
		t.Fatal("client answering the ping must survive")
	}
	got := textsFor(t, sink, alice)
	if got[len(got)-1] != "ping$" {
		t.Fatalf("expected a fresh ping, got %q", got[len(got)-1])
	}
}

func TestEvictRechecksUnderFreshLock(t *testing.T) {
	s, _ := newTestServer(t)
	alice := testAddr(40001)
	s.command(alice, "conn$alice")

	base := time.Now()
	s.sweepOnce(base.Add(301 * time.Second)) // mark awaiting-pong

	// A command slips in between the sweep pass observing the timeout and
	// the eviction re-acquiring the lock.
	s.command(alice, "say$still here")

	s.evict(addrKey(alice), "alice")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clients.findByName("alice") == nil {
		t.Fatal("eviction must abort when a command arrived in between")
	}
}

func TestEvictIgnoresRecycledAddress(t *testing.T) {
	s, _ := newTestServer(t)
	addr := testAddr(40001)
	s.command(addr, "conn$alice")

	base := time.Now()
	s.sweepOnce(base.Add(301 * time.Second))

	// alice disconnects and a different user registers from the same address
	// before the eviction runs.
	s.command(addr, "disconn$")
	s.command(addr, "conn$carol")

	s.evict(addrKey(addr), "alice")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clients.findByName("carol") == nil {
		t.Fatal("eviction keyed on a stale identity must not remove the new client")
	}
}
