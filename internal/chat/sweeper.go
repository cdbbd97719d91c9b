package chat

import (
	"time"

	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
	"github.com/vishalarun7/Multithreaded-Chat/internal/protocol"
)

// sweeperLoop drives the inactivity state machine. Each pass looks only at
// the stalest client (the heap root); sweepOnce tells it how long to sleep
// before the next pass.
func (s *Server) sweeperLoop() {
	defer s.wg.Done()

	for {
		wait := s.sweepOnce(time.Now())
		if wait <= 0 {
			// An eviction happened; check the next-oldest client right away.
			continue
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// sweepOnce advances the liveness state machine one step for the stalest
// client and returns how long to sleep before the next pass. Zero means run
// again immediately.
func (s *Server) sweepOnce(now time.Time) time.Duration {
	s.mu.Lock()

	oldest := s.clients.peekOldest()
	if oldest == nil {
		s.mu.Unlock()
		return s.cfg.SweepInterval
	}

	idle := now.Sub(oldest.lastActive)
	if idle < s.cfg.InactivityThreshold {
		// Sleep until the root would cross the threshold. Capped so a touch
		// that reorders the heap is noticed within one interval.
		s.mu.Unlock()
		return minWait(s.cfg.InactivityThreshold-idle, s.cfg.SweepInterval)
	}

	if !oldest.awaitingPong {
		oldest.awaitingPong = true
		oldest.lastPingSent = now
		addr := oldest.addr
		s.mu.Unlock()

		// Ping outside the lock: a slow send to a dead peer must not stall
		// command handling.
		s.send(addr, protocol.ChannelGlobal, protocol.PingText)
		monitoring.RecordPingSent()
		return s.cfg.SweepInterval
	}

	waited := now.Sub(oldest.lastPingSent)
	if waited >= s.cfg.PingTimeout {
		key := oldest.addrKey
		name := oldest.name
		s.mu.Unlock()

		s.evict(key, name)
		return 0
	}

	s.mu.Unlock()
	return minWait(s.cfg.PingTimeout-waited, s.cfg.SweepInterval)
}

// evict removes a client whose ping went unanswered. The timeout was
// observed under an earlier lock, so the state is re-checked under a fresh
// one: any command received in between clears awaitingPong and cancels the
// eviction, and the address may even belong to a new client by now.
func (s *Server) evict(key, name string) {
	s.mu.Lock()

	c := s.clients.findByAddr(key)
	if c == nil || c.name != name || !c.awaitingPong {
		s.mu.Unlock()
		return
	}

	addr := c.addr
	s.destroyClientLocked(c, monitoring.ReasonInactivity)
	s.broadcastServerLocked("[Server] " + name + " was disconnected due to inactivity")
	s.mu.Unlock()

	s.notice(addr, "[Server] Disconnected due to inactivity.")

	s.logger.Info().
		Str("name", name).
		Str("addr", addr.String()).
		Msg("Client evicted for inactivity")

	s.events.Publish(Event{
		Type: EventClientEvicted,
		Name: name,
		Addr: addr.String(),
		Time: time.Now(),
	})
}

func minWait(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}
