package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vishalarun7/Multithreaded-Chat/internal/config"
	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
	"github.com/vishalarun7/Multithreaded-Chat/internal/protocol"
)

// DatagramSender is the outbound half of the UDP socket. Handlers and the
// sweeper write replies through it so tests can capture frames without
// opening a real socket.
type DatagramSender interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Server owns the UDP socket and all chat state. A single RWMutex guards the
// client registry, the activity heap, the global history ring, and every
// client field; the room table adds its own small lock for bucket chains.
// Lock order is always s.mu before rooms.mu.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	conn   *net.UDPConn
	sender DatagramSender

	mu      sync.RWMutex
	clients *registry
	history *historyRing
	rooms   *roomTable

	pool   *workerPool
	events *EventBus
	nc     *nats.Conn

	// Throttles send-failure log lines so a dead peer cannot flood the log.
	// Every failure still increments the error counter.
	sendErrLimit *rate.Limiter

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	listenerDone chan struct{}
	shuttingDown int32

	startTime time.Time
}

// Snapshot is a point-in-time view of server state for the ops endpoints.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Clients       int     `json:"clients"`
	Rooms         int     `json:"rooms"`
	QueueDepth    int     `json:"queue_depth"`
	QueueCapacity int     `json:"queue_capacity"`
	DroppedTasks  int64   `json:"dropped_tasks"`
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var nc *nats.Conn
	if cfg.NatsURL != "" {
		conn, err := nats.Connect(cfg.NatsURL,
			nats.MaxReconnects(5),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		nc = conn
		logger.Info().
			Str("url", cfg.NatsURL).
			Msg("Connected to NATS for event publishing")
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		clients:      newRegistry(cfg.MuteListCap),
		history:      newHistoryRing(cfg.HistorySize),
		rooms:        newRoomTable(cfg.RoomBuckets, cfg.HistorySize),
		pool:         newWorkerPool(cfg.Workers, cfg.WorkerQueueSize, logger),
		events:       NewEventBus(cfg.EventBufferSize, nc, logger),
		nc:           nc,
		sendErrLimit: rate.NewLimiter(rate.Every(time.Second), 5),
		ctx:          ctx,
		cancel:       cancel,
		startTime:    time.Now(),
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("admin_port", cfg.AdminPort).
		Int("workers", cfg.Workers).
		Int("history_size", cfg.HistorySize).
		Dur("inactivity_threshold", cfg.InactivityThreshold).
		Msg("Server initialized")

	return s, nil
}

// Start binds the UDP socket and launches the listener, sweeper, and
// queue-stats goroutines. It returns once the socket is bound; datagram
// processing happens on the worker pool.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to resolve addr %q: %w", s.cfg.Addr, err)
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.conn = conn
	s.sender = conn

	s.pool.Start(s.ctx)

	s.listenerDone = make(chan struct{})
	s.wg.Add(1)
	go s.listenLoop()

	s.wg.Add(1)
	go s.sweeperLoop()

	s.wg.Add(1)
	go s.queueStatsLoop()

	s.logger.Info().
		Str("address", conn.LocalAddr().String()).
		Msg("Server listening")

	return nil
}

// listenLoop is the single reader on the socket. Payloads are copied out of
// the shared read buffer before being handed to the worker pool.
func (s *Server) listenLoop() {
	defer s.wg.Done()
	defer close(s.listenerDone)

	buf := make([]byte, s.cfg.BufferSize)
	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if atomic.LoadInt32(&s.shuttingDown) == 1 || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().
				Err(err).
				Msg("UDP read error")
			continue
		}

		monitoring.RecordDatagramReceived(n)

		payload := make([]byte, n)
		copy(payload, buf[:n])
		from := raddr

		s.pool.Submit(func() {
			s.handleDatagram(from, payload)
		})
	}
}

func (s *Server) queueStatsLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			monitoring.SetWorkerQueueStats(s.pool.QueueDepth(), s.pool.QueueCapacity())
		}
	}
}

// send frames text on the given channel and writes it to addr. Failures are
// counted and logged under the rate limiter; UDP gives no delivery guarantee
// either way, so errors never propagate to callers.
func (s *Server) send(addr *net.UDPAddr, channel byte, text string) {
	frame := protocol.Frame(channel, text, s.cfg.BufferSize)
	n, err := s.sender.WriteToUDP(frame, addr)
	if err != nil {
		monitoring.RecordSendError()
		if s.sendErrLimit.Allow() {
			s.logger.Warn().
				Err(err).
				Str("peer", addr.String()).
				Str("channel", protocol.ChannelName(channel)).
				Msg("Failed to send datagram")
		} else {
			monitoring.RecordSendErrorLogSuppressed()
		}
		return
	}
	monitoring.RecordDatagramSent(n)
}

// Events exposes the event bus for the ops layer.
func (s *Server) Events() *EventBus {
	return s.events
}

// Snapshot returns counts for the health endpoint.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	clients := s.clients.len()
	s.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Clients:       clients,
		Rooms:         s.rooms.len(),
		QueueDepth:    s.pool.QueueDepth(),
		QueueCapacity: s.pool.QueueCapacity(),
		DroppedTasks:  s.pool.DroppedTasks(),
	}
}

// Shutdown stops the server in dependency order: close the socket, wait for
// the listener to return so nothing submits to the pool anymore, drain the
// worker pool, stop the sweeper, then close the event bus.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Initiating graceful shutdown")

	atomic.StoreInt32(&s.shuttingDown, 1)

	if s.conn != nil {
		s.conn.Close()
	}

	// The listener may have read a datagram just before the socket closed
	// and still be on its way into Submit; Stop closes the task queue, so
	// it must not run until the listener is out.
	if s.listenerDone != nil {
		<-s.listenerDone
	}

	s.pool.Stop()
	s.cancel()

	s.logger.Info().Msg("Waiting for all goroutines to finish")
	s.wg.Wait()

	s.events.Close()

	s.logger.Info().Msg("Graceful shutdown completed")
	return nil
}
