// Package ops serves the operational HTTP surface next to the UDP chat port:
// Prometheus metrics, a JSON health check, and a WebSocket tail of the
// server event feed.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vishalarun7/Multithreaded-Chat/internal/chat"
	"github.com/vishalarun7/Multithreaded-Chat/internal/config"
)

type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	chat   *chat.Server
	http   *http.Server
}

func New(cfg *config.Config, logger zerolog.Logger, chatServer *chat.Server) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "ops").Logger(),
		chat:   chatServer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)

	s.http = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.OpsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on ops addr %q: %w", s.cfg.OpsAddr, err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Ops server error")
		}
	}()

	s.logger.Info().
		Str("address", ln.Addr().String()).
		Msg("Ops server listening")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	snap := s.chat.Snapshot()

	status := "healthy"
	warnings := []string{}
	if snap.QueueCapacity > 0 {
		utilization := float64(snap.QueueDepth) / float64(snap.QueueCapacity) * 100
		if utilization >= 90 {
			status = "degraded"
			warnings = append(warnings, fmt.Sprintf("worker queue near capacity (%.0f%%)", utilization))
		}
	}
	if snap.DroppedTasks > 0 {
		warnings = append(warnings, fmt.Sprintf("%d datagrams dropped at the worker queue", snap.DroppedTasks))
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"uptime": snap.UptimeSeconds,
		"checks": map[string]any{
			"clients": snap.Clients,
			"rooms":   snap.Rooms,
			"queue": map[string]any{
				"depth":    snap.QueueDepth,
				"capacity": snap.QueueCapacity,
				"dropped":  snap.DroppedTasks,
			},
			"goroutines": runtime.NumGoroutine(),
		},
		"warnings": warnings,
	})
}

// handleEvents upgrades the request and streams the event feed as text
// frames until the peer goes away or the bus closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("WebSocket upgrade failed")
		return
	}

	sub := s.chat.Events().Subscribe()
	s.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Msg("Event feed subscriber attached")

	// Drain client frames so close handshakes are noticed; detaching the
	// subscription ends the write loop below.
	go func() {
		defer s.chat.Events().Unsubscribe(sub)
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for data := range sub {
		if err := wsutil.WriteServerMessage(conn, ws.OpText, data); err != nil {
			s.logger.Debug().
				Err(err).
				Str("remote_addr", r.RemoteAddr).
				Msg("Event feed write failed")
			return
		}
	}
	wsutil.WriteServerMessage(conn, ws.OpClose, []byte{})
}
