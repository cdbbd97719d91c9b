package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/vishalarun7/Multithreaded-Chat/internal/chat"
	"github.com/vishalarun7/Multithreaded-Chat/internal/config"
	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
	"github.com/vishalarun7/Multithreaded-Chat/internal/ops"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		debug = flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
		addr  = flag.String("addr", "", "UDP bind address (overrides CHAT_ADDR)")
	)
	flag.Parse()

	// Basic logger for startup, before the structured one exists.
	startup := log.New(os.Stdout, "[chatd] ", log.LstdFlags)

	// automaxprocs has already sized GOMAXPROCS from container CPU limits.
	startup.Printf("GOMAXPROCS: %d", runtime.GOMAXPROCS(0))

	cfg, err := config.Load()
	if err != nil {
		startup.Fatalf("Failed to load configuration: %v", err)
	}

	if *debug {
		cfg.LogLevel = "debug"
		startup.Printf("Debug mode enabled via flag")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := monitoring.NewLogger(monitoring.LoggerConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	cfg.LogConfig(logger)

	server, err := chat.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
	}
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}

	opsServer := ops.New(cfg, logger, server)
	if err := opsServer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start ops server")
	}

	collector := monitoring.NewCollector(cfg.MetricsInterval, logger)
	collector.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := opsServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Ops server shutdown error")
	}
	collector.Stop()
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}
}
