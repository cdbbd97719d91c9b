// Load generator for the UDP chat server: ramps up N synthetic clients,
// keeps them chatting at a fixed rate, and reports sent/received datagram
// counts. Because the transport is fire-and-forget UDP, loss shows up as the
// gap between frames the server should have fanned out and frames received.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type config struct {
	server      string
	clients     int
	rampRate    int // connections per second
	msgInterval time.Duration
	duration    time.Duration
	reportEvery time.Duration
	roomCount   int
}

// state aggregates counters across all synthetic clients.
type state struct {
	connected     int64
	connectFailed int64
	sent          int64
	received      int64
	startTime     time.Time
}

var (
	cfg config
	st  state
)

func parseFlags() config {
	var c config
	flag.StringVar(&c.server, "server", "127.0.0.1:12000", "chat server address")
	flag.IntVar(&c.clients, "clients", 100, "number of synthetic clients")
	flag.IntVar(&c.rampRate, "ramp", 50, "client connections per second during ramp-up")
	flag.DurationVar(&c.msgInterval, "msg-interval", 2*time.Second, "interval between messages per client")
	flag.DurationVar(&c.duration, "duration", 60*time.Second, "sustain duration after ramp-up")
	flag.DurationVar(&c.reportEvery, "report", 5*time.Second, "stats report interval")
	flag.IntVar(&c.roomCount, "rooms", 0, "spread clients across this many rooms (0 = global chat only)")
	flag.Parse()
	return c
}

// initialJitter spreads client start times across one message interval.
// Zero and negative intervals (flood mode) get no jitter.
func initialJitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(interval)))
}

// runClient drives one synthetic client until the done channel closes.
func runClient(id int, done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	serverAddr, err := net.ResolveUDPAddr("udp4", cfg.server)
	if err != nil {
		atomic.AddInt64(&st.connectFailed, 1)
		return
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		atomic.AddInt64(&st.connectFailed, 1)
		return
	}
	defer conn.Close()

	send := func(cmd string) {
		if _, err := conn.WriteToUDP([]byte(cmd), serverAddr); err == nil {
			atomic.AddInt64(&st.sent, 1)
		}
	}

	// Receive loop: count frames and answer pings so the sweeper never
	// evicts a loadgen client.
	go func() {
		buf := make([]byte, 1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			atomic.AddInt64(&st.received, 1)
			if n >= 6 && buf[0] == 0x00 && string(buf[1:6]) == "ping$" {
				send("re-ping$")
			}
		}
	}()

	name := fmt.Sprintf("loadgen-%d", id)
	send("conn$" + name)
	atomic.AddInt64(&st.connected, 1)

	say := "say$"
	if cfg.roomCount > 0 {
		room := fmt.Sprintf("load-room-%d", id%cfg.roomCount)
		if id < cfg.roomCount {
			send("createroom$" + room)
		} else {
			send("joinroom$" + room)
		}
		say = "sayroom$"
	}

	// Jitter the first message so clients do not fire in lockstep.
	timer := time.NewTimer(initialJitter(cfg.msgInterval))
	defer timer.Stop()

	seq := 0
	for {
		select {
		case <-done:
			send("disconn$")
			return
		case <-timer.C:
			seq++
			send(fmt.Sprintf("%s%s message %d", say, name, seq))
			timer.Reset(cfg.msgInterval)
		}
	}
}

func report(label string) {
	elapsed := time.Since(st.startTime).Seconds()
	sent := atomic.LoadInt64(&st.sent)
	received := atomic.LoadInt64(&st.received)
	log.Printf("[%s] clients=%d failed=%d sent=%d received=%d recv_rate=%.0f/s elapsed=%.0fs",
		label,
		atomic.LoadInt64(&st.connected),
		atomic.LoadInt64(&st.connectFailed),
		sent, received,
		float64(received)/elapsed, elapsed)
}

func main() {
	cfg = parseFlags()
	st.startTime = time.Now()

	log.Printf("Starting load test: %d clients against %s, ramp %d/s, %s per message, %s sustain",
		cfg.clients, cfg.server, cfg.rampRate, cfg.msgInterval, cfg.duration)

	done := make(chan struct{})
	var wg sync.WaitGroup

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Ramp phase.
	rampTicker := time.NewTicker(time.Second / time.Duration(cfg.rampRate))
	launched := 0
ramp:
	for launched < cfg.clients {
		select {
		case <-rampTicker.C:
			wg.Add(1)
			go runClient(launched, done, &wg)
			launched++
		case sig := <-sigCh:
			log.Printf("Signal %v during ramp-up, stopping", sig)
			break ramp
		}
	}
	rampTicker.Stop()
	log.Printf("Ramp-up complete: %d clients launched", launched)

	// Sustain phase.
	reportTicker := time.NewTicker(cfg.reportEvery)
	defer reportTicker.Stop()
	deadline := time.After(cfg.duration)

sustain:
	for {
		select {
		case <-reportTicker.C:
			report("sustain")
		case <-deadline:
			break sustain
		case sig := <-sigCh:
			log.Printf("Signal %v, stopping", sig)
			break sustain
		}
	}

	close(done)
	wg.Wait()
	report("final")
}
