// Terminal client for the UDP chat server. Reads commands from stdin, sends
// them as datagrams, prints replies tagged by channel, and keeps the session
// alive by answering server pings. Optionally mirrors each channel into its
// own log file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/vishalarun7/Multithreaded-Chat/internal/protocol"
)

// channelLogs appends received lines to per-channel files (global.log,
// room.log, private.log) so a session can be reviewed after the fact.
type channelLogs struct {
	files map[byte]*os.File
}

func openChannelLogs(dir string) (*channelLogs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	l := &channelLogs{files: make(map[byte]*os.File)}
	for _, ch := range []byte{protocol.ChannelGlobal, protocol.ChannelRoom, protocol.ChannelPrivate} {
		f, err := os.OpenFile(
			filepath.Join(dir, protocol.ChannelName(ch)+".log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			l.close()
			return nil, err
		}
		l.files[ch] = f
	}
	return l, nil
}

func (l *channelLogs) write(channel byte, text string) {
	if l == nil {
		return
	}
	if f, ok := l.files[channel]; ok {
		fmt.Fprintln(f, text)
	}
}

func (l *channelLogs) close() {
	if l == nil {
		return
	}
	for _, f := range l.files {
		f.Close()
	}
}

func channelTag(channel byte) string {
	return fmt.Sprintf("[%-7s]", protocol.ChannelName(channel))
}

func main() {
	var (
		server = flag.String("server", "127.0.0.1:12000", "chat server address")
		port   = flag.Int("port", 0, "local UDP port (0 = ephemeral; 6666 = admin)")
		name   = flag.String("name", "", "display name; connects automatically when set")
		logdir = flag.String("logdir", "", "directory for per-channel log files (optional)")
	)
	flag.Parse()

	serverAddr, err := net.ResolveUDPAddr("udp4", *server)
	if err != nil {
		log.Fatalf("Bad server address %q: %v", *server, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: *port})
	if err != nil {
		log.Fatalf("Failed to bind local port %d: %v", *port, err)
	}
	defer conn.Close()

	var logs *channelLogs
	if *logdir != "" {
		logs, err = openChannelLogs(*logdir)
		if err != nil {
			log.Fatalf("Failed to open channel logs: %v", err)
		}
		defer logs.close()
	}

	send := func(cmd string) {
		if _, err := conn.WriteToUDP([]byte(cmd), serverAddr); err != nil {
			log.Printf("Send failed: %v", err)
		}
	}

	// Receive loop: print tagged replies and answer liveness pings without
	// user involvement.
	go func() {
		buf := make([]byte, protocol.DefaultBufferSize)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			channel, text, ok := protocol.ParseFrame(buf[:n])
			if !ok {
				continue
			}
			if channel == protocol.ChannelGlobal && text == protocol.PingText {
				send(protocol.CmdPong + "$")
				continue
			}
			fmt.Printf("%s %s\n", channelTag(channel), text)
			logs.write(channel, text)
		}
	}()

	if *name != "" {
		send("conn$" + *name)
	}

	fmt.Printf("Connected to %s from %s. Commands: cmd$args (e.g. conn$alice, say$hi).\n",
		serverAddr, conn.LocalAddr())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		send(line)
		if strings.HasPrefix(line, protocol.CmdDisconn+"$") {
			break
		}
	}
}
