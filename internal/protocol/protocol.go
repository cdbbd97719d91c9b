// Package protocol implements the datagram wire grammar: cmd$args requests
// and channel-prefixed replies.
package protocol

import (
	"bytes"
	"strings"
)

// Channel prefix bytes carried as the first byte of every outgoing datagram.
const (
	ChannelGlobal  byte = 0x00
	ChannelRoom    byte = 0x01
	ChannelPrivate byte = 0x02
)

// Command words of the request grammar.
const (
	CmdConn       = "conn"
	CmdDisconn    = "disconn"
	CmdSay        = "say"
	CmdSayTo      = "sayto"
	CmdMute       = "mute"
	CmdUnmute     = "unmute"
	CmdRename     = "rename"
	CmdKick       = "kick"
	CmdCreateRoom = "createroom"
	CmdJoinRoom   = "joinroom"
	CmdSayRoom    = "sayroom"
	CmdLeaveRoom  = "leaveroom"
	CmdKickRoom   = "kickroom"
	CmdPong       = "re-ping"
)

// PingText is the liveness probe sent by the sweeper; live clients answer
// with a re-ping$ command.
const PingText = "ping$"

// DefaultBufferSize bounds request and reply datagrams, trailing NUL included.
const DefaultBufferSize = 1024

// ParseCommand splits a request payload into command word and argument
// string. The payload is cut at the first NUL, trailing CR/LF is trimmed,
// and leading whitespace of both the datagram and the args is stripped.
// ok is false when there is no '$' separator or the command word is empty;
// such datagrams are dropped by the dispatcher.
func ParseCommand(payload []byte) (cmd, args string, ok bool) {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}

	s := strings.TrimRight(string(payload), "\r\n")
	s = strings.TrimLeft(s, " \t")

	cmd, args, found := strings.Cut(s, "$")
	if !found || cmd == "" {
		return "", "", false
	}

	return cmd, strings.TrimLeft(args, " \t"), true
}

// SplitArg splits an argument string at the first space. Commands like
// sayto use this to separate the target name from the message text.
func SplitArg(args string) (first, rest string) {
	first, rest, _ = strings.Cut(args, " ")
	return first, rest
}

// Frame builds an outgoing datagram: channel byte, text, a newline when the
// text does not already end with one, and a terminating NUL. Frames longer
// than max are truncated while keeping the newline and NUL tail intact.
func Frame(channel byte, text string, max int) []byte {
	buf := make([]byte, 0, len(text)+3)
	buf = append(buf, channel)
	buf = append(buf, text...)
	if !strings.HasSuffix(text, "\n") {
		buf = append(buf, '\n')
	}
	buf = append(buf, 0)

	if max > 2 && len(buf) > max {
		buf = buf[:max]
		buf[max-2] = '\n'
		buf[max-1] = 0
	}

	return buf
}

// ParseFrame decodes a reply datagram into its channel and text. The text is
// cut at the first NUL and the trailing newline is trimmed for display.
// ok is false for frames too short to carry a channel byte or with an
// unknown channel.
func ParseFrame(b []byte) (channel byte, text string, ok bool) {
	if len(b) < 2 {
		return 0, "", false
	}

	channel = b[0]
	if channel != ChannelGlobal && channel != ChannelRoom && channel != ChannelPrivate {
		return 0, "", false
	}

	body := b[1:]
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}

	return channel, strings.TrimRight(string(body), "\n"), true
}

// ChannelName returns a human-readable label for a channel byte, used by the
// terminal client and the event feed.
func ChannelName(channel byte) string {
	switch channel {
	case ChannelGlobal:
		return "global"
	case ChannelRoom:
		return "room"
	case ChannelPrivate:
		return "private"
	default:
		return "unknown"
	}
}
