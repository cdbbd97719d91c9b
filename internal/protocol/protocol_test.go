package protocol

import (
	"bytes"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		cmd     string
		args    string
		ok      bool
	}{
		{"plain", "conn$alice", "conn", "alice", true},
		{"empty args", "disconn$", "disconn", "", true},
		{"leading whitespace", "  \tsay$hi", "say", "hi", true},
		{"args whitespace stripped", "say$   hi there", "say", "hi there", true},
		{"trailing newline", "conn$alice\n", "conn", "alice", true},
		{"trailing crlf", "conn$alice\r\n", "conn", "alice", true},
		{"nul terminated", "say$hi\x00garbage", "say", "hi", true},
		{"dollar in args", "say$price is $5", "say", "price is $5", true},
		{"no separator", "hello there", "", "", false},
		{"empty command", "$args", "", "", false},
		{"empty payload", "", "", "", false},
		{"only nul", "\x00", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := ParseCommand([]byte(tt.payload))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if cmd != tt.cmd || args != tt.args {
				t.Errorf("got (%q, %q), want (%q, %q)", cmd, args, tt.cmd, tt.args)
			}
		})
	}
}

func TestSplitArg(t *testing.T) {
	first, rest := SplitArg("bob hello world")
	if first != "bob" || rest != "hello world" {
		t.Errorf("got (%q, %q), want (%q, %q)", first, rest, "bob", "hello world")
	}

	first, rest = SplitArg("bob")
	if first != "bob" || rest != "" {
		t.Errorf("got (%q, %q), want (%q, %q)", first, rest, "bob", "")
	}

	first, rest = SplitArg("")
	if first != "" || rest != "" {
		t.Errorf("got (%q, %q), want empty pair", first, rest)
	}
}

func TestFrameAppendsNewlineAndNul(t *testing.T) {
	got := Frame(ChannelGlobal, "[Server] hi", DefaultBufferSize)
	want := append([]byte{ChannelGlobal}, []byte("[Server] hi\n\x00")...)
	if !bytes.Equal(got, want) {
		t.Errorf("Frame = %q, want %q", got, want)
	}
}

func TestFrameKeepsExistingNewline(t *testing.T) {
	got := Frame(ChannelPrivate, "[alice] hi\n", DefaultBufferSize)
	want := append([]byte{ChannelPrivate}, []byte("[alice] hi\n\x00")...)
	if !bytes.Equal(got, want) {
		t.Errorf("Frame = %q, want %q", got, want)
	}
}

func TestFrameTruncatesOversizeText(t *testing.T) {
	long := make([]byte, 2*DefaultBufferSize)
	for i := range long {
		long[i] = 'a'
	}

	got := Frame(ChannelGlobal, string(long), DefaultBufferSize)
	if len(got) != DefaultBufferSize {
		t.Fatalf("len = %d, want %d", len(got), DefaultBufferSize)
	}
	if got[len(got)-2] != '\n' || got[len(got)-1] != 0 {
		t.Errorf("truncated frame tail = %q, want newline+NUL", got[len(got)-2:])
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	frame := Frame(ChannelRoom, "[lounge|alice] hey", DefaultBufferSize)

	channel, text, ok := ParseFrame(frame)
	if !ok {
		t.Fatalf("ParseFrame rejected a valid frame")
	}
	if channel != ChannelRoom {
		t.Errorf("channel = %#x, want %#x", channel, ChannelRoom)
	}
	if text != "[lounge|alice] hey" {
		t.Errorf("text = %q, want %q", text, "[lounge|alice] hey")
	}
}

func TestParseFrameRejectsBadInput(t *testing.T) {
	if _, _, ok := ParseFrame(nil); ok {
		t.Errorf("ParseFrame accepted nil")
	}
	if _, _, ok := ParseFrame([]byte{0x07, 'h', 'i', '\n', 0}); ok {
		t.Errorf("ParseFrame accepted unknown channel byte")
	}
}

func TestChannelName(t *testing.T) {
	if ChannelName(ChannelGlobal) != "global" ||
		ChannelName(ChannelRoom) != "room" ||
		ChannelName(ChannelPrivate) != "private" ||
		ChannelName(0x42) != "unknown" {
		t.Errorf("ChannelName mapping broken")
	}
}
