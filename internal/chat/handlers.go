package chat

import (
	"net"
	"time"

	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
	"github.com/vishalarun7/Multithreaded-Chat/internal/protocol"
)

func knownCommand(cmd string) bool {
	switch cmd {
	case protocol.CmdConn, protocol.CmdDisconn,
		protocol.CmdSay, protocol.CmdSayTo,
		protocol.CmdMute, protocol.CmdUnmute,
		protocol.CmdRename, protocol.CmdKick,
		protocol.CmdCreateRoom, protocol.CmdJoinRoom,
		protocol.CmdSayRoom, protocol.CmdLeaveRoom,
		protocol.CmdKickRoom, protocol.CmdPong:
		return true
	}
	return false
}

// handleDatagram parses and dispatches one command. It runs on a worker
// goroutine and holds the server write lock for the whole command body: every
// command mutates at least the sender's activity state, and single-datagram
// sends are cheap enough to issue under the lock.
func (s *Server) handleDatagram(from *net.UDPAddr, payload []byte) {
	cmd, args, ok := protocol.ParseCommand(payload)
	if !ok {
		monitoring.RecordDrop(monitoring.DropMalformed)
		return
	}
	if !knownCommand(cmd) {
		monitoring.RecordDrop(monitoring.DropUnknownCommand)
		return
	}

	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sender := s.clients.findByAddr(addrKey(from))

	// Any valid command from a registered client counts as activity and
	// cancels a pending ping, even when the command itself fails. conn is the
	// exception: its sender is not registered yet.
	if cmd != protocol.CmdConn && sender != nil {
		s.clients.touch(sender, time.Now())
	}

	switch cmd {
	case protocol.CmdConn:
		s.handleConn(from, args)
	case protocol.CmdDisconn:
		s.handleDisconn(sender)
	case protocol.CmdSay:
		s.handleSay(sender, args)
	case protocol.CmdSayTo:
		s.handleSayTo(sender, args)
	case protocol.CmdMute:
		s.handleMute(sender, args)
	case protocol.CmdUnmute:
		s.handleUnmute(sender, args)
	case protocol.CmdRename:
		s.handleRename(from, sender, args)
	case protocol.CmdKick:
		s.handleKick(from, args)
	case protocol.CmdCreateRoom:
		s.handleCreateRoom(from, sender, args)
	case protocol.CmdJoinRoom:
		s.handleJoinRoom(from, sender, args)
	case protocol.CmdSayRoom:
		s.handleSayRoom(sender, args)
	case protocol.CmdLeaveRoom:
		s.handleLeaveRoom(from, sender)
	case protocol.CmdKickRoom:
		s.handleKickRoom(from, args)
	case protocol.CmdPong:
		// The activity touch above is the entire effect of a pong.
	}

	monitoring.RecordCommand(cmd)
	monitoring.ObserveDispatch(cmd, time.Since(start))
}

func (s *Server) isAdmin(from *net.UDPAddr) bool {
	return from.Port == s.cfg.AdminPort
}

// validName bounds display and room names: non-empty and short enough to fit
// the fixed name buffer with its terminator.
func (s *Server) validName(name string) bool {
	return name != "" && len(name) < s.cfg.MaxNameLen
}

// notice sends a [Server] sentence to a single address on the global channel.
func (s *Server) notice(addr *net.UDPAddr, text string) {
	s.send(addr, protocol.ChannelGlobal, text)
}

// broadcastUserLocked fans a user-authored line out to every registered
// client that has not muted the author. The author receives their own line.
func (s *Server) broadcastUserLocked(senderName, line string) {
	s.clients.each(func(c *client) {
		if c.hasMuted(senderName) {
			return
		}
		s.send(c.addr, protocol.ChannelGlobal, line)
	})
}

// broadcastServerLocked fans a server notice out to every registered client.
// Server notices bypass mute lists.
func (s *Server) broadcastServerLocked(line string) {
	s.clients.each(func(c *client) {
		s.send(c.addr, protocol.ChannelGlobal, line)
	})
}

func (s *Server) roomCastLocked(r *room, senderName, line string) {
	for m := range r.members {
		if m.hasMuted(senderName) {
			continue
		}
		s.send(m.addr, protocol.ChannelRoom, line)
	}
}

// destroyClientLocked detaches the client from its room, removes it from the
// registry and the activity heap, and updates gauges. Room detach runs first
// so the empty-room check sees a consistent member set.
func (s *Server) destroyClientLocked(c *client, reason string) {
	roomName, deleted := s.rooms.detachClient(c)
	s.clients.remove(c)

	monitoring.RecordDisconnect(reason)
	monitoring.SetClientsActive(s.clients.len())
	if deleted {
		monitoring.SetRoomsActive(s.rooms.len())
		s.events.Publish(Event{Type: EventRoomDeleted, Room: roomName, Time: time.Now()})
	}
}

func (s *Server) handleConn(from *net.UDPAddr, args string) {
	name := args
	if !s.validName(name) {
		s.notice(from, "[Server] Invalid name")
		return
	}

	c := s.clients.add(from, name, time.Now())
	if c == nil {
		// Name or address already taken. The original protocol gives the
		// caller no signal here.
		return
	}

	monitoring.RecordClientConnected()
	monitoring.SetClientsActive(s.clients.len())

	s.logger.Info().
		Str("name", name).
		Str("addr", from.String()).
		Msg("Client connected")

	s.notice(from, "[Server] "+name+" successfully connected")

	// New arrivals get the recent global backlog, oldest first.
	for _, line := range s.history.Items() {
		s.send(from, protocol.ChannelGlobal, line)
	}

	s.events.Publish(Event{
		Type: EventClientConnected,
		Name: name,
		Addr: from.String(),
		Time: time.Now(),
	})
}

func (s *Server) handleDisconn(sender *client) {
	if sender == nil {
		return
	}

	name := sender.name
	addr := sender.addr

	s.destroyClientLocked(sender, monitoring.ReasonDisconn)
	s.notice(addr, "[Server] Disconnected. Bye!")

	s.logger.Info().
		Str("name", name).
		Str("addr", addr.String()).
		Msg("Client disconnected")

	s.events.Publish(Event{
		Type: EventClientDisconnected,
		Name: name,
		Addr: addr.String(),
		Time: time.Now(),
	})
}

func (s *Server) handleSay(sender *client, args string) {
	if sender == nil || args == "" {
		return
	}

	line := "[" + sender.name + "] " + args
	s.history.Append(line)
	s.broadcastUserLocked(sender.name, line)

	s.events.Publish(Event{
		Type: EventMessageGlobal,
		Name: sender.name,
		Text: args,
		Time: time.Now(),
	})
}

func (s *Server) handleSayTo(sender *client, args string) {
	if sender == nil {
		return
	}

	recipientName, text := protocol.SplitArg(args)
	if recipientName == "" || text == "" {
		return
	}

	recipient := s.clients.findByName(recipientName)
	if recipient == nil {
		return
	}
	if recipient.hasMuted(sender.name) {
		// The sender is not told they are muted.
		return
	}

	s.send(recipient.addr, protocol.ChannelPrivate, "["+sender.name+"] "+text)

	s.events.Publish(Event{
		Type:   EventMessagePrivate,
		Name:   sender.name,
		Target: recipientName,
		Time:   time.Now(),
	})
}

func (s *Server) handleMute(sender *client, args string) {
	if sender == nil || args == "" {
		return
	}
	// Capacity overflow and duplicates fail without a reply, and the target
	// is not required to exist: mute-by-name survives the target's reconnect.
	sender.mute(args, s.cfg.MuteListCap)
}

func (s *Server) handleUnmute(sender *client, args string) {
	if sender == nil || args == "" {
		return
	}
	sender.unmute(args)
}

func (s *Server) handleRename(from *net.UDPAddr, sender *client, args string) {
	if sender == nil {
		return
	}
	newName := args
	if !s.validName(newName) {
		s.notice(from, "[Server] Invalid name")
		return
	}

	oldName := sender.name
	if !s.clients.rename(sender.addrKey, newName) {
		// Name collision fails without a reply.
		return
	}

	s.logger.Info().
		Str("old", oldName).
		Str("new", newName).
		Msg("Client renamed")

	s.notice(from, "[Server] You are now known as "+newName)

	s.events.Publish(Event{
		Type:   EventClientRenamed,
		Name:   oldName,
		Target: newName,
		Time:   time.Now(),
	})
}

func (s *Server) handleKick(from *net.UDPAddr, args string) {
	if !s.isAdmin(from) {
		s.notice(from, "[Server] You are not an admin")
		return
	}

	victim := s.clients.findByName(args)
	if victim == nil {
		s.notice(from, "[Server] No such user")
		return
	}

	name := victim.name
	addr := victim.addr

	s.notice(addr, "[Server] You have been removed from the chat")
	s.destroyClientLocked(victim, monitoring.ReasonKick)
	s.broadcastServerLocked("[Server] " + name + " has been removed from the chat")

	s.logger.Info().
		Str("name", name).
		Str("addr", addr.String()).
		Msg("Client kicked by admin")

	s.events.Publish(Event{
		Type: EventClientKicked,
		Name: name,
		Addr: addr.String(),
		Time: time.Now(),
	})
}

func (s *Server) handleCreateRoom(from *net.UDPAddr, sender *client, args string) {
	if sender == nil {
		return
	}
	roomName := args
	if !s.validName(roomName) {
		s.notice(from, "[Server] Invalid room name")
		return
	}
	if sender.room != nil {
		s.notice(from, "[Server] You are already in a room")
		return
	}

	r, ok := s.rooms.insert(roomName)
	if !ok {
		s.notice(from, "[Server] Room "+roomName+" already exists")
		return
	}
	r.addMember(sender)

	monitoring.RecordRoomCreated()
	monitoring.SetRoomsActive(s.rooms.len())

	s.logger.Info().
		Str("room", roomName).
		Str("creator", sender.name).
		Msg("Room created")

	s.notice(from, "[Server] Room "+roomName+" created; you joined it")

	s.events.Publish(Event{
		Type: EventRoomCreated,
		Room: roomName,
		Name: sender.name,
		Time: time.Now(),
	})
}

func (s *Server) handleJoinRoom(from *net.UDPAddr, sender *client, args string) {
	if sender == nil {
		return
	}
	roomName := args
	if !s.validName(roomName) {
		s.notice(from, "[Server] Invalid room name")
		return
	}
	if sender.room != nil {
		s.notice(from, "[Server] You are already in a room")
		return
	}

	r := s.rooms.find(roomName)
	if r == nil {
		s.notice(from, "[Server] Room not found")
		return
	}
	r.addMember(sender)

	// Room backlog first, then the confirmation.
	for _, line := range r.history.Items() {
		s.send(from, protocol.ChannelRoom, line)
	}
	s.notice(from, "[Server] Joined room "+roomName)
}

func (s *Server) handleSayRoom(sender *client, args string) {
	if sender == nil {
		return
	}
	r := sender.room
	if r == nil {
		s.notice(sender.addr, "[Server] You are not in a room")
		return
	}
	if args == "" {
		return
	}

	line := "[" + r.name + "|" + sender.name + "] " + args
	r.history.Append(line)
	s.roomCastLocked(r, sender.name, line)

	s.events.Publish(Event{
		Type: EventMessageRoom,
		Name: sender.name,
		Room: r.name,
		Text: args,
		Time: time.Now(),
	})
}

func (s *Server) handleLeaveRoom(from *net.UDPAddr, sender *client) {
	if sender == nil {
		return
	}
	if sender.room == nil {
		s.notice(from, "[Server] You are not in a room")
		return
	}

	roomName, deleted := s.rooms.detachClient(sender)
	s.notice(from, "[Server] You left room "+roomName)

	if deleted {
		monitoring.SetRoomsActive(s.rooms.len())
		s.events.Publish(Event{Type: EventRoomDeleted, Room: roomName, Time: time.Now()})
	}
}

func (s *Server) handleKickRoom(from *net.UDPAddr, args string) {
	if !s.isAdmin(from) {
		s.notice(from, "[Server] You are not an admin")
		return
	}

	target := s.clients.findByName(args)
	if target == nil {
		s.notice(from, "[Server] No such user")
		return
	}
	if target.room == nil {
		s.notice(from, "[Server] "+target.name+" is not in a room")
		return
	}

	roomName, deleted := s.rooms.detachClient(target)

	s.notice(target.addr, "[Server] You have been removed from room "+roomName)
	s.notice(from, "[Server] "+target.name+" was removed from room "+roomName)

	s.logger.Info().
		Str("name", target.name).
		Str("room", roomName).
		Msg("Client kicked from room by admin")

	if deleted {
		monitoring.SetRoomsActive(s.rooms.len())
		s.events.Publish(Event{Type: EventRoomDeleted, Room: roomName, Time: time.Now()})
	}
}
