package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
)

// EventType labels entries on the server event feed.
type EventType string

const (
	EventClientConnected    EventType = "client_connected"
	EventClientDisconnected EventType = "client_disconnected"
	EventClientRenamed      EventType = "client_renamed"
	EventClientKicked       EventType = "client_kicked"
	EventClientEvicted      EventType = "client_evicted"
	EventRoomCreated        EventType = "room_created"
	EventRoomDeleted        EventType = "room_deleted"
	EventMessageGlobal      EventType = "message_global"
	EventMessageRoom        EventType = "message_room"
	EventMessagePrivate     EventType = "message_private"
)

// Event is one entry on the feed. Events mirror what already happened to
// server state; consumers can never influence protocol behavior.
type Event struct {
	Type   EventType `json:"type"`
	Name   string    `json:"name,omitempty"`
	Target string    `json:"target,omitempty"`
	Room   string    `json:"room,omitempty"`
	Text   string    `json:"text,omitempty"`
	Addr   string    `json:"addr,omitempty"`
	Time   time.Time `json:"time"`
}

// natsSubjectPrefix prefixes the event type to form the publish subject,
// e.g. chat.events.client_connected.
const natsSubjectPrefix = "chat.events."

// EventBus fans server events out to in-process subscribers (the ops event
// tail) and optionally to NATS. Publishing never blocks: subscribers with a
// full buffer miss the event and a counter records the drop.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[chan []byte]struct{}
	bufSize int
	nc      *nats.Conn
	logger  zerolog.Logger
}

// NewEventBus creates a bus with the given per-subscriber buffer. nc may be
// nil when NATS forwarding is not configured.
func NewEventBus(bufSize int, nc *nats.Conn, logger zerolog.Logger) *EventBus {
	return &EventBus{
		subs:    make(map[chan []byte]struct{}),
		bufSize: bufSize,
		nc:      nc,
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Publish encodes the event once and delivers it to every subscriber and,
// when configured, to NATS. Fire and forget on both paths.
func (b *EventBus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error().Err(err).Str("type", string(ev.Type)).Msg("Event encode failed")
		return
	}
	monitoring.RecordEventPublished()

	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			monitoring.RecordEventDropped("subscriber")
		}
	}
	b.mu.RUnlock()

	if b.nc != nil {
		if err := b.nc.Publish(natsSubjectPrefix+string(ev.Type), data); err != nil {
			monitoring.RecordEventDropped("nats")
			b.logger.Debug().Err(err).Str("type", string(ev.Type)).Msg("NATS publish failed")
		}
	}
}

// Subscribe registers a new feed consumer and returns its channel.
func (b *EventBus) Subscribe() chan []byte {
	ch := make(chan []byte, b.bufSize)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe detaches a consumer and closes its channel.
func (b *EventBus) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Close detaches every subscriber and drains the NATS connection.
func (b *EventBus) Close() {
	b.mu.Lock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()

	if b.nc != nil {
		if err := b.nc.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("NATS drain failed")
		}
	}
}
