package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the chat server. All metrics use the chat_ prefix.
var (
	// Client lifecycle
	clientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_clients_active",
		Help: "Number of currently registered clients",
	})

	clientsConnectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_clients_connected_total",
		Help: "Total number of successful client registrations",
	})

	clientsDisconnectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_clients_disconnected_total",
		Help: "Total number of client removals by reason",
	}, []string{"reason"})

	// Rooms
	roomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_rooms_active",
		Help: "Number of rooms that currently exist",
	})

	roomsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_rooms_created_total",
		Help: "Total number of rooms created",
	})

	// Datagram traffic
	datagramsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_datagrams_received_total",
		Help: "Total number of datagrams read from the socket",
	})

	datagramsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_datagrams_sent_total",
		Help: "Total number of datagrams written to the socket",
	})

	bytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_bytes_received_total",
		Help: "Total bytes read from the socket",
	})

	bytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_bytes_sent_total",
		Help: "Total bytes written to the socket",
	})

	sendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_send_errors_total",
		Help: "Total number of failed datagram sends",
	})

	sendErrorLogsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_send_error_logs_suppressed_total",
		Help: "Send-failure log lines suppressed by the log throttle",
	})

	// Dispatch
	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_commands_total",
		Help: "Total commands dispatched by command name",
	}, []string{"command"})

	datagramsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_datagrams_dropped_total",
		Help: "Datagrams dropped before dispatch by reason",
	}, []string{"reason"})

	dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_dispatch_duration_seconds",
		Help:    "Time spent handling one command",
		Buckets: prometheus.ExponentialBuckets(0.000010, 4, 10),
	}, []string{"command"})

	// Liveness
	pingsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_pings_sent_total",
		Help: "Total liveness pings sent by the sweeper",
	})

	// Eventing
	eventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_published_total",
		Help: "Total events delivered to the event bus",
	})

	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_dropped_total",
		Help: "Events dropped by destination (subscriber backlog, nats publish failure)",
	}, []string{"destination"})

	// Worker pool
	workerQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_worker_queue_depth",
		Help: "Current number of tasks waiting in the worker queue",
	})

	workerQueueCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_worker_queue_capacity",
		Help: "Maximum capacity of the worker queue",
	})

	workerQueueUtilization = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_worker_queue_utilization",
		Help: "Worker queue depth as a percentage of capacity",
	})

	// System
	cpuUsagePercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_cpu_usage_percent",
		Help: "CPU usage of the server process in percent (host-wide when no process handle is available)",
	})

	memoryUsageBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_memory_usage_bytes",
		Help: "Resident memory of the server process in bytes",
	})

	goroutinesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_goroutines_active",
		Help: "Number of active goroutines",
	})
)

func init() {
	prometheus.MustRegister(clientsActive)
	prometheus.MustRegister(clientsConnectedTotal)
	prometheus.MustRegister(clientsDisconnectedTotal)

	prometheus.MustRegister(roomsActive)
	prometheus.MustRegister(roomsCreatedTotal)

	prometheus.MustRegister(datagramsReceived)
	prometheus.MustRegister(datagramsSent)
	prometheus.MustRegister(bytesReceived)
	prometheus.MustRegister(bytesSent)
	prometheus.MustRegister(sendErrors)
	prometheus.MustRegister(sendErrorLogsSuppressed)

	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(datagramsDropped)
	prometheus.MustRegister(dispatchDuration)

	prometheus.MustRegister(pingsSent)

	prometheus.MustRegister(eventsPublished)
	prometheus.MustRegister(eventsDropped)

	prometheus.MustRegister(workerQueueDepth)
	prometheus.MustRegister(workerQueueCapacity)
	prometheus.MustRegister(workerQueueUtilization)

	prometheus.MustRegister(cpuUsagePercent)
	prometheus.MustRegister(memoryUsageBytes)
	prometheus.MustRegister(goroutinesActive)
}

// Disconnect reasons used with RecordDisconnect.
const (
	ReasonDisconn    = "disconn"
	ReasonKick       = "kick"
	ReasonInactivity = "inactivity"
)

// Drop reasons used with RecordDrop.
const (
	DropMalformed      = "malformed"
	DropUnknownCommand = "unknown_command"
	DropQueueFull      = "queue_full"
)

func SetClientsActive(n int) { clientsActive.Set(float64(n)) }
func RecordClientConnected() { clientsConnectedTotal.Inc() }

func RecordDisconnect(reason string) {
	clientsDisconnectedTotal.WithLabelValues(reason).Inc()
}

func SetRoomsActive(n int) { roomsActive.Set(float64(n)) }
func RecordRoomCreated()   { roomsCreatedTotal.Inc() }

func RecordDatagramReceived(bytes int) {
	datagramsReceived.Inc()
	bytesReceived.Add(float64(bytes))
}

func RecordDatagramSent(bytes int) {
	datagramsSent.Inc()
	bytesSent.Add(float64(bytes))
}

func RecordSendError()              { sendErrors.Inc() }
func RecordSendErrorLogSuppressed() { sendErrorLogsSuppressed.Inc() }

func RecordCommand(command string) { commandsTotal.WithLabelValues(command).Inc() }
func RecordDrop(reason string)     { datagramsDropped.WithLabelValues(reason).Inc() }

func ObserveDispatch(command string, d time.Duration) {
	dispatchDuration.WithLabelValues(command).Observe(d.Seconds())
}

func RecordPingSent() { pingsSent.Inc() }

func RecordEventPublished() { eventsPublished.Inc() }
func RecordEventDropped(destination string) {
	eventsDropped.WithLabelValues(destination).Inc()
}

// SetWorkerQueueStats updates the three worker queue gauges together.
func SetWorkerQueueStats(depth, capacity int) {
	workerQueueDepth.Set(float64(depth))
	workerQueueCapacity.Set(float64(capacity))
	if capacity > 0 {
		workerQueueUtilization.Set(float64(depth) / float64(capacity) * 100)
	}
}

func SetCPUUsage(percent float64)  { cpuUsagePercent.Set(percent) }
func SetMemoryUsage(bytes uint64)  { memoryUsageBytes.Set(float64(bytes)) }
func SetGoroutines(n int)          { goroutinesActive.Set(float64(n)) }
