package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metric family names exposed at /metrics.
const (
	ConnectionsOpened = "nexusboard_connections_opened_total"
	ConnectionsClosed = "nexusboard_connections_closed_total"
	Commands          = "nexusboard_commands_total"
	ProtocolErrors    = "nexusboard_protocol_errors_total"
	Broadcasts        = "nexusboard_broadcasts_total"
	DeliveryAttempts  = "nexusboard_delivery_attempts_total"
	DeliveryFailures  = "nexusboard_delivery_failures_total"
	Notifications     = "nexusboard_notifications_total"
	ActiveConnections = "nexusboard_connections"
	ActiveRooms       = "nexusboard_rooms"
)

// StatsFunc reports the current number of rooms and connections.
type StatsFunc func() (rooms, connections int)

// Metrics holds gateway counters on a private registry.
// Metrics is safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	opened        prometheus.Counter
	closed        prometheus.Counter
	broadcasts    prometheus.Counter
	attempts      prometheus.Counter
	failures      prometheus.Counter
	notifications prometheus.Counter
	commands      *prometheus.CounterVec
	errors        *prometheus.CounterVec

	handler http.Handler
}

// New creates Metrics. stats may be nil, in which case the room and
// connection gauges are omitted.
func New(stats StatsFunc) *Metrics {
	m := &Metrics{
		reg:           prometheus.NewRegistry(),
		opened:        counter(ConnectionsOpened, "WebSocket connections accepted."),
		closed:        counter(ConnectionsClosed, "WebSocket connections closed."),
		broadcasts:    counter(Broadcasts, "Room broadcasts performed."),
		attempts:      counter(DeliveryAttempts, "Per-member delivery attempts across all broadcasts."),
		failures:      counter(DeliveryFailures, "Per-member deliveries that failed and were dropped."),
		notifications: counter(Notifications, "NotifyBoard calls accepted from the persistence layer."),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: Commands,
			Help: "Inbound commands accepted, by kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ProtocolErrors,
			Help: "Protocol error replies, by error kind.",
		}, []string{"error_kind"}),
	}

	m.reg.MustRegister(
		m.opened, m.closed, m.broadcasts, m.attempts, m.failures, m.notifications,
		m.commands, m.errors,
		collectors.NewGoCollector(),
	)
	if stats != nil {
		m.reg.MustRegister(newStatsCollector(stats))
	}

	m.handler = promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		ErrorLog:      errorLog{},
		ErrorHandling: promhttp.ContinueOnError,
	})
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.opened.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.closed.Inc()
	}
}

// Command counts one accepted inbound command of the given kind.
func (m *Metrics) Command(kind string) {
	if m != nil {
		m.commands.WithLabelValues(kind).Inc()
	}
}

// ProtocolError counts one protocol error reply of the given kind.
func (m *Metrics) ProtocolError(kind string) {
	if m != nil {
		m.errors.WithLabelValues(kind).Inc()
	}
}

// Broadcast counts one fan-out and the members it was attempted against.
func (m *Metrics) Broadcast(attempted int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.attempts.Add(float64(attempted))
}

func (m *Metrics) DeliveryFailed() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) Notification() {
	if m != nil {
		m.notifications.Inc()
	}
}

// Families gathers the current metric families, sorted by name. Labelled
// counters with no samples yet are absent.
func (m *Metrics) Families() []*dto.MetricFamily {
	mfs, err := m.reg.Gather()
	if err != nil {
		slog.Warn("metrics: gather incomplete", "err", err)
	}
	return mfs
}

// ServeHTTP writes all families in the format negotiated from the request.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m.handler.ServeHTTP(w, r)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

// statsCollector reads room and connection counts from the registry once
// per scrape, so both gauges come from the same snapshot.
type statsCollector struct {
	stats StatsFunc
	rooms *prometheus.Desc
	conns *prometheus.Desc
}

func newStatsCollector(stats StatsFunc) *statsCollector {
	return &statsCollector{
		stats: stats,
		rooms: prometheus.NewDesc(ActiveRooms, "Rooms with at least one member.", nil, nil),
		conns: prometheus.NewDesc(ActiveConnections, "Currently registered connections.", nil, nil),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rooms
	ch <- c.conns
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	rooms, conns := c.stats()
	ch <- prometheus.MustNewConstMetric(c.rooms, prometheus.GaugeValue, float64(rooms))
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(conns))
}

// errorLog routes promhttp encoding errors to slog.
type errorLog struct{}

func (errorLog) Println(v ...interface{}) {
	slog.Warn("metrics: serve failed", "err", v)
}
