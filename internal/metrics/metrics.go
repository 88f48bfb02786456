package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seabattle"

// Drop reasons of inbound envelopes.
const (
	ReasonMalformed = "malformed"
	ReasonRejected  = "rejected"
)

// Client holds the collectors of the game client.
type Client struct {
	EnvelopesReceived *prometheus.CounterVec
	EnvelopesDropped  *prometheus.CounterVec
	ActionsSent       *prometheus.CounterVec
	ActionsQueued     prometheus.Counter
	QueueDepth        prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	ReconnectExhaust  prometheus.Counter
	Connected         prometheus.Gauge
}

func NewClient(registry prometheus.Registerer) *Client {
	factory := promauto.With(registry)

	return &Client{
		EnvelopesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "envelopes_received_total",
			Help:      "Inbound envelopes applied, by context",
		}, []string{"context"}),

		EnvelopesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "envelopes_dropped_total",
			Help:      "Inbound envelopes discarded, by reason",
		}, []string{"reason"}),

		ActionsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "actions_sent_total",
			Help:      "Outbound actions written to the server, by context",
		}, []string{"context"}),

		ActionsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "actions_queued_total",
			Help:      "Outbound actions deferred until the session is synchronized",
		}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "outbound_queue_depth",
			Help:      "Actions currently waiting in the outbound queue",
		}),

		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts scheduled after a lost session",
		}),

		ReconnectExhaust: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "reconnect_exhausted_total",
			Help:      "Times the reconnect policy gave up",
		}),

		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connected",
			Help:      "1 while the session is connected",
		}),
	}
}

// Server holds the collectors of the development room server.
type Server struct {
	RoomsOpen         prometheus.Gauge
	Shots             *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
}

func NewServer(registry prometheus.Registerer) *Server {
	factory := promauto.With(registry)

	return &Server{
		RoomsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "rooms_open",
			Help:      "Rooms currently stored, refreshed on every join and exit",
		}),

		Shots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "shots_total",
			Help:      "Shots resolved, by result",
		}, []string{"result"}),

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Open player sockets",
		}),
	}
}

// Handler exposes the collectors of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
