package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	// Given: a fresh registry
	registry := prometheus.NewRegistry()

	// When: recording client activity
	client := NewClient(registry)
	client.EnvelopesReceived.WithLabelValues("connect").Inc()
	client.EnvelopesDropped.WithLabelValues(ReasonMalformed).Inc()
	client.QueueDepth.Set(2)

	// Then: the values are readable and exposed over HTTP
	assert.InDelta(t, 1, testutil.ToFloat64(client.EnvelopesReceived.WithLabelValues("connect")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(client.QueueDepth), 0)

	recorder := httptest.NewRecorder()
	Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `seabattle_client_envelopes_dropped_total{reason="malformed"} 1`)
	assert.Contains(t, string(body), "seabattle_client_outbound_queue_depth 2")
}

func TestNewServer(t *testing.T) {
	registry := prometheus.NewRegistry()

	server := NewServer(registry)
	server.Shots.WithLabelValues("hit").Inc()
	server.ConnectionsActive.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(server.Shots.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(server.ConnectionsActive), 0)
}

func TestRegistriesAreIndependent(t *testing.T) {
	// Given: two registries
	first, second := prometheus.NewRegistry(), prometheus.NewRegistry()

	// When/Then: registering the same collectors twice does not panic
	assert.NotPanics(t, func() {
		NewClient(first)
		NewClient(second)
	})
}
