package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/Priya8975/hr-event-ledger/internal/engine"
)

// StatsReader reports aggregate counts over the event log.
type StatsReader interface {
	Stats(ctx context.Context) (*domain.LogStats, error)
}

// ClientCounter reports connected live-feed clients.
type ClientCounter interface {
	ClientCount() int
}

type MetricsHandler struct {
	stats   StatsReader
	clients ClientCounter
	cb      *engine.CircuitBreaker
	sinks   []string
	logger  *slog.Logger
}

func NewMetricsHandler(stats StatsReader, clients ClientCounter, cb *engine.CircuitBreaker, sinks []string, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{stats: stats, clients: clients, cb: cb, sinks: sinks, logger: logger}
}

type metricsResponse struct {
	domain.LogStats
	WebSocketClients int `json:"websocket_clients"`
}

// Metrics returns event log statistics for dashboards.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}

	clients := 0
	if h.clients != nil {
		clients = h.clients.ClientCount()
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		LogStats:         *stats,
		WebSocketClients: clients,
	})
}

type sinkHealth struct {
	Name           string                     `json:"name"`
	CircuitBreaker engine.CircuitBreakerState `json:"circuit_breaker"`
}

// SinkHealth returns the circuit breaker state of every registered sink.
// Without a breaker every sink reports closed.
func (h *MetricsHandler) SinkHealth(w http.ResponseWriter, r *http.Request) {
	result := make([]sinkHealth, 0, len(h.sinks))
	for _, name := range h.sinks {
		state := engine.CircuitBreakerState{State: engine.StateClosed}
		if h.cb != nil {
			state = h.cb.GetState(r.Context(), name)
		}
		result = append(result, sinkHealth{Name: name, CircuitBreaker: state})
	}
	respondJSON(w, http.StatusOK, result)
}
