package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/hr-event-ledger/internal/engine"
	ws "github.com/Priya8975/hr-event-ledger/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Dependencies are the collaborators the router serves. Hub, Breaker and
// Limiter are optional.
type Dependencies struct {
	Ledger  *engine.Ledger
	Stats   StatsReader
	Hub     *ws.Hub
	Breaker *engine.CircuitBreaker
	Sinks   []string

	Limiter        *engine.RateLimiter
	WriteRateLimit int

	Checks map[string]Pinger
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(corsMiddleware)

	// Handlers
	empHandler := NewEmployeeHandler(deps.Ledger, deps.Logger)
	eventHandler := NewEventHandler(deps.Ledger, deps.Logger)

	var clients ClientCounter
	if deps.Hub != nil {
		clients = deps.Hub
		r.Get("/ws", deps.Hub.HandleWebSocket)
	}
	metricsHandler := NewMetricsHandler(deps.Stats, clients, deps.Breaker, deps.Sinks, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthHandler(deps.Checks))
		r.Get("/metrics", metricsHandler.Metrics)
		r.Get("/sinks", metricsHandler.SinkHealth)
		r.Get("/events", eventHandler.List)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", empHandler.List)
			r.Get("/{id}", empHandler.Get)
			r.Get("/{id}/events", empHandler.History)

			r.Group(func(r chi.Router) {
				if deps.Limiter != nil && deps.WriteRateLimit > 0 {
					r.Use(writeRateLimit(deps.Limiter, deps.WriteRateLimit))
				}
				r.Post("/", empHandler.Create)
				r.Put("/{id}/name", empHandler.UpdateName)
				r.Put("/{id}/salary", empHandler.UpdateSalary)
				r.Put("/{id}/deductions", empHandler.UpdateDeductions)
			})
		})
	})

	return otelhttp.NewHandler(r, "hr-ledger",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// corsMiddleware adds CORS headers for the browser frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
