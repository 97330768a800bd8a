package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

// Sink receives appended events, e.g. the websocket feed or a message broker.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event domain.Event) error
}

// FanOut distributes each appended event to every registered sink. A failing
// sink is logged and skipped; the event is already durable at this point.
type FanOut struct {
	sinks   []Sink
	breaker *CircuitBreaker
	logger  *slog.Logger
	timeout time.Duration
}

func NewFanOut(logger *slog.Logger, sinks ...Sink) *FanOut {
	return &FanOut{
		sinks:   sinks,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// WithBreaker guards each sink with a circuit breaker keyed by sink name.
func (f *FanOut) WithBreaker(cb *CircuitBreaker) *FanOut {
	f.breaker = cb
	return f
}

// Add registers another sink.
func (f *FanOut) Add(s Sink) {
	f.sinks = append(f.sinks, s)
}

// Deliver publishes the event to every sink and returns the number of sinks
// that accepted it.
func (f *FanOut) Deliver(ctx context.Context, event domain.Event) int {
	delivered := 0
	for _, sink := range f.sinks {
		name := sink.Name()

		if f.breaker != nil {
			if state, ok := f.breaker.AllowRequest(ctx, name); !ok {
				f.logger.Debug("sink skipped", "sink", name, "circuit", state, "seq", event.Seq)
				continue
			}
		}

		if err := sink.Publish(ctx, event); err != nil {
			f.logger.Error("sink publish failed",
				"error", err,
				"sink", name,
				"seq", event.Seq,
				"employee_id", event.EmployeeID,
			)
			if f.breaker != nil {
				f.breaker.RecordFailure(ctx, name)
			}
			continue
		}

		if f.breaker != nil {
			f.breaker.RecordSuccess(ctx, name)
		}
		delivered++
	}
	return delivered
}

// Notify delivers synchronously on a fresh context so that sinks outlive the
// request that produced the event. The server uses it directly as the ledger
// notifier when SINK_WORKERS is 0.
func (f *FanOut) Notify(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	f.Deliver(ctx, event)
}
