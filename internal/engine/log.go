package engine

import (
	"context"
	"encoding/json"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

// EventLog is the durable, append-only employee event log.
//
// Append assigns the next sequence id and persists the event atomically. It
// rejects kinds outside domain.Kinds with domain.ErrInvalidEventKind and
// reports storage failures as *domain.PersistenceError.
//
// ReadAll and ReadEmployee return events in ascending sequence order as one
// consistent view per call.
//
// NextEmployeeID returns max(employee id)+1 over the whole log, or 1 when the
// log is empty. Calling it and then appending a Created event is not atomic:
// concurrent creates may receive the same id.
type EventLog interface {
	Append(ctx context.Context, employeeID int64, kind domain.Kind, payload json.RawMessage) (domain.Event, error)
	ReadAll(ctx context.Context) ([]domain.Event, error)
	ReadEmployee(ctx context.Context, employeeID int64) ([]domain.Event, error)
	NextEmployeeID(ctx context.Context) (int64, error)
}

// IDAllocator hands out employee ids for new employees. An EventLog is itself
// an IDAllocator with the racy max+1 behavior.
type IDAllocator interface {
	NextEmployeeID(ctx context.Context) (int64, error)
}

// Notifier receives every event after it has been durably appended. Notify
// runs on the write path, so slow receivers should queue instead of
// publishing inline.
type Notifier interface {
	Notify(event domain.Event)
}
