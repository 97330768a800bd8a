package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStoreTimeout = 5 * time.Second

// Ledger is the write and read surface over the employee event log. Every
// write appends exactly one event; every read replays the log.
type Ledger struct {
	log      EventLog
	ids      IDAllocator
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	tracer   trace.Tracer
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithIDAllocator replaces the log's own max+1 id derivation.
func WithIDAllocator(ids IDAllocator) LedgerOption {
	return func(l *Ledger) {
		if ids != nil {
			l.ids = ids
		}
	}
}

// WithNotifier registers the receiver of appended events.
func WithNotifier(n Notifier) LedgerOption {
	return func(l *Ledger) { l.notifier = n }
}

// WithStoreTimeout bounds every store call made by one ledger operation.
func WithStoreTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func NewLedger(log EventLog, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		log:     log,
		ids:     log,
		logger:  logger,
		timeout: defaultStoreTimeout,
		tracer:  otel.Tracer("github.com/Priya8975/hr-event-ledger/internal/engine"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListEmployees replays the whole log.
func (l *Ledger) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	ctx, finish := l.start(ctx, "Ledger.ListEmployees")
	var err error
	defer func() { finish(err) }()

	events, err := l.log.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	employees, err := Project(events)
	if err != nil {
		l.logger.Error("projection failed", "error", err, "events", len(events))
		return nil, err
	}
	return employees, nil
}

// GetEmployee replays only the events of one employee.
func (l *Ledger) GetEmployee(ctx context.Context, employeeID int64) (domain.Employee, error) {
	ctx, finish := l.start(ctx, "Ledger.GetEmployee", attribute.Int64("employee.id", employeeID))
	var err error
	defer func() { finish(err) }()

	events, err := l.log.ReadEmployee(ctx, employeeID)
	if err != nil {
		return domain.Employee{}, err
	}
	emp, err := ProjectOne(events, employeeID)
	if err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

// History returns the events recorded for one employee in sequence order.
func (l *Ledger) History(ctx context.Context, employeeID int64) ([]domain.Event, error) {
	ctx, finish := l.start(ctx, "Ledger.History", attribute.Int64("employee.id", employeeID))
	var err error
	defer func() { finish(err) }()

	events, err := l.log.ReadEmployee(ctx, employeeID)
	return events, err
}

// Events returns the raw log.
func (l *Ledger) Events(ctx context.Context) ([]domain.Event, error) {
	ctx, finish := l.start(ctx, "Ledger.Events")
	var err error
	defer func() { finish(err) }()

	events, err := l.log.ReadAll(ctx)
	return events, err
}

// CreateEmployee validates the new employee, allocates an id and appends a
// Created event. With the default allocator two concurrent calls can get
// the same id; replay then keeps the later one.
func (l *Ledger) CreateEmployee(ctx context.Context, name string, salary, deductions float64) (int64, error) {
	ctx, finish := l.start(ctx, "Ledger.CreateEmployee")
	var err error
	defer func() { finish(err) }()

	if err = domain.ValidateEmployee(name, salary, deductions); err != nil {
		return 0, err
	}

	id, err := l.ids.NextEmployeeID(ctx)
	if err != nil {
		l.logger.Error("failed to allocate employee id", "error", err)
		return 0, err
	}

	_, err = l.append(ctx, id, domain.Created{ID: id, Name: name, Salary: salary, Deductions: deductions})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) RenameEmployee(ctx context.Context, employeeID int64, name string) error {
	ctx, finish := l.start(ctx, "Ledger.RenameEmployee", attribute.Int64("employee.id", employeeID))
	var err error
	defer func() { finish(err) }()

	_, err = l.append(ctx, employeeID, domain.NameChanged{Name: name})
	return err
}

func (l *Ledger) SetSalary(ctx context.Context, employeeID int64, salary float64) error {
	ctx, finish := l.start(ctx, "Ledger.SetSalary", attribute.Int64("employee.id", employeeID))
	var err error
	defer func() { finish(err) }()

	_, err = l.append(ctx, employeeID, domain.SalaryChanged{Salary: salary})
	return err
}

func (l *Ledger) SetDeductions(ctx context.Context, employeeID int64, deductions float64) error {
	ctx, finish := l.start(ctx, "Ledger.SetDeductions", attribute.Int64("employee.id", employeeID))
	var err error
	defer func() { finish(err) }()

	_, err = l.append(ctx, employeeID, domain.DeductionsChanged{Deductions: deductions})
	return err
}

// append validates a change and writes it as one event. Nothing is written
// when validation fails.
func (l *Ledger) append(ctx context.Context, employeeID int64, change domain.Change) (domain.Event, error) {
	if err := domain.Validate(change); err != nil {
		return domain.Event{}, err
	}

	payload, err := domain.Encode(change)
	if err != nil {
		return domain.Event{}, err
	}

	event, err := l.log.Append(ctx, employeeID, change.Kind(), payload)
	if err != nil {
		l.logger.Error("failed to append event",
			"error", err,
			"employee_id", employeeID,
			"kind", change.Kind(),
		)
		return domain.Event{}, err
	}

	l.logger.Info("event appended",
		"seq", event.Seq,
		"employee_id", event.EmployeeID,
		"kind", event.Kind,
	)

	if l.notifier != nil {
		l.notifier.Notify(event)
	}
	return event, nil
}

// start opens a span and applies the store timeout. The returned func ends
// both and records err on the span.
func (l *Ledger) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	ctx, span := l.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		cancel()
	}
}
