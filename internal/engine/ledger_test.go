package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

// memLog is an in-memory EventLog for ledger tests.
type memLog struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *memLog) Append(ctx context.Context, employeeID int64, kind domain.Kind, payload json.RawMessage) (domain.Event, error) {
	if !kind.Valid() {
		return domain.Event{}, domain.ErrInvalidEventKind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Event{}, &domain.PersistenceError{Op: "inserting event", Err: m.err}
	}
	e := domain.Event{
		Seq:        int64(len(m.events) + 1),
		EmployeeID: employeeID,
		Kind:       kind,
		Payload:    payload,
		Timestamp:  time.Unix(0, 0).UTC(),
	}
	m.events = append(m.events, e)
	return e, nil
}

func (m *memLog) ReadAll(ctx context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...), nil
}

func (m *memLog) ReadEmployee(ctx context.Context, employeeID int64) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLog) NextEmployeeID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var highest int64
	for _, e := range m.events {
		if e.EmployeeID > highest {
			highest = e.EmployeeID
		}
	}
	return highest + 1, nil
}

func (m *memLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingNotifier) Notify(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func findEmployee(t *testing.T, employees []domain.Employee, id int64) domain.Employee {
	t.Helper()
	for _, e := range employees {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("employee %d not found in %+v", id, employees)
	return domain.Employee{}
}

func TestLedger_AppendThenReadRoundTrip(t *testing.T) {
	log := &memLog{}
	ledger := NewLedger(log, testLogger())
	ctx := context.Background()

	if _, err := ledger.CreateEmployee(ctx, "Ada", 100, 0); err != nil {
		t.Fatalf("create Ada: %v", err)
	}
	id, err := ledger.CreateEmployee(ctx, "Jane", 5000, 500)
	if err != nil {
		t.Fatalf("create Jane: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected id 2, got %d", id)
	}

	employees, err := ledger.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if jane := findEmployee(t, employees, 2); jane.NetPay != 4500 {
		t.Errorf("netPay = %v, want 4500", jane.NetPay)
	}

	if err := ledger.SetSalary(ctx, 2, 6000); err != nil {
		t.Fatalf("set salary: %v", err)
	}

	employees, err = ledger.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if jane := findEmployee(t, employees, 2); jane.NetPay != 5500 {
		t.Errorf("netPay = %v, want 5500", jane.NetPay)
	}
}

func TestLedger_ValidationRejectsBeforePersistence(t *testing.T) {
	log := &memLog{}
	ledger := NewLedger(log, testLogger())
	ctx := context.Background()

	if _, err := ledger.CreateEmployee(ctx, "Ada", 100, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := log.ReadAll(ctx)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"empty name", func() error { _, err := ledger.CreateEmployee(ctx, "", 100, 0); return err }, domain.ErrInvalidName},
		{"negative salary", func() error { _, err := ledger.CreateEmployee(ctx, "Bob", -1, 0); return err }, domain.ErrInvalidSalary},
		{"negative deductions", func() error { _, err := ledger.CreateEmployee(ctx, "Bob", 1, -1); return err }, domain.ErrInvalidDeductions},
		{"short rename", func() error { return ledger.RenameEmployee(ctx, 1, " x ") }, domain.ErrInvalidName},
		{"negative set salary", func() error { return ledger.SetSalary(ctx, 1, -10) }, domain.ErrInvalidSalary},
		{"negative set deductions", func() error { return ledger.SetDeductions(ctx, 1, -10) }, domain.ErrInvalidDeductions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	after, _ := log.ReadAll(ctx)
	if len(after) != len(before) {
		t.Errorf("log length changed from %d to %d", len(before), len(after))
	}
}

func TestLedger_OrphanUpdateIsAccepted(t *testing.T) {
	log := &memLog{}
	ledger := NewLedger(log, testLogger())
	ctx := context.Background()

	if err := ledger.RenameEmployee(ctx, 5, "Al"); err != nil {
		t.Fatalf("rename unknown employee: %v", err)
	}

	emp, err := ledger.GetEmployee(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if emp != (domain.Employee{ID: 5, Name: "Al"}) {
		t.Errorf("unexpected employee %+v", emp)
	}

	if _, err := ledger.GetEmployee(ctx, 6); !errors.Is(err, domain.ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestLedger_PersistenceErrorPropagates(t *testing.T) {
	log := &memLog{err: errors.New("disk full")}
	notifier := &recordingNotifier{}
	ledger := NewLedger(log, testLogger(), WithNotifier(notifier))

	err := ledger.SetSalary(context.Background(), 1, 10)

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Errorf("notifier should not see failed appends, got %d", len(notifier.events))
	}
}

func TestLedger_NotifiesAppendedEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	ledger := NewLedger(&memLog{}, testLogger(), WithNotifier(notifier))
	ctx := context.Background()

	id, _ := ledger.CreateEmployee(ctx, "Ada", 100, 0)
	_ = ledger.SetDeductions(ctx, id, 5)

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.events))
	}
	if notifier.events[1].Kind != domain.KindDeductionsChanged || notifier.events[1].Seq != 2 {
		t.Errorf("unexpected second notification %+v", notifier.events[1])
	}
}

func TestLedger_FanOutAsSynchronousNotifier(t *testing.T) {
	sink := &fakeSink{name: "ws"}
	ledger := NewLedger(&memLog{}, testLogger(), WithNotifier(NewFanOut(testLogger(), sink)))

	if _, err := ledger.CreateEmployee(context.Background(), "Ada", 100, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	// No worker pool in between, so the sink has the event once the call returns.
	if sink.count() != 1 {
		t.Errorf("sink deliveries = %d, want 1", sink.count())
	}
}

// slowLog blocks reads until the context ends, the way a stalled database
// connection would.
type slowLog struct {
	memLog
}

func (s *slowLog) ReadAll(ctx context.Context) ([]domain.Event, error) {
	<-ctx.Done()
	return nil, &domain.PersistenceError{Op: "querying events", Err: ctx.Err()}
}

func TestLedger_StoreTimeoutSurfacesAsPersistenceError(t *testing.T) {
	ledger := NewLedger(&slowLog{}, testLogger(), WithStoreTimeout(20*time.Millisecond))

	_, err := ledger.ListEmployees(context.Background())

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// barrierAllocator lets every caller read the next id before any of them
// appends, forcing the read-then-append interleaving.
type barrierAllocator struct {
	log     EventLog
	arrived sync.WaitGroup
}

func (b *barrierAllocator) NextEmployeeID(ctx context.Context) (int64, error) {
	id, err := b.log.NextEmployeeID(ctx)
	b.arrived.Done()
	b.arrived.Wait()
	return id, err
}

func TestLedger_ConcurrentCreatesShareIDWithLogAllocator(t *testing.T) {
	log := &memLog{}
	alloc := &barrierAllocator{log: log}
	alloc.arrived.Add(2)
	ledger := NewLedger(log, testLogger(), WithIDAllocator(alloc))
	ctx := context.Background()

	ids := make([]int64, 2)
	var wg sync.WaitGroup
	for i, name := range []string{"First", "Second"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			id, err := ledger.CreateEmployee(ctx, name, 100, 0)
			if err != nil {
				t.Errorf("create %s: %v", name, err)
			}
			ids[i] = id
		}(i, name)
	}
	wg.Wait()

	if ids[0] != 1 || ids[1] != 1 {
		t.Fatalf("expected both creates to receive id 1, got %v", ids)
	}
	if log.count() != 2 {
		t.Fatalf("expected 2 Created events, got %d", log.count())
	}

	events, _ := log.ReadAll(ctx)
	employees, err := ledger.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(employees) != 1 {
		t.Fatalf("expected duplicate creates to fold into one employee, got %+v", employees)
	}

	last, err := events[1].Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if employees[0].Name != last.(domain.Created).Name {
		t.Errorf("expected last created (%q) to win, got %q", last.(domain.Created).Name, employees[0].Name)
	}
}

func TestLedger_ConcurrentCreatesGetDistinctIDsWithRedisAllocator(t *testing.T) {
	client, _ := setupTestRedis(t)
	log := &memLog{}
	ledger := NewLedger(log, testLogger(), WithIDAllocator(NewRedisIDAllocator(client, log)))
	ctx := context.Background()

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := ledger.CreateEmployee(ctx, "Worker", 10, 1)
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("id %d handed out twice", id)
		}
		seen[id] = true
	}

	employees, err := ledger.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(employees) != n {
		t.Errorf("expected %d employees, got %d", n, len(employees))
	}
}

func TestRedisIDAllocator_StaysAboveLogMax(t *testing.T) {
	client, mr := setupTestRedis(t)
	log := &memLog{}
	ctx := context.Background()

	// History written before the allocator existed.
	payload, _ := domain.Encode(domain.Created{ID: 41, Name: "Old", Salary: 1})
	if _, err := log.Append(ctx, 41, domain.KindCreated, payload); err != nil {
		t.Fatalf("append: %v", err)
	}

	alloc := NewRedisIDAllocator(client, log)
	id, err := alloc.NextEmployeeID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}

	// A counter ahead of the log is kept, so ids are never reused.
	mr.Set(EmployeeIDKey, "100")
	id, err = alloc.NextEmployeeID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 101 {
		t.Errorf("id = %d, want 101", id)
	}
}

func TestRedisIDAllocator_RedisDownIsPersistenceError(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisIDAllocator(client, &memLog{}).NextEmployeeID(context.Background())

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}
