package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recorder struct {
	mu   sync.Mutex
	seqs []int64
}

func (r *recorder) handle(ctx context.Context, e domain.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, e.Seq)
	return 1
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seqs)
}

func event(seq int64) domain.Event {
	return domain.Event{Seq: seq, EmployeeID: 1, Kind: domain.KindNameChanged, Payload: json.RawMessage(`{"name":"Al"}`)}
}

func TestPool_DrainsOnStop(t *testing.T) {
	rec := &recorder{}
	p := NewPool(3, rec.handle, testLogger())
	p.Start(context.Background())

	for i := 1; i <= 50; i++ {
		p.Notify(event(int64(i)))
	}
	p.Stop()

	if rec.count() != 50 {
		t.Errorf("expected 50 handled events, got %d", rec.count())
	}
}

func TestPool_NotifyAfterStopIsDropped(t *testing.T) {
	rec := &recorder{}
	p := NewPool(1, rec.handle, testLogger())
	p.Start(context.Background())
	p.Stop()

	p.Notify(event(1)) // must not panic on the closed channel
	p.Stop()           // second stop is a no-op

	if rec.count() != 0 {
		t.Errorf("expected no handled events, got %d", rec.count())
	}
}

func TestPool_FullQueueDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	blocking := func(ctx context.Context, e domain.Event) int {
		<-release
		return 0
	}
	p := NewPool(1, blocking, testLogger())
	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			p.Notify(event(int64(i + 1)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(release)
	p.Stop()
}

func TestPool_HandlerGetsDeadline(t *testing.T) {
	var hasDeadline bool
	var mu sync.Mutex
	p := NewPool(1, func(ctx context.Context, e domain.Event) int {
		_, ok := ctx.Deadline()
		mu.Lock()
		hasDeadline = ok
		mu.Unlock()
		return 1
	}, testLogger())
	p.Start(context.Background())
	p.Notify(event(1))
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if !hasDeadline {
		t.Error("expected each delivery to run under a timeout")
	}
}
