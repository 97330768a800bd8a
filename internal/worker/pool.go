package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

const jobTimeout = 10 * time.Second

// Handler processes one appended event, typically engine.FanOut.Deliver.
type Handler func(ctx context.Context, event domain.Event) int

// Pool manages a fixed number of worker goroutines that hand appended events
// to sinks off the request path.
type Pool struct {
	numWorkers int
	jobs       chan domain.Event
	handle     Handler
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, handle Handler, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan domain.Event, numWorkers*64),
		handle:     handle,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Notify queues the event without blocking. When the queue is full or the
// pool is stopped the event is dropped for sinks only; it is already in the log.
func (p *Pool) Notify(event domain.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.logger.Warn("worker pool stopped, dropping notification", "seq", event.Seq)
		return
	}

	select {
	case p.jobs <- event:
	default:
		p.logger.Warn("worker pool queue full, dropping notification", "seq", event.Seq)
	}
}

// Stop closes the jobs channel and waits for queued events to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker is a single goroutine that processes jobs from the channel.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for event := range p.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		delivered := p.handle(jobCtx, event)
		cancel()
		p.logger.Debug("event dispatched", "worker", id, "seq", event.Seq, "sinks", delivered)
	}
}
