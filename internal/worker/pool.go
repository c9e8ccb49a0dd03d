package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrStopped   = errors.New("notification pool stopped")
)

// Handler processes one status change.
type Handler func(ctx context.Context, change domain.StatusChange)

// Pool runs a fixed number of goroutines that hand status changes to the
// handler off the request path.
type Pool struct {
	numWorkers int
	jobs       chan domain.StatusChange
	handler    Handler
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with a buffered queue of queueSize entries. A
// non-positive queueSize defaults to twice the worker count.
func NewPool(numWorkers, queueSize int, handler Handler, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 2
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan domain.StatusChange, queueSize),
		handler:    handler,
		logger:     logger,
	}
}

// Start launches the workers. They run until Stop closes the queue.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit enqueues a change without blocking. It returns ErrQueueFull when
// the queue has no room and ErrStopped once Stop has been called.
func (p *Pool) Submit(change domain.StatusChange) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- change:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued changes to be handled.
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

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for change := range p.jobs {
		p.handle(ctx, change)
	}
}

func (p *Pool) handle(ctx context.Context, change domain.StatusChange) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("status change handler panicked", "panic", r, "message_id", change.MessageID)
		}
	}()
	p.handler(ctx, change)
}
