package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/metrics"
)

type handlerTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// HandlerRegistry tracks the running session handlers so that shutdown can
// cancel them and wait for them to finish.
type HandlerRegistry struct {
	metrics *metrics.Metrics

	mu    sync.Mutex
	tasks map[model.SessionID]*handlerTask
}

// NewHandlerRegistry creates an empty registry. m may be nil.
func NewHandlerRegistry(m *metrics.Metrics) *HandlerRegistry {
	return &HandlerRegistry{
		metrics: m,
		tasks:   make(map[model.SessionID]*handlerTask),
	}
}

// Go runs fn under a child of ctx registered as id and blocks until fn returns.
// The entry is removed on every exit path, including a panic in fn.
func (r *HandlerRegistry) Go(ctx context.Context, id model.SessionID, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	task := &handlerTask{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if _, exists := r.tasks[id]; exists {
		r.mu.Unlock()
		cancel()
		return fmt.Errorf("session %s already registered", id)
	}
	r.tasks[id] = task
	r.metrics.SetActiveSessions(len(r.tasks))
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.tasks, id)
		r.metrics.SetActiveSessions(len(r.tasks))
		r.mu.Unlock()
		close(task.done)
	}()

	return fn(ctx)
}

// Len returns the number of running handlers.
func (r *HandlerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// CancelAll cancels the context of every running handler.
func (r *HandlerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		task.cancel()
	}
}

// Wait blocks until every handler registered at the time of the call has
// returned, or ctx is done.
func (r *HandlerRegistry) Wait(ctx context.Context) error {
	r.mu.Lock()
	pending := make([]chan struct{}, 0, len(r.tasks))
	for _, task := range r.tasks {
		pending = append(pending, task.done)
	}
	r.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
