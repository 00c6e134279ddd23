package workers

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one best-effort side effect queued after a meeting is durably
// committed: a calendar event creation or an advisor notification.
type Task struct {
	Kind      string // "calendar" or "email"
	MeetingID string
	Run       func(ctx context.Context) error
}

// Runner accepts side-effect tasks for asynchronous execution.
// Dispatch reports whether the task was accepted.
type Runner interface {
	Dispatch(task Task) bool
}

// Pool executes side-effect tasks on a fixed set of worker goroutines.
// Each task runs under its own timeout and its own error boundary:
// failures are logged with enough context to diagnose and never
// propagate anywhere.
type Pool struct {
	tasks   chan Task
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewPool creates a Pool and starts its workers.
func NewPool(workerCount, bufferSize int, timeout time.Duration) *Pool {
	p := &Pool{
		tasks:   make(chan Task, bufferSize),
		timeout: timeout,
	}
	log.Printf("Starting %d side-effect worker(s)...", workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

// Dispatch queues a task without blocking. When the buffer is full or
// the pool is already closed the task is dropped and logged; booking
// latency is never held hostage to a slow third party.
func (p *Pool) Dispatch(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Printf("WARNING: side-effect pool is closed, dropping %s task for meeting %s", task.Kind, task.MeetingID)
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		log.Printf("WARNING: side-effect queue is full, dropping %s task for meeting %s", task.Kind, task.MeetingID)
		return false
	}
}

// Close stops accepting tasks and lets the workers drain and exit.
// Safe to call more than once; Dispatch after Close drops the task.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

func (p *Pool) worker() {
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := task.Run(ctx); err != nil {
		log.Printf("[SIDE-EFFECT] ERROR: %s task for meeting %s failed: %v", task.Kind, task.MeetingID, err)
		return
	}
	log.Printf("[SIDE-EFFECT] %s task for meeting %s completed", task.Kind, task.MeetingID)
}
