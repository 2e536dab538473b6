package reconcile

import (
	"context"
	"sync"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// Key identifies one user's sync of one source.
type Key struct {
	UserID string
	Source tracker.Source
}

// Task is a running or finished sync.
type Task struct {
	key    Key
	cancel context.CancelFunc
	done   chan struct{}
	res    Result
	err    error
}

func (t *Task) Key() Key {
	return t.key
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.res, t.err
}

// WaitContext is Wait bounded by ctx. The task keeps running when ctx ends first.
func (t *Task) WaitContext(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Runner runs at most one sync per key. Starting a task for a busy key cancels
// the running one, and the new task only starts once the old one has returned.
type Runner struct {
	base context.Context
	stop context.CancelFunc

	mu    sync.Mutex
	tasks map[Key]*Task
	wg    sync.WaitGroup
}

func NewRunner(base context.Context) *Runner {
	ctx, stop := context.WithCancel(base)
	return &Runner{
		base:  ctx,
		stop:  stop,
		tasks: make(map[Key]*Task),
	}
}

func (r *Runner) Start(key Key, fn func(ctx context.Context) (Result, error)) *Task {
	ctx, cancel := context.WithCancel(r.base)
	t := &Task{key: key, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	prev := r.tasks[key]
	if prev != nil {
		prev.cancel()
	}
	r.tasks[key] = t
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer close(t.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}
		if ctx.Err() != nil {
			t.err = ErrCancelled
		} else {
			t.res, t.err = fn(ctx)
		}

		r.mu.Lock()
		if r.tasks[key] == t {
			delete(r.tasks, key)
		}
		r.mu.Unlock()
	}()
	return t
}

// Cancel stops the task running for key. It reports whether one was running.
func (r *Runner) Cancel(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[key]
	if !ok {
		return false
	}
	t.cancel()
	return true
}

func (r *Runner) Running(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[key]
	return ok
}

// Shutdown cancels every task and waits for them to return or ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.stop()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
