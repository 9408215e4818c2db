package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
)

// ErrCancelled is the error of a cancelled future.
var ErrCancelled = errors.New("job cancelled")

// Status is the lifecycle state of a Future.
type Status int32

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Terminal is true for Succeeded, Failed and Cancelled.
func (s Status) Terminal() bool { return s >= Succeeded }

// JobFailure wraps the error of a job that failed on a worker.
type JobFailure struct {
	Job string
	Err error
}

func (e *JobFailure) Error() string { return fmt.Sprintf("job %s failed: %v", e.Job, e.Err) }

func (e *JobFailure) Unwrap() error { return e.Err }

// Future is the eventual outcome of a unit of work.
type Future[T any] struct {
	name   string
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
	value  T
	err    error
	hooks  []func()
	done   chan struct{}
}

// NewFuture returns a pending future that the caller settles with Resolve,
// Reject or Cancel.
func NewFuture[T any](name string) *Future[T] {
	return &Future[T]{name: name, done: make(chan struct{})}
}

// Resolved returns a future that already succeeded with v.
func Resolved[T any](name string, v T) *Future[T] {
	f := NewFuture[T](name)
	f.Resolve(v)
	return f
}

// Rejected returns a future that already failed with err.
func Rejected[T any](name string, err error) *Future[T] {
	f := NewFuture[T](name)
	f.Reject(err)
	return f
}

func (f *Future[T]) Name() string { return f.name }

func (f *Future[T]) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Done is closed on the terminal transition.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the value and error. Before the future is terminal it
// returns the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Wait blocks until the future is terminal or ctx is done. It must not be
// called on the coordinator goroutine.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Resolve settles the future as succeeded. It reports false if the future
// was already terminal.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(Succeeded, v, nil)
}

// Reject settles the future as failed.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(Failed, zero, err)
}

// Cancel settles the future as cancelled and cancels the job's context.
// The transition is synchronous: a result delivered afterwards is dropped.
func (f *Future[T]) Cancel() bool {
	var zero T
	ok := f.settle(Cancelled, zero, ErrCancelled)
	if f.cancel != nil {
		f.cancel()
	}
	return ok
}

// OnDone registers fn to run once, on whatever goroutine makes the future
// terminal. If it already is, fn runs immediately.
func (f *Future[T]) OnDone(fn func()) {
	f.mu.Lock()
	if !f.status.Terminal() {
		f.hooks = append(f.hooks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

func (f *Future[T]) start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != Pending {
		return false
	}
	f.status = Running
	return true
}

func (f *Future[T]) settle(s Status, v T, err error) bool {
	f.mu.Lock()
	if f.status.Terminal() {
		f.mu.Unlock()
		return false
	}
	f.status, f.value, f.err = s, v, err
	hooks := f.hooks
	f.hooks = nil
	close(f.done)
	f.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	return true
}

// Go submits fn to the pool and returns its future. A returned error is
// wrapped in a *JobFailure.
func Go[T any](ctx context.Context, pool *Pool, name string, fn func(ctx context.Context) (T, error)) *Future[T] {
	jctx, cancel := context.WithCancel(ctx)
	f := NewFuture[T](name)
	f.cancel = cancel

	submitted := pool.Submit(name, func(context.Context) {
		defer cancel()
		if !f.start() {
			return
		}
		v, err := fn(jctx)
		if err != nil {
			if f.Reject(&JobFailure{Job: name, Err: err}) {
				ctxlog.FromContext(ctx).Warn("Job failed.", "job", name, "error", err)
			}
			return
		}
		f.Resolve(v)
	})
	if !submitted {
		cancel()
		f.Reject(&JobFailure{Job: name, Err: ErrPoolClosed})
	}
	return f
}

// Then posts fn to the loop once f is terminal.
func Then[T any](loop *Loop, f *Future[T], fn func(v T, err error, s Status)) {
	f.OnDone(func() {
		loop.Post(func() {
			v, err := f.Result()
			fn(v, err, f.Status())
		})
	})
}

// Waiter is the untyped view of a Future used by JoinAll.
type Waiter interface {
	Name() string
	Status() Status
	OnDone(fn func())
}

// JoinAll posts fn to the loop exactly once, after every input future has
// reached a terminal status. fn receives the statuses in input order.
func JoinAll(loop *Loop, fn func(statuses []Status), fs ...Waiter) {
	var once sync.Once
	fire := func() {
		once.Do(func() {
			loop.Post(func() {
				st := make([]Status, len(fs))
				for i, f := range fs {
					st[i] = f.Status()
				}
				fn(st)
			})
		})
	}
	if len(fs) == 0 {
		fire()
		return
	}
	var remaining atomic.Int32
	remaining.Store(int32(len(fs)))
	for _, f := range fs {
		f.OnDone(func() {
			if remaining.Add(-1) == 0 {
				fire()
			}
		})
	}
}

// AllSucceeded is true when every status is Succeeded.
func AllSucceeded(statuses []Status) bool {
	for _, s := range statuses {
		if s != Succeeded {
			return false
		}
	}
	return true
}

// AnyIs is true when at least one status equals s.
func AnyIs(statuses []Status, s Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
