package pipeline

import (
	"context"
	"errors"
)

// ErrLoopClosed is returned by Run once the loop has been closed.
var ErrLoopClosed = errors.New("coordinator loop closed")

// Loop is the coordinator: a single goroutine running posted functions one
// at a time, in post order.
type Loop struct {
	q    *fifo[func()]
	done chan struct{}
}

func NewLoop() *Loop {
	return &Loop{q: newFifo[func()](), done: make(chan struct{})}
}

// Post schedules fn on the coordinator. It never blocks and reports false if
// the loop is closed.
func (l *Loop) Post(fn func()) bool {
	return l.q.push(fn)
}

// Run executes posted functions until ctx is done or Close has been called
// and the queue drained.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		fn, ok := l.q.pop(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrLoopClosed
		}
		fn()
	}
}

// Close stops accepting posts. Run returns after draining what is queued.
func (l *Loop) Close() { l.q.close() }

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Pending returns the number of queued functions.
func (l *Loop) Pending() int { return l.q.len() }
