// Package buffer provides a blocking bounded queue used to hand streamed
// elements between a producer and a consumer goroutine. Model output chunks
// flow through a Queue on their way from the provider stream to the caller.
package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrDone is returned by Next when the queue is closed for writing and every
// element has been consumed.
var ErrDone = errors.New("buffer: queue drained")

// Queue is a fixed-capacity FIFO. Add blocks while the queue is full, Next
// blocks while it is empty. Closing the write side lets the consumer drain
// what remains; closing with an error unblocks both sides immediately.
type Queue[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	ring       []T
	head, tail int64
	writeDone  bool
	closeErr   error
}

// NewQueue returns a Queue holding at most n elements.
func NewQueue[T any](n int) *Queue[T] {
	q := &Queue[T]{ring: make([]T, n)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends one element, blocking while the queue is full.
func (q *Queue[T]) Add(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closeErr != nil {
			return fmt.Errorf("buffer: add to closed queue: %w", q.closeErr)
		}
		if q.writeDone {
			return fmt.Errorf("buffer: add to closed queue: %w", io.ErrClosedPipe)
		}
		if q.tail-q.head < int64(len(q.ring)) {
			break
		}
		q.cond.Wait()
	}
	q.ring[q.tail%int64(len(q.ring))] = v
	q.tail++
	q.cond.Broadcast()
	return nil
}

// Next removes and returns the oldest element, blocking while the queue is
// empty. It returns ErrDone after CloseWrite once the queue is drained.
func (q *Queue[T]) Next() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == q.tail {
		if q.closeErr != nil {
			var zero T
			return zero, fmt.Errorf("buffer: next on closed queue: %w", q.closeErr)
		}
		if q.writeDone {
			var zero T
			return zero, ErrDone
		}
		q.cond.Wait()
	}
	v := q.ring[q.head%int64(len(q.ring))]
	q.head++
	q.cond.Broadcast()
	return v, nil
}

// CloseWrite stops further Adds while letting Next drain the remainder.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.writeDone {
		q.writeDone = true
		q.cond.Broadcast()
	}
	return nil
}

// CloseWithError tears the queue down: pending and future Add/Next calls
// return err. A nil err is replaced with io.ErrClosedPipe. Only the first
// close takes effect.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr == nil {
		q.closeErr = err
		q.writeDone = true
		q.cond.Broadcast()
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(io.ErrClosedPipe)
}

// Err returns the error the queue was closed with, if any.
func (q *Queue[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeErr
}

// Len returns the number of buffered elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}
