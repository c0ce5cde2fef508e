package spotter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Latest is a single-slot buffer holding the most recent value from one
// producer. Put replaces a value nobody took yet, so a consumer never sees a
// stale backlog. Only one goroutine may call Put.
type Latest[T any] struct {
	slot    chan T
	done    chan struct{}
	once    sync.Once
	err     error
	discard func(T)
	dropped *atomic.Int64
}

// NewLatest returns an empty slot. discard is called on values that are
// replaced or drained without being taken; it may be nil.
func NewLatest[T any](discard func(T)) *Latest[T] {
	if discard == nil {
		discard = func(T) {}
	}
	return &Latest[T]{
		slot:    make(chan T, 1),
		done:    make(chan struct{}),
		discard: discard,
		dropped: atomic.NewInt64(0),
	}
}

// Put publishes v. It returns false, and leaves v to the caller, once the
// slot is closed.
func (l *Latest[T]) Put(v T) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case old := <-l.slot:
		l.dropped.Inc()
		l.discard(old)
	default:
	}
	// the slot is empty and this is the only sender
	l.slot <- v
	return true
}

// Take waits for a value. A pending value is returned even after Close. It
// fails with ErrFrameUnavailable after timeout (no limit when timeout <= 0),
// with the close error once the slot is closed and empty, or with ctx.Err().
func (l *Latest[T]) Take(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	select {
	case v := <-l.slot:
		return v, nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case v := <-l.slot:
		return v, nil
	case <-l.done:
		select {
		case v := <-l.slot:
			return v, nil
		default:
		}
		return zero, l.err
	case <-expired:
		return zero, ErrFrameUnavailable
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops further Puts; Take reports err (ErrSourceClosed when nil) once
// the slot is empty. Only the first call has an effect.
func (l *Latest[T]) Close(err error) {
	l.once.Do(func() {
		if err == nil {
			err = ErrSourceClosed
		}
		l.err = err
		close(l.done)
	})
}

// Closed reports whether Close was called.
func (l *Latest[T]) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Drain discards a value left in the slot.
func (l *Latest[T]) Drain() {
	select {
	case v := <-l.slot:
		l.discard(v)
	default:
	}
}

// Dropped counts values replaced before anyone took them.
func (l *Latest[T]) Dropped() int64 {
	return l.dropped.Load()
}
