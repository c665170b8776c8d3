// Package stream provides a single-producer sequence with explicit
// completion and failure signaling.
//
// The producer calls Send and finally Finish from one goroutine. The consumer
// ranges over Values, reads Err once Values is closed, and may Cancel at any
// time to tell the producer to stop.
package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is returned by Send once the consumer has cancelled the stream
var ErrCanceled = errors.New("stream canceled")

// Stream is a single-producer, single-consumer sequence of values
type Stream[T any] struct {
	values chan T
	done   chan struct{}

	finishOnce sync.Once
	cancelOnce sync.Once
	err        error
}

// New creates a stream. buffer is the number of values the producer may run ahead.
func New[T any](buffer int) *Stream[T] {
	return &Stream[T]{
		values: make(chan T, buffer),
		done:   make(chan struct{}),
	}
}

// Send delivers v to the consumer, blocking until it is accepted
func (s *Stream[T]) Send(ctx context.Context, v T) error {
	select {
	case <-s.done:
		return ErrCanceled
	default:
	}

	select {
	case s.values <- v:
		return nil
	case <-s.done:
		return ErrCanceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish ends the stream. A nil error is a normal completion.
// Only the first call has an effect.
func (s *Stream[T]) Finish(err error) {
	s.finishOnce.Do(func() {
		s.err = err
		close(s.values)
	})
}

// Values returns the receive side; it is closed by Finish
func (s *Stream[T]) Values() <-chan T {
	return s.values
}

// Err returns the terminal failure. It is only meaningful after Values is closed.
func (s *Stream[T]) Err() error {
	return s.err
}

// Cancel disposes of the stream from the consumer side
func (s *Stream[T]) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the consumer cancels
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Collect drains the stream and returns every value with the terminal error
func Collect[T any](s *Stream[T]) ([]T, error) {
	var out []T
	for v := range s.values {
		out = append(out, v)
	}
	return out, s.err
}
