package gateway

import (
	"context"
	"sync"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

// Stream is a live, typed view of a query. Every delivery on Updates is the
// full current list. A consumer that falls behind skips intermediate lists
// but always receives the latest one.
type Stream[T any] struct {
	collection string
	sub        *docstore.Subscription
	out        chan []T
	done       chan struct{}
	once       sync.Once
}

func newStream[T any](collection string, sub *docstore.Subscription, decode func([]docstore.Snapshot) []T) *Stream[T] {
	s := &Stream[T]{
		collection: collection,
		sub:        sub,
		out:        make(chan []T),
		done:       make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.out)
		for snaps := range sub.Updates() {
			list := decode(snaps)
			select {
			case s.out <- list:
			case <-sub.Done():
				return
			}
		}
	}()
	return s
}

// Updates is closed when the stream ends.
func (s *Stream[T]) Updates() <-chan []T { return s.out }

// Cancel stops delivery and releases the underlying watch. Safe to call
// more than once.
func (s *Stream[T]) Cancel() {
	s.once.Do(s.sub.Cancel)
	<-s.done
}

// Err reports the store failure that ended the stream, if any.
func (s *Stream[T]) Err() error {
	if err := s.sub.Err(); err != nil {
		return &core.StoreError{Op: log.OpWatch, Collection: s.collection, Err: err}
	}
	return nil
}

// Next waits for the next list. ok is false once the stream has ended.
func (s *Stream[T]) Next(ctx context.Context) (list []T, ok bool, err error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case list, ok = <-s.out:
		return list, ok, nil
	}
}

// watch opens a store watch and wraps it in a typed stream.
func watch[T any](ctx context.Context, g *Gateway, collection string, q docstore.Query, decode func([]docstore.Snapshot) []T) (*Stream[T], error) {
	sub, err := g.store.Watch(ctx, collection, q)
	if err != nil {
		return nil, storeErr(log.OpWatch, collection, err)
	}
	return newStream(collection, sub, decode), nil
}

// decodeAll maps every snapshot through fn.
func decodeAll[T any](fn func(docstore.Snapshot) T) func([]docstore.Snapshot) []T {
	return func(snaps []docstore.Snapshot) []T {
		out := make([]T, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, fn(s))
		}
		return out
	}
}
