// Package docstore defines the document store port used by the gateway and
// the shared machinery its backends build realtime watches on.
package docstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"foro/internal/core"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("docstore: store closed")

// Snapshot is one document as seen by a query or watch.
type Snapshot struct {
	ID   string
	Data core.Document
}

// Writer persists documents. Set replaces the whole document, Merge only
// the given fields. Delete of a missing document is not an error.
type Writer interface {
	Create(ctx context.Context, collection string, doc core.Document) (string, error)
	Set(ctx context.Context, collection, id string, doc core.Document) error
	Merge(ctx context.Context, collection, id string, doc core.Document) error
	Delete(ctx context.Context, collection, id string) error
}

// Reader fetches documents. Get returns a *core.NotFoundError when the
// document does not exist.
type Reader interface {
	Get(ctx context.Context, collection, id string) (core.Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
}

// Watcher opens realtime subscriptions over a collection subset.
type Watcher interface {
	Watch(ctx context.Context, collection string, q Query) (*Subscription, error)
}

// Store is the full document store port.
type Store interface {
	Writer
	Reader
	Watcher
	Close() error
}

// Filter is an equality predicate on one field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents by equality filters and optionally orders them
// by one field.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
}

// Where returns a copy of q with an added equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Value: value})
	return q
}

// Order returns a copy of q ordered by field.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy, q.Desc = field, desc
	return q
}

// Matches reports whether doc passes every filter. Numbers compare by
// value regardless of their Go type.
func (q Query) Matches(doc core.Document) bool {
	for _, f := range q.Filters {
		if !valueEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

// Apply filters and orders snaps in place and returns the result. Ties on
// the order field fall back to document id so ordering is deterministic.
func (q Query) Apply(snaps []Snapshot) []Snapshot {
	out := snaps[:0]
	for _, s := range snaps {
		if q.Matches(s.Data) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Snapshot) int {
		if q.OrderBy != "" {
			c := compareValues(a.Data[q.OrderBy], b.Data[q.OrderBy])
			if q.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SubPath is the collection path of a per-document sub-collection, for
// example events/{id}/comments.
func SubPath(collection, id, sub string) string {
	return collection + "/" + id + "/" + sub
}

func valueEqual(a, b any) bool {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return a == b
}

// compareValues orders missing < bool < number < string.
func compareValues(a, b any) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case string:
		return strings.Compare(av, b.(string))
	}
	af, _ := number(a)
	bf, _ := number(b)
	return cmp.Compare(af, bf)
}

func rank(v any) int {
	if _, ok := number(v); ok {
		return 2
	}
	switch v.(type) {
	case bool:
		return 1
	case string:
		return 3
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
