// Package memory is an in-process document store. It backs tests and the
// memory backend, and can be seeded from a JSON fixture.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

type Store struct {
	mu     sync.RWMutex
	docs   map[string]map[string]core.Document
	closed bool
	hub    *docstore.Hub
}

func New(logger *log.Logger) *Store {
	s := &Store{docs: make(map[string]map[string]core.Document)}
	s.hub = docstore.NewHub(s.Query, logger)
	return s
}

// NewFromFile seeds a store from a JSON file shaped as
// {"collection": {"id": {...fields}}}. A missing file yields an empty store.
func NewFromFile(path string, logger *log.Logger) (*Store, error) {
	s := New(logger)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed map[string]map[string]core.Document
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for collection, docs := range seed {
		for id, doc := range docs {
			s.put(collection, id, doc)
		}
	}
	return s, nil
}

var _ docstore.Store = (*Store)(nil)

// Create stores doc under a new random id.
func (s *Store) Create(ctx context.Context, collection string, doc core.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(_ context.Context, collection, id string, doc core.Document) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	s.put(collection, id, doc)
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

func (s *Store) Merge(_ context.Context, collection, id string, doc core.Document) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	merged := s.docs[collection][id].Clone()
	if merged == nil {
		merged = core.Document{}
	}
	for k, v := range doc {
		merged[k] = v
	}
	s.put(collection, id, merged)
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	_, existed := s.docs[collection][id]
	delete(s.docs[collection], id)
	s.mu.Unlock()

	if existed {
		s.hub.Notify(collection)
	}
	return nil
}

func (s *Store) Get(_ context.Context, collection, id string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, &core.NotFoundError{Collection: collection, ID: id}
	}
	return doc.Clone(), nil
}

func (s *Store) Query(_ context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, docstore.ErrClosed
	}
	snaps := make([]docstore.Snapshot, 0, len(s.docs[collection]))
	for id, doc := range s.docs[collection] {
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: doc.Clone()})
	}
	s.mu.RUnlock()
	return q.Apply(snaps), nil
}

func (s *Store) Watch(ctx context.Context, collection string, q docstore.Query) (*docstore.Subscription, error) {
	return s.hub.Subscribe(ctx, collection, q)
}

// Subscriptions returns the number of live watches.
func (s *Store) Subscriptions() int { return s.hub.Len() }

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

// put must be called with mu held, or before the store is shared.
func (s *Store) put(collection, id string, doc core.Document) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]core.Document)
	}
	s.docs[collection][id] = doc.Clone()
}
