package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/docstore/storetest"
	"foro/internal/log"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s := New(log.Discard())
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(log.Discard())
	require.NoError(t, s.Set(ctx, "events", "e1", core.Document{"title": "Feria"}))

	doc, err := s.Get(ctx, "events", "e1")
	require.NoError(t, err)
	doc["title"] = "changed"

	again, err := s.Get(ctx, "events", "e1")
	require.NoError(t, err)
	require.Equal(t, "Feria", again.GetString("title"))
}

func TestSubscriptionsAreReleased(t *testing.T) {
	ctx := context.Background()
	s := New(log.Discard())
	defer s.Close()

	for i := 0; i < 50; i++ {
		sub, err := s.Watch(ctx, "expenses", docstore.Query{})
		require.NoError(t, err)
		storetest.Next(t, sub)
		sub.Cancel()
	}
	require.Zero(t, s.Subscriptions())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := New(log.Discard())

	sub, err := s.Watch(ctx, "expenses", docstore.Query{})
	require.NoError(t, err)
	storetest.Next(t, sub)

	require.NoError(t, s.Close())
	select {
	case <-sub.Done():
	case <-time.After(storetest.Timeout):
		t.Fatal("subscription still running after close")
	}

	_, err = s.Watch(ctx, "expenses", docstore.Query{})
	require.ErrorIs(t, err, docstore.ErrClosed)
	_, err = s.Create(ctx, "expenses", core.Document{})
	require.ErrorIs(t, err, docstore.ErrClosed)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"), log.Discard())
	require.NoError(t, err)
	snaps, err := s.Query(context.Background(), "events", docstore.Query{})
	require.NoError(t, err)
	require.Empty(t, snaps)

	path := filepath.Join(dir, "seed.json")
	seed := `{"events": {"e1": {"title": "Feria", "date": "01/07/2025"}},
	          "users": {"u1": {"email": "admin@example.com", "role": "admin"}}}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err = NewFromFile(path, log.Discard())
	require.NoError(t, err)
	doc, err := s.Get(context.Background(), "users", "u1")
	require.NoError(t, err)
	require.Equal(t, "admin", doc.GetString("role"))

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = NewFromFile(path, log.Discard())
	require.Error(t, err)
}
