// Package storetest is the behaviour suite every docstore backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foro/internal/core"
	"foro/internal/docstore"
)

// Timeout bounds every wait on a subscription.
const Timeout = 5 * time.Second

// Run exercises a fresh store from newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Run("crud", func(t *testing.T) { testCRUD(t, newStore(t)) })
	t.Run("merge", func(t *testing.T) { testMerge(t, newStore(t)) })
	t.Run("query", func(t *testing.T) { testQuery(t, newStore(t)) })
	t.Run("sub collections", func(t *testing.T) { testSubCollections(t, newStore(t)) })
	t.Run("watch", func(t *testing.T) { testWatch(t, newStore(t)) })
	t.Run("watch converges", func(t *testing.T) { testWatchConverges(t, newStore(t)) })
	t.Run("watch cancel", func(t *testing.T) { testWatchCancel(t, newStore(t)) })
}

// Next waits for the next delivery on sub.
func Next(t *testing.T, sub *docstore.Subscription) []docstore.Snapshot {
	t.Helper()
	select {
	case snaps, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed: %v", sub.Err())
		return snaps
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

// Until reads deliveries until one satisfies pred and returns it.
func Until(t *testing.T, sub *docstore.Subscription, pred func([]docstore.Snapshot) bool) []docstore.Snapshot {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		select {
		case snaps, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed: %v", sub.Err())
			if pred(snaps) {
				return snaps
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching delivery")
			return nil
		}
	}
}

// IDs lists the document ids of snaps in order.
func IDs(snaps []docstore.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.ID
	}
	return out
}

func testCRUD(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, "expenses", core.Document{"name": "Coffee", "amount": 3.5, "timestamp": int64(1)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	other, err := s.Create(ctx, "expenses", core.Document{"name": "Bus"})
	require.NoError(t, err)
	require.NotEqual(t, id, other)

	doc, err := s.Get(ctx, "expenses", id)
	require.NoError(t, err)
	require.Equal(t, "Coffee", doc.GetString("name"))
	require.Equal(t, 3.5, doc.GetFloat("amount"))
	require.Equal(t, int64(1), doc.GetInt("timestamp"))

	require.NoError(t, s.Set(ctx, "expenses", id, core.Document{"name": "Tea"}))
	doc, err = s.Get(ctx, "expenses", id)
	require.NoError(t, err)
	require.Equal(t, "Tea", doc.GetString("name"))
	require.Zero(t, doc.GetFloat("amount"), "set must replace the whole document")

	require.NoError(t, s.Delete(ctx, "expenses", id))
	_, err = s.Get(ctx, "expenses", id)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "expenses", id), "deleting a missing document is not an error")

	_, err = s.Get(ctx, "nothing-here", "x")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func testMerge(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "users", "u1", core.Document{"email": "a@example.com", "role": "normal"}))
	require.NoError(t, s.Merge(ctx, "users", "u1", core.Document{"email": "b@example.com"}))

	doc, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.Equal(t, "b@example.com", doc.GetString("email"))
	require.Equal(t, "normal", doc.GetString("role"))
}

func testQuery(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	seed := []core.Document{
		{"userId": "u1", "category": "Salud", "timestamp": int64(30)},
		{"userId": "u1", "category": "Compras", "timestamp": int64(10)},
		{"userId": "u2", "category": "Salud", "timestamp": int64(20)},
		{"userId": "u1", "category": "Salud", "timestamp": int64(20)},
	}
	for i, doc := range seed {
		require.NoError(t, s.Set(ctx, "expenses", fmt.Sprintf("e%d", i), doc))
	}

	all, err := s.Query(ctx, "expenses", docstore.Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	mine, err := s.Query(ctx, "expenses", docstore.Query{}.Where("userId", "u1").Order("timestamp", true))
	require.NoError(t, err)
	require.Equal(t, []string{"e0", "e3", "e1"}, IDs(mine))

	asc, err := s.Query(ctx, "expenses", docstore.Query{}.Where("userId", "u1").Order("timestamp", false))
	require.NoError(t, err)
	require.Equal(t, []string{"e1", "e3", "e0"}, IDs(asc))

	health, err := s.Query(ctx, "expenses", docstore.Query{}.Where("userId", "u1").Where("category", "Salud"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"e0", "e3"}, IDs(health))

	none, err := s.Query(ctx, "expenses", docstore.Query{}.Where("userId", "nobody"))
	require.NoError(t, err)
	require.Empty(t, none)

	byNumber, err := s.Query(ctx, "expenses", docstore.Query{}.Where("timestamp", int64(20)))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"e2", "e3"}, IDs(byNumber))
}

func testSubCollections(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	a := docstore.SubPath("events", "a", "comments")
	b := docstore.SubPath("events", "b", "comments")

	_, err := s.Create(ctx, a, core.Document{"text": "one"})
	require.NoError(t, err)
	_, err = s.Create(ctx, b, core.Document{"text": "two"})
	require.NoError(t, err)

	snaps, err := s.Query(ctx, a, docstore.Query{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, "one", snaps[0].Data.GetString("text"))

	parent, err := s.Query(ctx, "events", docstore.Query{})
	require.NoError(t, err)
	require.Empty(t, parent)
}

func testWatch(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "history", "h0", core.Document{"userId": "u1", "timestamp": int64(1)}))

	sub, err := s.Watch(ctx, "history", docstore.Query{}.Where("userId", "u1").Order("timestamp", true))
	require.NoError(t, err)
	defer sub.Cancel()

	require.Equal(t, []string{"h0"}, IDs(Next(t, sub)))

	require.NoError(t, s.Set(ctx, "history", "h1", core.Document{"userId": "u1", "timestamp": int64(2)}))
	require.Equal(t, []string{"h1", "h0"}, IDs(Until(t, sub, func(snaps []docstore.Snapshot) bool { return len(snaps) == 2 })))

	// Writes outside the matched set change nothing for this watch.
	require.NoError(t, s.Set(ctx, "history", "x", core.Document{"userId": "u2", "timestamp": int64(3)}))

	require.NoError(t, s.Delete(ctx, "history", "h0"))
	require.Equal(t, []string{"h1"}, IDs(Until(t, sub, func(snaps []docstore.Snapshot) bool { return len(snaps) == 1 })))

	require.NoError(t, s.Set(ctx, "history", "h1", core.Document{"userId": "u1", "timestamp": int64(2), "action": "DELETE"}))
	got := Until(t, sub, func(snaps []docstore.Snapshot) bool {
		return len(snaps) == 1 && snaps[0].Data.GetString("action") == "DELETE"
	})
	require.Equal(t, "h1", got[0].ID)
}

func testWatchConverges(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	sub, err := s.Watch(ctx, "events", docstore.Query{})
	require.NoError(t, err)
	defer sub.Cancel()
	require.Empty(t, Next(t, sub))

	const writers, perWriter = 4, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Create(ctx, "events", core.Document{"title": fmt.Sprintf("%d-%d", w, i)})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	// Deliveries may coalesce, but the stream must settle on every write.
	Until(t, sub, func(snaps []docstore.Snapshot) bool { return len(snaps) == writers*perWriter })
}

func testWatchCancel(t *testing.T, s docstore.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 20; i++ {
		sub, err := s.Watch(ctx, "events", docstore.Query{})
		require.NoError(t, err)
		Next(t, sub)
		sub.Cancel()
		sub.Cancel()
		select {
		case _, ok := <-sub.Updates():
			require.False(t, ok, "updates must be closed after cancel")
		case <-time.After(Timeout):
			t.Fatal("updates not closed after cancel")
		}
		require.NoError(t, sub.Err())
	}

	sub, err := s.Watch(ctx, "events", docstore.Query{})
	require.NoError(t, err)
	Next(t, sub)
	cancel()
	select {
	case <-sub.Done():
	case <-time.After(Timeout):
		t.Fatal("subscription outlived its context")
	}

	_, err = s.Watch(ctx, "events", docstore.Query{})
	require.ErrorIs(t, err, context.Canceled)
}
