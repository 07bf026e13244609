package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foro/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", 3)

	clock.t = clock.t.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[string](4, time.Minute)
	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "admin", nil
	}

	for n := 0; n < 3; n++ {
		v, err := GetOrLoad[string](ctx, c, "u1", load)
		require.NoError(t, err)
		assert.Equal(t, "admin", v)
	}
	assert.Equal(t, 1, calls)

	_, err := GetOrLoad[string](ctx, c, "u2", func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)
	_, ok := c.Get("u2")
	assert.False(t, ok, "errors must not be cached")
}

func TestManager_CleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)

	m := NewManager(log.Discard())
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	assert.Zero(t, m.CleanNow())
	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 1, m.CleanNow())
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager(log.Discard())
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
