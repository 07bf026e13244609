package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foro/internal/auth"
	"foro/internal/cache"
	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/docstore/memory"
	"foro/internal/log"
)

var errDenied = errors.New("permission denied")

// faultyStore fails writes to the named collection and counts every call
// that reaches the backend.
type faultyStore struct {
	docstore.Store
	failCollection string
	calls          atomic.Int64
}

func (s *faultyStore) Create(ctx context.Context, collection string, doc core.Document) (string, error) {
	s.calls.Add(1)
	if collection == s.failCollection {
		return "", errDenied
	}
	return s.Store.Create(ctx, collection, doc)
}

func (s *faultyStore) Set(ctx context.Context, collection, id string, doc core.Document) error {
	s.calls.Add(1)
	if collection == s.failCollection {
		return errDenied
	}
	return s.Store.Set(ctx, collection, id, doc)
}

func (s *faultyStore) Delete(ctx context.Context, collection, id string) error {
	s.calls.Add(1)
	if collection == s.failCollection {
		return errDenied
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *faultyStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	s.calls.Add(1)
	return s.Store.Get(ctx, collection, id)
}

func (s *faultyStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	s.calls.Add(1)
	return s.Store.Query(ctx, collection, q)
}

type fixture struct {
	gw      *Gateway
	store   *faultyStore
	session *auth.Static
	clock   *atomic.Int64
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := memory.New(log.Discard())
	t.Cleanup(func() { _ = mem.Close() })

	f := &fixture{
		store:   &faultyStore{Store: mem},
		session: auth.NewStatic("u1", "u1@example.com"),
		clock:   new(atomic.Int64),
	}
	f.clock.Store(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC).UnixMilli())
	now := func() time.Time { return time.UnixMilli(f.clock.Add(1000)) }

	base := []Option{WithLogger(log.Discard()), WithClock(now)}
	f.gw = New(f.store, f.session, append(base, opts...)...)
	return f
}

var coffee = core.NewExpense{Name: "Coffee", Amount: 3.50, Category: core.Food, Date: "05/06/2025"}

func nextList[T any](t *testing.T, s *Stream[T]) []T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	list, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok, "stream closed")
	return list
}

// waitFor reads deliveries until cond holds for one of them.
func waitFor[T any](t *testing.T, s *Stream[T], cond func([]T) bool) []T {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case list, ok := <-s.Updates():
			require.True(t, ok, "stream closed")
			if cond(list) {
				return list
			}
		case <-deadline:
			t.Fatal("condition not met before timeout")
		}
	}
}

func TestCreateAndDeleteExpenseScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stream, err := f.gw.SubscribeMyExpenses(ctx)
	require.NoError(t, err)
	defer stream.Cancel()
	require.Empty(t, nextList(t, stream))

	e, err := f.gw.CreateExpense(ctx, coffee)
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	assert.Equal(t, "u1", e.UserID)
	assert.NotZero(t, e.Timestamp)

	list := waitFor(t, stream, func(l []core.Expense) bool { return len(l) == 1 })
	assert.Equal(t, e, list[0])

	hist, err := f.gw.ListUserHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, core.ActionAdd, hist[0].Action)
	assert.Equal(t, "Coffee", hist[0].ExpenseName)
	assert.Equal(t, 3.50, hist[0].Amount)
	assert.Equal(t, core.Food, hist[0].Category)

	require.NoError(t, f.gw.DeleteExpense(ctx, e.ID))
	waitFor(t, stream, func(l []core.Expense) bool { return len(l) == 0 })

	hist, err = f.gw.ListUserHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, core.ActionDelete, hist[0].Action, "newest first")
	assert.Equal(t, "Coffee", hist[0].ExpenseName)
	assert.Equal(t, 3.50, hist[0].Amount)
}

func TestHistoryFailureDoesNotFailWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.failCollection = core.HistoryCollection

	e, err := f.gw.CreateExpense(ctx, coffee)
	require.NoError(t, err)
	require.NoError(t, f.gw.DeleteExpense(ctx, e.ID))

	_, err = f.gw.GetExpense(ctx, e.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	hist, err := f.gw.ListUserHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestCreateExpenseValidatesBeforeStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		in    core.NewExpense
		field string
	}{
		{"blank name", core.NewExpense{Name: "  ", Amount: 1, Category: core.Food, Date: "05/06/2025"}, "name"},
		{"zero amount", core.NewExpense{Name: "x", Amount: 0, Category: core.Food, Date: "05/06/2025"}, "amount"},
		{"bad category", core.NewExpense{Name: "x", Amount: 1, Category: "Nope", Date: "05/06/2025"}, "category"},
		{"bad date", core.NewExpense{Name: "x", Amount: 1, Category: core.Food, Date: "31/02/2025"}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gw.CreateExpense(ctx, tt.in)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Zero(t, f.store.calls.Load())
}

func TestUnauthenticated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.session.SignOut()

	_, err := f.gw.CreateExpense(ctx, coffee)
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.AddComment(ctx, "ev1", "hi")
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.SaveRating(ctx, "ev1", 3)
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.ToggleAttendance(ctx, "ev1")
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.SubscribeMyExpenses(ctx)
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Zero(t, f.store.calls.Load())
}

func TestDeleteExpenseErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.gw.DeleteExpense(ctx, "missing")
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, core.ExpensesCollection, nf.Collection)

	e, err := f.gw.CreateExpense(ctx, coffee)
	require.NoError(t, err)
	f.store.failCollection = core.ExpensesCollection
	err = f.gw.DeleteExpense(ctx, e.ID)
	var se *core.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "delete", se.Op)
	assert.ErrorIs(t, err, errDenied)
	assert.NotErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateExpenseOverwritesWithoutPrecheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	upd := core.Expense{Name: "Taxi", Amount: 12, Category: core.Transport, Date: "06/06/2025"}
	require.NoError(t, f.gw.UpdateExpense(ctx, "fresh-id", upd))

	got, err := f.gw.GetExpense(ctx, "fresh-id")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Taxi", got.Name)
	assert.Equal(t, core.Transport, got.Category)
}

func TestQueriesAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inputs := []core.NewExpense{
		coffee,
		{Name: "Bus", Amount: 1.25, Category: core.Transport, Date: "07/06/2025"},
		{Name: "Lunch", Amount: 10.10, Category: core.Food, Date: "20/06/2025"},
		{Name: "Old", Amount: 99, Category: core.Food, Date: "20/05/2025"},
	}
	for _, in := range inputs {
		_, err := f.gw.CreateExpense(ctx, in)
		require.NoError(t, err)
	}
	f.session.SignIn("u2", "u2@example.com")
	_, err := f.gw.CreateExpense(ctx, coffee)
	require.NoError(t, err)

	food, err := f.gw.ExpensesByCategory(ctx, "u1", core.Food)
	require.NoError(t, err)
	require.Len(t, food, 3)
	assert.Equal(t, "Old", food[0].Name, "newest first")

	all, err := f.gw.ExpensesByCategory(ctx, "u1", core.AllCategories)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = f.gw.ExpensesByCategory(ctx, "u1", "Nope")
	assert.True(t, core.IsValidation(err))

	total, err := f.gw.MonthlyTotal(ctx, "u1", 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, 14.85, total)

	ov, err := f.gw.MonthOverview(ctx, "u1", 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Count)
	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, core.Food, ov.ByCategory[0].Category)
	assert.Equal(t, 13.60, ov.ByCategory[0].Amount)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gw.CreateEvent(ctx, core.Event{Title: "  "})
	require.True(t, core.IsValidation(err))

	b, err := f.gw.CreateEvent(ctx, core.Event{Title: "B", Date: "01/02/2026"})
	require.NoError(t, err)
	_, err = f.gw.CreateEvent(ctx, core.Event{Title: "A", Date: "01/02/2026"})
	require.NoError(t, err)
	_, err = f.gw.CreateEvent(ctx, core.Event{Title: "Z", Date: "15/12/2025"})
	require.NoError(t, err)

	events, err := f.gw.ListEvents(ctx)
	require.NoError(t, err)
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"Z", "A", "B"}, titles)

	b.Location = "Plaza"
	require.NoError(t, f.gw.UpdateEvent(ctx, b.ID, b))
	got, err := f.gw.GetEvent(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plaza", got.Location)
}

func TestDeleteEventCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ev, err := f.gw.CreateEvent(ctx, core.Event{Title: "Meetup", Date: "01/07/2025"})
	require.NoError(t, err)
	for n := 0; n < 5; n++ {
		_, err := f.gw.AddComment(ctx, ev.ID, "see you")
		require.NoError(t, err)
	}
	_, err = f.gw.SaveRating(ctx, ev.ID, 5)
	require.NoError(t, err)
	_, err = f.gw.ToggleAttendance(ctx, ev.ID)
	require.NoError(t, err)

	require.NoError(t, f.gw.DeleteEvent(ctx, ev.ID))

	_, err = f.gw.GetEvent(ctx, ev.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	comments, err := f.gw.ListComments(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	ratings, err := f.gw.ListRatings(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)
	n, err := f.gw.AttendeeCount(ctx, ev.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = f.gw.DeleteEvent(ctx, ev.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteEventWithoutCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithCascadeDeletes(false))

	ev, err := f.gw.CreateEvent(ctx, core.Event{Title: "Meetup", Date: "01/07/2025"})
	require.NoError(t, err)
	_, err = f.gw.AddComment(ctx, ev.ID, "kept")
	require.NoError(t, err)
	require.NoError(t, f.gw.DeleteEvent(ctx, ev.ID))

	comments, err := f.gw.ListComments(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gw.AddComment(ctx, "ev1", "   ")
	require.True(t, core.IsValidation(err))

	stream, err := f.gw.SubscribeComments(ctx, "ev1")
	require.NoError(t, err)
	defer stream.Cancel()

	first, err := f.gw.AddComment(ctx, "ev1", " first ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Text)
	assert.Equal(t, "u1@example.com", first.UserEmail)
	_, err = f.gw.AddComment(ctx, "ev1", "second")
	require.NoError(t, err)

	list := waitFor(t, stream, func(l []core.Comment) bool { return len(l) == 2 })
	assert.Equal(t, "first", list[0].Text, "oldest first")
	assert.Equal(t, "ev1", list[1].EventID)
}

func TestRatingsOverwriteAndAverage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gw.SaveRating(ctx, "ev1", 6)
	require.ErrorIs(t, err, core.ErrInvalidScore)

	avg, err := f.gw.AverageRating(ctx, "ev1")
	require.NoError(t, err)
	assert.Zero(t, avg)

	_, err = f.gw.SaveRating(ctx, "ev1", 1)
	require.NoError(t, err)
	_, err = f.gw.SaveRating(ctx, "ev1", 4)
	require.NoError(t, err)
	f.session.SignIn("u2", "")
	_, err = f.gw.SaveRating(ctx, "ev1", 2)
	require.NoError(t, err)

	ratings, err := f.gw.ListRatings(ctx, "ev1")
	require.NoError(t, err)
	assert.Len(t, ratings, 2)
	avg, err = f.gw.AverageRating(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)
}

func TestToggleAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	attending, err := f.gw.ToggleAttendance(ctx, "ev1")
	require.NoError(t, err)
	assert.True(t, attending)
	n, err := f.gw.AttendeeCount(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	attending, err = f.gw.ToggleAttendance(ctx, "ev1")
	require.NoError(t, err)
	assert.False(t, attending)
	n, err = f.gw.AttendeeCount(ctx, "ev1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUsersAndRoleCache(t *testing.T) {
	ctx := context.Background()
	roles := cache.NewLRUCache[CachedRole](8, time.Minute)
	f := newFixture(t, WithRoleCache(roles))

	_, found, err := f.gw.UserRole(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	p, err := f.gw.EnsureUser(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleNormal, p.Role)

	// Promote out of band; EnsureUser must not downgrade.
	require.NoError(t, f.store.Merge(ctx, core.UsersCollection, "u1", core.Document{core.KeyRole: "admin"}))
	p, err = f.gw.EnsureUser(ctx, "u1", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, p.Role)

	admin, err := f.gw.IsAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, admin)

	before := f.store.calls.Load()
	for n := 0; n < 3; n++ {
		role, found, err := f.gw.UserRole(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, core.RoleAdmin, role)
	}
	assert.Equal(t, before, f.store.calls.Load(), "role lookups should hit the cache")
}

func TestStreamCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stream, err := f.gw.SubscribeEvents(ctx)
	require.NoError(t, err)
	nextList(t, stream)

	stream.Cancel()
	stream.Cancel()
	_, ok := <-stream.Updates()
	assert.False(t, ok)
	assert.NoError(t, stream.Err())
}

func TestStreamEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)

	stream, err := f.gw.SubscribeUserHistory(ctx, "u1")
	require.NoError(t, err)
	nextList(t, stream)
	cancel()

	select {
	case _, ok := <-stream.Updates():
		if ok {
			// A delivery may race the cancel; the channel must still close.
			_, ok = <-stream.Updates()
		}
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close")
	}
}

func TestStreamConvergesOnBurst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stream, err := f.gw.SubscribeMyExpenses(ctx)
	require.NoError(t, err)
	defer stream.Cancel()

	for n := 0; n < 20; n++ {
		_, err := f.gw.CreateExpense(ctx, coffee)
		require.NoError(t, err)
	}
	waitFor(t, stream, func(l []core.Expense) bool { return len(l) == 20 })
}
