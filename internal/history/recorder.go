// Package history appends the audit trail of expense mutations.
//
// Recording is best effort: an entry is written after the expense write
// has already succeeded, and a failure here is logged and reported to the
// caller, who is expected to drop it. There is no retry.
package history

import (
	"context"
	"fmt"
	"time"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

type Recorder struct {
	store  docstore.Writer
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Recorder)

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

func NewRecorder(store docstore.Writer, opts ...Option) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDefault(r.logger).WithComponent(log.ComponentHistory)
	return r
}

// Record appends an entry with a fresh id and the current time.
func (r *Recorder) Record(ctx context.Context, userID string, action core.Action, expenseName string, amount float64, category core.Category, date string) (core.HistoryEntry, error) {
	entry := core.HistoryEntry{
		UserID:      userID,
		Action:      action,
		ExpenseName: expenseName,
		Amount:      amount,
		Category:    category,
		Date:        date,
		Timestamp:   core.Millis(r.now()),
	}

	id, err := r.store.Create(ctx, core.HistoryCollection, entry.ToDocument())
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to record history entry",
			log.NewFields().
				WithOperation(log.OpRecord).
				WithUser(userID).
				WithExpense(expenseName, amount, string(category)).
				WithError(err).
				ToSlice()...)
		return core.HistoryEntry{}, fmt.Errorf("record %s history: %w", action, err)
	}
	entry.ID = id

	r.logger.DebugContext(ctx, "Recorded history entry",
		log.FieldDocumentID, id, log.FieldAction, string(action), log.FieldUserID, userID)
	return entry, nil
}

// RecordExpense records action for e.
func (r *Recorder) RecordExpense(ctx context.Context, action core.Action, e core.Expense) (core.HistoryEntry, error) {
	return r.Record(ctx, e.UserID, action, e.Name, e.Amount, e.Category, e.Date)
}
