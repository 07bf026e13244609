package gateway

import (
	"context"
	"strings"

	"foro/internal/aggregate"
	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

func decodeExpense(s docstore.Snapshot) core.Expense {
	return core.ExpenseFromDocument(s.ID, s.Data)
}

func userExpenses(userID string) docstore.Query {
	return docstore.Query{}.Where(core.KeyUserID, userID).Order(core.KeyTimestamp, true)
}

// CreateExpense stores a new expense owned by the session user and records
// an ADD history entry. A history failure does not fail the create.
func (g *Gateway) CreateExpense(ctx context.Context, in core.NewExpense) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	userID, err := g.currentUser()
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount,
		Category:  in.Category,
		Date:      in.Date,
		Timestamp: g.millis(),
	}
	id, err := g.store.Create(ctx, core.ExpensesCollection, e.ToDocument())
	if err != nil {
		g.logFailure(ctx, "Failed to create expense", log.OpCreate, core.ExpensesCollection, "", err)
		return core.Expense{}, storeErr(log.OpCreate, core.ExpensesCollection, err)
	}
	e.ID = id

	g.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithDocument(core.ExpensesCollection, id).
			WithUser(userID).
			WithExpense(e.Name, e.Amount, string(e.Category)).
			ToSlice()...)

	// Errors are logged by the recorder.
	_, _ = g.recorder.RecordExpense(ctx, core.ActionAdd, e)
	return e, nil
}

// UpdateExpense overwrites the expense with id. There is no existence check:
// updating a missing id creates it. An empty UserID is filled from the
// session.
func (g *Gateway) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	if e.UserID == "" {
		if e.UserID, err = g.currentUser(); err != nil {
			return err
		}
	}
	e.Name = strings.TrimSpace(e.Name)
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Timestamp == 0 {
		e.Timestamp = g.millis()
	}

	if err := g.store.Set(ctx, core.ExpensesCollection, id, e.ToDocument()); err != nil {
		g.logFailure(ctx, "Failed to update expense", log.OpUpdate, core.ExpensesCollection, id, err)
		return storeErr(log.OpUpdate, core.ExpensesCollection, err)
	}
	g.logger.InfoContext(ctx, "Expense updated",
		log.FieldDocumentID, id, log.FieldUserID, e.UserID)
	return nil
}

// DeleteExpense removes the expense and records a DELETE history entry with
// its last contents. A missing expense is a *core.NotFoundError.
func (g *Gateway) DeleteExpense(ctx context.Context, id string) error {
	e, err := g.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	if err := g.store.Delete(ctx, core.ExpensesCollection, e.ID); err != nil {
		g.logFailure(ctx, "Failed to delete expense", log.OpDelete, core.ExpensesCollection, e.ID, err)
		return storeErr(log.OpDelete, core.ExpensesCollection, err)
	}
	g.logger.InfoContext(ctx, "Expense deleted",
		log.FieldDocumentID, e.ID, log.FieldUserID, e.UserID)

	_, _ = g.recorder.RecordExpense(ctx, core.ActionDelete, e)
	return nil
}

func (g *Gateway) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	id, err := requireID("id", id)
	if err != nil {
		return core.Expense{}, err
	}
	doc, err := g.store.Get(ctx, core.ExpensesCollection, id)
	if err != nil {
		return core.Expense{}, storeErr(log.OpRead, core.ExpensesCollection, err)
	}
	return core.ExpenseFromDocument(id, doc), nil
}

// SubscribeUserExpenses streams userID's expenses, newest first.
func (g *Gateway) SubscribeUserExpenses(ctx context.Context, userID string) (*Stream[core.Expense], error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	return watch(ctx, g, core.ExpensesCollection, userExpenses(userID), decodeAll(decodeExpense))
}

// SubscribeMyExpenses streams the session user's expenses.
func (g *Gateway) SubscribeMyExpenses(ctx context.Context) (*Stream[core.Expense], error) {
	userID, err := g.currentUser()
	if err != nil {
		return nil, err
	}
	return g.SubscribeUserExpenses(ctx, userID)
}

// ListUserExpenses returns userID's expenses, newest first.
func (g *Gateway) ListUserExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	snaps, err := g.store.Query(ctx, core.ExpensesCollection, userExpenses(userID))
	if err != nil {
		return nil, storeErr(log.OpQuery, core.ExpensesCollection, err)
	}
	return decodeAll(decodeExpense)(snaps), nil
}

// ExpensesByCategory returns userID's expenses in category, newest first.
// AllCategories returns every expense.
func (g *Gateway) ExpensesByCategory(ctx context.Context, userID string, category core.Category) ([]core.Expense, error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	q := userExpenses(userID)
	switch {
	case category == core.AllCategories || category == "":
	case category.IsValid():
		q = q.Where(core.KeyCategory, string(category))
	default:
		return nil, &core.ValidationError{Field: core.KeyCategory, Err: core.ErrInvalidCategory}
	}

	snaps, err := g.store.Query(ctx, core.ExpensesCollection, q)
	if err != nil {
		return nil, storeErr(log.OpQuery, core.ExpensesCollection, err)
	}
	return decodeAll(decodeExpense)(snaps), nil
}

// MonthlyTotal sums userID's expenses dated in year/month.
func (g *Gateway) MonthlyTotal(ctx context.Context, userID string, year, month int) (float64, error) {
	expenses, err := g.ListUserExpenses(ctx, userID)
	if err != nil {
		return 0, err
	}
	return aggregate.MonthlyTotal(expenses, year, month), nil
}

// MonthOverview is the per-category summary of userID's month.
func (g *Gateway) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	expenses, err := g.ListUserExpenses(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, err
	}
	overview := aggregate.MonthOverview(expenses, year, month)
	g.logger.DebugContext(ctx, "Computed month overview",
		log.FieldOperation, log.OpAggregate,
		log.FieldUserID, userID,
		log.FieldYear, year,
		log.FieldMonth, month,
		log.FieldCount, overview.Count)
	return overview, nil
}
