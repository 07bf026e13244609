// Package aggregate derives totals and counts from delivered snapshots.
//
// Every function is pure and recomputes from scratch; nothing is cached
// between snapshots. Money sums are accumulated as decimals so that the
// category breakdown of a set adds up to exactly its total.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"foro/internal/core"
)

// MonthlyTotal sums the amounts of expenses dated in month of year.
// Expenses whose date is not in day/month/year form are skipped.
func MonthlyTotal(expenses []core.Expense, year, month int) float64 {
	total := decimal.Zero
	for _, e := range expenses {
		if inMonth(e, year, month) {
			total = total.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	return total.InexactFloat64()
}

// CategoryTotals groups expenses by category and sums each group.
// An empty input yields an empty, non-nil map.
func CategoryTotals(expenses []core.Expense) map[core.Category]float64 {
	sums := make(map[core.Category]decimal.Decimal)
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(decimal.NewFromFloat(e.Amount))
	}
	out := make(map[core.Category]float64, len(sums))
	for c, s := range sums {
		out[c] = s.InexactFloat64()
	}
	return out
}

// AverageRating is the mean score, or 0 when there are no ratings.
func AverageRating(ratings []core.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	return float64(sum) / float64(len(ratings))
}

// AttendeeCount counts distinct users currently attending.
func AttendeeCount(attendance []core.Attendance) int {
	seen := make(map[string]struct{}, len(attendance))
	for _, a := range attendance {
		seen[a.UserID] = struct{}{}
	}
	return len(seen)
}

// FilterMonth returns the expenses dated in month of year, in input order.
func FilterMonth(expenses []core.Expense, year, month int) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if inMonth(e, year, month) {
			out = append(out, e)
		}
	}
	return out
}

// FilterCategory keeps expenses matching c; core.AllCategories keeps all.
func FilterCategory(expenses []core.Expense, c core.Category) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if c.Matches(e.Category) {
			out = append(out, e)
		}
	}
	return out
}

// SortByTimestampDesc returns a copy of expenses, newest first.
func SortByTimestampDesc(expenses []core.Expense) []core.Expense {
	out := slices.Clone(expenses)
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return out
}

// MonthOverview is the month summary: total, count and a category
// breakdown ordered by amount descending, then by category name.
func MonthOverview(expenses []core.Expense, year, month int) core.MonthOverview {
	inMonth := FilterMonth(expenses, year, month)
	totals := CategoryTotals(inMonth)

	byCategory := make([]core.CategoryAmount, 0, len(totals))
	for c, amount := range totals {
		byCategory = append(byCategory, core.CategoryAmount{Category: c, Amount: amount})
	}
	slices.SortFunc(byCategory, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	return core.MonthOverview{
		Year:       year,
		Month:      month,
		Total:      MonthlyTotal(inMonth, year, month),
		Count:      len(inMonth),
		ByCategory: byCategory,
	}
}

func inMonth(e core.Expense, year, month int) bool {
	d, ok := core.ParseDate(e.Date)
	return ok && d.In(year, month)
}
