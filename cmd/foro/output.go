package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"foro/internal/core"
)

func money(amount float64) string {
	return "$" + humanize.FormatFloat("#,###.##", amount)
}

func ago(millis int64) string {
	if millis == 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(millis))
}

func table(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func printExpenses(w io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses.")
		return
	}
	tw := table(w, "ID", "DATE", "NAME", "CATEGORY", "AMOUNT")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Name, e.Category, money(e.Amount))
	}
	tw.Flush()
}

func printHistory(w io.Writer, entries []core.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history.")
		return
	}
	tw := table(w, "WHEN", "ACTION", "NAME", "CATEGORY", "AMOUNT", "DATE")
	for _, h := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ago(h.Timestamp), h.Action, h.ExpenseName, h.Category, money(h.Amount), h.Date)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []core.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	tw := table(w, "ID", "DATE", "TIME", "TITLE", "LOCATION")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Time, e.Title, e.Location)
	}
	tw.Flush()
}

func printComments(w io.Writer, comments []core.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments.")
		return
	}
	for _, c := range comments {
		author := c.UserEmail
		if author == "" {
			author = c.UserID
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", ago(c.Timestamp), author, c.Text)
	}
}

func printOverview(w io.Writer, ov core.MonthOverview) {
	fmt.Fprintf(w, "%04d-%02d: %s across %d expenses\n", ov.Year, ov.Month, money(ov.Total), ov.Count)
	if len(ov.ByCategory) == 0 {
		return
	}
	tw := table(w, "CATEGORY", "AMOUNT", "SHARE")
	for _, c := range ov.ByCategory {
		share := 0.0
		if ov.Total > 0 {
			share = c.Amount / ov.Total * 100
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", c.Category, money(c.Amount), share)
	}
	tw.Flush()
}

// parseMonth reads YYYY-MM, defaulting to the current month.
func parseMonth(s string, now time.Time) (year, month int, err error) {
	if s == "" {
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return t.Year(), int(t.Month()), nil
}
