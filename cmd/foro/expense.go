package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"foro/internal/core"
)

var (
	expenseCategory string
	expenseMonth    string
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Manage your expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add NAME AMOUNT CATEGORY [DATE]",
	Short: "Record an expense (date defaults to today, dd/mm/yyyy)",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseNewExpense(args)
		if err != nil {
			return err
		}
		e, err := app.Gateway.CreateExpense(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) %s\n", e.Name, money(e.Amount), e.ID)
		return nil
	},
}

var expenseUpdateCmd = &cobra.Command{
	Use:   "update ID NAME AMOUNT CATEGORY DATE",
	Short: "Overwrite an expense",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseNewExpense(args[1:])
		if err != nil {
			return err
		}
		e := core.Expense{Name: in.Name, Amount: in.Amount, Category: in.Category, Date: in.Date}
		if err := app.Gateway.UpdateExpense(cmd.Context(), args[0], e); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
		return nil
	},
}

var expenseRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete an expense",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Gateway.DeleteExpense(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var expenseLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List your expenses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		category := core.AllCategories
		if expenseCategory != "" {
			var err error
			if category, err = core.ParseCategory(expenseCategory); err != nil {
				return err
			}
		}
		expenses, err := app.Gateway.ExpensesByCategory(cmd.Context(), app.Session.CurrentUserID(), category)
		if err != nil {
			return err
		}
		printExpenses(cmd.OutOrStdout(), expenses)
		return nil
	},
}

var expenseTotalCmd = &cobra.Command{
	Use:   "total",
	Short: "Show the total spent in a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, month, err := parseMonth(expenseMonth, time.Now())
		if err != nil {
			return err
		}
		total, err := app.Gateway.MonthlyTotal(cmd.Context(), app.Session.CurrentUserID(), year, month)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%04d-%02d: %s\n", year, month, money(total))
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a month's spending by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, month, err := parseMonth(expenseMonth, time.Now())
		if err != nil {
			return err
		}
		ov, err := app.Gateway.MonthOverview(cmd.Context(), app.Session.CurrentUserID(), year, month)
		if err != nil {
			return err
		}
		printOverview(cmd.OutOrStdout(), ov)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your expense history, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := app.Gateway.ListUserHistory(cmd.Context(), app.Session.CurrentUserID())
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

// parseNewExpense reads NAME AMOUNT CATEGORY [DATE].
func parseNewExpense(args []string) (core.NewExpense, error) {
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return core.NewExpense{}, err
	}
	category, err := core.ParseCategory(args[2])
	if err != nil {
		return core.NewExpense{}, err
	}
	if category == core.AllCategories {
		return core.NewExpense{}, &core.ValidationError{Field: core.KeyCategory, Err: core.ErrInvalidCategory}
	}
	date := core.FormatDate(time.Now())
	if len(args) > 3 {
		date = args[3]
	}
	return core.NewExpense{Name: args[0], Amount: amount, Category: category, Date: date}, nil
}

func init() {
	expenseLsCmd.Flags().StringVar(&expenseCategory, "category", "", "only this category (Todas for all)")
	for _, c := range []*cobra.Command{expenseTotalCmd, summaryCmd} {
		c.Flags().StringVar(&expenseMonth, "month", "", "month as YYYY-MM (default current month)")
	}
	expenseCmd.AddCommand(expenseAddCmd, expenseUpdateCmd, expenseRmCmd, expenseLsCmd, expenseTotalCmd)
}
