package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"foro/internal/cli"
	"foro/internal/gateway"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a list live until interrupted",
}

var watchExpensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Follow your expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := cli.GracefulShutdown(cmd.Context())
		defer stop()
		stream, err := app.Gateway.SubscribeMyExpenses(ctx)
		if err != nil {
			return err
		}
		return follow(ctx, cmd.OutOrStdout(), stream, printExpenses)
	},
}

var watchEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the event list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := cli.GracefulShutdown(cmd.Context())
		defer stop()
		stream, err := app.Gateway.SubscribeEvents(ctx)
		if err != nil {
			return err
		}
		return follow(ctx, cmd.OutOrStdout(), stream, printEvents)
	},
}

var watchHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Follow your expense history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := cli.GracefulShutdown(cmd.Context())
		defer stop()
		stream, err := app.Gateway.SubscribeUserHistory(ctx, app.Session.CurrentUserID())
		if err != nil {
			return err
		}
		return follow(ctx, cmd.OutOrStdout(), stream, printHistory)
	},
}

var watchCommentsCmd = &cobra.Command{
	Use:   "comments EVENT_ID",
	Short: "Follow an event's comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := cli.GracefulShutdown(cmd.Context())
		defer stop()
		stream, err := app.Gateway.SubscribeComments(ctx, args[0])
		if err != nil {
			return err
		}
		return follow(ctx, cmd.OutOrStdout(), stream, printComments)
	},
}

// follow prints every delivery until ctx ends or the stream fails.
func follow[T any](ctx context.Context, w io.Writer, stream *gateway.Stream[T], render func(io.Writer, []T)) error {
	defer stream.Cancel()
	for {
		list, ok, err := stream.Next(ctx)
		if err != nil || !ok {
			if streamErr := stream.Err(); streamErr != nil {
				return streamErr
			}
			return nil
		}
		fmt.Fprintf(w, "-- %s, %d items\n", time.Now().Format(time.TimeOnly), len(list))
		render(w, list)
	}
}

func init() {
	watchCmd.AddCommand(watchExpensesCmd, watchEventsCmd, watchHistoryCmd, watchCommentsCmd)
}
