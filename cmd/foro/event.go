package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"foro/internal/core"
)

var (
	eventTime        string
	eventLocation    string
	eventDescription string
	eventDetails     bool
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Browse and take part in forum events",
}

var eventAddCmd = &cobra.Command{
	Use:   "add TITLE DATE",
	Short: "Create an event (date as dd/mm/yyyy)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := app.Gateway.CreateEvent(cmd.Context(), eventFromFlags(args[0], args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", e.Title, e.ID)
		return nil
	},
}

var eventUpdateCmd = &cobra.Command{
	Use:   "update ID TITLE DATE",
	Short: "Overwrite an event",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Gateway.UpdateEvent(cmd.Context(), args[0], eventFromFlags(args[1], args[2])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
		return nil
	},
}

var eventRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete an event",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Gateway.DeleteEvent(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var eventLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List events by date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		events, err := app.Gateway.ListEvents(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !eventDetails {
			printEvents(out, events)
			return nil
		}

		tw := table(out, "ID", "DATE", "TITLE", "ATTENDEES", "RATING")
		for _, e := range events {
			n, err := app.Gateway.AttendeeCount(ctx, e.ID)
			if err != nil {
				return err
			}
			avg, err := app.Gateway.AverageRating(ctx, e.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\n", e.ID, e.Date, e.Title, n, avg)
		}
		return tw.Flush()
	},
}

var eventCommentCmd = &cobra.Command{
	Use:   "comment EVENT_ID TEXT",
	Short: "Comment on an event",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := app.Gateway.AddComment(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Commented %s\n", c.ID)
		return nil
	},
}

var eventCommentsCmd = &cobra.Command{
	Use:   "comments EVENT_ID",
	Short: "Show an event's comments, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comments, err := app.Gateway.ListComments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printComments(cmd.OutOrStdout(), comments)
		return nil
	},
}

var eventRateCmd = &cobra.Command{
	Use:   "rate EVENT_ID SCORE",
	Short: "Rate an event from 1 to 5; rating again replaces your score",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return &core.ValidationError{Field: core.KeyScore, Err: core.ErrInvalidScore}
		}
		if _, err := app.Gateway.SaveRating(cmd.Context(), args[0], score); err != nil {
			return err
		}
		avg, err := app.Gateway.AverageRating(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rated %d, average now %.1f\n", score, avg)
		return nil
	},
}

var eventAttendCmd = &cobra.Command{
	Use:   "attend EVENT_ID",
	Short: "Toggle your attendance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attending, err := app.Gateway.ToggleAttendance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		n, err := app.Gateway.AttendeeCount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		state := "not attending"
		if attending {
			state = "attending"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "You are %s (%d attendees)\n", state, n)
		return nil
	},
}

func eventFromFlags(title, date string) core.Event {
	return core.Event{
		Title:       title,
		Date:        date,
		Time:        eventTime,
		Location:    eventLocation,
		Description: eventDescription,
	}
}

func init() {
	for _, c := range []*cobra.Command{eventAddCmd, eventUpdateCmd} {
		c.Flags().StringVar(&eventTime, "time", "", "start time, e.g. 18:30")
		c.Flags().StringVar(&eventLocation, "location", "", "where the event takes place")
		c.Flags().StringVar(&eventDescription, "description", "", "event description")
	}
	eventLsCmd.Flags().BoolVar(&eventDetails, "details", false, "include attendee counts and average ratings")

	eventCmd.AddCommand(eventAddCmd, eventUpdateCmd, eventRmCmd, eventLsCmd,
		eventCommentCmd, eventCommentsCmd, eventRateCmd, eventAttendCmd)
}
