package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foro/internal/cli"
	"foro/internal/log"
)

var (
	configPath string
	envFiles   []string
	userFlag   string
	emailFlag  string

	app *cli.App
)

var rootCmd = &cobra.Command{
	Use:           "foro",
	Short:         "Foro expenses and events",
	Long:          `Track personal expenses and take part in forum events from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile(envFiles...)
		cfg, err := cli.LoadAndValidateConfig(configPath)
		if err != nil {
			return err
		}
		if userFlag != "" {
			cfg.UserID = userFlag
		}
		if emailFlag != "" {
			cfg.UserEmail = emailFlag
		}
		logger := cli.SetupLogger(cfg)
		cmd.SetContext(log.WithContext(cmd.Context(), logger))

		app, err = cli.Open(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if app == nil {
			return nil
		}
		err := app.Close()
		app = nil
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ./foro.{yaml,json,toml} when present)")
	flags.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVarP(&userFlag, "user", "u", "", "act as this user id (overrides FORO_USER_ID)")
	flags.StringVar(&emailFlag, "email", "", "email of the acting user (overrides FORO_USER_EMAIL)")

	rootCmd.AddCommand(expenseCmd, summaryCmd, historyCmd, eventCmd, watchCmd, userCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if app != nil {
			_ = app.Close()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
