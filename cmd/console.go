package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/transport/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Take the questionnaire in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = os.Getenv("USER")
		}
		if user == "" {
			return fmt.Errorf("--user is required")
		}

		// The terminal belongs to the UI; logs go to a file next to the scratch dir.
		if err := os.MkdirAll(cfg.Scratch.Dir, 0o755); err != nil {
			return err
		}
		logPath := filepath.Join(cfg.Scratch.Dir, "console.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open console log: %w", err)
		}
		defer logFile.Close()
		level, _ := logging.ParseLevel(cfg.Log.Level)
		logging.Init(level, cfg.Log.Format, logFile)

		ctx := cmd.Context()
		svc, err := buildServices(ctx, cfg, buildOpts{})
		if err != nil {
			return err
		}
		defer svc.Close()

		userID := "console:" + user
		c := console.New(console.Options{
			Handler: svc.runtime,
			UserID:  userID,
			Status: func() console.Status {
				s, ok := svc.runtime.Session(userID)
				if !ok {
					return console.Status{}
				}
				st := console.Status{Name: s.DisplayName}
				if p, ok := svc.machine.Progress(s); ok {
					st.Answered = p.Answered
					st.Total = p.Total
					st.Question = fmt.Sprintf("%s %d/%d", p.Instrument, p.Item, p.Items)
				}
				return st
			},
		})
		svc.runtime.SetNotifier(c)

		runErr := c.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.runtime.Shutdown(shutdownCtx)
		if runErr != nil {
			return runErr
		}
		fmt.Printf("Журнал: %s\n", logPath)
		return nil
	},
}

func init() {
	consoleCmd.Flags().String("user", "", "Respondent id for this console session (default $USER)")
}
