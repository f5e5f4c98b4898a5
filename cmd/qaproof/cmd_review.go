package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"qaproof/cmd/qaproof/ui"
	"qaproof/internal/collab"
	"qaproof/internal/editor"
	"qaproof/internal/session"
)

var (
	reviewFrom  string
	reviewShare bool
)

// reviewCmd runs the guest review screen over a local file
var reviewCmd = &cobra.Command{
	Use:   "review [file.jsonl]",
	Short: "Review a JSONL file locally (no account needed)",
	Long: `Open the interactive review screen on a local JSONL file.

Parsing, edits, and exports all happen on this machine, and progress is
saved locally so quitting and reopening resumes where you left off. Run
without a file to resume the previous session.

With --share the session is pushed to the server when the screen closes,
and --from <session-id> pulls a shared session down to continue it here.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

// taskWorkCmd runs the assignee screen for a collaboration task
var taskWorkCmd = &cobra.Command{
	Use:   "work <task-id>",
	Short: "Interactive editing of your assigned range",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskWork,
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	guest := session.NewGuest(app.kv)
	if reviewFrom != "" {
		st, err := app.client.GuestSession(ctx, reviewFrom)
		if err != nil {
			return fmt.Errorf("fetch shared session: %w", err)
		}
		guest.Restore(*st)
	}
	e := editor.NewGuestEditor(guest, app.cfg.Editor.PageSize)

	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		err = e.Open(ctx, filepath.Base(args[0]), f)
		f.Close()
		if err != nil {
			return err
		}
	} else if len(guest.Records()) == 0 {
		return fmt.Errorf("no previous session; pass a JSONL file to review")
	}

	entered := app.auth.EnterGuest()
	if _, err := tea.NewProgram(ui.NewReviewModel(e, guest), tea.WithAltScreen()).Run(); err != nil {
		if entered {
			app.auth.ExitGuest()
		}
		return err
	}
	if entered {
		app.auth.ExitGuest()
	}

	if reviewShare {
		st := guest.Snapshot()
		if err := app.client.SaveGuestSession(ctx, st); err != nil {
			return fmt.Errorf("share session: %w", err)
		}
		fmt.Printf("Session shared; continue elsewhere with 'qaproof review --from %s'.\n", st.SessionID)
	}
	return nil
}

func runTaskWork(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	var cache collab.DraftCache
	var hidden collab.HiddenStore
	if app.local != nil {
		cache = app.local
		hidden = app.local
	}
	user := app.auth.User()
	var userID string
	if user != nil {
		userID = user.ID
	}
	ws := collab.NewWorkspace(app.client, cache, hidden, userID, args[0], app.cfg.Editor.CollabPageSize)
	if err := ws.Open(cmd.Context()); err != nil {
		return err
	}

	timers := collab.Timers{
		Activity:  app.cfg.GetActivityInterval(),
		IdleCheck: app.cfg.GetIdleCheckInterval(),
	}
	if app.cfg.Editor.AutoSaveEnabled {
		timers.AutoSave = app.cfg.GetAutoSaveInterval()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.Run(ctx, timers)
	}()

	_, err := tea.NewProgram(ui.NewWorkModel(ws), tea.WithAltScreen()).Run()
	cancel()
	<-done
	return err
}

func init() {
	reviewCmd.Flags().StringVar(&reviewFrom, "from", "", "resume a shared session by id")
	reviewCmd.Flags().BoolVar(&reviewShare, "share", false, "push the session to the server on exit")
}
