package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qaproof/internal/api"
	"qaproof/internal/collab"
)

var (
	taskTitle       string
	taskDescription string
	taskDeadline    string
	taskUsers       []string
	taskAdminCount  int
	taskManual      []string
	taskFormat      string
	taskPage        int
)

// taskCmd covers the collaboration workflow
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, assign, and work on collaboration tasks",
	Long: `Collaboration tasks split one file's records across several reviewers.

Available subcommands:
  create  - Create a task from a JSONL file
  ls      - List tasks
  show    - Show a task with its assignments and progress
  assign  - Distribute records across users (average or manual)
  work    - Interactive editing of your assigned range
  submit  - Complete your share of a task
  notes   - Set the task's summary notes
  export  - Download the merged result
  rm      - Delete a task`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <file.jsonl>",
	Short: "Create a task from a JSONL file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCreate,
}

var taskLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tasks",
	RunE:  runTaskLs,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its assignments and progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id>",
	Short: "Distribute records across users",
	Long: `Distribute a task's records across users.

Average mode splits evenly among --user entries, in order, with the
remainder going to the first users. With --admin-count the admin takes that
many records off the top first.

Manual mode takes explicit shares: repeat --manual user=count; ranges are
laid out contiguously in the order given.

Examples:
  qaproof task assign t1 --user u1 --user u2
  qaproof task assign t1 --user admin --admin-count 10 --user u1 --user u2
  qaproof task assign t1 --manual u1=40 --manual u2=60`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskAssign,
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <task-id>",
	Short: "Complete your share of a task (irreversible)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		a, err := app.client.SubmitAssignment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Submitted: %s\n", a)
		return nil
	},
}

var taskNotesCmd = &cobra.Command{
	Use:   "notes <task-id> <notes>",
	Short: "Set the task's summary notes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		notes := strings.Join(args[1:], " ")
		if err := app.client.UpdateTaskSummary(cmd.Context(), args[0], notes); err != nil {
			return err
		}
		fmt.Println("Notes updated.")
		return nil
	},
}

var taskExportCmd = &cobra.Command{
	Use:   "export <task-id>",
	Short: "Download the merged result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		blob, err := app.client.ExportTask(cmd.Context(), args[0], taskFormat)
		if err != nil {
			return err
		}
		name := blob.Filename
		if name == "" {
			name = "task-export." + taskFormat
		}
		if err := os.WriteFile(name, blob.Data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d bytes)\n", name, len(blob.Data))
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := app.client.DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	title := taskTitle
	if title == "" {
		title = filepath.Base(args[0])
	}
	task, err := app.client.CreateTask(cmd.Context(), api.CreateTaskRequest{
		Title:       title,
		Description: taskDescription,
		Deadline:    taskDeadline,
		Filename:    filepath.Base(args[0]),
		File:        f,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s (%d records). Assign it with 'qaproof task assign %s'.\n",
		task.ID, task.TotalQAPairs, task.ID)
	return nil
}

func runTaskLs(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	tasks, pg, err := app.client.Tasks(cmd.Context(), taskPage, 20)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tRECORDS\tDEADLINE")
	for _, t := range tasks {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, trim(t.Title, 30), t.Status, t.TotalQAPairs, deadline)
	}
	w.Flush()
	fmt.Printf("Page %d/%d\n", pg.Page, pg.TotalPages)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	ov, err := collab.FetchOverview(cmd.Context(), app.client, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  [%s]\n", ov.Task.Title, ov.Task.Status)
	if ov.Task.Description != "" {
		fmt.Println(ov.Task.Description)
	}
	fmt.Printf("Progress: %d/%d completed, %d edited, %d deleted\n",
		ov.Summary.Completed, ov.Summary.Total, ov.Summary.Edited, ov.Summary.Deleted)
	if len(ov.Task.Assignments) > 0 {
		fmt.Println("Assignments:")
		for _, a := range ov.Task.Assignments {
			fmt.Printf("  %s  [%s]\n", a, a.Status)
		}
	}
	if len(ov.Drafts) > 0 {
		fmt.Printf("You have %d unsubmitted drafts.\n", len(ov.Drafts))
	}
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	taskID := args[0]
	task, err := app.client.Task(cmd.Context(), taskID)
	if err != nil {
		return err
	}

	req := api.AssignRequest{Mode: "average", UserIDs: taskUsers}
	if len(taskManual) > 0 {
		plan := collab.NewManualPlan(task.TotalQAPairs)
		for _, entry := range taskManual {
			user, countStr, ok := strings.Cut(entry, "=")
			if !ok {
				return fmt.Errorf("bad --manual entry %q, want user=count", entry)
			}
			count, err := strconv.Atoi(countStr)
			if err != nil {
				return fmt.Errorf("bad count in %q: %w", entry, err)
			}
			if err := plan.SetCount(user, count); err != nil {
				return err
			}
		}
		assignments, err := plan.Assignments()
		if err != nil {
			if err == collab.ErrOverAllocation {
				return fmt.Errorf("%w: %d over", err, -plan.Remaining())
			}
			return err
		}
		req = api.AssignRequest{Mode: "manual", Assignments: assignments}
		for _, a := range assignments {
			req.UserIDs = append(req.UserIDs, a.UserID)
		}
	} else {
		// Preview the split locally so the admin sees the ranges that the
		// server will create.
		adminID := ""
		users := taskUsers
		if taskAdminCount > 0 {
			if len(users) == 0 {
				return fmt.Errorf("--admin-count needs at least one --user (the admin first)")
			}
			adminID, users = users[0], users[1:]
			req.IncludeAdmin = true
			req.AdminQACount = taskAdminCount
		}
		preview, err := collab.PlanAverage(task.TotalQAPairs, users, adminID, taskAdminCount)
		if err != nil {
			return err
		}
		for _, a := range preview {
			fmt.Println(" ", a)
		}
	}

	updated, err := app.client.AssignTask(cmd.Context(), taskID, req)
	if err != nil {
		return err
	}
	fmt.Printf("Assigned to %d users; task is now %s.\n", len(updated.Assignments), updated.Status)
	return nil
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (default: the filename)")
	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskDeadline, "deadline", "", "deadline, YYYY-MM-DD")
	taskLsCmd.Flags().IntVar(&taskPage, "page", 1, "page number")
	taskAssignCmd.Flags().StringSliceVar(&taskUsers, "user", nil, "user id to include (repeatable)")
	taskAssignCmd.Flags().IntVar(&taskAdminCount, "admin-count", 0, "records the first --user takes off the top")
	taskAssignCmd.Flags().StringSliceVar(&taskManual, "manual", nil, "manual share as user=count (repeatable)")
	taskExportCmd.Flags().StringVar(&taskFormat, "format", "jsonl", "export format: jsonl or excel")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskLsCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskWorkCmd)
	taskCmd.AddCommand(taskSubmitCmd)
	taskCmd.AddCommand(taskNotesCmd)
	taskCmd.AddCommand(taskExportCmd)
	taskCmd.AddCommand(taskRmCmd)
}
