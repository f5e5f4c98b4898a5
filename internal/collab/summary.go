package collab

import (
	"context"

	"golang.org/x/sync/errgroup"

	"qaproof/internal/api"
	"qaproof/internal/qa"
)

// Overview bundles everything the task detail view needs.
type Overview struct {
	Task    *qa.Task
	Summary *api.Summary
	Drafts  []qa.Draft
}

// FetchOverview loads the task, its progress summary, and the current
// user's drafts concurrently. Any failure cancels the rest.
func FetchOverview(ctx context.Context, client *api.Client, taskID string) (*Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		task, err := client.Task(ctx, taskID)
		ov.Task = task
		return err
	})
	g.Go(func() error {
		summary, err := client.TaskSummary(ctx, taskID)
		ov.Summary = summary
		return err
	})
	g.Go(func() error {
		drafts, err := client.Drafts(ctx, taskID)
		ov.Drafts = drafts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}
