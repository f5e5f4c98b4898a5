package api

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"qaproof/internal/qa"
)

// CreateTaskRequest describes a new collaboration task. The JSONL file is
// uploaded alongside the metadata in one multipart request.
type CreateTaskRequest struct {
	Title       string
	Description string
	Deadline    string
	Filename    string
	File        io.Reader
}

// AssignRequest is the body of a task assignment. Mode is "average" or
// "manual"; Assignments carries explicit ranges in manual mode and is
// ignored otherwise. In average mode, IncludeAdmin with AdminQACount > 0
// reserves the leading records for the requesting admin before the even
// split.
type AssignRequest struct {
	Mode         string          `json:"mode"`
	UserIDs      []string        `json:"user_ids"`
	IncludeAdmin bool            `json:"include_admin,omitempty"`
	AdminQACount int             `json:"admin_qa_count,omitempty"`
	Assignments  []qa.Assignment `json:"assignments,omitempty"`
}

// TaskPairsPage is one page of an assignee's records plus their assignment
// window.
type TaskPairsPage struct {
	QAPairs    []qa.Record    `json:"qa_pairs"`
	Assignment *qa.Assignment `json:"assignment,omitempty"`
	Pagination Pagination     `json:"pagination"`
}

// SessionStatus reports the working-session heartbeat state.
type SessionStatus struct {
	SessionID string `json:"session_id"`
	Idle      bool   `json:"idle"`
	IdleSecs  int    `json:"idle_seconds,omitempty"`
}

// Summary is the aggregate view of a task's progress.
type Summary struct {
	TaskID      string          `json:"task_id"`
	Total       int             `json:"total"`
	Completed   int             `json:"completed"`
	Edited      int             `json:"edited"`
	Deleted     int             `json:"deleted"`
	Assignments []qa.Assignment `json:"assignments,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// CreateTask uploads a task definition with its source file.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*qa.Task, error) {
	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
	}
	if req.Deadline != "" {
		fields["deadline"] = req.Deadline
	}
	body, err := newMultipart("file", req.Filename, req.File, fields)
	if err != nil {
		return nil, err
	}
	var task qa.Task
	if err := c.decode(ctx, "POST", "/tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Tasks lists tasks visible to the current user.
func (c *Client) Tasks(ctx context.Context, page, perPage int) ([]qa.Task, *Pagination, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(perPage))
	var res struct {
		Tasks      []qa.Task  `json:"tasks"`
		Pagination Pagination `json:"pagination"`
	}
	if err := c.decode(ctx, "GET", "/tasks?"+q.Encode(), nil, &res); err != nil {
		return nil, nil, err
	}
	return res.Tasks, &res.Pagination, nil
}

// Task fetches a single task with its assignments.
func (c *Client) Task(ctx context.Context, taskID string) (*qa.Task, error) {
	var task qa.Task
	if err := c.decode(ctx, "GET", "/tasks/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// AssignTask distributes a task's records across users.
func (c *Client) AssignTask(ctx context.Context, taskID string, req AssignRequest) (*qa.Task, error) {
	var task qa.Task
	if err := c.decode(ctx, "POST", "/tasks/"+taskID+"/assign", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SubmitAssignment marks the current user's share of a task completed. The
// transition is irreversible.
func (c *Client) SubmitAssignment(ctx context.Context, taskID string) (*qa.Assignment, error) {
	var a qa.Assignment
	if err := c.decode(ctx, "POST", "/tasks/"+taskID+"/submit", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// TaskQAPairs returns one page of the current user's assigned records.
func (c *Client) TaskQAPairs(ctx context.Context, taskID string, page, perPage int) (*TaskPairsPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(perPage))
	var res TaskPairsPage
	endpoint := "/tasks/" + taskID + "/qa-pairs?" + q.Encode()
	if err := c.decode(ctx, "GET", endpoint, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateTaskQAPair edits one record inside the user's assignment window.
func (c *Client) UpdateTaskQAPair(ctx context.Context, taskID, recordID string, patch RecordPatch) (*qa.Record, error) {
	var rec qa.Record
	endpoint := "/tasks/" + taskID + "/qa-pairs/" + recordID
	if err := c.decode(ctx, "PUT", endpoint, patch, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTaskQAPair soft-deletes one record inside the assignment window.
func (c *Client) DeleteTaskQAPair(ctx context.Context, taskID, recordID string) error {
	return c.decode(ctx, "DELETE", "/tasks/"+taskID+"/qa-pairs/"+recordID, nil, nil)
}

// SaveDraft stores unsubmitted edits for one record. AutoSaved
// distinguishes timer-driven saves from explicit ones.
func (c *Client) SaveDraft(ctx context.Context, taskID string, draft qa.Draft) error {
	return c.decode(ctx, "POST", "/tasks/"+taskID+"/draft", draft, nil)
}

// Drafts returns all of the current user's drafts for a task.
func (c *Client) Drafts(ctx context.Context, taskID string) ([]qa.Draft, error) {
	var res struct {
		Drafts []qa.Draft `json:"drafts"`
	}
	if err := c.decode(ctx, "GET", "/tasks/"+taskID+"/drafts", nil, &res); err != nil {
		return nil, err
	}
	return res.Drafts, nil
}

// StartSession opens a working session against a task for idle tracking.
func (c *Client) StartSession(ctx context.Context, taskID string) (*SessionStatus, error) {
	var s SessionStatus
	if err := c.decode(ctx, "POST", "/tasks/"+taskID+"/session/start", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionActivity reports user activity on the working session.
func (c *Client) SessionActivity(ctx context.Context, taskID string) error {
	return c.decode(ctx, "POST", "/tasks/"+taskID+"/session/activity", nil, nil)
}

// SessionIdle asks whether the working session has gone idle.
func (c *Client) SessionIdle(ctx context.Context, taskID string) (*SessionStatus, error) {
	var s SessionStatus
	if err := c.decode(ctx, "GET", "/tasks/"+taskID+"/session/idle", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession closes the working session.
func (c *Client) EndSession(ctx context.Context, taskID string) error {
	return c.decode(ctx, "POST", "/tasks/"+taskID+"/session/end", nil, nil)
}

// TaskSummary fetches a task's aggregate progress.
func (c *Client) TaskSummary(ctx context.Context, taskID string) (*Summary, error) {
	var s Summary
	if err := c.decode(ctx, "GET", "/tasks/"+taskID+"/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateTaskSummary stores admin notes on a task summary.
func (c *Client) UpdateTaskSummary(ctx context.Context, taskID, notes string) error {
	body := map[string]string{"notes": notes}
	return c.decode(ctx, "PUT", "/tasks/"+taskID+"/summary", body, nil)
}

// ExportTask downloads the merged task result in the requested format.
func (c *Client) ExportTask(ctx context.Context, taskID, format string) (*Blob, error) {
	return c.download(ctx, "GET", "/tasks/"+taskID+"/export?format="+url.QueryEscape(format), nil)
}

// DeleteTask removes a task and its assignments.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.decode(ctx, "DELETE", "/tasks/"+taskID, nil, nil)
}
