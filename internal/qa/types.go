// Package qa defines the domain types shared by the editors, the guest
// session store, and the API client: QA records, file sessions,
// collaboration tasks, and their supporting entities.
package qa

import (
	"fmt"
	"time"
)

// Record is a single prompt/completion pair under review.
//
// IndexInFile is assigned once at ingest (the line number in the source
// JSONL) and never changes afterwards, even when other records are edited or
// deleted. Display numbering is always IndexInFile+1, never the current
// array position.
type Record struct {
	ID          string `json:"id"`
	IndexInFile int    `json:"index_in_file"`
	Prompt      string `json:"prompt"`
	Completion  string `json:"completion"`

	IsEdited bool       `json:"is_edited,omitempty"`
	EditedBy string     `json:"edited_by,omitempty"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// Draft fields hold an uncommitted edit, separate from the committed
	// value. Collaboration mode only.
	HasDraft        bool       `json:"has_draft,omitempty"`
	DraftPrompt     string     `json:"draft_prompt,omitempty"`
	DraftCompletion string     `json:"draft_completion,omitempty"`
	LastDraftSaved  *time.Time `json:"last_draft_saved,omitempty"`

	// Soft-delete flag (single-file authenticated mode). Deleted records
	// stay in the list but are excluded from export.
	IsDeleted bool `json:"is_deleted,omitempty"`
}

// FileSession is an uploaded file's parsed record set plus metadata. The
// entity itself is immutable after creation apart from rename/delete; its
// child records mutate independently.
type FileSession struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	TotalQAPairs     int       `json:"total_qa_pairs"`
	CreatedAt        time.Time `json:"created_at"`
	OwnerID          string    `json:"owner_id,omitempty"`
}

// TaskStatus is the aggregate status of a collaboration task.
type TaskStatus string

const (
	TaskDraft      TaskStatus = "draft"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFinalized  TaskStatus = "finalized"
)

// AssignmentStatus is the per-assignee status, independent of the parent
// task's aggregate status.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentOverdue    AssignmentStatus = "overdue"
)

// ReadOnly reports whether an assignment in this status may no longer be
// edited. Completed is irreversible client-side; overdue is decided by the
// server.
func (s AssignmentStatus) ReadOnly() bool {
	return s == AssignmentCompleted || s == AssignmentOverdue
}

// Task is a collaboration task: a record set partitioned into per-user
// assignments.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	FileID       string       `json:"file_id,omitempty"`
	Deadline     *time.Time   `json:"deadline,omitempty"`
	Status       TaskStatus   `json:"status"`
	TotalQAPairs int          `json:"total_qa_pairs"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Assignments  []Assignment `json:"assignments,omitempty"`
}

// Assignment binds one user to a contiguous index range [StartIndex,
// EndIndex] within a task's records. Ranges of different users within one
// task must not overlap.
type Assignment struct {
	ID          string           `json:"id,omitempty"`
	TaskID      string           `json:"task_id,omitempty"`
	UserID      string           `json:"user_id"`
	StartIndex  int              `json:"start_index"`
	EndIndex    int              `json:"end_index"`
	Status      AssignmentStatus `json:"status,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Count returns the number of records covered by the assignment range.
func (a Assignment) Count() int {
	return a.EndIndex - a.StartIndex + 1
}

// Contains reports whether the file index falls inside the assignment range.
func (a Assignment) Contains(index int) bool {
	return index >= a.StartIndex && index <= a.EndIndex
}

// Overlaps reports whether two assignment ranges intersect.
func (a Assignment) Overlaps(b Assignment) bool {
	return a.StartIndex <= b.EndIndex && b.StartIndex <= a.EndIndex
}

// String renders the range using 1-based display numbering.
func (a Assignment) String() string {
	return fmt.Sprintf("%s: #%d-#%d (%d)", a.UserID, a.StartIndex+1, a.EndIndex+1, a.Count())
}

// Draft is an uncommitted edit stored server-side against a task record,
// letting an assignee pause and resume without losing work.
type Draft struct {
	QAPairID        string     `json:"qa_pair_id"`
	DraftPrompt     string     `json:"draft_prompt"`
	DraftCompletion string     `json:"draft_completion"`
	IsAutoSaved     bool       `json:"is_auto_saved,omitempty"`
	LastSavedAt     *time.Time `json:"last_saved_at,omitempty"`
}

// User is the authenticated platform user.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
}

// Group is a user group selectable as an assignment target.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// Notification is a platform notification (task assigned, deadline close).
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
