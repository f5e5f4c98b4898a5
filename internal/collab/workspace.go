package collab

import (
	"context"
	"errors"
	"sync"
	"time"

	"qaproof/internal/api"
	"qaproof/internal/logging"
	"qaproof/internal/qa"
)

// ErrReadOnly is returned by mutations on a completed or overdue
// assignment.
var ErrReadOnly = errors.New("assignment is read-only")

// DraftCache stores drafts locally so a crash between auto-saves loses
// nothing. store.LocalStore satisfies it.
type DraftCache interface {
	CacheDraft(taskID string, draft qa.Draft) error
	CachedDrafts(taskID string) (map[string]qa.Draft, error)
	ClearDraftCache(taskID string) error
}

// HiddenStore persists which records the assignee marked correct, so the
// hidden set survives restarts. store.LocalStore satisfies it.
type HiddenStore interface {
	ToggleHidden(userID, resourceID, recordID string) (bool, error)
	HiddenItems(userID, resourceID string) ([]string, error)
}

// Timers configures the workspace's background cadence.
type Timers struct {
	AutoSave  time.Duration // flush dirty drafts
	Activity  time.Duration // heartbeat when the user has been active
	IdleCheck time.Duration // poll server-side idle status
}

// Workspace is one assignee's editing surface over their slice of a task.
// Edits accumulate as drafts; the committed record only changes on submit,
// server-side.
type Workspace struct {
	client      *api.Client
	cache       DraftCache
	hiddenStore HiddenStore
	userID      string
	taskID      string

	mu           sync.Mutex
	assignment   *qa.Assignment
	page         int
	perPage      int
	records      []qa.Record
	total        int
	totalPages   int
	drafts       map[string]qa.Draft
	dirty        map[string]bool
	hidden       map[string]bool
	showAll      bool
	saving       bool
	activitySeen bool
	idle         bool
}

// NewWorkspace creates a workspace for one task. cache may be nil to skip
// local draft caching; hidden may be nil to keep marks for this run only.
func NewWorkspace(client *api.Client, cache DraftCache, hidden HiddenStore, userID, taskID string, perPage int) *Workspace {
	return &Workspace{
		client:      client,
		cache:       cache,
		hiddenStore: hidden,
		userID:      userID,
		taskID:      taskID,
		page:        1,
		perPage:     perPage,
		drafts:      map[string]qa.Draft{},
		dirty:       map[string]bool{},
		hidden:      map[string]bool{},
	}
}

// Open starts the working session, loads the first page, and restores
// drafts: server drafts first, then any locally cached drafts newer than
// what the server has.
func (w *Workspace) Open(ctx context.Context) error {
	if _, err := w.client.StartSession(ctx, w.taskID); err != nil {
		// Session tracking failing must not block editing.
		logging.Collab("start session for task %s: %v", w.taskID, err)
	}
	if err := w.fetchPage(ctx); err != nil {
		return err
	}

	drafts, err := w.client.Drafts(ctx, w.taskID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range drafts {
		w.drafts[d.QAPairID] = d
	}
	if w.cache != nil {
		cached, err := w.cache.CachedDrafts(w.taskID)
		if err != nil {
			logging.StoreError("read draft cache: %v", err)
		}
		for id, local := range cached {
			remote, ok := w.drafts[id]
			if !ok || (local.LastSavedAt != nil && (remote.LastSavedAt == nil || local.LastSavedAt.After(*remote.LastSavedAt))) {
				w.drafts[id] = local
				w.dirty[id] = true
			}
		}
	}
	if w.hiddenStore != nil {
		ids, err := w.hiddenStore.HiddenItems(w.userID, w.taskID)
		if err != nil {
			logging.StoreError("load hidden items for %s: %v", w.taskID, err)
		}
		for _, id := range ids {
			w.hidden[id] = true
		}
	}
	logging.Collab("opened task %s: %d drafts restored", w.taskID, len(w.drafts))
	return nil
}

// Assignment returns the user's range, nil before Open.
func (w *Workspace) Assignment() *qa.Assignment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.assignment
}

// ReadOnly reports whether editing is closed (completed or overdue).
func (w *Workspace) ReadOnly() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readOnlyLocked()
}

func (w *Workspace) readOnlyLocked() bool {
	return w.assignment != nil && w.assignment.Status.ReadOnly()
}

// Idle reports whether the server flagged the working session idle.
func (w *Workspace) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.idle
}

// Page returns the current 1-based page.
func (w *Workspace) Page() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.page
}

// PageCount returns the page count, at least 1.
func (w *Workspace) PageCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.totalPages < 1 {
		return 1
	}
	return w.totalPages
}

// SetPage moves to the given page, clamped, and fetches it.
func (w *Workspace) SetPage(ctx context.Context, page int) error {
	w.mu.Lock()
	if page < 1 {
		page = 1
	}
	if w.totalPages > 0 && page > w.totalPages {
		page = w.totalPages
	}
	w.page = page
	w.mu.Unlock()
	return w.fetchPage(ctx)
}

// Records returns the current page with drafts overlaid: a record with a
// pending draft shows the draft text and HasDraft set. Records marked
// correct are filtered out unless show-all is on.
func (w *Workspace) Records() []qa.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]qa.Record, 0, len(w.records))
	for _, r := range w.records {
		if !w.showAll && w.hidden[r.ID] {
			continue
		}
		if d, ok := w.drafts[r.ID]; ok {
			r.HasDraft = true
			r.DraftPrompt = d.DraftPrompt
			r.DraftCompletion = d.DraftCompletion
			r.LastDraftSaved = d.LastSavedAt
		}
		out = append(out, r)
	}
	return out
}

// MarkCorrect toggles the correct mark on a record, hiding it from the
// working view or revealing it again. Returns whether the record is now
// hidden. Marks are local bookkeeping and survive restarts through the
// hidden store; the server never sees them.
func (w *Workspace) MarkCorrect(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readOnlyLocked() {
		return false, ErrReadOnly
	}
	if w.hiddenStore != nil {
		nowHidden, err := w.hiddenStore.ToggleHidden(w.userID, w.taskID, id)
		if err != nil {
			return false, err
		}
		if nowHidden {
			w.hidden[id] = true
		} else {
			delete(w.hidden, id)
		}
		return nowHidden, nil
	}
	if w.hidden[id] {
		delete(w.hidden, id)
		return false, nil
	}
	w.hidden[id] = true
	return true, nil
}

// IsHidden reports whether a record is marked correct and hidden.
func (w *Workspace) IsHidden(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hidden[id]
}

// ShowAll reports whether hidden records are displayed anyway.
func (w *Workspace) ShowAll() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.showAll
}

// ToggleShowAll flips between hiding marked records and showing
// everything. Presentation only; marks are kept either way.
func (w *Workspace) ToggleShowAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.showAll = !w.showAll
}

// EditDraft records an edit as a local draft and marks the session active.
// The draft reaches the server on the next auto-save or explicit Save.
func (w *Workspace) EditDraft(id, prompt, completion string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.readOnlyLocked() {
		return ErrReadOnly
	}
	now := time.Now()
	d := qa.Draft{
		QAPairID:        id,
		DraftPrompt:     prompt,
		DraftCompletion: completion,
		LastSavedAt:     &now,
	}
	w.drafts[id] = d
	w.dirty[id] = true
	w.activitySeen = true
	if w.cache != nil {
		if err := w.cache.CacheDraft(w.taskID, d); err != nil {
			logging.StoreError("cache draft %s: %v", id, err)
		}
	}
	return nil
}

// Save commits one draft: the record itself is updated server-side and
// the draft retired. Auto-save only parks drafts; an explicit save is the
// user saying the text is right.
func (w *Workspace) Save(ctx context.Context, id string) error {
	w.mu.Lock()
	d, ok := w.drafts[id]
	if !ok {
		w.mu.Unlock()
		return nil
	}
	if w.readOnlyLocked() {
		w.mu.Unlock()
		return ErrReadOnly
	}
	w.mu.Unlock()

	rec, err := w.client.UpdateTaskQAPair(ctx, w.taskID, id, api.RecordPatch{
		Prompt:     &d.DraftPrompt,
		Completion: &d.DraftCompletion,
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.drafts, id)
	delete(w.dirty, id)
	for i := range w.records {
		if w.records[i].ID == id {
			w.records[i] = *rec
			break
		}
	}
	w.mu.Unlock()
	return nil
}

// Delete soft-deletes a record from the assigned range and refetches the
// page. Any pending draft for it is dropped.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	if w.readOnlyLocked() {
		w.mu.Unlock()
		return ErrReadOnly
	}
	w.mu.Unlock()

	if err := w.client.DeleteTaskQAPair(ctx, w.taskID, id); err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.drafts, id)
	delete(w.dirty, id)
	w.mu.Unlock()
	return w.fetchPage(ctx)
}

// Touch marks user activity for the next heartbeat.
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.activitySeen = true
	w.mu.Unlock()
}

// Submit flushes pending drafts and completes the assignment. The
// transition is irreversible; the workspace turns read-only.
func (w *Workspace) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.readOnlyLocked() {
		w.mu.Unlock()
		return ErrReadOnly
	}
	pending := make([]qa.Draft, 0, len(w.dirty))
	for id := range w.dirty {
		pending = append(pending, w.drafts[id])
	}
	w.mu.Unlock()

	for _, d := range pending {
		d.IsAutoSaved = false
		if err := w.client.SaveDraft(ctx, w.taskID, d); err != nil {
			return err
		}
	}

	a, err := w.client.SubmitAssignment(ctx, w.taskID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.assignment = a
	w.dirty = map[string]bool{}
	w.mu.Unlock()
	if w.cache != nil {
		if err := w.cache.ClearDraftCache(w.taskID); err != nil {
			logging.StoreError("clear draft cache: %v", err)
		}
	}
	logging.Collab("submitted task %s", w.taskID)
	return nil
}

// Run drives the background timers until ctx is cancelled, then ends the
// working session. A non-positive AutoSave interval disables auto-save;
// the heartbeat and idle poll always run. Call it in its own goroutine.
func (w *Workspace) Run(ctx context.Context, timers Timers) {
	var autoSaveC <-chan time.Time
	if timers.AutoSave > 0 {
		autoSave := time.NewTicker(timers.AutoSave)
		defer autoSave.Stop()
		autoSaveC = autoSave.C
	}
	activity := time.NewTicker(timers.Activity)
	idle := time.NewTicker(timers.IdleCheck)
	defer activity.Stop()
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best-effort close with a fresh short-lived context.
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.client.EndSession(closeCtx, w.taskID); err != nil {
				logging.Collab("end session for task %s: %v", w.taskID, err)
			}
			cancel()
			return
		case <-autoSaveC:
			w.autoSave(ctx)
		case <-activity.C:
			w.heartbeat(ctx)
		case <-idle.C:
			w.checkIdle(ctx)
		}
	}
}

// autoSave flushes dirty drafts, flagged as auto-saved. A tick that fires
// while the previous flush is still running is skipped rather than queued.
func (w *Workspace) autoSave(ctx context.Context) {
	w.mu.Lock()
	if w.saving || w.readOnlyLocked() || len(w.dirty) == 0 {
		w.mu.Unlock()
		return
	}
	w.saving = true
	pending := make([]qa.Draft, 0, len(w.dirty))
	for id := range w.dirty {
		pending = append(pending, w.drafts[id])
	}
	w.mu.Unlock()

	saved := make([]string, 0, len(pending))
	for _, d := range pending {
		d.IsAutoSaved = true
		if err := w.client.SaveDraft(ctx, w.taskID, d); err != nil {
			logging.Collab("auto-save draft %s: %v", d.QAPairID, err)
			continue
		}
		saved = append(saved, d.QAPairID)
	}

	w.mu.Lock()
	for _, id := range saved {
		delete(w.dirty, id)
	}
	w.saving = false
	w.mu.Unlock()
	if len(saved) > 0 {
		logging.CollabDebug("auto-saved %d drafts", len(saved))
	}
}

func (w *Workspace) heartbeat(ctx context.Context) {
	w.mu.Lock()
	seen := w.activitySeen
	w.activitySeen = false
	w.mu.Unlock()
	if !seen {
		return
	}
	if err := w.client.SessionActivity(ctx, w.taskID); err != nil {
		logging.Collab("activity heartbeat: %v", err)
	}
}

func (w *Workspace) checkIdle(ctx context.Context) {
	s, err := w.client.SessionIdle(ctx, w.taskID)
	if err != nil {
		logging.Collab("idle check: %v", err)
		return
	}
	w.mu.Lock()
	w.idle = s.Idle
	w.mu.Unlock()
}

func (w *Workspace) fetchPage(ctx context.Context) error {
	w.mu.Lock()
	page := w.page
	w.mu.Unlock()

	res, err := w.client.TaskQAPairs(ctx, w.taskID, page, w.perPage)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.records = res.QAPairs
	w.total = res.Pagination.Total
	w.totalPages = res.Pagination.TotalPages
	if res.Assignment != nil {
		w.assignment = res.Assignment
	}
	w.mu.Unlock()
	return nil
}
