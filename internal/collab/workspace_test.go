package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"qaproof/internal/api"
	"qaproof/internal/qa"
)

// taskServer fakes the task endpoints for one assignee of task "t1".
type taskServer struct {
	mu         sync.Mutex
	records    []qa.Record
	drafts     map[string]qa.Draft
	assignment qa.Assignment
	heartbeats int
	sessionUp  bool
	submitted  bool
}

func newTaskServer(n int) *taskServer {
	s := &taskServer{drafts: map[string]qa.Draft{}}
	for i := 0; i < n; i++ {
		s.records = append(s.records, qa.Record{
			ID: qa.TempID(i), IndexInFile: i, Prompt: "q", Completion: "a",
		})
	}
	s.assignment = qa.Assignment{
		UserID: "u1", StartIndex: 0, EndIndex: n - 1, Status: qa.AssignmentInProgress,
	}
	return s
}

func (s *taskServer) handler() http.Handler {
	envelope := func(w http.ResponseWriter, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/t1/session/start", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.sessionUp = true
		s.mu.Unlock()
		envelope(w, map[string]interface{}{"session_id": "s1", "idle": false})
	})
	mux.HandleFunc("/tasks/t1/session/activity", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.heartbeats++
		s.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("/tasks/t1/session/idle", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]interface{}{"session_id": "s1", "idle": true})
	})
	mux.HandleFunc("/tasks/t1/session/end", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.sessionUp = false
		s.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("/tasks/t1/qa-pairs", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		perPage := 5
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			json.Unmarshal([]byte(p), &page)
		}
		live := make([]qa.Record, 0, len(s.records))
		for _, rec := range s.records {
			if !rec.IsDeleted {
				live = append(live, rec)
			}
		}
		start := (page - 1) * perPage
		end := start + perPage
		if start > len(live) {
			start = len(live)
		}
		if end > len(live) {
			end = len(live)
		}
		envelope(w, map[string]interface{}{
			"qa_pairs":   live[start:end],
			"assignment": s.assignment,
			"pagination": map[string]int{
				"page": page, "per_page": perPage, "total": len(live),
				"total_pages": (len(live) + perPage - 1) / perPage,
			},
		})
	})
	mux.HandleFunc("/tasks/t1/qa-pairs/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/tasks/t1/qa-pairs/")
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.records {
			if s.records[i].ID != id {
				continue
			}
			switch r.Method {
			case "PUT":
				var patch api.RecordPatch
				json.NewDecoder(r.Body).Decode(&patch)
				if patch.Prompt != nil {
					s.records[i].Prompt = *patch.Prompt
				}
				if patch.Completion != nil {
					s.records[i].Completion = *patch.Completion
				}
				s.records[i].IsEdited = true
				envelope(w, s.records[i])
			case "DELETE":
				s.records[i].IsDeleted = true
				envelope(w, nil)
			}
			return
		}
		w.WriteHeader(404)
	})
	mux.HandleFunc("/tasks/t1/draft", func(w http.ResponseWriter, r *http.Request) {
		var d qa.Draft
		json.NewDecoder(r.Body).Decode(&d)
		s.mu.Lock()
		s.drafts[d.QAPairID] = d
		s.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("/tasks/t1/drafts", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		list := make([]qa.Draft, 0, len(s.drafts))
		for _, d := range s.drafts {
			list = append(list, d)
		}
		s.mu.Unlock()
		envelope(w, map[string]interface{}{"drafts": list})
	})
	mux.HandleFunc("/tasks/t1/submit", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.submitted = true
		s.assignment.Status = qa.AssignmentCompleted
		a := s.assignment
		s.mu.Unlock()
		envelope(w, a)
	})
	return mux
}

// memHidden is an in-memory HiddenStore.
type memHidden struct {
	items map[string]bool
}

func newMemHidden() *memHidden { return &memHidden{items: map[string]bool{}} }

func (m *memHidden) ToggleHidden(userID, resourceID, recordID string) (bool, error) {
	k := userID + "/" + resourceID + "/" + recordID
	if m.items[k] {
		delete(m.items, k)
		return false, nil
	}
	m.items[k] = true
	return true, nil
}

func (m *memHidden) HiddenItems(userID, resourceID string) ([]string, error) {
	prefix := userID + "/" + resourceID + "/"
	var ids []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
	}
	return ids, nil
}

func newWorkspace(t *testing.T, s *taskServer) *Workspace {
	t.Helper()
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, 5*time.Second)
	return NewWorkspace(client, nil, nil, "u1", "t1", 5)
}

func TestWorkspaceOpenLoadsAssignmentAndDrafts(t *testing.T) {
	s := newTaskServer(12)
	s.drafts["temp_2"] = qa.Draft{QAPairID: "temp_2", DraftPrompt: "draft q", DraftCompletion: "draft a"}
	w := newWorkspace(t, s)

	if err := w.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if a := w.Assignment(); a == nil || a.Count() != 12 {
		t.Errorf("assignment = %v", a)
	}
	if w.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", w.PageCount())
	}
	recs := w.Records()
	if !recs[2].HasDraft || recs[2].DraftPrompt != "draft q" {
		t.Errorf("draft not overlaid: %+v", recs[2])
	}
	// Records without drafts are untouched.
	if recs[0].HasDraft {
		t.Errorf("spurious draft on %+v", recs[0])
	}
}

func TestWorkspaceEditAndExplicitSave(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := w.EditDraft("temp_0", "new q", "new a"); err != nil {
		t.Fatalf("EditDraft failed: %v", err)
	}
	if err := w.Save(ctx, "temp_0"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// An explicit save commits the record and retires the draft.
	s.mu.Lock()
	rec := s.records[0]
	s.mu.Unlock()
	if rec.Prompt != "new q" || !rec.IsEdited {
		t.Errorf("server record = %+v", rec)
	}
	if recs := w.Records(); recs[0].HasDraft {
		t.Errorf("draft survived the commit: %+v", recs[0])
	}
	if recs := w.Records(); recs[0].Prompt != "new q" {
		t.Errorf("local page not updated: %+v", recs[0])
	}
	// Saving with no draft pending is a no-op.
	if err := w.Save(ctx, "temp_2"); err != nil {
		t.Errorf("Save without draft: %v", err)
	}
}

func TestWorkspaceDelete(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	w.EditDraft("temp_1", "doomed", "doomed")

	if err := w.Delete(ctx, "temp_1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	recs := w.Records()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	for _, r := range recs {
		if r.ID == "temp_1" {
			t.Error("deleted record still listed")
		}
	}
	// Soft delete keeps the server row.
	s.mu.Lock()
	deleted := s.records[1].IsDeleted
	s.mu.Unlock()
	if !deleted {
		t.Error("server record not flagged deleted")
	}
}

func TestWorkspaceAutoSaveFlagsDrafts(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	w.EditDraft("temp_1", "auto q", "auto a")

	w.autoSave(ctx)
	s.mu.Lock()
	d := s.drafts["temp_1"]
	s.mu.Unlock()
	if !d.IsAutoSaved {
		t.Errorf("auto-saved draft not flagged: %+v", d)
	}
	// Nothing dirty left, a second pass is a no-op.
	w.autoSave(ctx)
}

func TestWorkspaceSubmitIsIrreversible(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	w.EditDraft("temp_0", "final q", "final a")

	if err := w.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !w.ReadOnly() {
		t.Error("workspace not read-only after submit")
	}
	// Pending drafts were flushed before completion.
	s.mu.Lock()
	flushed := s.drafts["temp_0"].DraftPrompt
	s.mu.Unlock()
	if flushed != "final q" {
		t.Errorf("draft not flushed on submit: %q", flushed)
	}

	if err := w.EditDraft("temp_1", "x", "y"); err != ErrReadOnly {
		t.Errorf("edit after submit: err = %v, want ErrReadOnly", err)
	}
	if err := w.Submit(ctx); err != ErrReadOnly {
		t.Errorf("double submit: err = %v, want ErrReadOnly", err)
	}
}

func TestWorkspaceMarkCorrectPersists(t *testing.T) {
	s := newTaskServer(3)
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, 5*time.Second)
	store := newMemHidden()
	ctx := context.Background()

	w := NewWorkspace(client, nil, store, "u1", "t1", 5)
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	hidden, err := w.MarkCorrect("temp_1")
	if err != nil || !hidden {
		t.Fatalf("MarkCorrect = %v, %v", hidden, err)
	}
	if got := len(w.Records()); got != 2 {
		t.Errorf("visible records = %d, want 2", got)
	}
	w.ToggleShowAll()
	if got := len(w.Records()); got != 3 {
		t.Errorf("records with show-all = %d, want 3", got)
	}
	if !w.IsHidden("temp_1") {
		t.Error("record not reported hidden")
	}

	// A fresh workspace over the same store restores the mark.
	w2 := NewWorkspace(client, nil, store, "u1", "t1", 5)
	if err := w2.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !w2.IsHidden("temp_1") {
		t.Error("hidden set not restored on reopen")
	}
	if got := len(w2.Records()); got != 2 {
		t.Errorf("restored visible records = %d, want 2", got)
	}
}

func TestWorkspaceMarkCorrectReadOnly(t *testing.T) {
	s := newTaskServer(3)
	s.assignment.Status = qa.AssignmentCompleted
	w := newWorkspace(t, s)
	if err := w.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := w.MarkCorrect("temp_0"); err != ErrReadOnly {
		t.Errorf("MarkCorrect on completed assignment: err = %v, want ErrReadOnly", err)
	}
}

func TestWorkspaceHeartbeatOnlyWhenActive(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	w.heartbeat(ctx) // no activity yet
	s.mu.Lock()
	n := s.heartbeats
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("heartbeat without activity: %d", n)
	}

	w.Touch()
	w.heartbeat(ctx)
	w.heartbeat(ctx) // activity consumed by the first beat
	s.mu.Lock()
	n = s.heartbeats
	s.mu.Unlock()
	if n != 1 {
		t.Errorf("heartbeats = %d, want 1", n)
	}
}

func TestWorkspaceIdleCheck(t *testing.T) {
	s := newTaskServer(3)
	w := newWorkspace(t, s)
	ctx := context.Background()
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if w.Idle() {
		t.Error("idle before any check")
	}
	w.checkIdle(ctx)
	if !w.Idle() {
		t.Error("server idle flag not picked up")
	}
}

func TestWorkspaceRunStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTaskServer(3)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()
	client := api.NewClient(srv.URL, 5*time.Second)
	w := NewWorkspace(client, nil, nil, "u1", "t1", 5)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Run(ctx, Timers{
			AutoSave:  10 * time.Millisecond,
			Activity:  10 * time.Millisecond,
			IdleCheck: 10 * time.Millisecond,
		})
		close(done)
	}()

	w.EditDraft("temp_0", "bg q", "bg a")
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts["temp_0"]; !ok {
		t.Error("background auto-save never ran")
	}
	if s.sessionUp {
		t.Error("working session not closed on shutdown")
	}
}

func TestWorkspaceRunWithoutAutoSave(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTaskServer(3)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()
	client := api.NewClient(srv.URL, 5*time.Second)
	w := NewWorkspace(client, nil, nil, "u1", "t1", 5)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		// AutoSave disabled; session upkeep still runs.
		w.Run(ctx, Timers{
			Activity:  10 * time.Millisecond,
			IdleCheck: 10 * time.Millisecond,
		})
		close(done)
	}()

	w.EditDraft("temp_0", "local q", "local a")
	w.Touch()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts["temp_0"]; ok {
		t.Error("draft auto-saved with auto-save disabled")
	}
	if s.heartbeats == 0 {
		t.Error("heartbeat never sent")
	}
	if s.sessionUp {
		t.Error("working session not closed on shutdown")
	}
}
