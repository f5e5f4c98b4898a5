package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qaproof/internal/api"
	"qaproof/internal/collab"
	"qaproof/internal/qa"
)

// newWork spins up a minimal task endpoint fake and opens a workspace
// over it.
func newWork(t *testing.T, n int) WorkModel {
	t.Helper()
	records := make([]qa.Record, n)
	for i := range records {
		records[i] = qa.Record{ID: qa.TempID(i), IndexInFile: i, Prompt: "q", Completion: "a"}
	}
	envelope := func(w http.ResponseWriter, data interface{}) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/t1/session/start", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]interface{}{"session_id": "s1"})
	})
	mux.HandleFunc("/tasks/t1/drafts", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]interface{}{"drafts": []qa.Draft{}})
	})
	mux.HandleFunc("/tasks/t1/qa-pairs", func(w http.ResponseWriter, r *http.Request) {
		live := make([]qa.Record, 0, len(records))
		for _, rec := range records {
			if !rec.IsDeleted {
				live = append(live, rec)
			}
		}
		envelope(w, map[string]interface{}{
			"qa_pairs": live,
			"assignment": qa.Assignment{
				UserID: "u1", StartIndex: 0, EndIndex: n - 1, Status: qa.AssignmentInProgress,
			},
			"pagination": map[string]int{"page": 1, "per_page": 20, "total": len(live), "total_pages": 1},
		})
	})
	mux.HandleFunc("/tasks/t1/qa-pairs/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/tasks/t1/qa-pairs/")
		for i := range records {
			if records[i].ID == id && r.Method == "DELETE" {
				records[i].IsDeleted = true
			}
		}
		envelope(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ws := collab.NewWorkspace(api.NewClient(srv.URL, 5*time.Second), nil, nil, "u1", "t1", 20)
	if err := ws.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return NewWorkModel(ws)
}

func TestWorkMarkCorrectHidesRecord(t *testing.T) {
	m := newWork(t, 3)

	next, _ := m.Update(key("c"))
	m = next.(WorkModel)
	if !strings.Contains(m.status, "Marked correct") {
		t.Errorf("status = %q", m.status)
	}
	if got := len(m.ws.Records()); got != 2 {
		t.Errorf("visible = %d, want 2", got)
	}

	next, _ = m.Update(key("a"))
	m = next.(WorkModel)
	if got := len(m.ws.Records()); got != 3 {
		t.Errorf("visible with show-all = %d, want 3", got)
	}
}

func TestWorkDeleteRecord(t *testing.T) {
	m := newWork(t, 3)

	next, _ := m.Update(key("d"))
	m = next.(WorkModel)
	if m.status != "Deleted." {
		t.Errorf("status = %q", m.status)
	}
	if got := len(m.ws.Records()); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
}
