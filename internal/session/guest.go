// Package session holds the guest working state: a locally parsed record
// set with a cursor, a hidden set, and display flags, persisted through a
// kv.Store so a restart resumes where the user left off.
package session

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"qaproof/internal/kv"
	"qaproof/internal/logging"
	"qaproof/internal/qa"
)

// State is the persisted shape of a guest session.
type State struct {
	SessionID        string      `json:"session_id"`
	Filename         string      `json:"filename,omitempty"`
	Records          []qa.Record `json:"records"`
	CurrentIndex     int         `json:"current_record_index"`
	HiddenItems      []string    `json:"hidden_items"`
	ShowAll          bool        `json:"show_all"`
	HasMarkedCorrect bool        `json:"has_marked_correct"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Guest manages one guest session. All mutations are written through to the
// backing store; persistence failures are logged and never surfaced, since
// losing local persistence must not break the in-memory editing flow.
type Guest struct {
	store  kv.Store
	state  State
	hidden map[string]bool
}

// NewGuest restores the persisted session if one exists, otherwise starts
// empty.
func NewGuest(store kv.Store) *Guest {
	g := &Guest{store: store, hidden: map[string]bool{}}
	raw, err := store.Get(kv.KeyGuestSession)
	if err != nil {
		if err != kv.ErrNotFound {
			logging.SessionError("restore guest session: %v", err)
		}
		g.state.SessionID = uuid.NewString()
		return g
	}
	if err := json.Unmarshal(raw, &g.state); err != nil {
		logging.SessionError("corrupt guest session, starting fresh: %v", err)
		g.state = State{SessionID: uuid.NewString()}
		return g
	}
	for _, id := range g.state.HiddenItems {
		g.hidden[id] = true
	}
	g.clampCursor()
	logging.Session("restored guest session %s (%d records)", g.state.SessionID, len(g.state.Records))
	return g
}

// Snapshot returns a copy of the current state.
func (g *Guest) Snapshot() State {
	st := g.state
	st.Records = append([]qa.Record(nil), g.state.Records...)
	st.HiddenItems = append([]string(nil), g.state.HiddenItems...)
	return st
}

// Restore replaces the whole session with a previously saved state, as
// when resuming a shared session from the server.
func (g *Guest) Restore(st State) {
	if st.SessionID == "" {
		st.SessionID = uuid.NewString()
	}
	g.state = st
	g.hidden = map[string]bool{}
	for _, id := range st.HiddenItems {
		g.hidden[id] = true
	}
	g.clampCursor()
	g.persist("restore")
	logging.Session("restored session %s (%d records)", st.SessionID, len(st.Records))
}

// SessionID returns the session's stable identifier.
func (g *Guest) SessionID() string { return g.state.SessionID }

// Filename returns the name of the loaded file, empty when none.
func (g *Guest) Filename() string { return g.state.Filename }

// Records returns the full record list, hidden entries included.
func (g *Guest) Records() []qa.Record {
	return append([]qa.Record(nil), g.state.Records...)
}

// LoadRecords replaces the session's record set with freshly parsed
// records. Records missing an index get one assigned from their position;
// existing indexes are kept. The cursor and hidden set reset; the sticky
// HasMarkedCorrect flag survives for the lifetime of the session. Loading
// the same file twice yields the same state.
func (g *Guest) LoadRecords(filename string, records []qa.Record) {
	loaded := make([]qa.Record, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = qa.TempID(i)
		}
		if r.IndexInFile == 0 && i != 0 {
			r.IndexInFile = i
		}
		loaded[i] = r
	}
	g.state.Filename = filename
	g.state.Records = loaded
	g.state.CurrentIndex = 0
	g.state.HiddenItems = nil
	g.hidden = map[string]bool{}
	g.persist("load")
	logging.Session("loaded %d records from %s", len(loaded), filename)
}

// Record returns the record at the cursor, or nil when the session is
// empty.
func (g *Guest) Record() *qa.Record {
	if len(g.state.Records) == 0 {
		return nil
	}
	return &g.state.Records[g.state.CurrentIndex]
}

// CurrentIndex returns the cursor position.
func (g *Guest) CurrentIndex() int { return g.state.CurrentIndex }

// GoToRecord moves the cursor, clamped to the valid range.
func (g *Guest) GoToRecord(index int) {
	g.state.CurrentIndex = index
	g.clampCursor()
	g.persist("cursor")
}

// Next advances the cursor by one, clamped at the end.
func (g *Guest) Next() { g.GoToRecord(g.state.CurrentIndex + 1) }

// Prev moves the cursor back by one, clamped at zero.
func (g *Guest) Prev() { g.GoToRecord(g.state.CurrentIndex - 1) }

// UpdateRecord applies an edit to the record with the given id. An unknown
// id is logged and ignored; a stale edit must not corrupt other records.
func (g *Guest) UpdateRecord(id, prompt, completion string) {
	for i := range g.state.Records {
		if g.state.Records[i].ID != id {
			continue
		}
		now := time.Now()
		g.state.Records[i].Prompt = prompt
		g.state.Records[i].Completion = completion
		g.state.Records[i].IsEdited = true
		g.state.Records[i].EditedAt = &now
		g.persist("update")
		return
	}
	logging.SessionError("update for unknown record %s ignored", id)
}

// DeleteRecord removes the record with the given id from the session and
// from the hidden set, then re-clamps the cursor. Guest deletion is a hard
// delete.
func (g *Guest) DeleteRecord(id string) {
	for i := range g.state.Records {
		if g.state.Records[i].ID != id {
			continue
		}
		g.state.Records = append(g.state.Records[:i], g.state.Records[i+1:]...)
		if g.hidden[id] {
			delete(g.hidden, id)
			g.syncHidden()
		}
		g.clampCursor()
		g.persist("delete")
		return
	}
	logging.SessionError("delete for unknown record %s ignored", id)
}

// MarkCorrect toggles the hidden flag on a record. The first mark ever
// latches HasMarkedCorrect for the session; unmarking never clears it.
// An id not in the record set (deleted, or stale) is logged and ignored so
// the hidden set never accumulates phantom entries.
func (g *Guest) MarkCorrect(id string) (nowHidden bool) {
	if !g.hasRecord(id) {
		logging.SessionError("mark for unknown record %s ignored", id)
		return false
	}
	if g.hidden[id] {
		delete(g.hidden, id)
	} else {
		g.hidden[id] = true
		g.state.HasMarkedCorrect = true
	}
	g.syncHidden()
	g.persist("mark")
	return g.hidden[id]
}

// IsHidden reports whether the record is in the hidden set.
func (g *Guest) IsHidden(id string) bool { return g.hidden[id] }

// HasMarkedCorrect reports the sticky first-mark latch, used to gate a
// one-time onboarding hint.
func (g *Guest) HasMarkedCorrect() bool { return g.state.HasMarkedCorrect }

// ShowAll reports the display flag.
func (g *Guest) ShowAll() bool { return g.state.ShowAll }

// ToggleShowAll flips whether hidden records are displayed. It changes
// presentation only; the hidden set is untouched.
func (g *Guest) ToggleShowAll() bool {
	g.state.ShowAll = !g.state.ShowAll
	g.persist("show_all")
	return g.state.ShowAll
}

// Visible returns the records to display: everything when ShowAll is set,
// otherwise the records not in the hidden set.
func (g *Guest) Visible() []qa.Record {
	if g.state.ShowAll {
		return g.Records()
	}
	out := make([]qa.Record, 0, len(g.state.Records))
	for _, r := range g.state.Records {
		if !g.hidden[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// Clear resets the session and removes the persisted key.
func (g *Guest) Clear() {
	g.state = State{SessionID: uuid.NewString()}
	g.hidden = map[string]bool{}
	if err := g.store.Delete(kv.KeyGuestSession); err != nil {
		logging.SessionError("clear guest session: %v", err)
	}
}

func (g *Guest) hasRecord(id string) bool {
	for i := range g.state.Records {
		if g.state.Records[i].ID == id {
			return true
		}
	}
	return false
}

func (g *Guest) clampCursor() {
	if g.state.CurrentIndex < 0 {
		g.state.CurrentIndex = 0
	}
	if max := len(g.state.Records) - 1; g.state.CurrentIndex > max {
		if max < 0 {
			max = 0
		}
		g.state.CurrentIndex = max
	}
}

func (g *Guest) syncHidden() {
	ids := make([]string, 0, len(g.hidden))
	for id := range g.hidden {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	g.state.HiddenItems = ids
}

func (g *Guest) persist(op string) {
	g.state.UpdatedAt = time.Now()
	raw, err := json.Marshal(g.state)
	if err != nil {
		logging.SessionError("encode guest session (%s): %v", op, err)
		return
	}
	if err := g.store.Set(kv.KeyGuestSession, raw); err != nil {
		logging.SessionError("persist guest session (%s): %v", op, err)
	}
}
