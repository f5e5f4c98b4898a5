// Package editor orchestrates single-file proofreading. One Editor wraps
// either a guest session (local parsing, in-memory records) or a server
// file session (uploaded records fetched page by page); callers see the
// same paging and mutation surface in both modes.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"qaproof/internal/api"
	"qaproof/internal/logging"
	"qaproof/internal/qa"
	"qaproof/internal/session"
)

// Mode selects where the record set lives.
type Mode int

const (
	// ModeGuest parses and edits records locally, nothing leaves the machine.
	ModeGuest Mode = iota
	// ModeServer uploads the file and edits through the API.
	ModeServer
)

// ErrNoFile is returned by operations that need an open file.
var ErrNoFile = errors.New("no file open")

// HiddenStore persists which records a user marked correct for a server
// file, so hiding survives restarts. store.LocalStore satisfies it.
type HiddenStore interface {
	ToggleHidden(userID, resourceID, recordID string) (bool, error)
	HiddenItems(userID, resourceID string) ([]string, error)
}

// Editor is the single-file proofreading surface. Not safe for concurrent
// use; it backs one interactive view.
type Editor struct {
	mode     Mode
	client   *api.Client
	guest    *session.Guest
	pageSize int

	filename string
	file     *qa.FileSession // server mode only
	page     int             // 1-based
	total    int
	search   string
	records  []qa.Record // current page, server mode

	hiddenStore HiddenStore // server mode, may be nil
	userID      string
	hidden      map[string]bool
	showAll     bool
}

// NewGuestEditor edits through the local guest session, resuming any file
// the session already holds.
func NewGuestEditor(g *session.Guest, pageSize int) *Editor {
	return &Editor{mode: ModeGuest, guest: g, pageSize: pageSize, page: 1, filename: g.Filename()}
}

// NewServerEditor edits an uploaded file through the API. hidden may be
// nil, in which case marked records are hidden for this run only.
func NewServerEditor(client *api.Client, hidden HiddenStore, userID string, pageSize int) *Editor {
	return &Editor{
		mode:        ModeServer,
		client:      client,
		hiddenStore: hidden,
		userID:      userID,
		pageSize:    pageSize,
		page:        1,
		hidden:      map[string]bool{},
	}
}

// Mode returns the editor's mode.
func (e *Editor) Mode() Mode { return e.mode }

// Filename returns the original filename of the open file.
func (e *Editor) Filename() string { return e.filename }

// Open loads a file into the editor. Guest mode parses locally; server mode
// uploads and fetches the first page. A parse error leaves the previous
// state untouched.
func (e *Editor) Open(ctx context.Context, filename string, content io.Reader) error {
	switch e.mode {
	case ModeGuest:
		records, err := qa.ParseJSONL(content)
		if err != nil {
			return fmt.Errorf("parse %s: %w", filename, err)
		}
		e.guest.LoadRecords(filename, records)
		e.filename = filename
		e.page = 1
		logging.Editor("opened %s locally (%d records)", filename, len(records))
		return nil
	default:
		fs, err := e.client.UploadFile(ctx, filename, content)
		if err != nil {
			return err
		}
		e.file = fs
		e.filename = fs.OriginalFilename
		e.total = fs.TotalQAPairs
		e.page = 1
		e.loadHidden()
		logging.Editor("uploaded %s (%d records)", fs.OriginalFilename, fs.TotalQAPairs)
		return e.fetchPage(ctx)
	}
}

// Attach resumes an existing server file session without re-uploading.
func (e *Editor) Attach(ctx context.Context, fileID string) error {
	if e.mode != ModeServer {
		return errors.New("attach requires server mode")
	}
	fs, err := e.client.File(ctx, fileID)
	if err != nil {
		return err
	}
	e.file = fs
	e.filename = fs.OriginalFilename
	e.total = fs.TotalQAPairs
	e.page = 1
	e.loadHidden()
	return e.fetchPage(ctx)
}

// loadHidden restores the persisted hidden set for the open server file.
func (e *Editor) loadHidden() {
	e.hidden = map[string]bool{}
	if e.hiddenStore == nil || e.file == nil {
		return
	}
	ids, err := e.hiddenStore.HiddenItems(e.userID, e.file.ID)
	if err != nil {
		logging.StoreError("load hidden items for %s: %v", e.file.ID, err)
		return
	}
	for _, id := range ids {
		e.hidden[id] = true
	}
}

// Total returns the number of records the pager runs over. In guest mode
// that is the visible set, so hiding records shrinks the page count.
func (e *Editor) Total() int {
	if e.mode == ModeGuest {
		return len(e.guest.Visible())
	}
	return e.total
}

// Page returns the current 1-based page number.
func (e *Editor) Page() int { return e.page }

// PageCount returns the number of pages; at least 1 even when empty, so
// views always have a valid current page.
func (e *Editor) PageCount() int {
	n := (e.Total() + e.pageSize - 1) / e.pageSize
	if n < 1 {
		n = 1
	}
	return n
}

// SetPage moves to the given page, clamped into [1, PageCount].
func (e *Editor) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	if max := e.PageCount(); page > max {
		page = max
	}
	e.page = page
	if e.mode == ModeServer && e.file != nil {
		return e.fetchPage(ctx)
	}
	return nil
}

// Records returns the current page of records.
func (e *Editor) Records() []qa.Record {
	if e.mode == ModeGuest {
		visible := e.guest.Visible()
		start := (e.page - 1) * e.pageSize
		if start >= len(visible) {
			return nil
		}
		end := start + e.pageSize
		if end > len(visible) {
			end = len(visible)
		}
		return visible[start:end]
	}
	if e.showAll || len(e.hidden) == 0 {
		return e.records
	}
	out := make([]qa.Record, 0, len(e.records))
	for _, r := range e.records {
		if !e.hidden[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// MarkCorrect toggles the correct mark on a record, hiding it from the
// working view or revealing it again. Returns whether the record is now
// hidden.
func (e *Editor) MarkCorrect(id string) (bool, error) {
	if e.mode == ModeGuest {
		nowHidden := e.guest.MarkCorrect(id)
		// Hiding shrinks the visible set; don't strand the view on a
		// page past the end.
		if e.page > e.PageCount() {
			e.page = e.PageCount()
		}
		return nowHidden, nil
	}
	if e.file == nil {
		return false, ErrNoFile
	}
	if e.hiddenStore != nil {
		nowHidden, err := e.hiddenStore.ToggleHidden(e.userID, e.file.ID, id)
		if err != nil {
			return false, err
		}
		if nowHidden {
			e.hidden[id] = true
		} else {
			delete(e.hidden, id)
		}
		return nowHidden, nil
	}
	if e.hidden[id] {
		delete(e.hidden, id)
		return false, nil
	}
	e.hidden[id] = true
	return true, nil
}

// IsHidden reports whether a record is marked correct and hidden.
func (e *Editor) IsHidden(id string) bool {
	if e.mode == ModeGuest {
		return e.guest.IsHidden(id)
	}
	return e.hidden[id]
}

// ShowAll reports whether hidden records are displayed anyway.
func (e *Editor) ShowAll() bool {
	if e.mode == ModeGuest {
		return e.guest.ShowAll()
	}
	return e.showAll
}

// ToggleShowAll flips between hiding marked records and showing
// everything. Presentation only; marks are kept either way.
func (e *Editor) ToggleShowAll() {
	if e.mode == ModeGuest {
		e.guest.ToggleShowAll()
	} else {
		e.showAll = !e.showAll
	}
	if e.page > e.PageCount() {
		e.page = e.PageCount()
	}
}

// SetSearch applies a server-side text filter and resets to the first page.
// Guest mode has no search.
func (e *Editor) SetSearch(ctx context.Context, term string) error {
	if e.mode != ModeServer {
		return nil
	}
	e.search = term
	e.page = 1
	if e.file == nil {
		return nil
	}
	return e.fetchPage(ctx)
}

// Edit applies a prompt/completion change to one record.
func (e *Editor) Edit(ctx context.Context, id, prompt, completion string) error {
	if e.mode == ModeGuest {
		e.guest.UpdateRecord(id, prompt, completion)
		return nil
	}
	if e.file == nil {
		return ErrNoFile
	}
	rec, err := e.client.UpdateQAPair(ctx, e.file.ID, id, api.RecordPatch{
		Prompt:     &prompt,
		Completion: &completion,
	})
	if err != nil {
		return err
	}
	for i := range e.records {
		if e.records[i].ID == id {
			e.records[i] = *rec
			break
		}
	}
	return nil
}

// Delete removes a record. Guest mode deletes it outright; server mode
// soft-deletes, keeping the row recoverable server-side but out of exports.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if e.mode == ModeGuest {
		e.guest.DeleteRecord(id)
		if e.page > e.PageCount() {
			e.page = e.PageCount()
		}
		return nil
	}
	if e.file == nil {
		return ErrNoFile
	}
	if err := e.client.DeleteQAPair(ctx, e.file.ID, id); err != nil {
		return err
	}
	return e.fetchPage(ctx)
}

// Export produces the edited file in "jsonl" or "excel" format. Guest mode
// builds the blob in memory from all non-deleted records, hidden ones
// included; server mode downloads it.
func (e *Editor) Export(ctx context.Context, format string) (*api.Blob, error) {
	if e.mode == ModeGuest {
		if e.filename == "" {
			return nil, ErrNoFile
		}
		buf := &bytes.Buffer{}
		var err error
		contentType := "application/octet-stream"
		switch format {
		case "excel", "xlsx":
			err = qa.WriteXLSX(buf, e.guest.Records())
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			err = qa.WriteJSONL(buf, e.guest.Records())
		}
		if err != nil {
			return nil, err
		}
		return &api.Blob{
			Filename:    qa.ExportFilename(e.filename, format),
			ContentType: contentType,
			Data:        buf.Bytes(),
		}, nil
	}
	if e.file == nil {
		return nil, ErrNoFile
	}
	return e.client.ExportFile(ctx, e.file.ID, format, -1, -1)
}

func (e *Editor) fetchPage(ctx context.Context) error {
	res, err := e.client.FileQAPairs(ctx, e.file.ID, e.page, e.pageSize, e.search)
	if err != nil {
		return err
	}
	e.records = res.QAPairs
	e.total = res.Pagination.Total
	// The server may report fewer pages than we assumed (concurrent
	// deletes); re-clamp rather than show an empty page.
	if e.page > e.PageCount() {
		e.page = e.PageCount()
		return e.fetchPage(ctx)
	}
	return nil
}
