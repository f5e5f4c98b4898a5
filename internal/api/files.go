package api

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"qaproof/internal/qa"
)

// QAPairsPage is one page of records from a file or task.
type QAPairsPage struct {
	QAPairs    []qa.Record `json:"qa_pairs"`
	Pagination Pagination  `json:"pagination"`
}

// RecordPatch carries the editable fields of a record. Nil fields are left
// unchanged by the server.
type RecordPatch struct {
	Prompt     *string `json:"prompt,omitempty"`
	Completion *string `json:"completion,omitempty"`
}

// UploadFile sends a JSONL file for server-side parsing and returns the
// created file session.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*qa.FileSession, error) {
	body, err := newMultipart("file", filename, content, nil)
	if err != nil {
		return nil, err
	}
	var fs qa.FileSession
	if err := c.decode(ctx, "POST", "/files/upload", body, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

// File fetches a file session's metadata.
func (c *Client) File(ctx context.Context, fileID string) (*qa.FileSession, error) {
	var fs qa.FileSession
	if err := c.decode(ctx, "GET", "/files/"+fileID, nil, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

// FileQAPairs returns one page of a file's records. search filters
// server-side on prompt and completion text; empty means no filter.
func (c *Client) FileQAPairs(ctx context.Context, fileID string, page, perPage int, search string) (*QAPairsPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(perPage))
	if search != "" {
		q.Set("search", search)
	}
	var res QAPairsPage
	endpoint := "/files/" + fileID + "/qa-pairs?" + q.Encode()
	if err := c.decode(ctx, "GET", endpoint, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateQAPair edits one record of a file and returns the stored result.
func (c *Client) UpdateQAPair(ctx context.Context, fileID, recordID string, patch RecordPatch) (*qa.Record, error) {
	var rec qa.Record
	endpoint := "/files/" + fileID + "/qa-pairs/" + recordID
	if err := c.decode(ctx, "PUT", endpoint, patch, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteQAPair soft-deletes one record of a file.
func (c *Client) DeleteQAPair(ctx context.Context, fileID, recordID string) error {
	return c.decode(ctx, "DELETE", "/files/"+fileID+"/qa-pairs/"+recordID, nil, nil)
}

// ExportFile downloads the edited file in the requested format ("jsonl" or
// "excel"). start/end bound the exported index range; pass -1 to leave a
// bound open.
func (c *Client) ExportFile(ctx context.Context, fileID, format string, start, end int) (*Blob, error) {
	q := url.Values{}
	q.Set("format", format)
	if start >= 0 {
		q.Set("start_index", fmt.Sprint(start))
	}
	if end >= 0 {
		q.Set("end_index", fmt.Sprint(end))
	}
	return c.download(ctx, "GET", "/files/"+fileID+"/export?"+q.Encode(), nil)
}

// DeleteFile removes a file session and its records.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.decode(ctx, "DELETE", "/files/"+fileID, nil, nil)
}
