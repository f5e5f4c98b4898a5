// Package api implements the typed REST client for the proofreading
// platform's /api/v1 surface. Every call takes a context so navigation away
// from a view cancels its in-flight requests instead of letting stale
// responses land later.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"qaproof/internal/logging"
)

// Error is an API-level business error extracted from the response
// envelope. The message is shown to the user verbatim.
type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}

// envelope is the response convention shared by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Pagination describes one page of a server-side record listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Blob is a binary download (export endpoints).
type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client talks to one API base URL with an optional bearer token.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient constructs a Client for the given base URL, e.g.
// "http://localhost:5001/api/v1".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs or clears ("" value) the bearer token for subsequent
// requests. Persistence lives with the caller; the client only holds the
// in-memory copy.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// multipartBody marks a prepared multipart payload. do leaves its content
// type alone so the multipart boundary survives.
type multipartBody struct {
	contentType string
	buf         *bytes.Buffer
}

// newMultipart builds a multipart body with one file field plus optional
// plain fields.
func newMultipart(fieldName, filename string, file io.Reader, fields map[string]string) (*multipartBody, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(fieldName, filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, fmt.Errorf("copy file content: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}
	return &multipartBody{contentType: w.FormDataContentType(), buf: buf}, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader = b.buf
		contentType = b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do performs a JSON request and returns the envelope data payload.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	logging.APIDebug("%s %s", method, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("%s %s: %v", method, endpoint, err)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &Error{Code: fmt.Sprint(resp.StatusCode), Message: ""}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		if env.Error != nil {
			logging.APIError("%s %s: %s", method, endpoint, env.Error.Message)
			return nil, env.Error
		}
		return nil, &Error{Code: fmt.Sprint(resp.StatusCode)}
	}
	return env.Data, nil
}

// decode runs do and unmarshals the data payload into out. A nil out
// discards the payload.
func (c *Client) decode(ctx context.Context, method, endpoint string, body, out interface{}) error {
	data, err := c.do(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", endpoint, err)
	}
	return nil
}

// download performs a request expected to yield an attachment. The response
// is treated as binary when Content-Disposition says attachment; otherwise
// it is decoded as an error envelope.
func (c *Client) download(ctx context.Context, method, endpoint string, body interface{}) (*Blob, error) {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	logging.APIDebug("%s %s (download)", method, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	disposition := resp.Header.Get("Content-Disposition")
	if resp.StatusCode >= 300 || !strings.HasPrefix(disposition, "attachment") {
		raw, _ := io.ReadAll(resp.Body)
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Error != nil {
			return nil, env.Error
		}
		return nil, &Error{Code: fmt.Sprint(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		filename = params["filename"]
	}
	return &Blob{
		Filename:    filename,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
