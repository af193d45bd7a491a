// Package client is the transport to the remote automation service's REST
// API. Every failure is normalized to *RemoteRequestError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// Endpoint paths relative to the base URL.
const (
	PathStatus = "/status"
	PathConfig = "/config"
	PathRun    = "/run"
	PathLogs   = "/logs"
	PathUpload = "/upload"
)

// UploadField is the multipart form field carrying the uploaded file.
const UploadField = "file"

// Ack is the acknowledgement body of POST /config and POST /run.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UploadAck is the acknowledgement body of POST /upload.
type UploadAck struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}

// Client calls the remote service. It is safe for concurrent use. Calls
// are issued exactly once: no retries and no client-imposed timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logLines   int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. nil keeps http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogLines asks GET /logs for the last n lines. n <= 0 leaves the
// engine default.
func WithLogLines(n int) Option {
	return func(c *Client) {
		c.logLines = n
	}
}

// New returns a client for the given base URL (e.g. "http://localhost:8000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status reads the engine run state.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var out models.Status
	if err := c.doJSON(ctx, "read status", http.MethodGet, PathStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config reads the remote configuration.
func (c *Client) Config(ctx context.Context) (*models.Config, error) {
	var out models.Config
	if err := c.doJSON(ctx, "read config", http.MethodGet, PathConfig, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConfig replaces the remote configuration with cfg.
func (c *Client) UpdateConfig(ctx context.Context, cfg *models.Config) (*Ack, error) {
	var out Ack
	if err := c.doJSON(ctx, "write config", http.MethodPost, PathConfig, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Run triggers an on-demand run.
func (c *Client) Run(ctx context.Context) (*Ack, error) {
	var out Ack
	if err := c.doJSON(ctx, "trigger run", http.MethodPost, PathRun, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs reads the remote execution log, oldest line first.
func (c *Client) Logs(ctx context.Context) ([]models.LogEntry, error) {
	path := PathLogs
	if c.logLines > 0 {
		path += "?lines=" + strconv.Itoa(c.logLines)
	}
	var out logsResponse
	if err := c.doJSON(ctx, "read logs", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return models.LogEntries(out.Logs), nil
}

// Upload sends r as a multipart file named name into the monitored folder.
// On failure the error message is the response's detail field when present.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*UploadAck, error) {
	const op = "upload file"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, name)
	if err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, fmt.Errorf("failed to read %s: %w", name, err))
	}
	if err := mw.Close(); err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathUpload, &body)
	if err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		var errBody struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Detail
		if msg == "" {
			msg = DefaultUploadError
		}
		return nil, &RemoteRequestError{
			Op:         op,
			Method:     http.MethodPost,
			Path:       PathUpload,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	var out UploadAck
	if err := decodeBody(resp.Body, &out); err != nil {
		return nil, c.requestError(op, http.MethodPost, PathUpload, err)
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return c.requestError(op, method, path, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return c.requestError(op, method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError(op, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		// The error body is not inspected outside of upload.
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RemoteRequestError{
			Op:         op,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
		}
	}

	if err := decodeBody(resp.Body, out); err != nil {
		return c.requestError(op, method, path, err)
	}
	return nil
}

func (c *Client) requestError(op, method, path string, err error) *RemoteRequestError {
	return &RemoteRequestError{
		Op:      op,
		Method:  method,
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// decodeBody decodes a JSON body into out. An empty body leaves out at its
// zero value.
func decodeBody(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
