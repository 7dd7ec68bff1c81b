package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpggio/crmdesk/internal/repository"
)

// Header names sent with every call.
const (
	HeaderProjectID = "X-Project-Id"
	HeaderRequestID = "X-Request-Id"
)

// DefaultTimeout bounds a single call when no HTTP client is supplied.
const DefaultTimeout = 15 * time.Second

// StatusError reports a non-2xx reply. It matches repository.ErrTransport.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Unwrap() error { return repository.ErrTransport }

// Client talks to the record service over HTTP.
type Client struct {
	baseURL   string
	projectID string
	publicKey string
	http      *http.Client
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a record service client.
func NewClient(baseURL, projectID, publicKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		publicKey: publicKey,
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecords reads the records of table matching params.
func (c *Client) FetchRecords(ctx context.Context, table string, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, tablePath(table, "query"), params)
}

// GetRecordByID reads a single record.
func (c *Client) GetRecordByID(ctx context.Context, table string, id int64, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, tablePath(table, "get", strconv.FormatInt(id, 10)), params)
}

// CreateRecord creates a batch of records.
func (c *Client) CreateRecord(ctx context.Context, table string, records []RawRecord) (*Response, error) {
	return c.do(ctx, http.MethodPost, tablePath(table), WriteRequest{Records: records})
}

// UpdateRecord updates a batch of records. Each record carries its Id.
func (c *Client) UpdateRecord(ctx context.Context, table string, records []RawRecord) (*Response, error) {
	return c.do(ctx, http.MethodPut, tablePath(table), WriteRequest{Records: records})
}

// DeleteRecord deletes a batch of records by Id.
func (c *Client) DeleteRecord(ctx context.Context, table string, ids []int64) (*Response, error) {
	return c.do(ctx, http.MethodDelete, tablePath(table), DeleteRequest{RecordIDs: ids})
}

func tablePath(table string, parts ...string) string {
	segs := append([]string{"api", "records", url.PathEscape(table)}, parts...)
	return "/" + strings.Join(segs, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", repository.ErrTransport, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.publicKey)
	req.Header.Set(HeaderProjectID, c.projectID)
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("record service call failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", repository.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("record service call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out Response
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding %s %s: %w", repository.ErrTransport, method, path, err)
	}
	return &out, nil
}

// maxErrorMessage bounds the body text quoted in an error, in bytes.
const maxErrorMessage = 200

// errorMessage extracts the message of an error body, falling back to the
// first bytes of the body as text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Message != "" {
		return env.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
