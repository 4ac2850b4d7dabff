package musicgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("musicgen: API key is missing")

// UpstreamError is a structured non-2xx response from the provider.
type UpstreamError struct {
	HTTPStatus int
	Code       string
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("musicgen: upstream error %d: %s", e.HTTPStatus, e.Detail)
	}
	return fmt.Sprintf("musicgen: upstream error %d", e.HTTPStatus)
}

// DecodeError indicates the provider returned a body this client could not
// interpret against its schema.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("musicgen: malformed upstream response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the generation provider over its REST surface. All
// responses are decoded into the strict types of this package; callers never
// see raw upstream JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.musicapi.dev/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	model := opts.Model
	if model == "" {
		model = "music-1.5"
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
	}
}

// Configured reports whether the client holds credentials for the provider.
func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

// Model returns the model identifier sent with submissions.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

type submitResponse struct {
	ID string `json:"id"`
}

type upstreamErrorBody struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// SubmitTask starts a generation task on the given route and returns the
// upstream task id.
func (c *Client) SubmitTask(ctx context.Context, route string, req SubmitRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.N <= 0 {
		req.N = 1
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+route, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeUpstreamError(resp.StatusCode, raw)
	}
	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &DecodeError{Raw: string(raw), Err: err}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &DecodeError{Raw: string(raw), Err: errors.New("missing task id")}
	}
	return out.ID, nil
}

type taskStatusBody struct {
	Status       string   `json:"status"`
	FailedReason string   `json:"failed_reason"`
	Progress     *int     `json:"progress"`
	FileID       string   `json:"file_id"`
	Choices      []Choice `json:"choices"`
}

// QueryTask fetches the current status of an in-flight task.
func (c *Client) QueryTask(ctx context.Context, route, taskID string) (TaskStatus, error) {
	if !c.Configured() {
		return TaskStatus{}, ErrNotConfigured
	}
	url := fmt.Sprintf("%s/%s/query/%s", c.baseURL, route, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TaskStatus{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TaskStatus{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TaskStatus{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return TaskStatus{}, decodeUpstreamError(resp.StatusCode, raw)
	}
	var body taskStatusBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return TaskStatus{}, &DecodeError{Raw: string(raw), Err: err}
	}
	if strings.TrimSpace(body.Status) == "" {
		return TaskStatus{}, &DecodeError{Raw: string(raw), Err: errors.New("missing status")}
	}
	return TaskStatus{
		Status:       strings.ToLower(strings.TrimSpace(body.Status)),
		FailedReason: body.FailedReason,
		Progress:     body.Progress,
		FileID:       body.FileID,
		Choices:      body.Choices,
	}, nil
}

type uploadResponse struct {
	ID string `json:"id"`
}

// UploadFile pushes source audio to the provider and returns its file id.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte, purpose string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.WriteField("purpose", purpose); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeUpstreamError(resp.StatusCode, raw)
	}
	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &DecodeError{Raw: string(raw), Err: err}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &DecodeError{Raw: string(raw), Err: errors.New("missing file id")}
	}
	return out.ID, nil
}

func decodeUpstreamError(status int, raw []byte) error {
	var body upstreamErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || (body.Error == "" && body.Details == "") {
		return &UpstreamError{HTTPStatus: status, Detail: strings.TrimSpace(string(raw))}
	}
	detail := body.Details
	if detail == "" {
		detail = body.Error
	}
	return &UpstreamError{HTTPStatus: status, Code: body.Error, Detail: detail}
}
