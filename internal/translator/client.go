// Package translator is the HTTP client for the translation service backend:
// the upload transport, the document-list query and the prompt list query.
package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/logger"
)

// SubscriptionKeyHeader authenticates every request to the API gateway.
const SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// Backend routes, relative to the base URL.
const (
	pathLogsByDate = "/get_logs_by_date"
	pathAllLogs    = "/get_all_logs"
	pathUpload     = "/upload_file"
	pathPrompts    = "/get_all_prompts"
)

// ErrStatus matches every *StatusError via errors.Is.
var ErrStatus = errors.New("translator: unexpected status")

// StatusError is a non-2xx answer from the backend.
// Message is the response body, which the backend fills with a plain-text reason.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "request failed with status code " + strconv.Itoa(e.StatusCode)
	}
	return e.Message
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the translation service.
type Client struct {
	client *resty.Client
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(timeout)
	if cfg.APIKey != "" {
		client.SetHeader(SubscriptionKeyHeader, cfg.APIKey)
	}

	return &Client{client: client}
}

// ListByDate returns the documents uploaded on day (YYYY-MM-DD).
func (c *Client) ListByDate(ctx context.Context, day string) ([]domain.Document, error) {
	var docs []domain.Document
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("date", day).
		SetResult(&docs).
		Get(pathLogsByDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents for %s: %w", day, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch documents for %s: %w", day, err)
	}
	return nonNil(docs), nil
}

// ListAll returns every document the backend knows about.
func (c *Client) ListAll(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&docs).
		Get(pathAllLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all documents: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch all documents: %w", err)
	}
	return nonNil(docs), nil
}

// Prompts returns the prompt list in backend order with prompt text normalized.
func (c *Client) Prompts(ctx context.Context) ([]domain.Prompt, error) {
	var prompts []domain.Prompt
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&prompts).
		Get(pathPrompts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prompts: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch prompts: %w", err)
	}

	out := make([]domain.Prompt, len(prompts))
	for i, p := range prompts {
		p.PromptText = domain.NormalizePromptText(p.PromptText)
		out[i] = p
	}
	return out, nil
}

// Upload submits one file to the pipeline. The body is the backend's acknowledgement text.
func (c *Client) Upload(ctx context.Context, req domain.UploadRequest) (string, error) {
	form := map[string]string{
		"prompt_id": strconv.FormatInt(req.PromptID, 10),
		"fromLang":  req.FromLang,
		"toLang":    req.ToLang,
	}
	if req.ExclusionText != nil {
		form["exclusion_text"] = *req.ExclusionText
	}

	start := time.Now()
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetMultipartField("file", req.FileName, contentType, req.Body).
		Post(pathUpload)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", req.FileName, err)
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	logger.With(logger.Fields{
		logger.FieldStatus: resp.StatusCode(),
	}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Upload accepted for %s", req.FileName)
	return strings.TrimSpace(resp.String()), nil
}

func checkStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}
	return &StatusError{StatusCode: code, Message: strings.TrimSpace(resp.String())}
}

func nonNil(docs []domain.Document) []domain.Document {
	if docs == nil {
		return []domain.Document{}
	}
	return docs
}
