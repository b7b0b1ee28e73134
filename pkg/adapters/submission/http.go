// Package submission delivers flow submissions to the form-submission endpoint.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
)

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 10 * time.Second

// HTTPSubmitter POSTs submissions as flat JSON objects.
type HTTPSubmitter struct {
	url     string
	client  *http.Client
	headers http.Header
	logger  *slog.Logger
}

// Option configures the HTTPSubmitter.
type Option func(*HTTPSubmitter)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(s *HTTPSubmitter) {
		s.client = client
	}
}

// WithHeader adds a header to every submission (e.g. an API key).
func WithHeader(key, value string) Option {
	return func(s *HTTPSubmitter) {
		s.headers.Add(key, value)
	}
}

// WithLogger configures the submitter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPSubmitter) {
		s.logger = logger
	}
}

// NewHTTPSubmitter creates a submitter for url.
func NewHTTPSubmitter(url string, opts ...Option) *HTTPSubmitter {
	s := &HTTPSubmitter{
		url:     url,
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: make(http.Header),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitStep sends partial progress.
func (s *HTTPSubmitter) SubmitStep(ctx context.Context, sub *domain.Submission) error {
	return s.post(ctx, sub)
}

// SubmitForm sends the completed form.
func (s *HTTPSubmitter) SubmitForm(ctx context.Context, sub *domain.Submission) error {
	return s.post(ctx, sub)
}

func (s *HTTPSubmitter) post(ctx context.Context, sub *domain.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build submission request: %w", err)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submission rejected: status %d", resp.StatusCode)
	}

	s.logger.Debug("submission delivered",
		"subscription_id", sub.SubscriptionID,
		"completion_state", sub.CompletionState,
		"completion_percentage", sub.CompletionPercentage)
	return nil
}
