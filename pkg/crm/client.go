package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/carepath/internal/logging"
)

// PortalHeader marks downstream requests as coming from the patient portal.
const PortalHeader = "is-patient-portal"

// ErrMissingCredentials is returned when host, username or password is not configured.
var ErrMissingCredentials = errors.New("crm credentials not configured")

// Credentials locate and authenticate against a CRM host.
// Password may be stored base64-encoded.
type Credentials struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Validate reports ErrMissingCredentials when a field is empty.
func (c Credentials) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// APIError is a non-2xx response to a data call.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm %s %s: status %d", e.Method, e.Path, e.Status)
}

// Client performs authenticated data calls. Every call authenticates first;
// tokens are never reused across calls.
type Client struct {
	creds   Credentials
	gateway *Gateway
	http    Doer
	logger  *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithGateway sets the authentication gateway.
func WithGateway(g *Gateway) ClientOption {
	return func(c *Client) {
		c.gateway = g
	}
}

// WithDataClient sets the HTTP client used for data calls.
func WithDataClient(d Doer) ClientOption {
	return func(c *Client) {
		c.http = d
	}
}

// WithClientLogger configures the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client. Credentials are checked on every call, not here,
// so a server can start without CRM access.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		creds:  creds,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gateway == nil {
		c.gateway = NewGateway(WithLogger(c.logger))
	}
	return c
}

// Authenticate resolves the credentials and obtains a fresh session.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, err
	}
	return c.gateway.Authenticate(ctx, c.creds.Host, c.creds.Username, NormalizePassword(c.creds.Password))
}

// Do authenticates and sends a JSON request to path. A nil body sends no payload.
// The raw response body is returned for 2xx responses.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode crm request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(c.creds.Host, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build crm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(PortalHeader, "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read crm response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("crm call failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}
	return json.RawMessage(raw), nil
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}
