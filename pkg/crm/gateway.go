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

// DefaultEndpoints are the login paths tried, in order.
var DefaultEndpoints = []string{
	"/api/crm-user/login",
	"/api/login",
	"/api/auth/login",
	"/api/user/login",
	"/auth/login",
	"/login",
}

// DefaultTimeout bounds each login attempt.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a login response is read.
const maxBody = 1 << 20

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session is a bearer token and the login endpoint that issued it.
// It is valid for one downstream call chain and is never cached.
type Session struct {
	Token        string `json:"token"`
	EndpointUsed string `json:"endpointUsed"`
}

// Outcome classifies a single login attempt.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeRejected     Outcome = "rejected"
	OutcomeMissingToken Outcome = "missing_token"
	OutcomeNetworkError Outcome = "network_error"
)

// Attempt describes one probed endpoint.
type Attempt struct {
	Endpoint string
	Status   int
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// AuthError reports a failed authentication.
// Endpoint and Status are set when an endpoint answered authoritatively.
type AuthError struct {
	Endpoint       string
	Status         int
	Reason         string
	TriedEndpoints []string
	Err            error
}

func (e *AuthError) Error() string {
	if e.Endpoint != "" {
		if e.Status != 0 {
			return fmt.Sprintf("crm auth failed at %s (status %d): %s", e.Endpoint, e.Status, e.Reason)
		}
		return fmt.Sprintf("crm auth failed at %s: %s", e.Endpoint, e.Reason)
	}
	return fmt.Sprintf("crm auth failed: %s (tried %s)", e.Reason, strings.Join(e.TriedEndpoints, ", "))
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Gateway discovers the working login endpoint of a CRM host and returns a token.
type Gateway struct {
	client    Doer
	endpoints []string
	logger    *slog.Logger
	onAttempt func(context.Context, Attempt)
}

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient sets the HTTP client used for login attempts.
func WithHTTPClient(client Doer) GatewayOption {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithEndpoints overrides the candidate login paths.
func WithEndpoints(endpoints ...string) GatewayOption {
	return func(g *Gateway) {
		g.endpoints = endpoints
	}
}

// WithLogger configures the gateway logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithAttemptHook registers a callback invoked after each probed endpoint.
func WithAttemptHook(fn func(context.Context, Attempt)) GatewayOption {
	return func(g *Gateway) {
		g.onAttempt = fn
	}
}

// NewGateway creates a gateway with the default candidates and a timed HTTP client.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:    &http.Client{Timeout: DefaultTimeout},
		endpoints: DefaultEndpoints,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse accepts {"token": ...} and {"data": {"token": ...}}. Fields of any other
// shape are ignored rather than failing the whole body.
type loginResponse struct {
	Token json.RawMessage `json:"token"`
	Data  json.RawMessage `json:"data"`
}

func (r *loginResponse) token() string {
	var data struct {
		Token json.RawMessage `json:"token"`
	}
	if len(r.Data) > 0 && json.Unmarshal(r.Data, &data) == nil {
		if tok := tokenValue(data.Token); tok != "" {
			return tok
		}
	}
	return tokenValue(r.Token)
}

// tokenValue reads a string or numeric token.
func tokenValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Authenticate tries the candidate endpoints sequentially and returns the first usable token.
// Failures are *AuthError; a cancelled context stops probing and is returned wrapped.
func (g *Gateway) Authenticate(ctx context.Context, host, username, password string) (*Session, error) {
	body, err := json.Marshal(loginRequest{Email: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}
	host = strings.TrimRight(host, "/")

	tried := make([]string, 0, len(g.endpoints))
	for _, endpoint := range g.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, &AuthError{Reason: "cancelled", TriedEndpoints: tried, Err: err}
		}
		tried = append(tried, endpoint)

		attempt := g.try(ctx, host+endpoint, body)
		attempt.Endpoint = endpoint
		g.report(ctx, attempt)

		switch attempt.Outcome {
		case OutcomeNotFound, OutcomeNetworkError:
			if ctx.Err() != nil {
				return nil, &AuthError{Reason: "cancelled", TriedEndpoints: tried, Err: ctx.Err()}
			}
			continue
		case OutcomeSuccess:
			return &Session{Token: attempt.token, EndpointUsed: endpoint}, nil
		case OutcomeMissingToken:
			return nil, &AuthError{
				Endpoint:       endpoint,
				Status:         attempt.Status,
				Reason:         "response missing token",
				TriedEndpoints: tried,
				Err:            attempt.Err,
			}
		default:
			return nil, &AuthError{
				Endpoint:       endpoint,
				Status:         attempt.Status,
				Reason:         http.StatusText(attempt.Status),
				TriedEndpoints: tried,
			}
		}
	}

	return nil, &AuthError{Reason: "no login endpoint accepted the request", TriedEndpoints: tried}
}

type attemptResult struct {
	Attempt
	token string
}

func (g *Gateway) try(ctx context.Context, url string, body []byte) (res attemptResult) {
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		res.Outcome, res.Err = OutcomeNetworkError, err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		res.Outcome, res.Err = OutcomeNetworkError, err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusNotFound:
		res.Outcome = OutcomeNotFound
		return res
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		res.Outcome = OutcomeRejected
		return res
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		res.Outcome, res.Err = OutcomeMissingToken, err
		return res
	}
	var parsed loginResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		res.Outcome, res.Err = OutcomeMissingToken, fmt.Errorf("invalid login response: %w", err)
		return res
	}
	if res.token = parsed.token(); res.token == "" {
		res.Outcome, res.Err = OutcomeMissingToken, errMissingToken
		return res
	}
	res.Outcome = OutcomeSuccess
	return res
}

var errMissingToken = errors.New("no token in data.token or token")

func (g *Gateway) report(ctx context.Context, a attemptResult) {
	level := slog.LevelDebug
	if a.Outcome == OutcomeRejected || a.Outcome == OutcomeMissingToken {
		level = slog.LevelWarn
	}
	g.logger.Log(ctx, level, "crm login attempt",
		"endpoint", a.Endpoint,
		"status", a.Status,
		"outcome", a.Outcome,
		"err", a.Err)

	if g.onAttempt != nil {
		g.onAttempt(ctx, a.Attempt)
	}
}
