package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// FlowEngine is the subscription flow surface served over HTTP.
// *carepath.Engine implements it.
type FlowEngine interface {
	Graph() *domain.Graph
	Initialize(ctx context.Context, subscriptionID string) (*domain.FlowState, error)
	Advance(ctx context.Context, subscriptionID, transition string, answer any) (*domain.FlowState, error)
	Retreat(ctx context.Context, subscriptionID string) (*domain.FlowState, error)
	JumpTo(ctx context.Context, subscriptionID, stepID string) (*domain.FlowState, error)
	Complete(ctx context.Context, subscriptionID string, answer any) (*domain.FlowState, error)
	Exit(ctx context.Context, subscriptionID string) (*domain.FlowState, error)
	Export(ctx context.Context, subscriptionID string) (map[string]any, error)
}

// CRMReader performs authenticated reads against the CRM. *crm.Client implements it.
type CRMReader interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
}

// TokenIssuer issues and redeems one-time login tokens. *autologin.Service implements it.
type TokenIssuer interface {
	Issue(ctx context.Context, payload json.RawMessage) (string, error)
	Redeem(ctx context.Context, token string) (json.RawMessage, error)
}

// DefaultCRMResources maps the public resource names to CRM paths.
var DefaultCRMResources = map[string]string{
	"profile":       "/api/patient/profile",
	"subscriptions": "/api/patient/subscriptions",
	"orders":        "/api/patient/orders",
	"billing":       "/api/patient/billing",
	"documents":     "/api/patient/documents",
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Engine    FlowEngine
	CRM       CRMReader
	AutoLogin TokenIssuer
	Streams   *StreamManager

	resources map[string]string
	metrics   http.Handler
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithCRM enables the /crm routes.
func WithCRM(reader CRMReader) Option {
	return func(s *Server) {
		s.CRM = reader
	}
}

// WithCRMResources replaces the resource name to CRM path table.
func WithCRMResources(resources map[string]string) Option {
	return func(s *Server) {
		s.resources = resources
	}
}

// WithAutoLogin enables the /auth/auto-login routes.
func WithAutoLogin(issuer TokenIssuer) Option {
	return func(s *Server) {
		s.AutoLogin = issuer
	}
}

// WithMetricsHandler mounts h on /metrics (typically promhttp.HandlerFor).
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for engine.
func NewServer(engine FlowEngine, opts ...Option) *Server {
	s := &Server{
		Engine:    engine,
		resources: DefaultCRMResources,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine FlowEngine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/flow/graph", s.GetGraph)

	r.Route("/subscriptions/{id}/flow", func(r chi.Router) {
		r.Get("/", s.InitializeFlow)
		r.Post("/", s.InitializeFlow)
		r.Delete("/", s.ExitFlow)
		r.Post("/advance", s.AdvanceFlow)
		r.Post("/retreat", s.RetreatFlow)
		r.Post("/jump", s.JumpFlow)
		r.Post("/complete", s.CompleteFlow)
		r.Get("/export", s.ExportFlow)
		r.Get("/events", s.SubscribeEvents)
	})

	if s.CRM != nil {
		r.Get("/crm/{resource}", s.GetCRMResource)
	}
	if s.AutoLogin != nil {
		r.Post("/auth/auto-login", s.IssueAutoLogin)
		r.Post("/auth/auto-login/{token}", s.RedeemAutoLogin)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetGraph handles the GET /flow/graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Graph())
}

type errorResponse struct {
	Error string    `json:"error"`
	Flow  *FlowView `json:"flow,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error, flow *FlowView) {
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Flow: flow})
}
