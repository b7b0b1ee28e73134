package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/carepath/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// FlowView is the client representation of a flow.
// CurrentStep and Step are null while the main view is shown.
type FlowView struct {
	SubscriptionID string             `json:"subscriptionId"`
	CurrentStep    *string            `json:"currentStep"`
	StepIndex      int                `json:"stepIndex"`
	Step           *domain.StepConfig `json:"step"`
	Progress       int                `json:"progress"`
	MaxReachedStep int                `json:"maxReachedStep"`
	Answers        domain.Answers     `json:"answers"`
}

// NewFlowView renders state against graph.
func NewFlowView(graph *domain.Graph, state *domain.FlowState) *FlowView {
	if state == nil {
		return nil
	}
	view := &FlowView{
		SubscriptionID: state.SubscriptionID,
		StepIndex:      state.StepIndex,
		Progress:       state.Progress,
		MaxReachedStep: state.MaxReachedStep,
		Answers:        state.Answers,
	}
	if view.Answers == nil {
		view.Answers = domain.Answers{}
	}
	if step, ok := graph.StepAt(state.StepIndex); ok {
		id := step.ID
		view.CurrentStep = &id
		view.Step = step
	}
	return view
}

// AdvanceRequest is the body of POST .../advance.
type AdvanceRequest struct {
	Transition string `json:"transition"`
	Answer     any    `json:"answer"`
}

// JumpRequest is the body of POST .../jump. An empty step returns to the main view.
type JumpRequest struct {
	Step string `json:"step"`
}

// CompleteRequest is the body of POST .../complete.
type CompleteRequest struct {
	Answer any `json:"answer"`
}

// InitializeFlow handles GET and POST /subscriptions/{id}/flow.
func (s *Server) InitializeFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Engine.Initialize(r.Context(), id)
	s.respondFlow(w, r, id, state, err)
}

// AdvanceFlow handles POST /subscriptions/{id}/flow/advance.
func (s *Server) AdvanceFlow(w http.ResponseWriter, r *http.Request) {
	var body AdvanceRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	state, err := s.Engine.Advance(r.Context(), id, body.Transition, body.Answer)
	s.respondFlow(w, r, id, state, err)
}

// RetreatFlow handles POST /subscriptions/{id}/flow/retreat.
func (s *Server) RetreatFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Engine.Retreat(r.Context(), id)
	s.respondFlow(w, r, id, state, err)
}

// JumpFlow handles POST /subscriptions/{id}/flow/jump.
func (s *Server) JumpFlow(w http.ResponseWriter, r *http.Request) {
	var body JumpRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	state, err := s.Engine.JumpTo(r.Context(), id, body.Step)
	s.respondFlow(w, r, id, state, err)
}

// CompleteFlow handles POST /subscriptions/{id}/flow/complete.
func (s *Server) CompleteFlow(w http.ResponseWriter, r *http.Request) {
	var body CompleteRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	state, err := s.Engine.Complete(r.Context(), id, body.Answer)
	s.respondFlow(w, r, id, state, err)
}

// ExitFlow handles DELETE /subscriptions/{id}/flow.
func (s *Server) ExitFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Engine.Exit(r.Context(), id)
	s.respondFlow(w, r, id, state, err)
}

// ExportFlow handles GET /subscriptions/{id}/flow/export.
func (s *Server) ExportFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := s.Engine.Export(r.Context(), id)
	if err != nil {
		s.logger.Error("export failed", "subscription_id", id, "err", err)
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// decode reads a JSON body. An empty body leaves v at its zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
	s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
	return false
}

// respondFlow publishes the new state to event subscribers and writes the view.
// Navigation errors still carry the flow so the client can re-render.
func (s *Server) respondFlow(w http.ResponseWriter, r *http.Request, id string, state *domain.FlowState, err error) {
	if state != nil {
		s.Streams.Publish(state)
	}
	view := NewFlowView(s.Engine.Graph(), state)

	if err == nil {
		s.writeJSON(w, http.StatusOK, view)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("flow operation failed", "subscription_id", id, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Info("flow operation rejected", "subscription_id", id, "path", r.URL.Path, "err", err)
	}
	s.writeError(w, status, err, view)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrJumpRejected),
		errors.Is(err, domain.ErrNoActiveStep):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransitionNotFound),
		errors.Is(err, domain.ErrStepNotFound),
		errors.Is(err, domain.ErrUnknownField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
