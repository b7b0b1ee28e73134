package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/carepath/pkg/autologin"
	"github.com/aretw0/carepath/pkg/crm"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// GetCRMResource handles GET /crm/{resource}.
func (s *Server) GetCRMResource(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	path, ok := s.resources[resource]
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown crm resource %q", resource), nil)
		return
	}

	data, err := s.CRM.Get(r.Context(), path)
	if err != nil {
		var authErr *crm.AuthError
		var apiErr *crm.APIError
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, crm.ErrMissingCredentials):
		case errors.As(err, &authErr), errors.As(err, &apiErr):
			status = http.StatusBadGateway
		}
		s.logger.Error("crm request failed", "resource", resource, "status", status, "err", err)
		s.writeError(w, status, err, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("crm response write failed", "err", err)
	}
}

// AutoLoginRequest is the body of POST /auth/auto-login.
type AutoLoginRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// AutoLoginResponse carries the issued token.
type AutoLoginResponse struct {
	Token string `json:"token"`
}

// IssueAutoLogin handles POST /auth/auto-login.
func (s *Server) IssueAutoLogin(w http.ResponseWriter, r *http.Request) {
	var body AutoLoginRequest
	if !s.decode(w, r, &body) {
		return
	}
	token, err := s.AutoLogin.Issue(r.Context(), body.Payload)
	if err != nil {
		if errors.Is(err, autologin.ErrEmptyPayload) {
			s.writeError(w, http.StatusBadRequest, err, nil)
			return
		}
		s.logger.Error("autologin issue failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, AutoLoginResponse{Token: token})
}

// RedeemAutoLogin handles POST /auth/auto-login/{token}.
func (s *Server) RedeemAutoLogin(w http.ResponseWriter, r *http.Request) {
	payload, err := s.AutoLogin.Redeem(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			s.writeError(w, http.StatusNotFound, err, nil)
			return
		}
		s.logger.Error("autologin redeem failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.logger.Error("autologin response write failed", "err", err)
	}
}
