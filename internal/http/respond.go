package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/auth"
)

const maxRequestBody = 1 << 20 // 1 MiB

var errBadID = errors.New("invalid id parameter")

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondAppError maps service errors onto the JSON error contract. Causes are
// logged but never sent to the client.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Store("Internal server error", err)
	}
	if appErr.Kind == apperror.KindStore {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	s.respondError(w, appErr.StatusCode(), appErr.Kind.String(), appErr.Message)
}

func (s *Server) rejectAnonymous(w http.ResponseWriter, _ *http.Request) {
	s.respondError(w, http.StatusUnauthorized, apperror.KindUnauthenticated.String(), "Login required")
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sessionUser returns the user admitted by the session middleware.
func sessionUser(r *http.Request) int64 {
	id, _ := auth.UserIDFrom(r.Context())
	return id
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
