package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/repository"
	"github.com/Clark-Hu/truereview/internal/validation"
)

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// LoginService checks submitted credentials against the user store.
type LoginService struct {
	users  repository.UserStore
	hasher Hasher
	logger zerolog.Logger
}

func NewLoginService(users repository.UserStore, hasher Hasher, logger zerolog.Logger) *LoginService {
	return &LoginService{users: users, hasher: hasher, logger: logger.With().Str("component", "auth").Logger()}
}

// Login returns the id of the user owning email when password matches. Any
// mismatch, including an unknown email, is reported as Unauthenticated.
func (s *LoginService) Login(ctx context.Context, in LoginInput) (int64, error) {
	in.Email = strings.TrimSpace(in.Email)
	// Malformed input gets the same answer as a wrong password.
	if err := validation.Struct(in); err != nil {
		metrics.RecordLogin("failure")
		return 0, apperror.Unauthenticated("Invalid email or password")
	}

	creds, err := s.users.CredentialsByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLogin("failure")
			return 0, apperror.Unauthenticated("Invalid email or password")
		}
		metrics.RecordLogin("error")
		s.logger.Error().Err(err).Msg("credential lookup failed")
		return 0, apperror.Store("Failed to sign in", err)
	}

	if !s.hasher.Verify(creds.PasswordHash, in.Password) {
		metrics.RecordLogin("failure")
		s.logger.Info().Int64("user_id", creds.UserID).Msg("password mismatch")
		return 0, apperror.Unauthenticated("Invalid email or password")
	}

	metrics.RecordLogin("success")
	return creds.UserID, nil
}
