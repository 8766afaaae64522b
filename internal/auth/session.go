// Package auth verifies credentials and carries the signed-in user between
// requests in an HS256 session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie set on successful login.
const CookieName = "truereview_session"

const issuer = "truereview"

// ErrNoSession is returned when the request carries no valid session.
var ErrNoSession = errors.New("auth: no valid session")

type contextKey string

const userIDKey contextKey = "userID"

// Claims is the session token payload.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// SessionOptions configures Sessions.
type SessionOptions struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
	Now    func() time.Time
}

// Sessions issues and verifies session cookies.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(opts SessionOptions) *Sessions {
	s := &Sessions{secret: opts.Secret, ttl: opts.TTL, secure: opts.Secure, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s
}

// Token signs a session token for userID.
func (s *Sessions) Token(userID int64) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a session token and returns the user it names.
func (s *Sessions) Parse(token string) (int64, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return 0, ErrNoSession
	}
	return claims.UserID, nil
}

// Issue sets the session cookie for userID on w.
func (s *Sessions) Issue(w http.ResponseWriter, userID int64) error {
	token, expires, err := s.Token(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID reads and validates the session cookie of r.
func (s *Sessions) UserID(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return 0, ErrNoSession
	}
	return s.Parse(cookie.Value)
}

// Require admits requests with a valid session, storing the user id in the
// request context. Other requests are handed to deny.
func (s *Sessions) Require(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := s.UserID(r)
			if err != nil {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the user id stored by Require.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
