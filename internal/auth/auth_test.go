package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/logging"
	"github.com/Clark-Hu/truereview/internal/repository/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !h.Verify(hash, "hunter2") {
		t.Fatal("correct password rejected")
	}
	if h.Verify(hash, "hunter3") {
		t.Fatal("wrong password accepted")
	}
	if h.Verify("hunter2", "hunter2") {
		t.Fatal("plaintext stored value must not verify")
	}
	if _, err := h.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestSessions_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(SessionOptions{Secret: testSecret, TTL: time.Hour, Now: func() time.Time { return now }})

	rec := httptest.NewRecorder()
	if err := s.Issue(rec, 42); err != nil {
		t.Fatalf("issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, err := s.UserID(req)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if got != 42 {
		t.Fatalf("user id = %d, want 42", got)
	}
}

func TestSessions_Rejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	s := NewSessions(SessionOptions{Secret: testSecret, TTL: time.Hour, Now: func() time.Time { return clock }})
	valid, _, err := s.Token(7)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	other := NewSessions(SessionOptions{Secret: []byte("another-secret-another-secret-xx"), Now: func() time.Time { return now }})
	forged, _, _ := other.Token(7)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "garbage", token: "not-a-jwt", at: now},
		{name: "wrong secret", token: forged, at: now},
		{name: "alg none", token: unsigned, at: now},
		{name: "expired", token: valid, at: now.Add(2 * time.Hour)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock = tc.at
			if _, err := s.Parse(tc.token); !errors.Is(err, ErrNoSession) {
				t.Fatalf("expected ErrNoSession, got %v", err)
			}
		})
	}

	clock = now
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := s.UserID(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("missing cookie: %v", err)
	}
}

func TestSessions_Clear(t *testing.T) {
	s := NewSessions(SessionOptions{Secret: testSecret})
	rec := httptest.NewRecorder()
	s.Clear(rec)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("cookie not cleared: %+v", cookies)
	}
}

func TestSessions_Require(t *testing.T) {
	s := NewSessions(SessionOptions{Secret: testSecret})
	denied := false
	h := s.Require(func(w http.ResponseWriter, _ *http.Request) {
		denied = true
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFrom(r.Context())
		if !ok || id != 9 {
			t.Errorf("context user = %d, %v", id, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !denied || rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request not denied: %d", rec.Code)
	}

	token, _, _ := s.Token(9)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("authenticated request status = %d", rec.Code)
	}
}

func TestUserIDFrom_Empty(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatal("expected no user in empty context")
	}
}

func TestLoginService(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := memory.New()
	id := store.AddUser(domain.UserProfile{Username: "alice"}, "alice@example.com", hash)
	svc := NewLoginService(store, hasher, logging.Discard())

	got, err := svc.Login(context.Background(), LoginInput{Email: " Alice@Example.com ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got != id {
		t.Fatalf("user id = %d, want %d", got, id)
	}

	tests := []struct {
		name string
		in   LoginInput
	}{
		{name: "wrong password", in: LoginInput{Email: "alice@example.com", Password: "wrong"}},
		{name: "unknown email", in: LoginInput{Email: "bob@example.com", Password: "correct horse"}},
		{name: "empty", in: LoginInput{}},
		{name: "hash as password", in: LoginInput{Email: "alice@example.com", Password: hash}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.in); !apperror.IsUnauthenticated(err) {
				t.Fatalf("expected Unauthenticated, got %v", err)
			}
		})
	}
}

type lookupCounter struct {
	*memory.Store
	lookups int
}

func (c *lookupCounter) CredentialsByEmail(ctx context.Context, email string) (domain.Credentials, error) {
	c.lookups++
	return c.Store.CredentialsByEmail(ctx, email)
}

func TestLoginService_RejectsMalformedInputBeforeLookup(t *testing.T) {
	store := &lookupCounter{Store: memory.New()}
	svc := NewLoginService(store, BcryptHasher{Cost: bcrypt.MinCost}, logging.Discard())

	for _, in := range []LoginInput{
		{Email: "not-an-email", Password: "secret"},
		{Email: "   ", Password: "secret"},
		{Email: "alice@example.com", Password: ""},
	} {
		if _, err := svc.Login(context.Background(), in); !apperror.IsUnauthenticated(err) {
			t.Fatalf("login %+v: expected Unauthenticated, got %v", in, err)
		}
	}
	if store.lookups != 0 {
		t.Fatalf("credential store consulted %d times for malformed input", store.lookups)
	}
}
