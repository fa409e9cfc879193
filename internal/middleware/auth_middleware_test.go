package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/operialabs/chat-backend/internal/auth"
	appctx "github.com/operialabs/chat-backend/internal/context"
	"github.com/operialabs/chat-backend/internal/repository"
)

const testSecret = "test-secret-key-32-characters!!!"

func newTestTokenService(now func() time.Time) *auth.TokenService {
	return auth.NewTokenService(auth.TokenServiceConfig{
		SecretKey: testSecret,
		TokenTTL:  15 * time.Minute,
		Issuer:    "test-issuer",
		Now:       now,
	})
}

// seedUser registers a user directly in the store and returns it
func seedUser(t *testing.T, users *repository.MemoryUserRepository, username string) *repository.User {
	t.Helper()
	user := &repository.User{
		Username:     username,
		Email:        username + "@gmail.com",
		PasswordHash: "$2a$12$irrelevant",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// protectedProbe records the identity the session gate injected
func protectedProbe(gotUserID, gotUsername *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := appctx.ExtractUserID(r.Context()); ok {
			*gotUserID = id
		}
		if name, ok := appctx.ExtractUsername(r.Context()); ok {
			*gotUsername = name
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateInjectsIdentity(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	user := seedUser(t, users, "alice")
	tokens := newTestTokenService(nil)

	token, err := tokens.Issue(user.ID.String())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	var gotUserID, gotUsername string
	handler := NewAuthMiddleware(tokens, users).Authenticate(protectedProbe(&gotUserID, &gotUsername))

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUserID != user.ID.String() {
		t.Errorf("expected user ID %s in context, got %s", user.ID, gotUserID)
	}
	if gotUsername != "alice" {
		t.Errorf("expected username alice in context, got %s", gotUsername)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	user := seedUser(t, users, "alice")
	tokens := newTestTokenService(nil)

	validToken, err := tokens.Issue(user.ID.String())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	forged, err := auth.NewTokenService(auth.TokenServiceConfig{
		SecretKey: "attacker-controlled-secret-key!!",
		TokenTTL:  15 * time.Minute,
		Issuer:    "test-issuer",
	}).Issue(user.ID.String())
	if err != nil {
		t.Fatalf("failed to issue forged token: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	expired, err := newTestTokenService(func() time.Time { return past }).Issue(user.ID.String())
	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
		{"forged signature", "Bearer " + forged},
		{"expired token", "Bearer " + expired},
		{"non-uuid subject", "Bearer " + mustIssue(t, tokens, "not-a-uuid")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID, gotUsername string
			handler := NewAuthMiddleware(tokens, users).Authenticate(protectedProbe(&gotUserID, &gotUsername))

			req := httptest.NewRequest(http.MethodGet, "/messages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("expected WWW-Authenticate: Bearer, got %q", got)
			}
			if gotUserID != "" {
				t.Error("rejected request must not reach the protected handler")
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error.Code == "" {
				t.Error("expected a machine-readable error code")
			}
		})
	}

	// The valid token still works after all the rejected attempts.
	var gotUserID, gotUsername string
	handler := NewAuthMiddleware(tokens, users).Authenticate(protectedProbe(&gotUserID, &gotUsername))
	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected valid token to still be accepted, got %d", rec.Code)
	}
}

// A structurally valid token whose subject no longer exists is rejected the
// same way as a forged one.
func TestAuthenticateRejectsDeletedSubject(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	tokens := newTestTokenService(nil)

	// Issue a token for a user that was never stored.
	ghost := mustIssue(t, tokens, "b9a6f3a2-8a6e-4f3b-9a6e-4f3b9a6e4f3b")

	var gotUserID, gotUsername string
	handler := NewAuthMiddleware(tokens, users).Authenticate(protectedProbe(&gotUserID, &gotUsername))

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for vanished subject, got %d", rec.Code)
	}
}

func mustIssue(t *testing.T, tokens *auth.TokenService, subject string) string {
	t.Helper()
	token, err := tokens.Issue(subject)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}
