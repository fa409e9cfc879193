package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/operialabs/chat-backend/internal/repository"
)

func newTestAuthService() (*AuthService, *repository.MemoryUserRepository) {
	users := repository.NewMemoryUserRepository()
	passwords := NewPasswordValidator()

	svc := NewAuthService(
		users,
		newTestRegistrationValidator(),
		passwords,
		newTestTokenService(),
		NewLoginThrottle(MaxFailedAttempts, CooldownWindow),
		slog.New(slog.DiscardHandler),
	)
	return svc, users
}

func registerTestUser(t *testing.T, svc *AuthService, username, email, password string) *UserResponse {
	t.Helper()
	user, fieldErrors, err := svc.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	if len(fieldErrors) > 0 {
		t.Fatalf("unexpected validation errors for %s: %v", username, fieldErrors)
	}
	return user
}

func TestRegisterSuccess(t *testing.T) {
	svc, users := newTestAuthService()

	user := registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	if user.Username != "alice" {
		t.Errorf("expected username alice, got %s", user.Username)
	}
	if user.Email != "alice@gmail.com" {
		t.Errorf("expected email alice@gmail.com, got %s", user.Email)
	}
	if user.ID == "" {
		t.Error("expected a generated user ID")
	}

	stored, err := users.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("registered user not found in store: %v", err)
	}
	if stored.PasswordHash == "Str0ng!Pw" {
		t.Error("password must not be stored in plaintext")
	}
}

func TestRegisterRejectsInvalidRequest(t *testing.T) {
	svc, users := newTestAuthService()

	_, fieldErrors, err := svc.Register(context.Background(), RegisterRequest{
		Username: "x",
		Email:    "bad",
		Password: "weak",
	})
	if err != nil {
		t.Fatalf("validation failure should not be an internal error: %v", err)
	}
	if len(fieldErrors) == 0 {
		t.Fatal("expected validation errors")
	}

	// A rejected registration must leave no partial state behind.
	if _, err := users.GetByUsername(context.Background(), "x"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Error("rejected registration must not create a user")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService()

	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	_, fieldErrors, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "other@gmail.com",
		Password: "Str0ng!Pw",
	})
	if len(fieldErrors) > 0 {
		t.Fatalf("duplicate username is a conflict, not a validation error: %v", fieldErrors)
	}
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()

	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "bob",
		Email:    "Alice@Gmail.com",
		Password: "Str0ng!Pw",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken for case-variant duplicate, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestAuthService()
	user := registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	token, err := svc.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "Str0ng!Pw",
	}, "1.2.3.4")
	if err != nil {
		t.Fatalf("expected login to succeed: %v", err)
	}

	if token.TokenType != "bearer" {
		t.Errorf("expected token type bearer, got %s", token.TokenType)
	}
	if token.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expected 900s expiry, got %d", token.ExpiresIn)
	}

	claims, err := newTestTokenService().Validate(token.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.UserID() != user.ID {
		t.Errorf("token subject mismatch: expected %s, got %s", user.ID, claims.UserID())
	}
}

// Unknown usernames and wrong passwords produce the same error, so a caller
// cannot probe which usernames exist.
func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	_, errUnknown := svc.Login(context.Background(), LoginRequest{
		Username: "nobody",
		Password: "Str0ng!Pw",
	}, "1.2.3.4")
	_, errWrongPw := svc.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "Wr0ng!Pw1",
	}, "1.2.3.4")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPw)
	}
}

// After five consecutive failures the sixth attempt is throttled even when it
// carries the correct password.
func TestLoginThrottledAfterFailures(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{
			Username: "alice",
			Password: "Wr0ng!Pw1",
		}, "1.2.3.4")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, err := svc.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "Str0ng!Pw",
	}, "1.2.3.4")

	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected *ThrottledError on sixth attempt, got %v", err)
	}
	if throttled.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", throttled.RetryAfter)
	}
}

// A different client key is unaffected by another key's failures.
func TestLoginThrottleIsPerClientKey(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	for i := 0; i < MaxFailedAttempts; i++ {
		svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "Wr0ng!Pw1"}, "1.2.3.4")
	}

	if _, err := svc.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "Str0ng!Pw",
	}, "5.6.7.8"); err != nil {
		t.Errorf("expected login from a different client key to succeed: %v", err)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc, "alice", "alice@gmail.com", "Str0ng!Pw")

	for i := 0; i < MaxFailedAttempts-1; i++ {
		svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "Wr0ng!Pw1"}, "1.2.3.4")
	}

	if _, err := svc.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "Str0ng!Pw",
	}, "1.2.3.4"); err != nil {
		t.Fatalf("expected fifth attempt with correct password to succeed: %v", err)
	}

	// The counter reset: four more failures stay under the threshold.
	for i := 0; i < MaxFailedAttempts-1; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "Wr0ng!Pw1"}, "1.2.3.4")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
}

// Registered credentials round-trip through login; any other password fails.
// Bcrypt at cost 12 is slow, so this stays a small fixed table instead of a
// generated property.
func TestRegisterLoginRoundTrip(t *testing.T) {
	tests := []struct {
		username string
		password string
	}{
		{"alice", "Str0ng!Pw"},
		{"bob_2", "An0ther#Secret"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			svc, _ := newTestAuthService()
			registerTestUser(t, svc, tt.username, tt.username+"@gmail.com", tt.password)

			if _, err := svc.Login(context.Background(), LoginRequest{
				Username: tt.username,
				Password: tt.password,
			}, "1.2.3.4"); err != nil {
				t.Fatalf("expected login with registered password to succeed: %v", err)
			}

			if _, err := svc.Login(context.Background(), LoginRequest{
				Username: tt.username,
				Password: tt.password + "x",
			}, "1.2.3.4"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected login with wrong password to fail, got %v", err)
			}
		})
	}
}
