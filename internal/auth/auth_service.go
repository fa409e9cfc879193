package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/operialabs/chat-backend/internal/repository"
)

// Auth service errors
var (
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
	// ErrInvalidCredentials deliberately covers both "unknown user" and
	// "wrong password" so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// Error codes for API responses
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeAuthTokenMissing   = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid   = "AUTH_TOKEN_INVALID"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username_chars"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse represents the user data in responses
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenResponse represents the issued bearer token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService handles registration and authentication business logic
type AuthService struct {
	users        repository.UserRepository
	registration *RegistrationValidator
	passwords    *PasswordValidator
	tokens       *TokenService
	throttle     *LoginThrottle
	logger       *slog.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	users repository.UserRepository,
	registration *RegistrationValidator,
	passwords *PasswordValidator,
	tokens *TokenService,
	throttle *LoginThrottle,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:        users,
		registration: registration,
		passwords:    passwords,
		tokens:       tokens,
		throttle:     throttle,
		logger:       logger,
	}
}

// Register creates a new user account. All validation rules run before any
// storage mutation, so a rejected request leaves no partial state behind.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, []FieldError, error) {
	if fieldErrors := s.registration.Validate(req); len(fieldErrors) > 0 {
		return nil, fieldErrors, nil
	}

	passwordHash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &repository.User{
		Username:     req.Username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return &UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}, nil, nil
}

// Login authenticates a user and issues a bearer token. The clientKey is the
// connecting client's identity (its IP) and drives the attempt throttle:
//
//	throttle check -> blocked, or proceed
//	credential verify -> failure recorded, or success recorded + token issued
func (s *AuthService) Login(ctx context.Context, req LoginRequest, clientKey string) (*TokenResponse, error) {
	if err := s.throttle.CheckAllowed(clientKey); err != nil {
		s.logger.Warn("login throttled", "client_key", clientKey)
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.throttle.RecordFailure(clientKey)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.passwords.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.throttle.RecordFailure(clientKey)
		if err := s.users.RecordFailedLogin(ctx, user.ID); err != nil {
			s.logger.Warn("failed to record failed login", "user_id", user.ID, "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	s.throttle.RecordSuccess(clientKey)
	if err := s.users.ResetFailedLogins(ctx, user.ID); err != nil {
		s.logger.Warn("failed to reset failed login counter", "user_id", user.ID, "error", err)
	}

	accessToken, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}
