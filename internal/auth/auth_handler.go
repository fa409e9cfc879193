package auth

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/operialabs/chat-backend/internal/metrics"
)

// APIError represents the error detail in API responses
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// errorBody is the envelope for error responses
type errorBody struct {
	Error APIError `json:"error"`
}

// Handler handles HTTP requests for authentication endpoints
type Handler struct {
	authService *AuthService
}

// NewHandler creates a new authentication Handler instance
func NewHandler(authService *AuthService) *Handler {
	return &Handler{
		authService: authService,
	}
}

// Register handles user registration
// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("validation_error").Inc()
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	user, fieldErrors, err := h.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			writeError(w, http.StatusConflict, CodeUsernameTaken, "Username already registered", nil)
		case errors.Is(err, ErrEmailTaken):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			writeError(w, http.StatusConflict, CodeEmailTaken, "Email already registered", nil)
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		}
		return
	}

	if len(fieldErrors) > 0 {
		metrics.RegistrationsTotal.WithLabelValues("validation_error").Inc()
		writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", fieldErrors)
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusCreated, user)
}

// Token handles login and bearer token issuance. The body may be JSON or
// form-encoded; both carry username and password.
// POST /token, POST /login
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoginRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, err := h.authService.Login(r.Context(), req, clientKey(r))
	if err != nil {
		var throttled *ThrottledError
		switch {
		case errors.As(err, &throttled):
			metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
			retryAfter := int64(math.Ceil(throttled.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeError(w, http.StatusTooManyRequests, CodeTooManyAttempts,
				"Too many failed login attempts. Try again later.",
				map[string]int64{"retry_after": retryAfter})
		case errors.Is(err, ErrInvalidCredentials):
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect username or password", nil)
		default:
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		}
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.Inc()
	writeJSON(w, http.StatusOK, response)
}

// decodeLoginRequest reads credentials from a JSON or form-encoded body
func decodeLoginRequest(r *http.Request) (LoginRequest, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return LoginRequest{}, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		return LoginRequest{}, false
	}
	return LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}, true
}

// clientKey extracts the connecting client's identity used as the throttle
// key. Proxy headers are preferred so the key survives a reverse proxy.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	writeJSON(w, statusCode, errorBody{
		Error: APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
