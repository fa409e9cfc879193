package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	appctx "github.com/operialabs/chat-backend/internal/context"
	"github.com/operialabs/chat-backend/internal/metrics"
)

// MessageRequest represents the chat message payload
type MessageRequest struct {
	Content string `json:"content"`
}

// APIError represents the error detail in API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorBody is the envelope for error responses
type errorBody struct {
	Error APIError `json:"error"`
}

// Handler handles HTTP requests for chat endpoints
type Handler struct {
	chatService *Service
}

// NewHandler creates a new chat Handler instance
func NewHandler(chatService *Service) *Handler {
	return &Handler{
		chatService: chatService,
	}
}

// Chat handles a message submission and returns the generated reply record
// POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := resolveUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	reply, err := h.chatService.SendMessage(r.Context(), userID, req.Content)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Message content must not be empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	metrics.ChatExchangesTotal.Inc()
	writeJSON(w, http.StatusOK, reply)
}

// Messages returns all messages owned by the authenticated user
// GET /messages, GET /history
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := resolveUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	messages, err := h.chatService.History(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// resolveUserID reads the identity the session gate stored on the context.
// It is the sole authorization context for chat operations.
func resolveUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{
		Error: APIError{
			Code:    code,
			Message: message,
		},
	})
}
