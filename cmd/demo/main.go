// The demo server is a self-contained variant for local experiments. It keeps
// everything in memory, serves canned replies, and exposes an open /history
// endpoint. Never deploy it: with SECRET_KEY unset it falls back to a
// well-known signing secret.
package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/operialabs/chat-backend/internal/auth"
	"github.com/operialabs/chat-backend/internal/chat"
	"github.com/operialabs/chat-backend/internal/config"
	appctx "github.com/operialabs/chat-backend/internal/context"
	"github.com/operialabs/chat-backend/internal/logger"
	appmw "github.com/operialabs/chat-backend/internal/middleware"
	"github.com/operialabs/chat-backend/internal/repository"
	"github.com/operialabs/chat-backend/internal/sanitizer"
)

// insecureDefaultSecret signs demo tokens when SECRET_KEY is not set
const insecureDefaultSecret = "demo-secret-do-not-use-in-production"

func main() {
	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		secretKey = insecureDefaultSecret
		log.Warn("SECRET_KEY not set, using insecure built-in demo secret; tokens are forgeable")
	}

	userRepo := repository.NewMemoryUserRepository()
	messageRepo := repository.NewMemoryMessageRepository()

	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		SecretKey: secretKey,
		TokenTTL:  config.DefaultTokenTTL,
		Issuer:    config.DefaultIssuer,
	})
	passwordValidator := auth.NewPasswordValidator()
	registrationValidator := auth.NewRegistrationValidator(config.DefaultAllowedEmailDomains, passwordValidator)
	loginThrottle := auth.NewLoginThrottle(auth.MaxFailedAttempts, auth.CooldownWindow)

	authService := auth.NewAuthService(
		userRepo,
		registrationValidator,
		passwordValidator,
		tokenService,
		loginThrottle,
		log,
	)

	chatService := chat.NewService(
		messageRepo,
		chat.NewCannedReplyGenerator(nil),
		sanitizer.NewContentSanitizer(),
		log,
	)

	authHandler := auth.NewHandler(authService)
	authMiddleware := appmw.NewAuthMiddleware(tokenService, userRepo)

	demo := &demoHandler{
		chat:     chatService,
		messages: messageRepo,
		users:    userRepo,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(appmw.StructuredLogger(log))

	auth.RegisterRoutes(r, authHandler, nil)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/chat", demo.Chat)
	})

	// Open by design: the demo history shows every exchange to everyone.
	r.Get("/history", demo.History)

	addr := "0.0.0.0:" + envOr("SERVER_PORT", "8080")
	log.Info("starting demo server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// demoHandler serves the demo chat endpoints. The chat response echoes the
// whole exchange back in one object instead of returning the stored reply
// record.
type demoHandler struct {
	chat     *chat.Service
	messages *repository.MemoryMessageRepository
	users    *repository.MemoryUserRepository
}

type demoChatRequest struct {
	Message string `json:"message"`
}

type demoChatResponse struct {
	User        string `json:"user"`
	Message     string `json:"message"`
	BotResponse string `json:"bot_response"`
}

type demoHistoryEntry struct {
	User      string    `json:"user"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat stores an exchange for the authenticated user and returns it
func (h *demoHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username, _ := appctx.ExtractUsername(r.Context())
	userID, err := resolveUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	var req demoChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	reply, err := h.chat.SendMessage(r.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message content cannot be empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, demoChatResponse{
		User:        username,
		Message:     req.Message,
		BotResponse: reply.Content,
	})
}

// History returns every stored message, annotated with its owner's username
func (h *demoHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	entries := make([]demoHistoryEntry, 0, len(messages))
	for _, msg := range messages {
		username := "unknown"
		if user, err := h.users.GetByID(r.Context(), msg.UserID); err == nil {
			username = user.Username
		}
		entries = append(entries, demoHistoryEntry{
			User:      username,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, entries)
}

func resolveUserID(r *http.Request) (uuid.UUID, error) {
	idStr, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		return uuid.Nil, errors.New("no user in request context")
	}
	return uuid.Parse(idStr)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"detail": message})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
