package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/operialabs/chat-backend/internal/repository"
	"github.com/operialabs/chat-backend/internal/sanitizer"
)

// Chat service errors
var (
	ErrEmptyMessage = errors.New("message content is empty")
)

// MessageResponse represents a stored message in API responses
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
}

// Service handles chat message business logic. Every operation takes the
// resolved user identity from the session gate; client-supplied identifiers
// are never consulted for ownership.
type Service struct {
	messages  repository.MessageRepository
	replies   ReplyGenerator
	sanitizer *sanitizer.ContentSanitizer
	logger    *slog.Logger
}

// NewService creates a new chat Service instance
func NewService(
	messages repository.MessageRepository,
	replies ReplyGenerator,
	contentSanitizer *sanitizer.ContentSanitizer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		messages:  messages,
		replies:   replies,
		sanitizer: contentSanitizer,
		logger:    logger,
	}
}

// SendMessage stores the user's message, generates a reply, stores it under
// the same owner, and returns the reply record. Both rows are written in one
// transaction so a storage failure cannot leave half an exchange behind.
func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, content string) (*MessageResponse, error) {
	content = s.sanitizer.Sanitize(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	replyContent, err := s.replies.GenerateReply(ctx, content)
	if err != nil {
		return nil, err
	}

	userMessage := &repository.Message{Content: content, UserID: userID}
	reply := &repository.Message{Content: replyContent, UserID: userID}

	if err := s.messages.CreateExchange(ctx, userMessage, reply); err != nil {
		return nil, err
	}

	s.logger.Info("chat exchange stored",
		"user_id", userID,
		"message_id", userMessage.ID,
		"reply_id", reply.ID,
	)

	return toResponse(reply), nil
}

// History returns all messages owned by the given user in creation order
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]MessageResponse, error) {
	messages, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = *toResponse(&msg)
	}

	return responses, nil
}

// toResponse converts a stored message to its API representation
func toResponse(msg *repository.Message) *MessageResponse {
	return &MessageResponse{
		ID:        msg.ID.String(),
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		UserID:    msg.UserID.String(),
	}
}
