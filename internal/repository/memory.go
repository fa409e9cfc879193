package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory UserRepository used by the demo server
// and by unit tests. Uniqueness checks happen under a single lock, so they
// are atomic the same way the database constraints are.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[uuid.UUID]*User),
	}
}

// Create stores a new user, rejecting duplicate usernames and emails
func (r *MemoryUserRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return ErrUsernameTaken
		}
		if strings.ToLower(existing.Email) == email {
			return ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.New()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[user.ID] = &stored
	return nil
}

// GetByID retrieves a user by ID
func (r *MemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}

// GetByUsername retrieves a user by username
func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}

	return nil, ErrUserNotFound
}

// RecordFailedLogin increments the failed-attempt counter
func (r *MemoryUserRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}

	now := time.Now().UTC()
	user.FailedAttempts++
	user.LastFailedAttempt = &now
	return nil
}

// ResetFailedLogins clears the failed-attempt counter
func (r *MemoryUserRepository) ResetFailedLogins(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}

	user.FailedAttempts = 0
	user.LastFailedAttempt = nil
	return nil
}

// MemoryMessageRepository is an in-memory MessageRepository used by the demo
// server and by unit tests.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []Message
	seq      int64
}

// NewMemoryMessageRepository creates an empty in-memory message repository
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

// CreateExchange stores both halves of a chat exchange under one lock
func (r *MemoryMessageRepository) CreateExchange(ctx context.Context, userMessage, reply *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store(userMessage)
	r.store(reply)
	return nil
}

// store assigns identity and ordering metadata to a message. The sequence
// number breaks ties between messages created within the same clock tick.
func (r *MemoryMessageRepository) store(msg *Message) {
	r.seq++
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Nanosecond)
	r.messages = append(r.messages, *msg)
}

// ListByUser returns the user's messages in creation order
func (r *MemoryMessageRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []Message{}
	for _, msg := range r.messages {
		if msg.UserID == userID {
			result = append(result, msg)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// ListAll returns every stored message in creation order. Only the demo
// server's open history endpoint uses this.
func (r *MemoryMessageRepository) ListAll(ctx context.Context) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Message, len(r.messages))
	copy(result, r.messages)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
