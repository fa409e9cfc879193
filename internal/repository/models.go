package repository

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account in the database. The failed-attempt columns
// are bookkeeping for the login throttle path; they are only mutated on a
// bad-password failure or a successful login.
type User struct {
	ID                uuid.UUID  `db:"id"`
	Username          string     `db:"username"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"`
	FailedAttempts    int        `db:"failed_attempts"`
	LastFailedAttempt *time.Time `db:"last_failed_attempt"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Message represents a stored chat message. Messages are immutable after
// creation and owned exclusively by their creating user.
type Message struct {
	ID        uuid.UUID `db:"id"`
	Content   string    `db:"content"`
	UserID    uuid.UUID `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}
