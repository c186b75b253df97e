package auth

import (
	"time"

	"github.com/google/uuid"
)

// User — владелец разговоров и CV.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
