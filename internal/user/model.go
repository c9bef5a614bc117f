package user

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailExists       = errors.New("user with this email already exists")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrCannotDeleteAdmin = errors.New("admin users cannot be deleted")
)

// User представляет учетную запись покупателя или сотрудника.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
