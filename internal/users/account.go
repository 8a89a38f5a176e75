package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account already exists")
)

// Account is one registered user. RefreshTokenHash is empty when no refresh
// token is outstanding.
type Account struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	AvatarURL        string    `json:"avatar"`
	RefreshTokenHash string    `json:"-"`
	Confirmed        bool      `json:"confirmed"`
	CreatedAt        time.Time `json:"created_at"`
}
