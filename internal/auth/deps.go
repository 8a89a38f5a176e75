package auth

import (
	"context"
	"io"

	"github.com/MrEthical07/goContacts/internal/mailer"
	"github.com/MrEthical07/goContacts/internal/users"
)

// Directory stores accounts. SwapRefreshToken must be atomic per account:
// it replaces old with next only if old is the stored digest, and reports
// whether it did.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (users.Account, error)
	Create(ctx context.Context, acct users.Account) (users.Account, error)
	SetConfirmed(ctx context.Context, email string) error
	SetRefreshToken(ctx context.Context, email, digest string) error
	RefreshToken(ctx context.Context, email string) (string, error)
	SwapRefreshToken(ctx context.Context, email, old, next string) (bool, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
	UpdateAvatar(ctx context.Context, email, url string) (users.Account, error)
}

// Mailer delivers confirmation emails. Delivery is fire-and-forget from the
// service's point of view.
type Mailer interface {
	SendConfirmation(ctx context.Context, c mailer.Confirmation) error
}

// AvatarStore hosts avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, username, contentType string, body io.Reader, size int64) (string, error)
}
