package users

import (
	"context"
	"sync"
	"time"
)

// MemoryDirectory is a process-local directory for development and tests.
type MemoryDirectory struct {
	mu       sync.Mutex
	accounts map[string]*Account
	nextID   int64
	now      func() time.Time
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[string]*Account),
		now:      time.Now,
	}
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acct, nil
}

func (d *MemoryDirectory) Create(_ context.Context, acct Account) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[acct.Email]; ok {
		return Account{}, ErrDuplicate
	}
	d.nextID++
	acct.ID = d.nextID
	acct.CreatedAt = d.now().UTC()
	stored := acct
	d.accounts[acct.Email] = &stored
	return acct, nil
}

func (d *MemoryDirectory) SetConfirmed(_ context.Context, email string) error {
	return d.update(email, func(a *Account) { a.Confirmed = true })
}

func (d *MemoryDirectory) SetRefreshToken(_ context.Context, email, digest string) error {
	return d.update(email, func(a *Account) { a.RefreshTokenHash = digest })
}

func (d *MemoryDirectory) RefreshToken(_ context.Context, email string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return "", ErrNotFound
	}
	return acct.RefreshTokenHash, nil
}

func (d *MemoryDirectory) SwapRefreshToken(_ context.Context, email, old, next string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return false, ErrNotFound
	}
	if old == "" || acct.RefreshTokenHash != old {
		return false, nil
	}
	acct.RefreshTokenHash = next
	return true, nil
}

func (d *MemoryDirectory) UpdatePasswordHash(_ context.Context, email, hash string) error {
	return d.update(email, func(a *Account) { a.PasswordHash = hash })
}

func (d *MemoryDirectory) UpdateAvatar(_ context.Context, email, url string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	acct.AvatarURL = url
	return *acct, nil
}

func (d *MemoryDirectory) update(email string, fn func(*Account)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[email]
	if !ok {
		return ErrNotFound
	}
	fn(acct)
	return nil
}
