package auth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/metrics"
)

// ErrAvatarsDisabled is returned by UpdateAvatar when no avatar store is wired.
var ErrAvatarsDisabled = errors.New("avatar uploads are not configured")

// Me returns the account of an authenticated identity.
func (s *Service) Me(ctx context.Context, identity string) (users.Account, error) {
	return s.dir.FindByEmail(ctx, identity)
}

// UpdateAvatar uploads body to the avatar store and records the new URL.
func (s *Service) UpdateAvatar(ctx context.Context, identity, contentType string, body io.Reader, size int64) (users.Account, error) {
	if s.avatars == nil {
		return users.Account{}, ErrAvatarsDisabled
	}
	acct, err := s.dir.FindByEmail(ctx, identity)
	if err != nil {
		return users.Account{}, err
	}

	url, err := s.avatars.Upload(ctx, acct.Username, contentType, body, size)
	if err != nil {
		return users.Account{}, fmt.Errorf("upload avatar: %w", err)
	}

	updated, err := s.dir.UpdateAvatar(ctx, identity, url)
	if err != nil {
		return users.Account{}, fmt.Errorf("store avatar url: %w", err)
	}
	s.metrics.Inc(metrics.AvatarUpdated)
	s.emit(ctx, audit.EventAvatarUpdate, identity, nil, nil)
	return updated, nil
}
