package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/mailer"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/metrics"
	"github.com/MrEthical07/goContacts/token"
	"go.uber.org/zap"
)

// RequestConfirmation issues a confirmation token for email and hands it to
// the mailer. Unknown and already confirmed addresses succeed with an empty
// token and send nothing.
func (s *Service) RequestConfirmation(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	acct, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if acct.Confirmed {
		return "", nil
	}

	tok, err := s.sendConfirmation(ctx, acct)
	if err != nil {
		s.logger.Warn("confirmation email not queued", zap.String("email", email), zap.Error(err))
	}
	return tok, nil
}

// sendConfirmation always returns the issued token when encoding succeeded,
// even if delivery failed.
func (s *Service) sendConfirmation(ctx context.Context, acct users.Account) (string, error) {
	tok, err := s.codec.Encode(acct.Email, token.PurposeEmailConfirm, s.cfg.ConfirmTTL)
	if err != nil {
		return "", fmt.Errorf("issue confirmation token: %w", err)
	}

	s.metrics.Inc(metrics.EmailConfirmationRequest)
	s.emit(ctx, audit.EventConfirmRequest, acct.Email, nil, nil)

	if s.mailer == nil {
		return tok, nil
	}
	if err := s.mailer.SendConfirmation(ctx, mailer.Confirmation{
		Email:    acct.Email,
		Username: acct.Username,
		Token:    tok,
	}); err != nil {
		return tok, fmt.Errorf("send confirmation: %w", err)
	}
	return tok, nil
}

// Confirm marks the token's account confirmed. Confirming twice succeeds.
func (s *Service) Confirm(ctx context.Context, tok string) error {
	claims, err := s.codec.Decode(tok, token.PurposeEmailConfirm)
	if err != nil {
		s.metrics.Inc(metrics.EmailConfirmationFailure)
		s.logger.Debug("confirmation token rejected", zap.Error(err))
		return token.ErrInvalidToken
	}
	email := claims.Identity()

	acct, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.metrics.Inc(metrics.EmailConfirmationFailure)
			return token.ErrInvalidToken
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if acct.Confirmed {
		return nil
	}

	if err := s.dir.SetConfirmed(ctx, email); err != nil {
		return fmt.Errorf("confirm account: %w", err)
	}
	s.metrics.Inc(metrics.EmailConfirmationSuccess)
	s.emit(ctx, audit.EventConfirm, email, nil, nil)
	return nil
}
