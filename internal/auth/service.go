package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/metrics"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
	"go.uber.org/zap"
)

// Config holds token lifetimes and the reuse policy.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ConfirmTTL    time.Duration
	RevokeOnReuse bool
}

// DefaultConfig returns 15 minute access tokens, 7 day refresh tokens,
// 24 hour confirmation tokens and revoke-on-reuse.
func DefaultConfig() Config {
	return Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ConfirmTTL:    24 * time.Hour,
		RevokeOnReuse: true,
	}
}

// Validate rejects lifetimes that cannot work together.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ConfirmTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("access token lifetime must be shorter than refresh token lifetime")
	}
	return nil
}

// Deps are the collaborators of a Service. Codec, Hasher and Directory are
// required; the rest may be nil.
type Deps struct {
	Codec     *token.Codec
	Hasher    *password.Hasher
	Directory Directory
	Mailer    Mailer
	Avatars   AvatarStore
	Audit     *audit.Dispatcher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// TokenPair is the result of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service is safe for concurrent use.
type Service struct {
	cfg     Config
	codec   *token.Codec
	hasher  *password.Hasher
	dir     Directory
	mailer  Mailer
	avatars AvatarStore
	audit   *audit.Dispatcher
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	// dummyDigest is verified against for unknown emails so that a miss
	// costs the same as a wrong password.
	dummyDigest string
}

func New(cfg Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Codec == nil || deps.Hasher == nil || deps.Directory == nil {
		return nil, errors.New("auth: codec, hasher and directory are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	dummy, err := newDummyDigest(deps.Hasher)
	if err != nil {
		return nil, fmt.Errorf("auth: build dummy digest: %w", err)
	}

	return &Service{
		cfg:         cfg,
		codec:       deps.Codec,
		hasher:      deps.Hasher,
		dir:         deps.Directory,
		mailer:      deps.Mailer,
		avatars:     deps.Avatars,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      logger.Named("auth"),
		now:         now,
		dummyDigest: dummy,
	}, nil
}

// Register creates an unconfirmed account and queues its confirmation email.
// A failed delivery is logged and does not undo the registration.
func (s *Service) Register(ctx context.Context, username, email, plaintext string) (users.Account, error) {
	email = normalizeEmail(email)

	if _, err := s.dir.FindByEmail(ctx, email); err == nil {
		s.metrics.Inc(metrics.AccountCreationDuplicate)
		s.emit(ctx, audit.EventRegister, email, ErrAccountExists, nil)
		return users.Account{}, ErrAccountExists
	} else if !errors.Is(err, users.ErrNotFound) {
		return users.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return users.Account{}, err
	}

	acct, err := s.dir.Create(ctx, users.Account{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		AvatarURL:    GravatarURL(email),
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			s.metrics.Inc(metrics.AccountCreationDuplicate)
			return users.Account{}, ErrAccountExists
		}
		return users.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.metrics.Inc(metrics.AccountCreationSuccess)
	s.emit(ctx, audit.EventRegister, email, nil, nil)

	if _, err := s.sendConfirmation(ctx, acct); err != nil {
		s.logger.Warn("confirmation email not queued", zap.String("email", email), zap.Error(err))
	}
	return acct, nil
}

// Login verifies credentials and issues a fresh token pair, replacing any
// previously stored refresh token.
func (s *Service) Login(ctx context.Context, email, plaintext string) (TokenPair, error) {
	email = normalizeEmail(email)

	acct, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("lookup account: %w", err)
		}
		// Spend the same hashing work as a real account.
		_, _ = s.hasher.Verify(plaintext, s.dummyDigest)
		s.metrics.Inc(metrics.LoginFailure)
		s.emit(ctx, audit.EventLogin, email, ErrInvalidCredentials, nil)
		return TokenPair{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(plaintext, acct.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password digest unreadable", zap.Int64("account_id", acct.ID), zap.Error(err))
	}
	if !ok {
		s.metrics.Inc(metrics.LoginFailure)
		s.emit(ctx, audit.EventLogin, email, ErrInvalidCredentials, nil)
		return TokenPair{}, ErrInvalidCredentials
	}

	if !acct.Confirmed {
		s.metrics.Inc(metrics.LoginUnconfirmed)
		s.emit(ctx, audit.EventLogin, email, ErrEmailNotConfirmed, nil)
		return TokenPair{}, ErrEmailNotConfirmed
	}

	s.upgradeDigest(ctx, acct, plaintext)

	pair, err := s.issuePair(email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.dir.SetRefreshToken(ctx, email, TokenDigest(pair.RefreshToken)); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	s.metrics.Inc(metrics.LoginSuccess)
	s.emit(ctx, audit.EventLogin, email, nil, nil)
	return pair, nil
}

// Refresh rotates refreshToken. Any decode failure is token.ErrInvalidToken;
// a token that is no longer the stored one is ErrRevoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken, token.PurposeRefresh)
	if err != nil {
		s.metrics.Inc(metrics.RefreshFailure)
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return TokenPair{}, token.ErrInvalidToken
	}
	identity := claims.Identity()

	pair, err := s.issuePair(identity)
	if err != nil {
		return TokenPair{}, err
	}

	swapped, err := s.dir.SwapRefreshToken(ctx, identity, TokenDigest(refreshToken), TokenDigest(pair.RefreshToken))
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		s.onReuse(ctx, identity)
		return TokenPair{}, ErrRevoked
	}

	s.metrics.Inc(metrics.RefreshSuccess)
	s.emit(ctx, audit.EventRefresh, identity, nil, nil)
	return pair, nil
}

func (s *Service) onReuse(ctx context.Context, identity string) {
	s.metrics.Inc(metrics.RefreshReuseDetected)
	meta := map[string]string{"revoked": "false"}
	if s.cfg.RevokeOnReuse {
		if err := s.dir.SetRefreshToken(ctx, identity, ""); err != nil && !errors.Is(err, users.ErrNotFound) {
			s.logger.Error("revoke after refresh reuse failed", zap.String("identity", identity), zap.Error(err))
		} else {
			meta["revoked"] = "true"
		}
	}
	s.logger.Info("superseded refresh token presented", zap.String("identity", identity), zap.String("revoked", meta["revoked"]))
	s.emit(ctx, audit.EventRefreshReuse, identity, ErrRevoked, meta)
}

// Authenticate returns the identity of a valid access token. Every failure is
// ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (string, error) {
	start := time.Now()
	claims, err := s.codec.Decode(accessToken, token.PurposeAccess)
	s.metrics.Observe(metrics.AuthenticateLatency, time.Since(start))
	if err != nil {
		s.metrics.Inc(metrics.AuthenticateFailure)
		s.logger.Debug("access token rejected", zap.Error(err), zap.String("ip", clientIPFromContext(ctx)))
		return "", ErrUnauthorized
	}
	return claims.Identity(), nil
}

// Logout clears the stored refresh token for identity.
func (s *Service) Logout(ctx context.Context, identity string) error {
	if err := s.dir.SetRefreshToken(ctx, identity, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.metrics.Inc(metrics.Logout)
	s.emit(ctx, audit.EventLogout, identity, nil, nil)
	return nil
}

func (s *Service) issuePair(identity string) (TokenPair, error) {
	access, err := s.codec.Encode(identity, token.PurposeAccess, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Encode(identity, token.PurposeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *Service) upgradeDigest(ctx context.Context, acct users.Account, plaintext string) {
	stale, err := s.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !stale {
		return
	}
	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Int64("account_id", acct.ID), zap.Error(err))
		return
	}
	if err := s.dir.UpdatePasswordHash(ctx, acct.Email, digest); err != nil {
		s.logger.Warn("password rehash not stored", zap.Int64("account_id", acct.ID), zap.Error(err))
		return
	}
	s.metrics.Inc(metrics.PasswordRehash)
	s.emit(ctx, audit.EventPasswordRehash, acct.Email, nil, nil)
}

func newDummyDigest(h *password.Hasher) (string, error) {
	n := h.MinLength()
	if n < 32 {
		n = 32
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return h.Hash(hex.EncodeToString(buf))
}

func (s *Service) emit(ctx context.Context, eventType, identity string, err error, meta map[string]string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.now().UTC(),
		EventType: eventType,
		Identity:  identity,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Metadata:  meta,
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.audit.Emit(ctx, event)
}
