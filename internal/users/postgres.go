package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goContacts/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, password, avatar, refresh_token_hash, confirmed, created_at`

type PostgresDirectory struct {
	db storage.DBTX
}

func NewPostgresDirectory(db storage.DBTX) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		acct    Account
		avatar  sql.NullString
		refresh sql.NullString
	)
	err := row.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.PasswordHash, &avatar, &refresh, &acct.Confirmed, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("db error: %w", err)
	}
	acct.AvatarURL = avatar.String
	acct.RefreshTokenHash = refresh.String
	return acct, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users
		 WHERE email = $1`

	return scanAccount(d.db.QueryRowContext(ctx, query, email))
}

func (d *PostgresDirectory) Create(ctx context.Context, acct Account) (Account, error) {
	query :=
		`INSERT INTO users (username, email, password, avatar)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := d.db.QueryRowContext(ctx, query,
		acct.Username, acct.Email, acct.PasswordHash, nullable(acct.AvatarURL)).Scan(&acct.ID, &acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrDuplicate
		}
		return Account{}, fmt.Errorf("db error: %w", err)
	}
	return acct, nil
}

func (d *PostgresDirectory) SetConfirmed(ctx context.Context, email string) error {
	return d.execOne(ctx, `UPDATE users SET confirmed = TRUE WHERE email = $1`, email)
}

func (d *PostgresDirectory) SetRefreshToken(ctx context.Context, email, digest string) error {
	return d.execOne(ctx, `UPDATE users SET refresh_token_hash = $2 WHERE email = $1`, email, nullable(digest))
}

func (d *PostgresDirectory) RefreshToken(ctx context.Context, email string) (string, error) {
	var digest sql.NullString
	err := d.db.QueryRowContext(ctx, `SELECT refresh_token_hash FROM users WHERE email = $1`, email).Scan(&digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return digest.String, nil
}

// SwapRefreshToken relies on the row lock taken by UPDATE: concurrent swaps of
// the same old digest serialize, and only the first sees a matching row.
func (d *PostgresDirectory) SwapRefreshToken(ctx context.Context, email, old, next string) (bool, error) {
	if old == "" {
		return false, nil
	}
	query :=
		`UPDATE users SET refresh_token_hash = $3
		 WHERE email = $1 AND refresh_token_hash = $2`

	res, err := d.db.ExecContext(ctx, query, email, old, nullable(next))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (d *PostgresDirectory) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return d.execOne(ctx, `UPDATE users SET password = $2 WHERE email = $1`, email, hash)
}

func (d *PostgresDirectory) UpdateAvatar(ctx context.Context, email, url string) (Account, error) {
	query := `UPDATE users SET avatar = $2 WHERE email = $1
		 RETURNING ` + accountColumns

	return scanAccount(d.db.QueryRowContext(ctx, query, email, nullable(url)))
}

func (d *PostgresDirectory) execOne(ctx context.Context, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
