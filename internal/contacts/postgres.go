package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goContacts/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const contactColumns = `id, owner_id, first_name, last_name, email, phone_number, birthday, additional_data`

type PostgresRepository struct {
	db storage.DBTX
}

func NewPostgresRepository(db storage.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var (
		c     Contact
		extra sql.NullString
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber, &c.Birthday.Time, &extra)
	if err != nil {
		return Contact{}, err
	}
	c.AdditionalData = extra.String
	return c, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, c Contact) (Contact, error) {
	query :=
		`INSERT INTO contacts (owner_id, first_name, last_name, email, phone_number, birthday, additional_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING ` + contactColumns

	created, err := scanContact(r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Birthday.Time, nullable(c.AdditionalData)))
	if err != nil {
		return Contact{}, mapWriteError(err)
	}
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id int64) (Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE owner_id = $1 AND id = $2`

	c, err := scanContact(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID int64, page Page) ([]Contact, error) {
	page = page.normalize()
	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE owner_id = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`

	return r.query(ctx, query, ownerID, page.Limit, page.Skip)
}

// Search matches q as a case-insensitive substring of the first name, last
// name or email.
func (r *PostgresRepository) Search(ctx context.Context, ownerID int64, q string) ([]Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE owner_id = $1
		   AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		 ORDER BY id`

	return r.query(ctx, query, ownerID, "%"+escapeLike(q)+"%")
}

// All returns every contact of ownerID.
func (r *PostgresRepository) All(ctx context.Context, ownerID int64) ([]Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		 WHERE owner_id = $1
		 ORDER BY id`

	return r.query(ctx, query, ownerID)
}

func (r *PostgresRepository) Update(ctx context.Context, c Contact) (Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5, phone_number = $6,
		     birthday = $7, additional_data = $8, updated_at = NOW()
		 WHERE owner_id = $1 AND id = $2
		 RETURNING ` + contactColumns

	updated, err := scanContact(r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.ID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.Birthday.Time, nullable(c.AdditionalData)))
	if err != nil {
		return Contact{}, mapWriteError(err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id int64) (Contact, error) {
	query := `DELETE FROM contacts
		 WHERE owner_id = $1 AND id = $2
		 RETURNING ` + contactColumns

	c, err := scanContact(r.db.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
