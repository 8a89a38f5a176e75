package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newDirectoryWithMock(t *testing.T) (*PostgresDirectory, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresDirectory(db), mock, db
}

var accountRowColumns = []string{"id", "username", "email", "password", "avatar", "refresh_token_hash", "confirmed", "created_at"}

func TestFindByEmail_Found(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := `(?s)^SELECT\s+id,\s*username,\s*email,\s*password,\s*avatar,\s*refresh_token_hash,\s*confirmed,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(int64(7), "alice", "alice@example.com", "$argon2id$x", nil, "abc", true, created))

	got, err := dir.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != 7 || got.Username != "alice" || !got.Confirmed || got.AvatarURL != "" || got.RefreshTokenHash != "abc" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at %v", got.CreatedAt)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := dir.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*email,\s*password,\s*avatar\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at$`
	mock.ExpectQuery(q).
		WithArgs("alice", "alice@example.com", "digest", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	got, err := dir.Create(context.Background(), Account{Username: "alice", Email: "alice@example.com", PasswordHash: "digest", AvatarURL: "https://img"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.Email != "alice@example.com" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := dir.Create(context.Background(), Account{Username: "alice", Email: "alice@example.com", PasswordHash: "digest"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := dir.Create(context.Background(), Account{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSwapRefreshToken(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*\$3\s+WHERE\s+email\s*=\s*\$1\s+AND\s+refresh_token_hash\s*=\s*\$2$`

	t.Run("winner", func(t *testing.T) {
		dir, mock, db := newDirectoryWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).
			WithArgs("alice@example.com", "old", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := dir.SwapRefreshToken(context.Background(), "alice@example.com", "old", "new")
		if err != nil || !ok {
			t.Fatalf("expected swap, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("stale", func(t *testing.T) {
		dir, mock, db := newDirectoryWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).
			WithArgs("alice@example.com", "old", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := dir.SwapRefreshToken(context.Background(), "alice@example.com", "old", "new")
		if err != nil || ok {
			t.Fatalf("expected no swap, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("empty old never matches", func(t *testing.T) {
		dir, mock, db := newDirectoryWithMock(t)
		defer db.Close()

		ok, err := dir.SwapRefreshToken(context.Background(), "alice@example.com", "", "new")
		if err != nil || ok {
			t.Fatalf("expected no swap, got ok=%v err=%v", ok, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unexpected query: %v", err)
		}
	})
}

func TestSetRefreshToken_ClearsToNull(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*\$2\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("alice@example.com", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := dir.SetRefreshToken(context.Background(), "alice@example.com", ""); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetConfirmed_NotFound(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+confirmed\s*=\s*TRUE`).
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := dir.SetConfirmed(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdateAvatar_ReturnsAccount(t *testing.T) {
	dir, mock, db := newDirectoryWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+users\s+SET\s+avatar\s*=\s*\$2\s+WHERE\s+email\s*=\s*\$1\s+RETURNING`).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(int64(7), "alice", "alice@example.com", "d", "https://cdn/avatars/alice", nil, true, time.Now()))

	got, err := dir.UpdateAvatar(context.Background(), "alice@example.com", "https://cdn/avatars/alice")
	if err != nil {
		t.Fatalf("UpdateAvatar error: %v", err)
	}
	if got.AvatarURL != "https://cdn/avatars/alice" {
		t.Fatalf("unexpected avatar %q", got.AvatarURL)
	}
}
