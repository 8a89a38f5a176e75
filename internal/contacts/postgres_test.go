package contacts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactRowColumns = []string{"id", "owner_id", "first_name", "last_name", "email", "phone_number", "birthday", "additional_data"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func johnRow(rows *sqlmock.Rows) *sqlmock.Rows {
	return rows.AddRow(int64(1), int64(7), "John", "Doe", "john.doe@example.com", "1234567890", NewDate(1990, 1, 1).Time, "friend")
}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT INTO contacts .* RETURNING id, owner_id`).
		WithArgs(int64(7), "John", "Doe", "john.doe@example.com", "1234567890", sqlmock.AnyArg(), "friend").
		WillReturnRows(johnRow(sqlmock.NewRows(contactRowColumns)))

	got, err := repo.Create(context.Background(), Contact{
		OwnerID: 7, FirstName: "John", LastName: "Doe", Email: "john.doe@example.com",
		PhoneNumber: "1234567890", Birthday: NewDate(1990, 1, 1), AdditionalData: "friend",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "1990-01-01", got.Birthday.String())
}

func TestPostgresCreateDuplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO contacts`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), Contact{OwnerID: 7, Birthday: NewDate(1990, 1, 1)})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresGetScopedToOwner(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM contacts\s+WHERE owner_id = \$1 AND id = \$2`).
		WithArgs(int64(8), int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 8, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListPaging(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM contacts\s+WHERE owner_id = \$1\s+ORDER BY id\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(7), DefaultLimit, 0).
		WillReturnRows(johnRow(sqlmock.NewRows(contactRowColumns)).
			AddRow(int64(2), int64(7), "Jane", "Smith", "jane.smith@example.com", "9876543210", NewDate(1985, 5, 15).Time, nil))

	got, err := repo.List(context.Background(), 7, Page{Skip: -3, Limit: 0})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[1].AdditionalData)
}

func TestPostgresSearchEscapesWildcards(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`ILIKE \$2`).
		WithArgs(int64(7), `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	got, err := repo.Search(context.Background(), 7, "50%_off")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPostgresUpdateMissing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^UPDATE contacts`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), Contact{ID: 9, OwnerID: 7, Birthday: NewDate(1990, 1, 1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDeleteReturnsRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^DELETE FROM contacts\s+WHERE owner_id = \$1 AND id = \$2\s+RETURNING`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(johnRow(sqlmock.NewRows(contactRowColumns)))

	got, err := repo.Delete(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
}

func TestPostgresQueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM contacts`).WillReturnError(errors.New("connection reset"))

	_, err := repo.All(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
