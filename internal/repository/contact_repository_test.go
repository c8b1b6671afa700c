package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contact-book/internal/birthday"
	"github.com/iliyamo/contact-book/internal/model"
)

var contactCols = []string{"id", "user_id", "first_name", "last_name", "email", "phone_number",
	"birthday", "additional_info", "created_at", "updated_at"}

func newContactRepoWithMock(t *testing.T) (*ContactRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewContactRepo(db)
	repo.now = func() time.Time { return time.Date(2024, time.May, 28, 10, 0, 0, 0, time.UTC) }
	return repo, mock
}

func contactRow(rows *sqlmock.Rows, id, owner uint64, first string, bday any) *sqlmock.Rows {
	ts := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, owner, first, "Doe", first+"@example.com", "555", bday, nil, ts, ts)
}

func TestContactRepo_ListWithSearch(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	bday := time.Date(1990, time.May, 30, 0, 0, 0, 0, time.UTC)
	rows := contactRow(sqlmock.NewRows(contactCols), 1, 7, "ann", bday)
	mock.ExpectQuery(`(?s)^SELECT .+ FROM contacts WHERE user_id=\? AND \(LOWER\(first_name\) LIKE \? OR .+\) ORDER BY id LIMIT \? OFFSET \?$`).
		WithArgs(7, `%a\_n%`, `%a\_n%`, `%a\_n%`, `%a\_n%`, 10, 20).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 7, model.ContactQuery{Search: " A_N ", Offset: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ann", got[0].FirstName)
	require.NotNil(t, got[0].Birthday)
	assert.True(t, bday.Equal(*got[0].Birthday))
	assert.Empty(t, got[0].AdditionalInfo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_ListWithoutSearch(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM contacts WHERE user_id=\? ORDER BY id LIMIT \? OFFSET \?$`).
		WithArgs(7, 100, 0).
		WillReturnRows(sqlmock.NewRows(contactCols))

	got, err := repo.List(context.Background(), 7, model.ContactQuery{Limit: 100})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_GetMissingIsNil(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestContactRepo_GetError(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), 7, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestContactRepo_Create(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	bday := time.Date(1990, time.May, 30, 15, 0, 0, 0, time.FixedZone("X", 3600))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contacts")).
		WithArgs(7, "Ann", "Doe", "ann@example.com", "555", time.Date(1990, time.May, 30, 0, 0, 0, 0, time.UTC), nil,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	c, err := repo.Create(context.Background(), 7, model.ContactFields{
		FirstName: "Ann", LastName: "Doe", Email: "ann@example.com", PhoneNumber: "555", Birthday: &bday,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), c.ID)
	assert.Equal(t, uint64(7), c.UserID)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_UpdateEmptyPatchBumpsUpdatedAt(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectExec(`^UPDATE contacts SET updated_at=\? WHERE id=\? AND user_id=\?$`).
		WithArgs(repo.now(), 3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnRows(contactRow(sqlmock.NewRows(contactCols), 3, 7, "ann", nil))

	c, err := repo.Update(context.Background(), 7, 3, model.ContactPatch{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Nil(t, c.Birthday)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_UpdateFields(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	first, info := "Bea", ""
	mock.ExpectExec(`^UPDATE contacts SET updated_at=\?, first_name=\?, additional_info=\? WHERE id=\? AND user_id=\?$`).
		WithArgs(repo.now(), "Bea", nil, 3, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnError(sql.ErrNoRows)

	c, err := repo.Update(context.Background(), 7, 3, model.ContactPatch{FirstName: &first, AdditionalInfo: &info})
	require.NoError(t, err)
	assert.Nil(t, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_Delete(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnRows(contactRow(sqlmock.NewRows(contactCols), 3, 7, "ann", nil))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, err := repo.Delete(context.Background(), 7, 3)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, uint64(3), c.ID)

	// second delete finds nothing and issues no DELETE
	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id=? AND user_id=?")).
		WithArgs(3, 7).
		WillReturnError(sql.ErrNoRows)

	c, err = repo.Delete(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Nil(t, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_ListWithBirthdayIn(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	ranges := birthday.NewWindow(time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC)).Ranges()
	mock.ExpectQuery(`(?s)WHERE user_id=\? AND birthday IS NOT NULL AND \(\(MONTH\(birthday\)=\? AND DAY\(birthday\) BETWEEN \? AND \?\) OR \(MONTH\(birthday\)=\? AND DAY\(birthday\) BETWEEN \? AND \?\)\) ORDER BY id$`).
		WithArgs(7, 12, 28, 31, 1, 1, 3).
		WillReturnRows(contactRow(sqlmock.NewRows(contactCols), 1, 7, "ann",
			time.Date(1980, time.January, 2, 0, 0, 0, 0, time.UTC)))

	got, err := repo.ListWithBirthdayIn(context.Background(), 7, ranges)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())

	got, err = repo.ListWithBirthdayIn(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
