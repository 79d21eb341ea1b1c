package coverletters

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverletter-backend/internal/agents"
)

const (
	parentID = "0b9f7f7e-3c55-4a55-8f0c-5a1a7f0c2d11"
	childID  = "6f1c2a9e-9f5c-4d8e-9a53-1f0e6b7c8d90"
)

func TestPGRepoCreateEncodesSections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	letter := Letter{
		ID:        childID,
		OwnerID:   "user-1",
		ParentID:  parentID,
		Version:   2,
		Sections:  []agents.Section{{Name: "body", Text: "I build Go services."}},
		FullText:  "I build Go services.",
		CreatedAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO cover_letters").
		WithArgs(
			letter.ID,
			letter.OwnerID,
			parentID,
			2,
			[]byte(`[{"name":"body","text":"I build Go services."}]`),
			letter.FullText,
			[]byte(`{}`),
			letter.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, (&PGRepo{DB: db}).Create(context.Background(), letter))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoCreateMapsConstraintErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectExec("INSERT INTO cover_letters").WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectExec("INSERT INTO cover_letters").WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), Letter{ID: childID, ParentID: parentID, Version: 2, FullText: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	err = repo.Create(context.Background(), Letter{ID: childID, Version: 1, FullText: "x"})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM cover_letters WHERE id = \\$1").
		WithArgs(childID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "parent_id", "version", "sections", "full_text", "metadata", "created_at"}).
			AddRow(childID, "user-1", parentID, 2, []byte(`[{"name":"closing","text":"Best,"}]`), "Best,", []byte(`{"tone":"warm"}`), created))

	letter, err := (&PGRepo{DB: db}).GetByID(context.Background(), childID)
	require.NoError(t, err)
	assert.Equal(t, Letter{
		ID:        childID,
		OwnerID:   "user-1",
		ParentID:  parentID,
		Version:   2,
		Sections:  []agents.Section{{Name: "closing", Text: "Best,"}},
		FullText:  "Best,",
		Metadata:  map[string]string{"tone": "warm"},
		CreatedAt: created,
	}, letter)

	_, err = (&PGRepo{DB: db}).GetByID(context.Background(), "draft-1")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
