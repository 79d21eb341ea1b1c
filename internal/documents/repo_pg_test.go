package documents

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pgColumns = []string{"id", "owner_id", "doc_type", "content", "metadata", "file_name", "mime_type", "storage_provider", "storage_key", "created_at"}

func TestPGRepoCreateWritesMetadataJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:        "6f1c2a9e-9f5c-4d8e-9a53-1f0e6b7c8d90",
		OwnerID:   "user-1",
		DocType:   TypeResume,
		Content:   "Go engineer",
		Metadata:  map[string]string{"source": "paste"},
		CreatedAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.OwnerID,
			doc.DocType,
			doc.Content,
			[]byte(`{"source":"paste"}`),
			nil, // file_name
			nil, // mime_type
			nil, // storage_provider
			nil, // storage_key
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByIDScansRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	id := "6f1c2a9e-9f5c-4d8e-9a53-1f0e6b7c8d90"
	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(pgColumns).
			AddRow(id, "user-1", TypeResume, "Go engineer", []byte(`{"source":"upload"}`), "cv.pdf", "application/pdf", "local", "user-1/cv.pdf", created))

	repo := &PGRepo{DB: db}
	doc, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, Document{
		ID:              id,
		OwnerID:         "user-1",
		DocType:         TypeResume,
		Content:         "Go engineer",
		Metadata:        map[string]string{"source": "upload"},
		FileName:        "cv.pdf",
		MimeType:        "application/pdf",
		StorageProvider: "local",
		StorageKey:      "user-1/cv.pdf",
		CreatedAt:       created,
	}, doc)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	id := "6f1c2a9e-9f5c-4d8e-9a53-1f0e6b7c8d90"
	mock.ExpectQuery("SELECT (.+) FROM documents").WithArgs(id).WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	_, err = repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("user-1", TypeJobDescription, 10).
		WillReturnRows(sqlmock.NewRows(pgColumns).
			AddRow("a", "user-1", TypeJobDescription, "Go role", []byte(`{}`), nil, nil, nil, nil, created))

	repo := &PGRepo{DB: db}
	docs, err := repo.ListByOwner(context.Background(), "user-1", TypeJobDescription, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Go role", docs[0].Content)
	assert.Empty(t, docs[0].FileName)
	require.NoError(t, mock.ExpectationsWereMet())
}
