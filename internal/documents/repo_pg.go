package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, doc_type, content, metadata, file_name, mime_type, storage_provider, storage_key, created_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    doc_type,
    content,
    metadata,
    file_name,
    mime_type,
    storage_provider,
    storage_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.DocType,
		doc.Content,
		metadata,
		nullString(doc.FileName),
		nullString(doc.MimeType),
		nullString(doc.StorageProvider),
		nullString(doc.StorageKey),
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by ID. Malformed IDs are reported as ErrNotFound.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByOwner lists an owner's documents newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID, docType string, limit int) ([]Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND ($2 = '' OR doc_type = $2)
ORDER BY created_at DESC
LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, docType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var metadata []byte
	var fileName, mimeType, provider, storageKey sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.DocType,
		&doc.Content,
		&metadata,
		&fileName,
		&mimeType,
		&provider,
		&storageKey,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decode metadata for document %s: %w", doc.ID, err)
		}
	}
	doc.FileName = fileName.String
	doc.MimeType = mimeType.String
	doc.StorageProvider = provider.String
	doc.StorageKey = storageKey.String
	return doc, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ DocumentsRepo = (*PGRepo)(nil)
