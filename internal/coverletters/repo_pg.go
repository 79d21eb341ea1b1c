package coverletters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"coverletter-backend/internal/agents"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const letterColumns = `id, owner_id, parent_id, version, sections, full_text, metadata, created_at`

// Create inserts a cover letter.
func (r *PGRepo) Create(ctx context.Context, letter Letter) error {
	const query = `
INSERT INTO cover_letters (
    id, owner_id, parent_id, version, sections, full_text, metadata, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	sections, err := json.Marshal(nonNilSections(letter.Sections))
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	metadata := letter.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, query,
		letter.ID,
		letter.OwnerID,
		sql.NullString{String: letter.ParentID, Valid: letter.ParentID != ""},
		letter.Version,
		sections,
		letter.FullText,
		meta,
		letter.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: unknown parent_id", ErrInvalidInput)
		case pgUniqueViolation:
			return ErrConflict
		}
	}
	return err
}

// GetByID returns a cover letter by ID. Malformed IDs are reported as ErrNotFound.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Letter, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Letter{}, ErrNotFound
	}
	query := `SELECT ` + letterColumns + ` FROM cover_letters WHERE id = $1`
	letter, err := scanLetter(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Letter{}, ErrNotFound
		}
		return Letter{}, err
	}
	return letter, nil
}

// ListByOwner lists cover letters ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Letter, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := `SELECT ` + letterColumns + `
FROM cover_letters
WHERE owner_id = $1
ORDER BY created_at DESC, version DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Letter, 0)
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, letter)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLetter(row rowScanner) (Letter, error) {
	var letter Letter
	var parentID sql.NullString
	var sections, metadata []byte
	if err := row.Scan(
		&letter.ID,
		&letter.OwnerID,
		&parentID,
		&letter.Version,
		&sections,
		&letter.FullText,
		&metadata,
		&letter.CreatedAt,
	); err != nil {
		return Letter{}, err
	}
	letter.ParentID = parentID.String
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &letter.Sections); err != nil {
			return Letter{}, fmt.Errorf("decode sections for letter %s: %w", letter.ID, err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &letter.Metadata); err != nil {
			return Letter{}, fmt.Errorf("decode metadata for letter %s: %w", letter.ID, err)
		}
	}
	return letter, nil
}

func nonNilSections(s []agents.Section) []agents.Section {
	if s == nil {
		return []agents.Section{}
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
