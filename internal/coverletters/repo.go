package coverletters

import "context"

// Repo defines persistence operations for cover letters.
type Repo interface {
	Create(ctx context.Context, letter Letter) error
	GetByID(ctx context.Context, id string) (Letter, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Letter, error)
}
