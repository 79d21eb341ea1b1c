package coverletters

import (
	"maps"
	"time"

	"coverletter-backend/internal/agents"
)

// Letter is a stored cover letter draft. Refinements are new rows linked to
// their parent; rows are never updated.
type Letter struct {
	ID        string
	OwnerID   string
	ParentID  string
	Version   int
	Sections  []agents.Section
	FullText  string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Draft converts the stored letter to its API form.
func (l Letter) Draft() agents.CoverLetterDraft {
	return agents.CoverLetterDraft{
		ID:        l.ID,
		ParentID:  l.ParentID,
		Version:   l.Version,
		Sections:  append([]agents.Section(nil), l.Sections...),
		FullText:  l.FullText,
		Metadata:  maps.Clone(l.Metadata),
		CreatedAt: l.CreatedAt,
	}
}

func fromDraft(ownerID string, d agents.CoverLetterDraft) Letter {
	return Letter{
		ID:        d.ID,
		OwnerID:   ownerID,
		ParentID:  d.ParentID,
		Version:   d.Version,
		Sections:  append([]agents.Section(nil), d.Sections...),
		FullText:  d.FullText,
		Metadata:  maps.Clone(d.Metadata),
		CreatedAt: d.CreatedAt,
	}
}

func (l Letter) clone() Letter {
	return fromDraft(l.OwnerID, l.Draft())
}
