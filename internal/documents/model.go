package documents

import "time"

// Document types.
const (
	TypeResume         = "resume"
	TypeJobDescription = "job_description"
	TypeCoverLetter    = "cover_letter"
)

// ValidDocType reports whether t is a known document type.
func ValidDocType(t string) bool {
	switch t {
	case TypeResume, TypeJobDescription, TypeCoverLetter:
		return true
	}
	return false
}

// Document is a stored resume, job description or cover letter. It is never
// changed after Create.
type Document struct {
	ID              string
	OwnerID         string
	DocType         string
	Content         string
	Metadata        map[string]string
	FileName        string
	MimeType        string
	StorageProvider string
	StorageKey      string
	CreatedAt       time.Time
}
