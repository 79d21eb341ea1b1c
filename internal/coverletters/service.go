// Package coverletters stores cover letter drafts and drives generation and
// refinement through the agent pipeline.
package coverletters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/documents"
	"coverletter-backend/internal/pipeline"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/vectorstore"
)

// Orchestrator runs the generation pipeline.
type Orchestrator interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Refine(ctx context.Context, prev pipeline.Result, req pipeline.Request, feedback string) (pipeline.Result, error)
}

// Refiner rewrites a draft from feedback alone.
type Refiner interface {
	Refine(ctx context.Context, prior agents.CoverLetterDraft, feedback string) (agents.CoverLetterDraft, error)
}

// DocumentReader loads stored resumes.
type DocumentReader interface {
	Get(ctx context.Context, id string) (documents.Document, error)
}

// Indexer makes saved letters available to the strategy agent's similar
// letter search.
type Indexer interface {
	Upsert(ctx context.Context, doc vectorstore.Document) ([]string, error)
}

// Service contains business logic for cover letters.
type Service struct {
	Repo      Repo
	Pipeline  Orchestrator
	Refiner   Refiner
	Documents DocumentReader
	Index     Indexer
	Now       func() time.Time
}

// GenerateInput is one generation request. ResumeContent wins over ResumeID.
type GenerateInput struct {
	OwnerID        string
	JobDescription string
	ResumeID       string
	ResumeContent  string
	Preferences    agents.Preferences
	Metadata       map[string]string
	Validate       bool
	ATSScan        bool
}

// Generate runs the full pipeline and stores the resulting draft.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (pipeline.Result, error) {
	req := pipeline.Request{
		OwnerID:        in.OwnerID,
		ResumeContent:  in.ResumeContent,
		JobDescription: in.JobDescription,
		Preferences:    in.Preferences,
		Metadata:       in.Metadata,
		Validate:       in.Validate,
		ATSScan:        in.ATSScan,
	}
	if strings.TrimSpace(req.ResumeContent) == "" && strings.TrimSpace(in.ResumeID) != "" {
		doc, err := s.loadResume(ctx, in.OwnerID, strings.TrimSpace(in.ResumeID))
		if err != nil {
			return pipeline.Result{}, err
		}
		req.ResumeID = doc.ID
		req.ResumeContent = doc.Content
	}

	res, err := s.Pipeline.Run(ctx, req)
	if err != nil {
		return pipeline.Result{}, err
	}
	if err := s.store(ctx, in.OwnerID, res.Draft); err != nil {
		return pipeline.Result{}, err
	}
	return res, nil
}

// RefineInput identifies the prior draft either by stored ID or inline. When
// the analyses and job description are supplied the pipeline re-enters at
// generation so the optional reports can run; otherwise only the generation
// agent is called.
type RefineInput struct {
	OwnerID       string
	CoverLetterID string
	CoverLetter   *agents.CoverLetterDraft
	Feedback      string

	JobDescription string
	ResumeContent  string
	Skills         *agents.SkillsAnalysisResult
	Requirements   *agents.RequirementsAnalysisResult
	Strategy       *agents.StrategyResult
	Preferences    agents.Preferences
	Validate       bool
	ATSScan        bool
}

// Refine produces and stores a new version of a draft. The prior draft is
// left unchanged.
func (s *Service) Refine(ctx context.Context, in RefineInput) (pipeline.Result, error) {
	if strings.TrimSpace(in.Feedback) == "" {
		return pipeline.Result{}, &agents.ValidationError{Field: "feedback", Message: "must not be empty"}
	}
	prior, err := s.resolvePrior(ctx, in)
	if err != nil {
		return pipeline.Result{}, err
	}

	var res pipeline.Result
	if in.Skills != nil && in.Requirements != nil && s.Pipeline != nil {
		prev := pipeline.Result{Skills: *in.Skills, Requirements: *in.Requirements, Draft: prior}
		if in.Strategy != nil {
			prev.Strategy = *in.Strategy
		}
		res, err = s.Pipeline.Refine(ctx, prev, pipeline.Request{
			OwnerID:        in.OwnerID,
			ResumeContent:  in.ResumeContent,
			JobDescription: in.JobDescription,
			Preferences:    in.Preferences,
			Validate:       in.Validate && strings.TrimSpace(in.ResumeContent) != "",
			ATSScan:        in.ATSScan,
		}, in.Feedback)
	} else {
		var draft agents.CoverLetterDraft
		draft, err = s.Refiner.Refine(ctx, prior, in.Feedback)
		res = pipeline.Result{Draft: draft}
	}
	if err != nil {
		return pipeline.Result{}, err
	}

	if err := s.store(ctx, in.OwnerID, res.Draft); err != nil {
		return pipeline.Result{}, err
	}
	return res, nil
}

// Save stores a client-supplied draft. Missing IDs are assigned, the full
// text is derived from the sections when absent and versions start at 1.
func (s *Service) Save(ctx context.Context, ownerID string, draft agents.CoverLetterDraft) (agents.CoverLetterDraft, error) {
	draft = s.normalize(draft)
	if strings.TrimSpace(draft.FullText) == "" {
		return agents.CoverLetterDraft{}, fmt.Errorf("%w: cover letter has no text", ErrInvalidInput)
	}
	if draft.ParentID != "" {
		parent, err := s.Get(ctx, ownerID, draft.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return agents.CoverLetterDraft{}, fmt.Errorf("%w: unknown parent_id", ErrInvalidInput)
			}
			return agents.CoverLetterDraft{}, err
		}
		if draft.Version <= parent.Version {
			draft.Version = parent.Version + 1
		}
	}
	if err := s.store(ctx, ownerID, draft); err != nil {
		return agents.CoverLetterDraft{}, err
	}
	return draft, nil
}

// Get returns a stored draft visible to ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (agents.CoverLetterDraft, error) {
	letter, err := s.Repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return agents.CoverLetterDraft{}, err
	}
	if letter.OwnerID != ownerID {
		return agents.CoverLetterDraft{}, ErrNotFound
	}
	return letter.Draft(), nil
}

// List returns the owner's drafts newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]agents.CoverLetterDraft, error) {
	letters, err := s.Repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]agents.CoverLetterDraft, 0, len(letters))
	for _, l := range letters {
		out = append(out, l.Draft())
	}
	return out, nil
}

func (s *Service) loadResume(ctx context.Context, ownerID, id string) (documents.Document, error) {
	if s.Documents == nil {
		return documents.Document{}, &agents.ValidationError{Field: "resume_id", Message: "stored resumes are not available"}
	}
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return documents.Document{}, err
	}
	if doc.OwnerID != ownerID {
		return documents.Document{}, fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	if doc.DocType != documents.TypeResume {
		return documents.Document{}, &agents.ValidationError{Field: "resume_id", Message: "document is not a resume"}
	}
	return doc, nil
}

// resolvePrior loads the draft being refined. Inline drafts the store has
// not seen are saved first so the new version can reference its parent.
func (s *Service) resolvePrior(ctx context.Context, in RefineInput) (agents.CoverLetterDraft, error) {
	if id := strings.TrimSpace(in.CoverLetterID); id != "" {
		return s.Get(ctx, in.OwnerID, id)
	}
	if in.CoverLetter == nil {
		return agents.CoverLetterDraft{}, &agents.ValidationError{Field: "cover_letter", Message: "cover_letter or cover_letter_id is required"}
	}

	prior := *in.CoverLetter
	if prior.ID != "" {
		stored, err := s.Get(ctx, in.OwnerID, prior.ID)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return agents.CoverLetterDraft{}, err
		}
	}
	prior.ParentID = ""
	prior = s.normalize(prior)
	if strings.TrimSpace(prior.FullText) == "" {
		return agents.CoverLetterDraft{}, &agents.ValidationError{Field: "cover_letter", Message: "must not be empty"}
	}
	if err := s.store(ctx, in.OwnerID, prior); err != nil {
		return agents.CoverLetterDraft{}, err
	}
	return prior, nil
}

func (s *Service) normalize(d agents.CoverLetterDraft) agents.CoverLetterDraft {
	if _, err := uuid.Parse(d.ID); err != nil {
		d.ID = uuid.NewString()
	}
	if d.Version < 1 {
		d.Version = 1
	}
	if strings.TrimSpace(d.FullText) == "" {
		d.FullText = agents.JoinSections(d.Sections)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	return d
}

// store persists the draft and indexes its text for similar letter search.
// Index failures are logged only.
func (s *Service) store(ctx context.Context, ownerID string, draft agents.CoverLetterDraft) error {
	if err := s.Repo.Create(ctx, fromDraft(ownerID, draft)); err != nil {
		return fmt.Errorf("store cover letter: %w", err)
	}
	if s.Index == nil {
		return nil
	}
	if _, err := s.Index.Upsert(ctx, vectorstore.Document{
		ID:       draft.ID,
		OwnerID:  ownerID,
		DocType:  documents.TypeCoverLetter,
		Content:  draft.FullText,
		Metadata: map[string]string{"version": fmt.Sprint(draft.Version)},
	}); err != nil {
		telemetry.Warn("coverletters.index_failed", map[string]any{
			"draft_id": draft.ID,
			"error":    err.Error(),
		})
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
