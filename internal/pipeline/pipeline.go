// Package pipeline runs the cover letter agents in order: skills,
// requirements, strategy, generation, then optional validation and ATS scan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/vectorstore"
)

// Stage names, as they appear in errors, logs and metrics.
const (
	StageSkills       = "skills"
	StageRequirements = "requirements"
	StageStrategy     = "strategy"
	StageGeneration   = "generation"
	StageValidation   = "validation"
	StageATS          = "ats"
)

// State is a pipeline checkpoint.
type State string

const (
	StateStart            State = "start"
	StateSkillsDone       State = "skills_done"
	StateRequirementsDone State = "requirements_done"
	StateStrategyDone     State = "strategy_done"
	StateGenerationDone   State = "generation_done"
	StateValidationDone   State = "validation_done"
	StateATSDone          State = "ats_done"
	StateComplete         State = "complete"
)

const (
	resumeContextChunks = 3
	resumeContextRunes  = 4000
	jobContextChunks    = 2
)

// StageError reports which stage halted the pipeline.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage=%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// The stage collaborators. The agents package provides the real ones.
type (
	SkillsAnalyzer interface {
		Analyze(ctx context.Context, content string, metadata map[string]string) (agents.SkillsAnalysisResult, error)
	}
	RequirementsAnalyzer interface {
		Analyze(ctx context.Context, jobDescription string, metadata map[string]string) (agents.RequirementsAnalysisResult, error)
	}
	Strategist interface {
		Plan(ctx context.Context, skills agents.SkillsAnalysisResult, reqs agents.RequirementsAnalysisResult) (agents.StrategyResult, error)
	}
	Generator interface {
		Generate(ctx context.Context, in agents.GenerationInput) (agents.CoverLetterDraft, error)
	}
	Validator interface {
		Validate(ctx context.Context, in agents.ValidationInput) (agents.ValidationReport, error)
	}
	Scanner interface {
		Scan(ctx context.Context, in agents.ATSInput) (agents.ATSReport, error)
	}
	Retriever interface {
		Query(ctx context.Context, text string, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error)
	}
)

// Deps wires the orchestrator. Retriever is optional; without it the resume
// text itself is the generation context.
type Deps struct {
	Skills       SkillsAnalyzer
	Requirements RequirementsAnalyzer
	Strategy     Strategist
	Generation   Generator
	Validation   Validator
	ATS          Scanner
	Retriever    Retriever
}

// Request is one cover letter generation.
type Request struct {
	OwnerID        string
	// ResumeID names the stored resume behind ResumeContent. Retrieval of
	// resume context is scoped to it and skipped when it is empty.
	ResumeID       string
	ResumeContent  string
	JobDescription string
	Preferences    agents.Preferences
	Metadata       map[string]string
	Validate       bool
	ATSScan        bool
}

// SimilarDocument is a stored document whose text was retrieved as
// generation context.
type SimilarDocument struct {
	DocumentID string            `json:"document_id"`
	DocType    string            `json:"doc_type"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Result holds every stage output. Validation and ATS are nil unless asked for.
type Result struct {
	Skills           agents.SkillsAnalysisResult       `json:"skills_analysis"`
	Requirements     agents.RequirementsAnalysisResult `json:"requirements_analysis"`
	Strategy         agents.StrategyResult             `json:"strategy"`
	Draft            agents.CoverLetterDraft           `json:"cover_letter"`
	Validation       *agents.ValidationReport          `json:"validation,omitempty"`
	ATS              *agents.ATSReport                 `json:"ats_report,omitempty"`
	SimilarDocuments []SimilarDocument                 `json:"similar_documents"`
	States           []State                           `json:"states"`
}

// Orchestrator sequences the stages. Each stage starts only after the
// previous one succeeded; the first failure is returned as a *StageError and
// no partial result is returned.
type Orchestrator struct {
	deps Deps
}

// New returns an Orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run executes the full pipeline.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.ResumeContent) == "" {
		return Result{}, &agents.ValidationError{Field: "resume", Message: "must not be empty"}
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return Result{}, &agents.ValidationError{Field: "job_description", Message: "must not be empty"}
	}

	res := Result{States: []State{StateStart}}
	var err error

	res.Skills, err = runStage(ctx, StageSkills, func(ctx context.Context) (agents.SkillsAnalysisResult, error) {
		return o.deps.Skills.Analyze(ctx, req.ResumeContent, req.Metadata)
	})
	if err != nil {
		return Result{}, err
	}
	res.States = append(res.States, StateSkillsDone)

	res.Requirements, err = runStage(ctx, StageRequirements, func(ctx context.Context) (agents.RequirementsAnalysisResult, error) {
		return o.deps.Requirements.Analyze(ctx, req.JobDescription, req.Metadata)
	})
	if err != nil {
		return Result{}, err
	}
	res.States = append(res.States, StateRequirementsDone)

	res.Strategy, err = runStage(ctx, StageStrategy, func(ctx context.Context) (agents.StrategyResult, error) {
		return o.deps.Strategy.Plan(ctx, res.Skills, res.Requirements)
	})
	if err != nil {
		return Result{}, err
	}
	res.States = append(res.States, StateStrategyDone)

	return o.generateAndReview(ctx, req, res, nil, "")
}

// Refine re-enters at generation with feedback, reusing the analyses in prev.
// Upstream stages never run again. Optional stages follow req's flags.
func (o *Orchestrator) Refine(ctx context.Context, prev Result, req Request, feedback string) (Result, error) {
	if strings.TrimSpace(feedback) == "" {
		return Result{}, &agents.ValidationError{Field: "feedback", Message: "must not be empty"}
	}
	prior := prev.Draft
	res := Result{
		Skills:       prev.Skills,
		Requirements: prev.Requirements,
		Strategy:     prev.Strategy,
		States:       []State{StateStrategyDone},
	}
	return o.generateAndReview(ctx, req, res, &prior, feedback)
}

func (o *Orchestrator) generateAndReview(ctx context.Context, req Request, res Result, prior *agents.CoverLetterDraft, feedback string) (Result, error) {
	resumeText, resumeHits := o.resumeContext(ctx, req)
	jobText, jobHits := o.jobContext(ctx, req)

	draft, err := runStage(ctx, StageGeneration, func(ctx context.Context) (agents.CoverLetterDraft, error) {
		return o.deps.Generation.Generate(ctx, agents.GenerationInput{
			Skills:         res.Skills,
			Requirements:   res.Requirements,
			Strategy:       res.Strategy,
			Preferences:    req.Preferences,
			ResumeContext:  resumeText,
			JobContext:     jobText,
			JobDescription: req.JobDescription,
			Feedback:       feedback,
			Prior:          prior,
		})
	})
	if err != nil {
		return Result{}, err
	}
	res.Draft = draft
	res.SimilarDocuments = similarDocuments(resumeHits, jobHits)
	res.States = append(res.States, StateGenerationDone)

	if req.Validate && o.deps.Validation != nil {
		report, err := runStage(ctx, StageValidation, func(ctx context.Context) (agents.ValidationReport, error) {
			return o.deps.Validation.Validate(ctx, agents.ValidationInput{
				Letter:         draft.FullText,
				Resume:         req.ResumeContent,
				JobDescription: req.JobDescription,
			})
		})
		if err != nil {
			return Result{}, err
		}
		res.Validation = &report
		res.States = append(res.States, StateValidationDone)
	}

	if req.ATSScan && o.deps.ATS != nil {
		report, err := runStage(ctx, StageATS, func(ctx context.Context) (agents.ATSReport, error) {
			return o.deps.ATS.Scan(ctx, agents.ATSInput{
				Letter:         draft.FullText,
				JobDescription: req.JobDescription,
				Requirements:   res.Requirements,
			})
		})
		if err != nil {
			return Result{}, err
		}
		res.ATS = &report
		res.States = append(res.States, StateATSDone)
	}

	res.States = append(res.States, StateComplete)
	return res, nil
}

// resumeContext returns the chunks of the stored resume most relevant to the
// job, or the start of the resume when retrieval is unavailable.
func (o *Orchestrator) resumeContext(ctx context.Context, req Request) (string, []vectorstore.Match) {
	fallback := truncate(req.ResumeContent, resumeContextRunes)
	if o.deps.Retriever == nil || req.ResumeID == "" || strings.TrimSpace(req.JobDescription) == "" {
		return fallback, nil
	}
	matches, err := o.deps.Retriever.Query(ctx, req.JobDescription, resumeContextChunks, vectorstore.Filter{
		DocType:    "resume",
		OwnerID:    req.OwnerID,
		DocumentID: req.ResumeID,
	})
	if err != nil {
		telemetry.Warn("pipeline.retrieval_failed", map[string]any{"doc_type": "resume", "error": err.Error()})
		return fallback, nil
	}
	if len(matches) == 0 {
		return fallback, nil
	}
	return vectorstore.Texts(matches), matches
}

// jobContext returns the caller's stored job descriptions most similar to the
// current one. Chunks already contained in the current job description are
// skipped. Retrieval failures leave the context empty.
func (o *Orchestrator) jobContext(ctx context.Context, req Request) (string, []vectorstore.Match) {
	if o.deps.Retriever == nil || strings.TrimSpace(req.JobDescription) == "" {
		return "", nil
	}
	matches, err := o.deps.Retriever.Query(ctx, req.JobDescription, jobContextChunks, vectorstore.Filter{
		DocType: "job_description",
		OwnerID: req.OwnerID,
	})
	if err != nil {
		telemetry.Warn("pipeline.retrieval_failed", map[string]any{"doc_type": "job_description", "error": err.Error()})
		return "", nil
	}
	kept := matches[:0:0]
	for _, m := range matches {
		text := strings.TrimSpace(m.Chunk.Text)
		if text == "" || strings.Contains(req.JobDescription, text) {
			continue
		}
		kept = append(kept, m)
	}
	return vectorstore.Texts(kept), kept
}

// similarDocuments lists each retrieved document once, at its best score,
// in retrieval order.
func similarDocuments(groups ...[]vectorstore.Match) []SimilarDocument {
	out := []SimilarDocument{}
	index := make(map[string]int)
	for _, matches := range groups {
		for _, m := range matches {
			id := m.Chunk.DocumentID
			if i, ok := index[id]; ok {
				if m.Score > out[i].Score {
					out[i].Score = m.Score
				}
				continue
			}
			index[id] = len(out)
			out = append(out, SimilarDocument{
				DocumentID: id,
				DocType:    m.Chunk.DocType,
				Score:      m.Score,
				Metadata:   m.Chunk.Metadata,
			})
		}
	}
	return out
}

func runStage[T any](ctx context.Context, stage string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		metrics.ObserveStage(stage, "canceled", 0)
		return zero, &StageError{Stage: stage, Err: err}
	}
	start := time.Now()
	v, err := fn(ctx)
	elapsed := time.Since(start)
	outcome := stageOutcome(err)
	metrics.ObserveStage(stage, outcome, elapsed)

	fields := map[string]any{
		"stage":       stage,
		"outcome":     outcome,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("pipeline.stage_failed", fields)
		return zero, &StageError{Stage: stage, Err: err}
	}
	telemetry.Info("pipeline.stage", fields)
	return v, nil
}

func stageOutcome(err error) string {
	var verr *agents.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid_input"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return llm.Outcome(err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
