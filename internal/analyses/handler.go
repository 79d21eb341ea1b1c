// Package analyses serves the standalone agent endpoints: skills,
// requirements, strategy, ATS scan, content validation and terminology.
package analyses

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/shared/server/respond"
)

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
	Scanner interface {
		Scan(ctx context.Context, in agents.ATSInput) (agents.ATSReport, error)
	}
	Validator interface {
		Validate(ctx context.Context, in agents.ValidationInput) (agents.ValidationReport, error)
	}
	Standardizer interface {
		Standardize(ctx context.Context, jobDescription, letter string) (agents.TermsReport, error)
	}
)

// Handler wires HTTP handlers to the agents.
type Handler struct {
	Skills       SkillsAnalyzer
	Requirements RequirementsAnalyzer
	Strategy     Strategist
	ATS          Scanner
	Validation   Validator
	Terms        Standardizer
}

// RegisterRoutes attaches the agent routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze/skills", h.skills)
	rg.POST("/analyze/requirements", h.requirements)
	rg.POST("/analyze/strategy", h.strategy)
	rg.POST("/analyze/ats", h.ats)
	rg.POST("/validate/content", h.validate)
	rg.POST("/standardize/terms", h.terms)
}

type skillsRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) skills(c *gin.Context) {
	var req skillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}
	res, err := h.Skills.Analyze(c.Request.Context(), req.Content, req.Metadata)
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, res)
}

type requirementsRequest struct {
	JobDescription string            `json:"job_description"`
	Metadata       map[string]string `json:"metadata"`
}

func (h *Handler) requirements(c *gin.Context) {
	var req requirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}
	res, err := h.Requirements.Analyze(c.Request.Context(), req.JobDescription, req.Metadata)
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, res)
}

// strategyRequest takes raw texts; precomputed analyses skip their agent.
type strategyRequest struct {
	ResumeContent        string                             `json:"resume_content"`
	JobDescription       string                             `json:"job_description"`
	Metadata             map[string]string                  `json:"metadata"`
	SkillsAnalysis       *agents.SkillsAnalysisResult       `json:"skills_analysis"`
	RequirementsAnalysis *agents.RequirementsAnalysisResult `json:"requirements_analysis"`
}

func (h *Handler) strategy(c *gin.Context) {
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}

	var (
		skills agents.SkillsAnalysisResult
		reqs   agents.RequirementsAnalysisResult
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		if req.SkillsAnalysis != nil {
			skills = *req.SkillsAnalysis
			return nil
		}
		var err error
		skills, err = h.Skills.Analyze(ctx, req.ResumeContent, req.Metadata)
		return err
	})
	g.Go(func() error {
		if req.RequirementsAnalysis != nil {
			reqs = *req.RequirementsAnalysis
			return nil
		}
		var err error
		reqs, err = h.Requirements.Analyze(ctx, req.JobDescription, req.Metadata)
		return err
	})
	if err := g.Wait(); err != nil {
		RespondError(c, err)
		return
	}

	res, err := h.Strategy.Plan(c.Request.Context(), skills, reqs)
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, res)
}

type atsRequest struct {
	CoverLetter          LetterText                        `json:"cover_letter"`
	JobDescription       string                            `json:"job_description"`
	RequirementsAnalysis agents.RequirementsAnalysisResult `json:"requirements_analysis"`
}

func (h *Handler) ats(c *gin.Context) {
	var req atsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}
	res, err := h.ATS.Scan(c.Request.Context(), agents.ATSInput{
		Letter:         string(req.CoverLetter),
		JobDescription: req.JobDescription,
		Requirements:   req.RequirementsAnalysis,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, res)
}

type validateRequest struct {
	CoverLetter    LetterText `json:"cover_letter"`
	Resume         string     `json:"resume"`
	JobDescription string     `json:"job_description"`
}

func (h *Handler) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}
	res, err := h.Validation.Validate(c.Request.Context(), agents.ValidationInput{
		Letter:         string(req.CoverLetter),
		Resume:         req.Resume,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.OK(c, res)
}

type termsRequest struct {
	JobDescription string     `json:"job_description"`
	CoverLetter    LetterText `json:"cover_letter"`
}

func (h *Handler) terms(c *gin.Context) {
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadBody(c, err)
		return
	}
	res, err := h.Terms.Standardize(c.Request.Context(), req.JobDescription, string(req.CoverLetter))
	if err != nil {
		RespondError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, res)
}
