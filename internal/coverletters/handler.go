package coverletters

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/analyses"
	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterModelRoutes attaches the routes that call the model.
func (h *Handler) RegisterModelRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
	rg.POST("/refine/cover-letter", h.refine)
}

// RegisterRoutes attaches the stored draft routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cover-letters", h.save)
	rg.GET("/cover-letters", h.list)
	rg.GET("/cover-letters/:id", h.get)
}

type generateRequest struct {
	JobDescription string             `json:"job_description"`
	ResumeID       string             `json:"resume_id"`
	ResumeContent  string             `json:"resume_content"`
	Preferences    agents.Preferences `json:"preferences"`
	Metadata       map[string]string  `json:"metadata"`
	Validate       bool               `json:"validate"`
	ATSScan        bool               `json:"ats_scan"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		analyses.BadBody(c, err)
		return
	}

	res, err := h.Svc.Generate(c.Request.Context(), GenerateInput{
		OwnerID:        middleware.UserIDFromContext(c),
		JobDescription: req.JobDescription,
		ResumeID:       req.ResumeID,
		ResumeContent:  req.ResumeContent,
		Preferences:    req.Preferences,
		Metadata:       req.Metadata,
		Validate:       req.Validate,
		ATSScan:        req.ATSScan,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Set(middleware.DraftIDKey, res.Draft.ID)
	if req.ResumeID != "" {
		c.Set(middleware.DocumentIDKey, req.ResumeID)
	}
	respond.OK(c, toDraftResponse(res, true))
}

type refineRequest struct {
	CoverLetter   *agents.CoverLetterDraft `json:"cover_letter"`
	CoverLetterID string                   `json:"cover_letter_id"`
	Feedback      string                   `json:"feedback"`

	JobDescription       string                             `json:"job_description"`
	ResumeContent        string                             `json:"resume_content"`
	SkillsAnalysis       *agents.SkillsAnalysisResult       `json:"skills_analysis"`
	RequirementsAnalysis *agents.RequirementsAnalysisResult `json:"requirements_analysis"`
	Strategy             *agents.StrategyResult             `json:"strategy"`
	Preferences          agents.Preferences                 `json:"preferences"`
	Validate             bool                               `json:"validate"`
	ATSScan              bool                               `json:"ats_scan"`
}

func (h *Handler) refine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		analyses.BadBody(c, err)
		return
	}

	res, err := h.Svc.Refine(c.Request.Context(), RefineInput{
		OwnerID:        middleware.UserIDFromContext(c),
		CoverLetterID:  req.CoverLetterID,
		CoverLetter:    req.CoverLetter,
		Feedback:       req.Feedback,
		JobDescription: req.JobDescription,
		ResumeContent:  req.ResumeContent,
		Skills:         req.SkillsAnalysis,
		Requirements:   req.RequirementsAnalysis,
		Strategy:       req.Strategy,
		Preferences:    req.Preferences,
		Validate:       req.Validate,
		ATSScan:        req.ATSScan,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Set(middleware.DraftIDKey, res.Draft.ID)
	respond.OK(c, toDraftResponse(res, false))
}

func (h *Handler) save(c *gin.Context) {
	var draft agents.CoverLetterDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		analyses.BadBody(c, err)
		return
	}

	saved, err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), draft)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Set(middleware.DraftIDKey, saved.ID)
	respond.Created(c, saved)
}

func (h *Handler) get(c *gin.Context) {
	draft, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(middleware.DraftIDKey, draft.ID)
	respond.OK(c, draft)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 50 {
		limit = 50
	}

	drafts, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, drafts)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, analyses.ErrorCodeNotFound, "cover letter or resume not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "cover letter already exists", nil)
	default:
		analyses.RespondError(c, err)
	}
}
