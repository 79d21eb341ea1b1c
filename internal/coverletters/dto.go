package coverletters

import (
	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/pipeline"
)

// draftResponse is a CoverLetterDraft with the reports produced alongside it.
// Generation also returns the analyses so a client can refine without
// repeating them.
type draftResponse struct {
	agents.CoverLetterDraft
	SkillsAnalysis       *agents.SkillsAnalysisResult       `json:"skills_analysis,omitempty"`
	RequirementsAnalysis *agents.RequirementsAnalysisResult `json:"requirements_analysis,omitempty"`
	Strategy             *agents.StrategyResult             `json:"strategy,omitempty"`
	Validation           *agents.ValidationReport           `json:"validation,omitempty"`
	ATSReport            *agents.ATSReport                  `json:"ats_report,omitempty"`
	SimilarDocuments     []pipeline.SimilarDocument         `json:"similar_documents"`
	States               []pipeline.State                   `json:"states,omitempty"`
}

func toDraftResponse(res pipeline.Result, withAnalyses bool) draftResponse {
	out := draftResponse{
		CoverLetterDraft: res.Draft,
		Validation:       res.Validation,
		ATSReport:        res.ATS,
		SimilarDocuments: res.SimilarDocuments,
		States:           res.States,
	}
	if out.SimilarDocuments == nil {
		out.SimilarDocuments = []pipeline.SimilarDocument{}
	}
	if withAnalyses {
		out.SkillsAnalysis = &res.Skills
		out.RequirementsAnalysis = &res.Requirements
		out.Strategy = &res.Strategy
	}
	return out
}
