package agents

import (
	"context"
	"fmt"
)

var validationSchema = Schema{Fields: []Field{
	{Name: "issues", Kind: KindArray, Required: true, Aliases: []string{"problems", "content issues"}},
	{Name: "confidence_score", Kind: KindNumber | KindString, Required: true, Aliases: []string{"confidence score", "confidence"}},
	{Name: "supported_claims", Kind: KindArray, Aliases: []string{"supported claims", "verified claims"}},
	{Name: "requirement_coverage", Kind: KindObject},
}}

type validationReply struct {
	Issues              []ValidationIssue `json:"issues"`
	ConfidenceScore     Number            `json:"confidence_score"`
	SupportedClaims     []Claim           `json:"supported_claims"`
	RequirementCoverage map[string]bool   `json:"requirement_coverage"`
}

// ValidationInput is what the Validation agent reads. JobDescription is
// optional; without it requirement coverage is not judged.
type ValidationInput struct {
	Letter         string
	Resume         string
	JobDescription string
}

// ValidationAgent checks a letter's claims against the resume.
type ValidationAgent struct {
	r *Runner
}

// NewValidationAgent returns a ValidationAgent backed by r.
func NewValidationAgent(r *Runner) *ValidationAgent {
	return &ValidationAgent{r: r}
}

// Validate reports unsupported claims and uncovered requirements. Suggestions
// are ordered high, medium, then low severity.
func (a *ValidationAgent) Validate(ctx context.Context, in ValidationInput) (ValidationReport, error) {
	if err := requireText("cover_letter", in.Letter); err != nil {
		return ValidationReport{}, err
	}
	if err := requireText("resume", in.Resume); err != nil {
		return ValidationReport{}, err
	}
	prompt, err := render(AgentValidation, in)
	if err != nil {
		return ValidationReport{}, err
	}
	reply, err := runAgent[validationReply](ctx, a.r, AgentValidation, prompt, validationSchema)
	if err != nil {
		return ValidationReport{}, err
	}

	report := ValidationReport{
		Issues:              reply.Issues,
		SupportedClaims:     reply.SupportedClaims,
		RequirementCoverage: reply.RequirementCoverage,
		Confidence:          clamp01(unitScale(float64(reply.ConfidenceScore))),
	}
	if report.Issues == nil {
		report.Issues = []ValidationIssue{}
	}
	if report.SupportedClaims == nil {
		report.SupportedClaims = []Claim{}
	}
	if report.RequirementCoverage == nil {
		report.RequirementCoverage = map[string]bool{}
	}

	suggestions := []Suggestion{}
	for _, is := range report.Issues {
		suggestions = append(suggestions, Suggestion{
			Type:        is.Type,
			Description: firstNonEmpty(is.Suggestion, is.Description),
			Priority:    is.Severity,
		})
	}
	for _, req := range sortedKeys(report.RequirementCoverage) {
		if !report.RequirementCoverage[req] {
			suggestions = append(suggestions, Suggestion{
				Type:        "requirement_coverage",
				Description: fmt.Sprintf("Address the %s requirement", req),
				Priority:    "medium",
			})
		}
	}
	sortSuggestions(suggestions)
	report.Suggestions = suggestions
	return report, nil
}
