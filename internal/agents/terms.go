package agents

import (
	"context"
	"fmt"
	"strings"
)

var termsSchema = Schema{Fields: []Field{
	{Name: "misaligned_terms", Kind: KindArray, Required: true, Aliases: []string{"misaligned terms", "misalignments", "inconsistent terms"}},
	{Name: "job_terms", Kind: KindObject},
	{Name: "letter_terms", Kind: KindObject},
}}

type termsReply struct {
	JobTerms        map[string]TermVariant `json:"job_terms"`
	LetterTerms     map[string]TermVariant `json:"letter_terms"`
	MisalignedTerms []Misalignment         `json:"misaligned_terms"`
}

// TermsAgent aligns a letter's technical vocabulary with the job description.
type TermsAgent struct {
	r *Runner
}

// NewTermsAgent returns a TermsAgent backed by r.
func NewTermsAgent(r *Runner) *TermsAgent {
	return &TermsAgent{r: r}
}

// Standardize finds terms the letter spells differently from the job
// description and proposes replacements.
func (a *TermsAgent) Standardize(ctx context.Context, jobDescription, letter string) (TermsReport, error) {
	if err := requireText("job_description", jobDescription); err != nil {
		return TermsReport{}, err
	}
	if err := requireText("cover_letter", letter); err != nil {
		return TermsReport{}, err
	}
	prompt, err := render(AgentTerms, struct {
		JobDescription string
		Letter         string
	}{jobDescription, letter})
	if err != nil {
		return TermsReport{}, err
	}
	reply, err := runAgent[termsReply](ctx, a.r, AgentTerms, prompt, termsSchema)
	if err != nil {
		return TermsReport{}, err
	}

	report := TermsReport{
		JobTerms:         reply.JobTerms,
		LetterTerms:      reply.LetterTerms,
		MisalignedTerms:  []Misalignment{},
		SuggestedChanges: []TermSuggestion{},
	}
	if report.JobTerms == nil {
		report.JobTerms = map[string]TermVariant{}
	}
	if report.LetterTerms == nil {
		report.LetterTerms = map[string]TermVariant{}
	}
	seen := make(map[string]bool)
	for _, m := range reply.MisalignedTerms {
		current, canonical := strings.TrimSpace(m.Current), strings.TrimSpace(m.Canonical)
		if current == "" || canonical == "" || current == canonical || seen[current] {
			continue
		}
		seen[current] = true
		report.MisalignedTerms = append(report.MisalignedTerms, Misalignment{Current: current, Canonical: canonical})
		report.SuggestedChanges = append(report.SuggestedChanges, TermSuggestion{
			Original:    current,
			Replacement: canonical,
			Reason:      fmt.Sprintf("the job description uses %q", canonical),
		})
	}
	return report, nil
}
