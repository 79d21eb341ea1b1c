package agents

import (
	"context"
)

var requirementsSchema = Schema{Fields: []Field{
	{Name: "core_requirements", Kind: KindArray, Required: true, Aliases: []string{"core requirements", "requirements", "required skills", "must have"}},
	{Name: "nice_to_have", Kind: KindArray, Aliases: []string{"nice to have", "preferred", "preferred qualifications", "bonus"}},
	{Name: "culture_signals", Kind: KindArray, Aliases: []string{"culture signals", "culture", "company culture"}},
	{Name: "responsibilities", Kind: KindArray, Aliases: []string{"key responsibilities", "duties"}},
}}

// RequirementsAgent extracts requirements from a job description.
type RequirementsAgent struct {
	r *Runner
}

// NewRequirementsAgent returns a RequirementsAgent backed by r.
func NewRequirementsAgent(r *Runner) *RequirementsAgent {
	return &RequirementsAgent{r: r}
}

// Analyze returns the requirements stated in jobDescription.
func (a *RequirementsAgent) Analyze(ctx context.Context, jobDescription string, metadata map[string]string) (RequirementsAnalysisResult, error) {
	if err := requireText("job_description", jobDescription); err != nil {
		return RequirementsAnalysisResult{}, err
	}
	prompt, err := render(AgentRequirements, struct {
		JobDescription string
		Metadata       map[string]string
	}{jobDescription, metadata})
	if err != nil {
		return RequirementsAnalysisResult{}, err
	}
	res, err := runAgent[RequirementsAnalysisResult](ctx, a.r, AgentRequirements, prompt, requirementsSchema)
	if err != nil {
		return RequirementsAnalysisResult{}, err
	}
	if res.CoreRequirements == nil {
		res.CoreRequirements = []Requirement{}
	}
	if res.NiceToHave == nil {
		res.NiceToHave = []Requirement{}
	}
	if res.CultureSignals == nil {
		res.CultureSignals = []CultureSignal{}
	}
	if res.Responsibilities == nil {
		res.Responsibilities = []Responsibility{}
	}
	return res, nil
}
