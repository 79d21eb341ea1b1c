package agents

import (
	"context"
)

var skillsSchema = Schema{Fields: []Field{
	{Name: "technical_skills", Kind: KindArray, Required: true, Aliases: []string{"technical skills", "hard skills", "skills"}},
	{Name: "soft_skills", Kind: KindArray, Aliases: []string{"soft skills", "interpersonal skills"}},
	{Name: "achievements", Kind: KindArray, Aliases: []string{"key achievements", "accomplishments"}},
}}

// SkillsAgent extracts skills and achievements from resume text.
type SkillsAgent struct {
	r *Runner
}

// NewSkillsAgent returns a SkillsAgent backed by r.
func NewSkillsAgent(r *Runner) *SkillsAgent {
	return &SkillsAgent{r: r}
}

// Analyze returns the skills found in content.
func (a *SkillsAgent) Analyze(ctx context.Context, content string, metadata map[string]string) (SkillsAnalysisResult, error) {
	if err := requireText("content", content); err != nil {
		return SkillsAnalysisResult{}, err
	}
	prompt, err := render(AgentSkills, struct {
		Content  string
		Metadata map[string]string
	}{content, metadata})
	if err != nil {
		return SkillsAnalysisResult{}, err
	}
	res, err := runAgent[SkillsAnalysisResult](ctx, a.r, AgentSkills, prompt, skillsSchema)
	if err != nil {
		return SkillsAnalysisResult{}, err
	}
	if res.TechnicalSkills == nil {
		res.TechnicalSkills = []TechnicalSkill{}
	}
	if res.SoftSkills == nil {
		res.SoftSkills = []SoftSkill{}
	}
	if res.Achievements == nil {
		res.Achievements = []Achievement{}
	}
	return res, nil
}
