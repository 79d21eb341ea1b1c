package agents

import (
	"context"
	"sort"
	"strings"

	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/vectorstore"
)

var strategySchema = Schema{Fields: []Field{
	{Name: "talking_points", Kind: KindArray, Required: true, Aliases: []string{"talking points", "key points", "points"}},
	{Name: "culture_alignment", Kind: KindArray, Aliases: []string{"culture alignment", "culture fit"}},
	{Name: "overall_approach", Kind: KindString, Aliases: []string{"overall approach", "approach"}},
	{Name: "tone_recommendations", Kind: KindObject, Aliases: []string{"tone recommendations", "tone"}},
}}

type strategyReply struct {
	TalkingPoints       []TalkingPoint     `json:"talking_points"`
	CultureAlignment    []CultureAlignment `json:"culture_alignment"`
	OverallApproach     string             `json:"overall_approach"`
	ToneRecommendations map[string]string  `json:"tone_recommendations"`
}

// LetterSearcher finds indexed text similar to a query.
type LetterSearcher interface {
	Query(ctx context.Context, text string, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error)
}

const (
	similarLetterCount = 2
	similarLetterRunes = 800
)

// StrategyAgent plans what a cover letter should emphasize.
type StrategyAgent struct {
	r       *Runner
	letters LetterSearcher
}

// NewStrategyAgent returns a StrategyAgent. letters may be nil, in which case
// no earlier letters are used as reference.
func NewStrategyAgent(r *Runner, letters LetterSearcher) *StrategyAgent {
	return &StrategyAgent{r: r, letters: letters}
}

// Plan combines a local gap analysis with the model's talking points.
func (a *StrategyAgent) Plan(ctx context.Context, skills SkillsAnalysisResult, reqs RequirementsAnalysisResult) (StrategyResult, error) {
	if len(skills.TechnicalSkills)+len(skills.SoftSkills) == 0 {
		return StrategyResult{}, &ValidationError{Field: "skills_analysis", Message: "no skills to plan from"}
	}
	if len(reqs.CoreRequirements)+len(reqs.NiceToHave) == 0 {
		return StrategyResult{}, &ValidationError{Field: "requirements_analysis", Message: "no requirements to plan against"}
	}

	gaps, matches := AnalyzeGaps(skills, reqs)
	similar := a.similarLetters(ctx, reqs)

	prompt, err := render(AgentStrategy, struct {
		Skills         string
		Requirements   string
		Gaps           []SkillGap
		Matches        []SkillMatch
		SimilarLetters []string
	}{describeSkills(skills), describeRequirements(reqs), gaps, matches, similar})
	if err != nil {
		return StrategyResult{}, err
	}
	reply, err := runAgent[strategyReply](ctx, a.r, AgentStrategy, prompt, strategySchema)
	if err != nil {
		return StrategyResult{}, err
	}

	points := append([]TalkingPoint(nil), reply.TalkingPoints...)
	sort.SliceStable(points, func(i, j int) bool {
		return priorityRank(points[i].Priority) < priorityRank(points[j].Priority)
	})
	if reply.CultureAlignment == nil {
		reply.CultureAlignment = []CultureAlignment{}
	}
	return StrategyResult{
		SkillGaps:           gaps,
		StrongMatches:       matches,
		TalkingPoints:       points,
		CultureAlignment:    reply.CultureAlignment,
		OverallApproach:     reply.OverallApproach,
		ToneRecommendations: reply.ToneRecommendations,
		SimilarLetters:      similar,
	}, nil
}

// priorityRank orders unset priorities after every explicit one.
func priorityRank(p int) int {
	if p <= 0 {
		return int(^uint(0) >> 1)
	}
	return p
}

func (a *StrategyAgent) similarLetters(ctx context.Context, reqs RequirementsAnalysisResult) []string {
	if a.letters == nil {
		return nil
	}
	var terms []string
	for _, r := range reqs.CoreRequirements {
		terms = append(terms, r.Skill)
	}
	for _, r := range reqs.NiceToHave {
		terms = append(terms, r.Skill)
	}
	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		return nil
	}
	matches, err := a.letters.Query(ctx, query, similarLetterCount, vectorstore.Filter{DocType: "cover_letter"})
	if err != nil {
		telemetry.Warn("strategy.similar_letters_failed", map[string]any{"error": err.Error()})
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, truncateRunes(m.Chunk.Text, similarLetterRunes))
	}
	return out
}

// AnalyzeGaps compares core requirements with the candidate's technical
// skills. A skill matches a requirement when the names are equal ignoring case
// or one appears as a whole word inside the other. A match counts as strong
// when the candidate's years are unknown or at least the required years.
// Known years below the requirement make a partial gap; no matching skill
// makes a missing gap.
func AnalyzeGaps(skills SkillsAnalysisResult, reqs RequirementsAnalysisResult) ([]SkillGap, []SkillMatch) {
	gaps := []SkillGap{}
	matches := []SkillMatch{}
	for _, req := range reqs.CoreRequirements {
		name := strings.TrimSpace(req.Skill)
		if name == "" {
			continue
		}
		required := float64(req.YearsExperience)
		skill, ok := findSkill(skills.TechnicalSkills, name)
		switch {
		case !ok:
			gaps = append(gaps, SkillGap{Skill: name, Kind: "missing", RequiredYears: required, Gap: required})
		case skill.Years > 0 && float64(skill.Years) < required:
			have := float64(skill.Years)
			gaps = append(gaps, SkillGap{Skill: name, Kind: "partial", RequiredYears: required, CandidateYears: have, Gap: required - have})
		default:
			matches = append(matches, SkillMatch{Skill: name, RequiredYears: required, CandidateYears: float64(skill.Years)})
		}
	}
	return gaps, matches
}

func findSkill(skills []TechnicalSkill, name string) (TechnicalSkill, bool) {
	for _, s := range skills {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return s, true
		}
	}
	for _, s := range skills {
		have := strings.TrimSpace(s.Name)
		if have == "" {
			continue
		}
		if containsTerm(have, name) || containsTerm(name, have) {
			return s, true
		}
	}
	return TechnicalSkill{}, false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
