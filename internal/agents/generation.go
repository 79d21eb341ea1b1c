package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"coverletter-backend/internal/llm"
)

// sectionOrder is the canonical order of letter sections.
var sectionOrder = []string{"greeting", "introduction", "body", "closing", "signature"}

var generationSchema = Schema{
	Fields: []Field{
		{Name: "sections", Kind: KindArray | KindObject, Required: true},
	},
	Fallback: sectionsFromProse,
}

type generationReply struct {
	Sections sectionList `json:"sections"`
}

// sectionList decodes from an array of sections or from an object keyed by
// section name. Object keys follow sectionOrder, unknown names last.
type sectionList []Section

func (l *sectionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var byName map[string]string
		if err := json.Unmarshal(data, &byName); err != nil {
			return err
		}
		names := sortedKeys(byName)
		sort.SliceStable(names, func(i, j int) bool {
			return sectionRank(names[i]) < sectionRank(names[j])
		})
		out := make([]Section, 0, len(names))
		for _, n := range names {
			sec := Section{Name: strings.ToLower(n), Text: strings.TrimSpace(byName[n])}
			if err := requireKey("section", "text", sec.Text); err != nil {
				return err
			}
			out = append(out, sec)
		}
		*l = out
		return nil
	}
	var arr []Section
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*l = arr
	return nil
}

func sectionRank(name string) int {
	for i, n := range sectionOrder {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return len(sectionOrder)
}

// sectionsFromProse reads a plain-text letter: a leading "Dear ..." line is
// the greeting, a trailing sign-off starts the closing, the first paragraph
// is the introduction and the rest is the body.
func sectionsFromProse(raw string) ([]byte, bool) {
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, false
	}
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) < 2 {
		return nil, false
	}

	var sections []Section
	if first := paras[0]; strings.HasPrefix(strings.ToLower(first), "dear") {
		greeting, rest, _ := strings.Cut(first, "\n")
		sections = append(sections, Section{Name: "greeting", Text: strings.TrimSpace(greeting)})
		if rest = strings.TrimSpace(rest); rest != "" {
			paras[0] = rest
		} else {
			paras = paras[1:]
		}
	}

	var closing []string
	for i, p := range paras {
		if isSignOff(p) {
			closing = paras[i:]
			paras = paras[:i]
			break
		}
	}
	if len(paras) > 0 {
		sections = append(sections, Section{Name: "introduction", Text: paras[0]})
	}
	if len(paras) > 1 {
		sections = append(sections, Section{Name: "body", Text: strings.Join(paras[1:], "\n\n")})
	}
	if len(closing) > 0 {
		signOff, signature, _ := strings.Cut(strings.Join(closing, "\n"), "\n")
		sections = append(sections, Section{Name: "closing", Text: strings.TrimSpace(signOff)})
		if signature = strings.TrimSpace(signature); signature != "" {
			sections = append(sections, Section{Name: "signature", Text: signature})
		}
	}
	out, err := json.Marshal(map[string]any{"sections": sections})
	if err != nil {
		return nil, false
	}
	return out, true
}

func isSignOff(p string) bool {
	lower := strings.ToLower(p)
	for _, s := range []string{"sincerely", "best regards", "kind regards", "regards", "thank you for your consideration", "respectfully", "warm regards"} {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// GenerationInput carries everything the Generation agent may use. Prior and
// Feedback are set when refining an earlier draft.
type GenerationInput struct {
	Skills         SkillsAnalysisResult
	Requirements   RequirementsAnalysisResult
	Strategy       StrategyResult
	Preferences    Preferences
	ResumeContext  string
	// JobContext holds excerpts of similar past job descriptions.
	JobContext     string
	JobDescription string
	Feedback       string
	Prior          *CoverLetterDraft
}

// GenerationAgent writes cover letter drafts.
type GenerationAgent struct {
	r *Runner
}

// NewGenerationAgent returns a GenerationAgent backed by r.
func NewGenerationAgent(r *Runner) *GenerationAgent {
	return &GenerationAgent{r: r}
}

// Generate writes a draft. With in.Prior set the draft is a refinement: it
// gets a new ID, ParentID = Prior.ID and Version = Prior.Version + 1 (a
// prior without a version counts as version 1). The prior is not modified.
func (a *GenerationAgent) Generate(ctx context.Context, in GenerationInput) (CoverLetterDraft, error) {
	if err := validateGeneration(in); err != nil {
		return CoverLetterDraft{}, err
	}

	var priorText string
	if in.Prior != nil {
		priorText = in.Prior.FullText
		if strings.TrimSpace(priorText) == "" {
			priorText = JoinSections(in.Prior.Sections)
		}
	}
	prompt, err := render(AgentGeneration, struct {
		Skills         string
		Requirements   string
		Strategy       string
		Preferences    Preferences
		ResumeContext  string
		JobContext     string
		JobDescription string
		PriorLetter    string
		Feedback       string
	}{
		Skills:         describeSkills(in.Skills),
		Requirements:   describeRequirements(in.Requirements),
		Strategy:       describeStrategy(in.Strategy),
		Preferences:    in.Preferences,
		ResumeContext:  in.ResumeContext,
		JobContext:     in.JobContext,
		JobDescription: in.JobDescription,
		PriorLetter:    priorText,
		Feedback:       in.Feedback,
	})
	if err != nil {
		return CoverLetterDraft{}, err
	}
	reply, err := runAgent[generationReply](ctx, a.r, AgentGeneration, prompt, generationSchema)
	if err != nil {
		return CoverLetterDraft{}, err
	}

	sections := make([]Section, 0, len(reply.Sections))
	for _, s := range reply.Sections {
		if strings.TrimSpace(s.Text) != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		return CoverLetterDraft{}, &ModelError{Agent: AgentGeneration, Err: &llm.MalformedResponseError{Reason: "reply has no section text"}}
	}

	draft := CoverLetterDraft{
		ID:        uuid.NewString(),
		Version:   1,
		Sections:  sections,
		FullText:  JoinSections(sections),
		Metadata:  map[string]string{},
		CreatedAt: a.r.now().UTC(),
	}
	if in.Preferences.Tone != "" {
		draft.Metadata["tone"] = in.Preferences.Tone
	}
	if in.Preferences.Length != "" {
		draft.Metadata["length"] = in.Preferences.Length
	}
	if in.Prior != nil {
		parentVersion := in.Prior.Version
		if parentVersion < 1 {
			parentVersion = 1
		}
		draft.ParentID = in.Prior.ID
		draft.Version = parentVersion + 1
		draft.Metadata["refined"] = "true"
		draft.Metadata["parent_version"] = strconv.Itoa(parentVersion)
	}
	return draft, nil
}

// Refine rewrites prior according to feedback without re-running analysis.
func (a *GenerationAgent) Refine(ctx context.Context, prior CoverLetterDraft, feedback string) (CoverLetterDraft, error) {
	return a.Generate(ctx, GenerationInput{Prior: &prior, Feedback: feedback})
}

func validateGeneration(in GenerationInput) error {
	if in.Prior != nil {
		if strings.TrimSpace(in.Prior.FullText) == "" && len(in.Prior.Sections) == 0 {
			return &ValidationError{Field: "cover_letter", Message: "must not be empty"}
		}
		return requireText("feedback", in.Feedback)
	}
	if len(in.Skills.TechnicalSkills)+len(in.Skills.SoftSkills) == 0 && strings.TrimSpace(in.ResumeContext) == "" {
		return &ValidationError{Field: "skills_analysis", Message: "skills or resume context required"}
	}
	if len(in.Requirements.CoreRequirements)+len(in.Requirements.NiceToHave) == 0 && strings.TrimSpace(in.JobDescription) == "" {
		return &ValidationError{Field: "requirements_analysis", Message: "requirements or job description required"}
	}
	return nil
}

// JoinSections returns the section texts separated by blank lines.
func JoinSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
