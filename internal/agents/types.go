package agents

import (
	"regexp"
	"strings"
	"time"
)

var metricPattern = regexp.MustCompile(`\$\s?\d[\d,.]*\s?[kKmMbB]?|\d+(?:\.\d+)?\s?(?:%|x\b)`)

// TechnicalSkill is a hard skill found in a resume.
type TechnicalSkill struct {
	Name     string `json:"name"`
	Level    string `json:"level,omitempty"`
	Years    Number `json:"years,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

type technicalSkillJSON TechnicalSkill

// UnmarshalJSON accepts objects (with "skill"/"context" aliases) or text like
// "Go (Expert, 5 years): built billing services".
func (t *TechnicalSkill) UnmarshalJSON(data []byte) error {
	var aux struct {
		technicalSkillJSON
		Skill   string `json:"skill"`
		Context string `json:"context"`
	}
	err := decodeItem(data, &aux, func(s string) {
		head, detail := splitLabel(s)
		name, paren := splitParen(head)
		aux.Name, aux.Evidence = name, detail
		for _, part := range splitList(paren) {
			if n, ok := leadingNumber(part); ok {
				aux.Years = Number(n)
			} else {
				aux.Level = part
			}
		}
	})
	if err != nil {
		return err
	}
	*t = TechnicalSkill(aux.technicalSkillJSON)
	t.Name = firstNonEmpty(t.Name, aux.Skill)
	t.Evidence = firstNonEmpty(t.Evidence, aux.Context)
	return requireKey("technical skill", "name", t.Name)
}

// SoftSkill is an interpersonal skill with supporting evidence.
type SoftSkill struct {
	Name     string `json:"name"`
	Evidence string `json:"evidence,omitempty"`
}

type softSkillJSON SoftSkill

// UnmarshalJSON accepts objects or "Skill: evidence" text.
func (s *SoftSkill) UnmarshalJSON(data []byte) error {
	var aux struct {
		softSkillJSON
		Skill string `json:"skill"`
	}
	err := decodeItem(data, &aux, func(text string) {
		aux.Name, aux.Evidence = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*s = SoftSkill(aux.softSkillJSON)
	s.Name = firstNonEmpty(s.Name, aux.Skill)
	return requireKey("soft skill", "name", s.Name)
}

// Achievement is a quantifiable accomplishment.
type Achievement struct {
	Description        string  `json:"description"`
	Metrics            string  `json:"metrics,omitempty"`
	SkillsDemonstrated Strings `json:"skills_demonstrated,omitempty"`
}

type achievementJSON Achievement

// UnmarshalJSON accepts objects or free text.
func (a *Achievement) UnmarshalJSON(data []byte) error {
	var aux achievementJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Description = text
		aux.Metrics = metricPattern.FindString(text)
	})
	if err != nil {
		return err
	}
	*a = Achievement(aux)
	return requireKey("achievement", "description", a.Description)
}

// SkillsAnalysisResult is the Skills agent output.
type SkillsAnalysisResult struct {
	TechnicalSkills []TechnicalSkill `json:"technical_skills"`
	SoftSkills      []SoftSkill      `json:"soft_skills"`
	Achievements    []Achievement    `json:"achievements"`
}

// Requirement is a skill asked for by a job description.
type Requirement struct {
	Skill           string `json:"skill"`
	Description     string `json:"description,omitempty"`
	YearsExperience Number `json:"years_experience,omitempty"`
}

type requirementJSON Requirement

// UnmarshalJSON accepts objects (with a "name" alias) or text like
// "Go (5+ years): build services".
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var aux struct {
		requirementJSON
		Name string `json:"name"`
	}
	err := decodeItem(data, &aux, func(text string) {
		head, detail := splitLabel(text)
		name, paren := splitParen(head)
		aux.Skill, aux.Description = name, detail
		if n, ok := leadingNumber(paren); ok {
			aux.YearsExperience = Number(n)
		}
	})
	if err != nil {
		return err
	}
	*r = Requirement(aux.requirementJSON)
	r.Skill = firstNonEmpty(r.Skill, aux.Name)
	return requireKey("requirement", "skill", r.Skill)
}

// CultureSignal is a hint about team or company culture.
type CultureSignal struct {
	Aspect      string `json:"aspect"`
	Description string `json:"description,omitempty"`
}

type cultureSignalJSON CultureSignal

// UnmarshalJSON accepts objects or "Aspect: description" text.
func (c *CultureSignal) UnmarshalJSON(data []byte) error {
	var aux cultureSignalJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Aspect, aux.Description = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*c = CultureSignal(aux)
	return requireKey("culture signal", "aspect", c.Aspect)
}

// Responsibility is a duty of the role.
type Responsibility struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type responsibilityJSON Responsibility

// UnmarshalJSON accepts objects or "Title: description" text.
func (r *Responsibility) UnmarshalJSON(data []byte) error {
	var aux responsibilityJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Title, aux.Description = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*r = Responsibility(aux)
	return requireKey("responsibility", "title", r.Title)
}

// RequirementsAnalysisResult is the Requirements agent output.
type RequirementsAnalysisResult struct {
	CoreRequirements []Requirement    `json:"core_requirements"`
	NiceToHave       []Requirement    `json:"nice_to_have"`
	CultureSignals   []CultureSignal  `json:"culture_signals"`
	Responsibilities []Responsibility `json:"responsibilities"`
}

// SkillGap is a required skill the candidate lacks or has too little of.
type SkillGap struct {
	Skill          string  `json:"skill"`
	Kind           string  `json:"kind"` // missing or partial
	RequiredYears  float64 `json:"required_years"`
	CandidateYears float64 `json:"candidate_years"`
	Gap            float64 `json:"gap"`
}

// SkillMatch is a required skill the candidate meets.
type SkillMatch struct {
	Skill          string  `json:"skill"`
	RequiredYears  float64 `json:"required_years"`
	CandidateYears float64 `json:"candidate_years"`
}

// TalkingPoint is a point the letter should make. Lower priority values come first.
type TalkingPoint struct {
	Point    string `json:"point"`
	Evidence string `json:"evidence,omitempty"`
	Priority int    `json:"priority"`
}

type talkingPointJSON struct {
	Point    string `json:"point"`
	Evidence string `json:"evidence,omitempty"`
	Priority Number `json:"priority"`
	Topic    string `json:"topic"`
}

// UnmarshalJSON accepts objects or "Point: evidence" text.
func (p *TalkingPoint) UnmarshalJSON(data []byte) error {
	var aux talkingPointJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Point, aux.Evidence = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*p = TalkingPoint{
		Point:    firstNonEmpty(aux.Point, aux.Topic),
		Evidence: aux.Evidence,
		Priority: int(aux.Priority),
	}
	return requireKey("talking point", "point", p.Point)
}

// CultureAlignment links a culture signal to candidate evidence.
type CultureAlignment struct {
	Aspect   string `json:"aspect"`
	Evidence string `json:"evidence,omitempty"`
}

type cultureAlignmentJSON CultureAlignment

// UnmarshalJSON accepts objects or "Aspect: evidence" text.
func (c *CultureAlignment) UnmarshalJSON(data []byte) error {
	var aux cultureAlignmentJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Aspect, aux.Evidence = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*c = CultureAlignment(aux)
	return requireKey("culture alignment", "aspect", c.Aspect)
}

// StrategyResult is the Strategy agent output.
type StrategyResult struct {
	SkillGaps           []SkillGap         `json:"skill_gaps"`
	StrongMatches       []SkillMatch       `json:"strong_matches"`
	TalkingPoints       []TalkingPoint     `json:"talking_points"`
	CultureAlignment    []CultureAlignment `json:"culture_alignment"`
	OverallApproach     string             `json:"overall_approach"`
	ToneRecommendations map[string]string  `json:"tone_recommendations,omitempty"`
	SimilarLetters      []string           `json:"similar_letters,omitempty"`
}

// Preferences steer generation.
type Preferences struct {
	Tone               string            `json:"tone,omitempty"`
	Length             string            `json:"length,omitempty"`
	FocusPoints        []string          `json:"focus_points,omitempty"`
	StyleGuide         map[string]string `json:"style_guide,omitempty"`
	CustomInstructions string            `json:"custom_instructions,omitempty"`
}

// Section is one named part of a cover letter.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type sectionJSON struct {
	Name    string `json:"name"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts objects (with a "content" alias) or "Name: text".
func (s *Section) UnmarshalJSON(data []byte) error {
	var aux sectionJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Name, aux.Text = splitLabel(text)
		if aux.Text == "" {
			aux.Name, aux.Text = "body", text
		}
	})
	if err != nil {
		return err
	}
	*s = Section{Name: strings.ToLower(strings.TrimSpace(aux.Name)), Text: strings.TrimSpace(firstNonEmpty(aux.Text, aux.Content))}
	return requireKey("section", "text", s.Text)
}

// CoverLetterDraft is a generated letter. Refinements produce new drafts
// linked by ParentID; drafts are never mutated.
type CoverLetterDraft struct {
	ID        string            `json:"id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Version   int               `json:"version"`
	Sections  []Section         `json:"sections"`
	FullText  string            `json:"full_text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ATSIssue is a formatting problem that may hurt automated parsing.
type ATSIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Suggestion  string `json:"suggestion,omitempty"`
}

type atsIssueJSON ATSIssue

// UnmarshalJSON accepts objects or "type: description" text.
func (i *ATSIssue) UnmarshalJSON(data []byte) error {
	var aux atsIssueJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Type, aux.Description = splitLabel(text)
		if aux.Description == "" {
			aux.Type, aux.Description = "format", text
		}
	})
	if err != nil {
		return err
	}
	*i = ATSIssue(aux)
	i.Severity = normalizeSeverity(i.Severity)
	return requireKey("format issue", "description", i.Description)
}

// Suggestion is an actionable improvement.
type Suggestion struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ATSReport is the ATS-Scan agent output. HeadersAnalysis reports which
// header and contact details were found, keyed like "has_email".
type ATSReport struct {
	Score           int             `json:"score"`
	KeywordMatches  []string        `json:"keyword_matches"`
	MissingKeywords []string        `json:"missing_keywords"`
	FormatIssues    []ATSIssue      `json:"format_issues"`
	Confidence      float64         `json:"confidence"`
	Suggestions     []Suggestion    `json:"suggestions"`
	HeadersAnalysis map[string]bool `json:"headers_analysis,omitempty"`
}

// ValidationIssue is a content problem in a letter.
type ValidationIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

type validationIssueJSON ValidationIssue

// UnmarshalJSON accepts objects or "type: description" text.
func (v *ValidationIssue) UnmarshalJSON(data []byte) error {
	var aux validationIssueJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Type, aux.Description = splitLabel(text)
		if aux.Description == "" {
			aux.Type, aux.Description = "content", text
		}
	})
	if err != nil {
		return err
	}
	*v = ValidationIssue(aux)
	v.Severity = normalizeSeverity(v.Severity)
	return requireKey("validation issue", "description", v.Description)
}

// Claim is a letter statement with its resume evidence.
type Claim struct {
	Claim    string `json:"claim"`
	Evidence string `json:"evidence,omitempty"`
}

type claimJSON Claim

// UnmarshalJSON accepts objects or "claim: evidence" text.
func (c *Claim) UnmarshalJSON(data []byte) error {
	var aux claimJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Claim, aux.Evidence = splitLabel(text)
	})
	if err != nil {
		return err
	}
	*c = Claim(aux)
	return requireKey("claim", "claim", c.Claim)
}

// ValidationReport is the Validation agent output.
type ValidationReport struct {
	Issues              []ValidationIssue `json:"issues"`
	SupportedClaims     []Claim           `json:"supported_claims"`
	RequirementCoverage map[string]bool   `json:"requirement_coverage"`
	Confidence          float64           `json:"confidence"`
	Suggestions         []Suggestion      `json:"suggestions"`
}

// TermVariant groups spellings of one technical term.
type TermVariant struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants,omitempty"`
	Context   string   `json:"context,omitempty"`
}

type termVariantJSON TermVariant

// UnmarshalJSON accepts objects or a bare canonical spelling.
func (v *TermVariant) UnmarshalJSON(data []byte) error {
	var aux termVariantJSON
	err := decodeItem(data, &aux, func(text string) {
		aux.Canonical = text
	})
	if err != nil {
		return err
	}
	*v = TermVariant(aux)
	return nil
}

// Misalignment is a letter term that differs from the job description's form.
type Misalignment struct {
	Current   string `json:"current"`
	Canonical string `json:"canonical"`
}

type misalignmentJSON Misalignment

// UnmarshalJSON accepts objects or "k8s -> Kubernetes" text.
func (m *Misalignment) UnmarshalJSON(data []byte) error {
	var aux misalignmentJSON
	err := decodeItem(data, &aux, func(text string) {
		for _, sep := range []string{"->", "→", "=>", ":"} {
			if i := strings.Index(text, sep); i > 0 {
				aux.Current = strings.TrimSpace(text[:i])
				aux.Canonical = strings.TrimSpace(text[i+len(sep):])
				return
			}
		}
		aux.Current = text
	})
	if err != nil {
		return err
	}
	*m = Misalignment(aux)
	return requireKey("misaligned term", "current", m.Current)
}

// TermSuggestion is a proposed wording change.
type TermSuggestion struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason,omitempty"`
}

// TermsReport is the Terminology agent output.
type TermsReport struct {
	JobTerms         map[string]TermVariant `json:"job_terms"`
	LetterTerms      map[string]TermVariant `json:"letter_terms"`
	MisalignedTerms  []Misalignment         `json:"misaligned_terms"`
	SuggestedChanges []TermSuggestion       `json:"suggested_changes"`
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "severe":
		return "high"
	case "low", "minor":
		return "low"
	default:
		return "medium"
	}
}

func severityRank(s string) int {
	switch normalizeSeverity(s) {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}
