package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

var atsSchema = Schema{Fields: []Field{
	{Name: "keyword_match_score", Kind: KindNumber | KindString, Required: true, Aliases: []string{"keyword match score", "keyword score", "match score"}},
	{Name: "key_terms_found", Kind: KindArray, Aliases: []string{"key terms found", "keywords found", "matched keywords"}},
	{Name: "key_terms_missing", Kind: KindArray, Aliases: []string{"key terms missing", "missing keywords", "missing terms"}},
	{Name: "format_issues", Kind: KindArray, Aliases: []string{"format issues", "formatting issues"}},
	{Name: "parse_confidence", Kind: KindNumber | KindString, Aliases: []string{"parse confidence", "confidence"}},
	{Name: "headers_analysis", Kind: KindObject},
}}

type atsReply struct {
	KeywordMatchScore Number     `json:"keyword_match_score"`
	KeyTermsFound     Strings    `json:"key_terms_found"`
	KeyTermsMissing   Strings    `json:"key_terms_missing"`
	FormatIssues      []ATSIssue `json:"format_issues"`
	ParseConfidence   *Number    `json:"parse_confidence"`
	HeadersAnalysis   Flags      `json:"headers_analysis"`
}

const (
	localKeywordWeight = 0.6
	highIssuePenalty   = 0.1
	maxKeywordHints    = 5
)

// ATSInput is what the ATS-Scan agent reads.
type ATSInput struct {
	Letter         string
	JobDescription string
	Requirements   RequirementsAnalysisResult
}

// ATSAgent estimates how a letter fares with automated screening.
type ATSAgent struct {
	r *Runner
}

// NewATSAgent returns an ATSAgent backed by r.
func NewATSAgent(r *Runner) *ATSAgent {
	return &ATSAgent{r: r}
}

// Scan runs local keyword matching alongside the model review and blends the
// two. The score is 60% local keyword coverage and 40% the model's keyword
// score, or the model score alone when no keywords could be extracted.
func (a *ATSAgent) Scan(ctx context.Context, in ATSInput) (ATSReport, error) {
	if err := requireText("cover_letter", in.Letter); err != nil {
		return ATSReport{}, err
	}
	if err := requireText("job_description", in.JobDescription); err != nil {
		return ATSReport{}, err
	}

	var skills []string
	for _, r := range in.Requirements.CoreRequirements {
		skills = append(skills, r.Skill)
	}
	prompt, err := render(AgentATS, struct {
		Letter         string
		JobDescription string
		Keywords       []string
	}{in.Letter, in.JobDescription, skills})
	if err != nil {
		return ATSReport{}, err
	}

	var (
		keywords       []string
		found, missing []string
		reply          atsReply
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keywords = ExtractKeywords(in.Requirements, in.JobDescription)
		found, missing = MatchKeywords(keywords, in.Letter)
		return nil
	})
	g.Go(func() error {
		var err error
		reply, err = runAgent[atsReply](gctx, a.r, AgentATS, prompt, atsSchema)
		return err
	})
	if err := g.Wait(); err != nil {
		return ATSReport{}, err
	}

	modelScore := clamp01(unitScale(float64(reply.KeywordMatchScore)))
	score := modelScore
	if len(keywords) > 0 {
		local := float64(len(found)) / float64(len(keywords))
		score = localKeywordWeight*local + (1-localKeywordWeight)*modelScore
	}

	confidence := 1.0
	if reply.ParseConfidence != nil {
		confidence = clamp01(unitScale(float64(*reply.ParseConfidence)))
	}
	issues := reply.FormatIssues
	if issues == nil {
		issues = []ATSIssue{}
	}
	for _, is := range issues {
		if is.Severity == "high" {
			confidence -= highIssuePenalty
		}
	}

	matched := mergeTerms(found, reply.KeyTermsFound)
	report := ATSReport{
		Score:           int(math.Round(100 * clamp01(score))),
		KeywordMatches:  matched,
		MissingKeywords: excludeTerms(mergeTerms(missing, reply.KeyTermsMissing), matched),
		FormatIssues:    issues,
		Confidence:      clamp01(confidence),
		HeadersAnalysis: map[string]bool(reply.HeadersAnalysis),
	}
	report.Suggestions = atsSuggestions(report, in.Requirements)
	return report, nil
}

func atsSuggestions(report ATSReport, reqs RequirementsAnalysisResult) []Suggestion {
	core := make(map[string]bool)
	for _, r := range reqs.CoreRequirements {
		core[strings.ToLower(strings.TrimSpace(r.Skill))] = true
	}
	out := []Suggestion{}
	for i, kw := range report.MissingKeywords {
		if i == maxKeywordHints {
			break
		}
		priority := "medium"
		if core[strings.ToLower(kw)] {
			priority = "high"
		}
		out = append(out, Suggestion{
			Type:        "keyword",
			Description: fmt.Sprintf("Mention %s if your experience supports it", kw),
			Priority:    priority,
		})
	}
	for _, is := range report.FormatIssues {
		out = append(out, Suggestion{
			Type:        "format",
			Description: firstNonEmpty(is.Suggestion, is.Description),
			Priority:    is.Severity,
		})
	}
	for _, name := range sortedKeys(report.HeadersAnalysis) {
		if report.HeadersAnalysis[name] {
			continue
		}
		out = append(out, Suggestion{
			Type:        "header",
			Description: fmt.Sprintf("Include your %s where a parser can find it", headerLabel(name)),
			Priority:    "medium",
		})
	}
	sortSuggestions(out)
	return out
}

// headerLabel turns "has_phone_number" into "phone number".
func headerLabel(name string) string {
	name = strings.TrimPrefix(strings.ToLower(name), "has_")
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }), " ")
}

func sortSuggestions(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return severityRank(s[i].Priority) < severityRank(s[j].Priority)
	})
}

// mergeTerms appends extra to base, skipping case-insensitive duplicates.
func mergeTerms(base []string, extra []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

func excludeTerms(terms, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[strings.ToLower(d)] = true
	}
	out := []string{}
	for _, t := range terms {
		if !skip[strings.ToLower(t)] {
			out = append(out, t)
		}
	}
	return out
}

// unitScale maps percentages (values above 1) onto 0..1.
func unitScale(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
