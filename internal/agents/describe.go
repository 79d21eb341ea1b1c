package agents

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The describe helpers render analysis results as compact bullet lists for
// prompts. Output is deterministic for a given input.

func describeSkills(s SkillsAnalysisResult) string {
	var b strings.Builder
	for _, t := range s.TechnicalSkills {
		b.WriteString("- " + t.Name)
		var attrs []string
		if t.Level != "" {
			attrs = append(attrs, t.Level)
		}
		if t.Years > 0 {
			attrs = append(attrs, formatYears(float64(t.Years)))
		}
		if len(attrs) > 0 {
			b.WriteString(" (" + strings.Join(attrs, ", ") + ")")
		}
		if t.Evidence != "" {
			b.WriteString(": " + t.Evidence)
		}
		b.WriteByte('\n')
	}
	for _, s := range s.SoftSkills {
		b.WriteString("- " + s.Name)
		if s.Evidence != "" {
			b.WriteString(": " + s.Evidence)
		}
		b.WriteByte('\n')
	}
	for _, a := range s.Achievements {
		b.WriteString("- Achievement: " + a.Description)
		if a.Metrics != "" {
			b.WriteString(" [" + a.Metrics + "]")
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "- none listed"
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeRequirements(r RequirementsAnalysisResult) string {
	var b strings.Builder
	write := func(prefix string, reqs []Requirement) {
		for _, req := range reqs {
			b.WriteString("- " + prefix + req.Skill)
			if req.YearsExperience > 0 {
				b.WriteString(" (" + formatYears(float64(req.YearsExperience)) + ")")
			}
			if req.Description != "" {
				b.WriteString(": " + req.Description)
			}
			b.WriteByte('\n')
		}
	}
	write("", r.CoreRequirements)
	write("Nice to have: ", r.NiceToHave)
	for _, c := range r.CultureSignals {
		fmt.Fprintf(&b, "- Culture: %s", c.Aspect)
		if c.Description != "" {
			b.WriteString(": " + c.Description)
		}
		b.WriteByte('\n')
	}
	for _, resp := range r.Responsibilities {
		b.WriteString("- Responsibility: " + resp.Title)
		if resp.Description != "" {
			b.WriteString(": " + resp.Description)
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "- none listed"
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeStrategy(s StrategyResult) string {
	var b strings.Builder
	if s.OverallApproach != "" {
		b.WriteString("Approach: " + s.OverallApproach + "\n")
	}
	for _, p := range s.TalkingPoints {
		b.WriteString("- " + p.Point)
		if p.Evidence != "" {
			b.WriteString(" (evidence: " + p.Evidence + ")")
		}
		b.WriteByte('\n')
	}
	for _, c := range s.CultureAlignment {
		b.WriteString("- Culture fit, " + c.Aspect)
		if c.Evidence != "" {
			b.WriteString(": " + c.Evidence)
		}
		b.WriteByte('\n')
	}
	for _, g := range s.SkillGaps {
		fmt.Fprintf(&b, "- Gap to handle carefully: %s (%s)\n", g.Skill, g.Kind)
	}
	for _, k := range sortedKeys(s.ToneRecommendations) {
		fmt.Fprintf(&b, "- Tone %s: %s\n", k, s.ToneRecommendations[k])
	}
	if b.Len() == 0 {
		return "- no specific strategy"
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatYears(y float64) string {
	s := strconv.FormatFloat(y, 'f', -1, 64)
	if y == 1 {
		return s + " year"
	}
	return s + " years"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
