package agents

import (
	"regexp"
	"strings"
	"unicode"
)

const maxKeywords = 30

var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#./-]*`)

// ExtractKeywords returns the terms an applicant tracking system is likely to
// look for: requirement skills first, then salient job-description tokens
// (acronyms, mixed-case product names, tokens with digits or symbols such as
// "C++" or "S3"). Duplicates are dropped case-insensitively and the list is
// capped.
func ExtractKeywords(reqs RequirementsAnalysisResult, jobDescription string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] || len(out) >= maxKeywords {
			return
		}
		seen[key] = true
		out = append(out, term)
	}
	for _, r := range reqs.CoreRequirements {
		add(r.Skill)
	}
	for _, r := range reqs.NiceToHave {
		add(r.Skill)
	}
	for _, tok := range tokenPattern.FindAllString(jobDescription, -1) {
		tok = strings.TrimRight(tok, ".-/")
		if salient(tok) {
			add(tok)
		}
	}
	return out
}

func salient(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	upper := 0
	for i, r := range tok {
		switch {
		case unicode.IsUpper(r):
			upper++
			if i > 0 {
				return true
			}
		case unicode.IsDigit(r), r == '+', r == '#':
			return true
		case r == '.' && i > 0:
			return true
		}
	}
	return upper >= 2
}

// MatchKeywords splits keywords into those present in text and those absent.
func MatchKeywords(keywords []string, text string) (found, missing []string) {
	found, missing = []string{}, []string{}
	for _, k := range keywords {
		if containsTerm(text, k) {
			found = append(found, k)
		} else {
			missing = append(missing, k)
		}
	}
	return found, missing
}

// containsTerm reports whether term occurs in text, ignoring case, with no
// letter or digit directly before or after it.
func containsTerm(text, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	lower := strings.ToLower(text)
	for from := 0; ; {
		i := strings.Index(lower[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if !wordRuneBefore(lower, start) && !wordRuneAt(lower, end) {
			return true
		}
		from = start + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r := []rune(s[:i])
	return isWordRune(r[len(r)-1])
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	for _, r := range s[i:] {
		return isWordRune(r)
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
