package analyses

import (
	"bytes"
	"encoding/json"
	"strings"

	"coverletter-backend/internal/agents"
)

// LetterText is a cover letter given either as a plain string or as a draft
// object; drafts contribute their full_text, or their joined sections.
type LetterText string

func (l *LetterText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = LetterText(s)
		return nil
	}
	var draft agents.CoverLetterDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return err
	}
	text := draft.FullText
	if strings.TrimSpace(text) == "" {
		text = agents.JoinSections(draft.Sections)
	}
	*l = LetterText(text)
	return nil
}
