package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/shared/util"
)

// Kind is a bitmask of JSON kinds a field accepts.
type Kind uint8

const (
	KindString Kind = 1 << iota
	KindNumber
	KindArray
	KindObject
	KindBool
)

// Field describes one top-level key of a model reply.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Aliases are alternative headings accepted by the section parser.
	Aliases []string
}

// Schema lists the expected top-level keys of a model reply. Keys not listed
// are ignored; optional keys that are absent decode to zero values.
type Schema struct {
	Fields []Field
	// Fallback, when set, is tried last and may turn free text into a JSON
	// document for the schema.
	Fallback func(raw string) ([]byte, bool)
}

// Decode parses raw into out. It first tries strict JSON: the whole reply is an
// object satisfying the schema. Failing that it looks for a JSON object
// embedded in prose or a fenced block, and finally for "Heading:" sections with
// bullet items. Each path must satisfy the schema's required fields.
func Decode(raw string, schema Schema, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &llm.MalformedResponseError{Reason: "empty reply"}
	}

	strictErr := decodeJSON([]byte(raw), schema, out)
	if strictErr == nil {
		return nil
	}
	if obj, ok := extractJSONObject(raw); ok {
		if err := decodeJSON([]byte(obj), schema, out); err == nil {
			return nil
		}
	}
	if doc, ok := parseSections(raw, schema); ok {
		if err := decodeJSON(doc, schema, out); err == nil {
			return nil
		}
	}
	if schema.Fallback != nil {
		if doc, ok := schema.Fallback(raw); ok {
			if err := decodeJSON(doc, schema, out); err == nil {
				return nil
			}
		}
	}
	return &llm.MalformedResponseError{Reason: strictErr.Error(), Raw: truncateRaw(raw)}
}

func decodeJSON(data []byte, schema Schema, out any) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("reply is not a JSON object: %w", err)
	}
	if err := schema.check(top); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("reply does not match result shape: %w", err)
	}
	return nil
}

func (s Schema) check(top map[string]json.RawMessage) error {
	for _, f := range s.Fields {
		val, ok := top[f.Name]
		if !ok || isNull(val) {
			if f.Required {
				return fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		if k := kindOf(val); k&f.Kind == 0 {
			return fmt.Errorf("field %q has unexpected type", f.Name)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func kindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	switch trimmed[0] {
	case '"':
		return KindString
	case '[':
		return KindArray
	case '{':
		return KindObject
	case 't', 'f':
		return KindBool
	default:
		return KindNumber
	}
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONObject returns the first fenced JSON block, or else the first
// balanced {...} span in raw.
func extractJSONObject(raw string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		if end := matchBrace(raw, start); end > start {
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var (
	headingPattern = regexp.MustCompile(`^#{0,6}\s*\**([A-Za-z][A-Za-z0-9 _/&-]*?)\**\s*:\s*(.*)$`)
	bulletPattern  = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+(.+)$`)
)

// parseSections turns "Heading:" blocks into a JSON object keyed by schema
// field names. Array fields collect bullet lines as strings, string fields
// collect text, number fields read the value after the colon.
func parseSections(raw string, schema Schema) ([]byte, bool) {
	lookup := make(map[string]Field)
	for _, f := range schema.Fields {
		lookup[normalizeHeading(f.Name)] = f
		for _, a := range f.Aliases {
			lookup[normalizeHeading(a)] = f
		}
	}

	doc := make(map[string]any)
	var current *Field
	var text []string
	flush := func() {
		if current != nil && current.Kind&KindString != 0 && len(text) > 0 {
			doc[current.Name] = strings.TrimSpace(strings.Join(text, " "))
		}
		text = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			if f, ok := lookup[normalizeHeading(m[1])]; ok {
				flush()
				field := f
				current = &field
				if field.Kind&KindArray != 0 {
					if _, exists := doc[field.Name]; !exists {
						doc[field.Name] = []any{}
					}
				}
				if rest := strings.TrimSpace(m[2]); rest != "" {
					addSectionValue(doc, current, rest, &text)
				}
				continue
			}
		}
		if current == nil {
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			addSectionValue(doc, current, strings.TrimSpace(m[1]), &text)
			continue
		}
		addSectionValue(doc, current, line, &text)
	}
	flush()

	if len(doc) == 0 {
		return nil, false
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, false
	}
	return out, true
}

func addSectionValue(doc map[string]any, f *Field, value string, text *[]string) {
	switch {
	case f.Kind&KindArray != 0:
		doc[f.Name] = append(doc[f.Name].([]any), value)
	case f.Kind&KindNumber != 0:
		if n, ok := leadingNumber(value); ok {
			doc[f.Name] = n
		}
	case f.Kind&KindString != 0:
		*text = append(*text, value)
	}
}

func normalizeHeading(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ", "&", "and").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func leadingNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(s, "%") {
		n /= 100
	}
	return n, true
}

func truncateRaw(s string) string {
	return util.TruncateBytes(s, 512)
}
