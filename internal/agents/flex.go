package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Number decodes from a JSON number or from text such as "5+ years".
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, _ := leadingNumber(s)
		*n = Number(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Strings decodes from a JSON array of strings or a single comma separated string.
type Strings []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Strings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = splitList(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Flags decodes an object of yes/no values. Values may be booleans, numbers
// or words such as "yes", "present" or "missing".
type Flags map[string]bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flags) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Flags, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case bool:
			out[k] = val
		case float64:
			out[k] = val != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(val)) {
			case "true", "yes", "present", "found", "ok":
				out[k] = true
			default:
				out[k] = false
			}
		}
	}
	*f = out
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeItem decodes data into obj unless it is a JSON string, in which case
// fromText receives the string.
func decodeItem(data []byte, obj any, fromText func(string)) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		fromText(strings.TrimSpace(s))
		return nil
	}
	return json.Unmarshal(data, obj)
}

// requireKey fails an item whose identifying field is blank. The error
// aborts decoding of the whole reply.
func requireKey(item, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s item missing %q", item, field)
	}
	return nil
}

var parenPattern = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

// splitLabel splits "Head: detail" or "Head - detail" into its parts.
func splitLabel(s string) (string, string) {
	for _, sep := range []string{": ", " - ", " – ", " — "} {
		if i := strings.Index(s, sep); i > 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):])
		}
	}
	if strings.HasSuffix(s, ":") {
		return strings.TrimSpace(strings.TrimSuffix(s, ":")), ""
	}
	return strings.TrimSpace(s), ""
}

// splitParen splits "Go (Expert, 5 years)" into "Go" and "Expert, 5 years".
func splitParen(s string) (string, string) {
	if m := parenPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return s, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
