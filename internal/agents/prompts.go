package agents

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"coverletter-backend/internal/llm"
)

// promptVersion is part of every cache key. Bump it when a template changes
// so stale replies are not served.
const promptVersion = "v2"

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Each file defines its own "system" and "user" blocks, so every file gets
// its own template set.
var promptSets = func() map[string]*template.Template {
	sets := make(map[string]*template.Template)
	for _, name := range []string{
		AgentSkills, AgentRequirements, AgentStrategy, AgentGeneration,
		AgentATS, AgentValidation, AgentTerms,
	} {
		sets[name] = template.Must(template.New(name).ParseFS(promptFS, "prompts/"+name+".tmpl"))
	}
	return sets
}()

// render executes the "system" and "user" blocks of the named prompt.
func render(name string, data any) (llm.Prompt, error) {
	set, ok := promptSets[name]
	if !ok {
		return llm.Prompt{}, fmt.Errorf("prompt %s not found", name)
	}
	var system, user bytes.Buffer
	if err := set.ExecuteTemplate(&system, "system", data); err != nil {
		return llm.Prompt{}, fmt.Errorf("render %s system prompt: %w", name, err)
	}
	if err := set.ExecuteTemplate(&user, "user", data); err != nil {
		return llm.Prompt{}, fmt.Errorf("render %s user prompt: %w", name, err)
	}
	return llm.Prompt{
		System: strings.TrimSpace(system.String()),
		User:   strings.TrimSpace(user.String()),
	}, nil
}
