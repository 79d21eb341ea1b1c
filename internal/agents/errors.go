package agents

import (
	"fmt"

	"coverletter-backend/internal/llm"
)

// ValidationError reports missing or invalid input. It is raised before any
// cache lookup or model call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ModelError wraps a model-client failure or an unparseable reply.
type ModelError struct {
	Agent string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s agent: %v", e.Agent, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Malformed reports whether the model replied but the reply was unusable.
func (e *ModelError) Malformed() bool { return llm.IsMalformed(e.Err) }
