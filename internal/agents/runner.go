package agents

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"coverletter-backend/internal/cache"
	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/shared/util"
)

// Agent names. They key parameter overrides, prompt templates and log fields.
const (
	AgentSkills       = "skills"
	AgentRequirements = "requirements"
	AgentStrategy     = "strategy"
	AgentGeneration   = "generation"
	AgentATS          = "ats"
	AgentValidation   = "validation"
	AgentTerms        = "terms"
)

var defaultParams = map[string]llm.Params{
	AgentSkills:       {Temperature: 0, MaxTokens: 1000, JSON: true},
	AgentRequirements: {Temperature: 0, MaxTokens: 1000, JSON: true},
	AgentStrategy:     {Temperature: 0, MaxTokens: 1000, JSON: true},
	AgentGeneration:   {Temperature: 0.7, MaxTokens: 1500, JSON: true},
	AgentATS:          {Temperature: 0, MaxTokens: 1000, JSON: true},
	AgentValidation:   {Temperature: 0, MaxTokens: 1000, JSON: true},
	AgentTerms:        {Temperature: 0, MaxTokens: 1000, JSON: true},
}

// Runner holds what every agent shares: the model client, the response
// cache and per-agent parameter overrides.
type Runner struct {
	client    llm.Client
	loader    *cache.Loader
	overrides map[string]config.AgentParams
	now       func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithParams applies per-agent overrides on top of the defaults.
func WithParams(overrides map[string]config.AgentParams) Option {
	return func(r *Runner) { r.overrides = overrides }
}

// WithClock replaces time.Now for draft timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner builds a Runner. A nil loader disables caching.
func NewRunner(client llm.Client, loader *cache.Loader, opts ...Option) *Runner {
	r := &Runner{client: client, loader: loader, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Params returns the effective model parameters for agent.
func (r *Runner) Params(agent string) llm.Params {
	p := defaultParams[agent]
	if o, ok := r.overrides[agent]; ok {
		if o.Temperature != nil {
			p.Temperature = *o.Temperature
		}
		if o.MaxTokens > 0 {
			p.MaxTokens = o.MaxTokens
		}
	}
	return p
}

func cacheKey(agent string, prompt llm.Prompt, p llm.Params) string {
	return "agent:" + agent + ":" + util.Fingerprint(
		agent,
		promptVersion,
		prompt.System,
		prompt.User,
		strconv.FormatFloat(p.Temperature, 'f', -1, 64),
		strconv.Itoa(p.MaxTokens),
		strconv.FormatBool(p.JSON),
	)
}

// runAgent serves prompt from the cache when possible, otherwise it calls the
// model and decodes the reply against schema. Only decoded replies are cached.
func runAgent[T any](ctx context.Context, r *Runner, agent string, prompt llm.Prompt, schema Schema) (T, error) {
	var out T
	params := r.Params(agent)
	key := cacheKey(agent, prompt, params)
	start := time.Now()

	raw, hit, err := r.loader.Load(ctx, key, func(ctx context.Context) ([]byte, error) {
		reply, err := r.client.Complete(ctx, prompt, params)
		if err != nil {
			return nil, err
		}
		var fresh T
		if err := Decode(reply, schema, &fresh); err != nil {
			return nil, err
		}
		return json.Marshal(fresh)
	})
	if err != nil {
		telemetry.Warn("agent.failed", map[string]any{
			"agent":   agent,
			"outcome": llm.Outcome(err),
			"error":   err.Error(),
		})
		return out, &ModelError{Agent: agent, Err: err}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		_ = r.loader.Invalidate(ctx, key)
		return out, &ModelError{Agent: agent, Err: &llm.MalformedResponseError{Reason: "cached result unreadable: " + err.Error()}}
	}

	telemetry.Debug("agent.complete", map[string]any{
		"agent":      agent,
		"cache_hit":  hit,
		"latency_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}
