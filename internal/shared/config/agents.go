package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentParams overrides model parameters for a single agent.
type AgentParams struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type agentParamsFile struct {
	Agents map[string]AgentParams `yaml:"agents"`
}

// LoadAgentParams reads per-agent overrides from a YAML file:
//
//	agents:
//	  generation:
//	    temperature: 0.6
//	    max_tokens: 1500
//
// An empty path yields no overrides.
func LoadAgentParams(path string) (map[string]AgentParams, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]AgentParams{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent params %s: %w", path, err)
	}
	return ParseAgentParams(raw)
}

// ParseAgentParams decodes agent overrides from YAML bytes.
func ParseAgentParams(raw []byte) (map[string]AgentParams, error) {
	var file agentParamsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse agent params: %w", err)
	}
	out := make(map[string]AgentParams, len(file.Agents))
	for name, params := range file.Agents {
		if params.Temperature != nil && (*params.Temperature < 0 || *params.Temperature > 2) {
			return nil, fmt.Errorf("agent %s: temperature %.2f out of range", name, *params.Temperature)
		}
		if params.MaxTokens < 0 {
			return nil, fmt.Errorf("agent %s: max_tokens must not be negative", name)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = params
	}
	return out, nil
}
