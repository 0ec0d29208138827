// Package model holds the shared data types passed between the core
// subsystems: agent profiles, group/session records, protocol messages, and
// memory entries. None of these types carry behavior beyond small,
// side-effect-free helpers; orchestration logic lives in the owning
// packages (registry, session, memory, worker, orchestrator).
package model

// CLIType names one of the adapter variants the Worker Runtime dispatches to.
type CLIType string

const (
	CLITypeClaude  CLIType = "claude"
	CLITypeCursor  CLIType = "cursor"
	CLITypeGeneric CLIType = "generic"
)

// ResponseConfig controls whether and how eagerly an agent participates in
// may-reply turns. The Orchestrator's partitioning (§4.1) never scores on
// these fields itself; they are exposed for a host-level relevance policy
// layered on top of the core.
type ResponseConfig struct {
	AutoRespond       bool     `json:"auto_respond" yaml:"auto_respond"`
	ResponseThreshold float64  `json:"response_threshold" yaml:"response_threshold"`
	PriorityKeywords  []string `json:"priority_keywords" yaml:"priority_keywords"`
}

// DefaultResponseConfig returns the zero-value-safe defaults used when a
// profile is registered without specifying a response policy.
func DefaultResponseConfig() ResponseConfig {
	return ResponseConfig{AutoRespond: true, ResponseThreshold: 0.6}
}

// CLIConfig describes how to invoke an agent's external command-line process.
type CLIConfig struct {
	CLIType    CLIType           `json:"cli_type" yaml:"cli_type"`
	Command    string            `json:"command" yaml:"command"`
	TimeoutSec int               `json:"timeout" yaml:"timeout"`
	ExtraArgs  []string          `json:"extra_args" yaml:"extra_args"`
	Env        map[string]string `json:"env" yaml:"env"`
}

// DefaultCLIConfig returns the zero-value-safe defaults for a claude-class agent.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{CLIType: CLITypeClaude, TimeoutSec: 300}
}

// AgentProfile is the Registry's unit of identity: who the agent is, where
// it runs, and how to invoke it. Owned and mutated only through the Registry.
type AgentProfile struct {
	AgentID         string         `json:"agent_id" yaml:"agent_id"`
	Name            string         `json:"name" yaml:"name"`
	Avatar          string         `json:"avatar" yaml:"avatar"`
	WorkspaceDir    string         `json:"workspace_dir" yaml:"workspace_dir"`
	RepoURL         string         `json:"repo_url" yaml:"repo_url"`
	RolePrompt      string         `json:"role_prompt" yaml:"role_prompt"`
	Skills          []string       `json:"skills" yaml:"skills"`
	ResponseConfig  ResponseConfig `json:"response_config" yaml:"response_config"`
	CLIConfig       CLIConfig      `json:"cli_config" yaml:"cli_config"`
	MaxOutputTokens int            `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// HasSkill reports whether the profile declares the given skill tag.
func (p AgentProfile) HasSkill(skill string) bool {
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
