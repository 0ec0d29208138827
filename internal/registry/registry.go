// Package registry holds the in-memory agent-profile table: identity,
// workspace, role prompt, skills, response policy, and CLI descriptor for
// every agent the arena knows about. It is read-mostly and safe for
// concurrent use; writes (register/unregister) are serialized at the
// boundary with a mutex, per the spec's shared-resource policy.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/model"
)

// Registry is the in-memory AgentProfile table.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]model.AgentProfile
	log    *logging.Logger
}

// New returns an empty Registry.
func New(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	return &Registry{agents: make(map[string]model.AgentProfile), log: log}
}

// Register adds or replaces an agent profile.
func (r *Registry) Register(profile model.AgentProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[profile.AgentID] = profile
	r.log.WithAgentID(profile.AgentID).Info("registry: agent registered")
}

// Unregister removes an agent profile, if present.
func (r *Registry) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; ok {
		delete(r.agents, agentID)
		r.log.WithAgentID(agentID).Info("registry: agent unregistered")
	}
}

// Get returns the profile for agentID, or a ConfigError if it is not registered.
func (r *Registry) Get(agentID string) (model.AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.agents[agentID]
	if !ok {
		return model.AgentProfile{}, apperrors.Config(fmt.Sprintf("agent not found: %s", agentID))
	}
	return profile, nil
}

// List returns every registered profile, in no particular order.
func (r *Registry) List() []model.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentProfile, 0, len(r.agents))
	for _, p := range r.agents {
		out = append(out, p)
	}
	return out
}

// FindBySkill returns every profile that declares a skill containing keyword.
func (r *Registry) FindBySkill(keyword string) []model.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.AgentProfile
	for _, p := range r.agents {
		for _, s := range p.Skills {
			if strings.Contains(s, keyword) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// yamlProfile mirrors the on-disk shape of a single agent profile file.
type yamlProfile struct {
	AgentID         string                `yaml:"agent_id"`
	Name            string                `yaml:"name"`
	Avatar          string                `yaml:"avatar"`
	WorkspaceDir    string                `yaml:"workspace_dir"`
	RepoURL         string                `yaml:"repo_url"`
	RolePrompt      string                `yaml:"role_prompt"`
	Skills          []string              `yaml:"skills"`
	ResponseConfig  model.ResponseConfig  `yaml:"response_config"`
	CLIConfig       model.CLIConfig       `yaml:"cli_config"`
	MaxOutputTokens int                   `yaml:"max_output_tokens"`
}

// LoadYAML loads every `*.yaml` file in dir as an agent profile and registers
// it. A missing directory is tolerated (logged and skipped, not an error) —
// registries in this core may also be populated purely by dynamic Register
// calls from a host that clones workspaces on demand.
func (r *Registry) LoadYAML(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.WithFields(zap.String("dir", dir)).Warn("registry: profile directory not found")
			return nil
		}
		return apperrors.ConfigWrap("failed to read registry profiles directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		profile, err := loadProfile(path)
		if err != nil {
			r.log.WithError(err).Error("registry: failed to load agent profile")
			continue
		}
		r.Register(profile)
	}
	return nil
}

func loadProfile(path string) (model.AgentProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.AgentProfile{}, apperrors.ConfigWrap("reading profile file", err)
	}

	yp := yamlProfile{
		ResponseConfig:  model.DefaultResponseConfig(),
		CLIConfig:       model.DefaultCLIConfig(),
		MaxOutputTokens: 2000,
	}
	if err := yaml.Unmarshal(raw, &yp); err != nil {
		return model.AgentProfile{}, apperrors.ConfigWrap("parsing profile yaml", err)
	}
	if yp.AgentID == "" {
		return model.AgentProfile{}, apperrors.Config(fmt.Sprintf("profile %s missing agent_id", path))
	}

	return model.AgentProfile{
		AgentID:         yp.AgentID,
		Name:            yp.Name,
		Avatar:          yp.Avatar,
		WorkspaceDir:    yp.WorkspaceDir,
		RepoURL:         yp.RepoURL,
		RolePrompt:      yp.RolePrompt,
		Skills:          yp.Skills,
		ResponseConfig:  yp.ResponseConfig,
		CLIConfig:       yp.CLIConfig,
		MaxOutputTokens: yp.MaxOutputTokens,
	}, nil
}
