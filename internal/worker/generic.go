package worker

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/agentarena/arena/internal/model"
)

// GenericAdapter invokes an arbitrary shell command, piping the prompt on
// stdin rather than as a CLI flag. It is the escape hatch for CLI tools
// that don't follow the `-p "<prompt>" --output-format json` convention
// (e.g. Ollama wrappers, custom scripts).
type GenericAdapter struct {
	Command   string
	Timeout   time.Duration
	ExtraArgs []string
	Env       map[string]string
}

// NewGenericAdapter returns a GenericAdapter from the agent's CLI config.
func NewGenericAdapter(cfg model.CLIConfig) *GenericAdapter {
	timeout := cfg.TimeoutSec
	if timeout <= 0 {
		timeout = 120
	}
	return &GenericAdapter{Command: cfg.Command, Timeout: time.Duration(timeout) * time.Second, ExtraArgs: cfg.ExtraArgs, Env: cfg.Env}
}

func (a *GenericAdapter) BuildPrompt(rec model.InvocationRecord) string {
	var parts []string
	if rec.RolePrompt != "" {
		parts = append(parts, "[System] "+rec.RolePrompt)
	}
	for _, m := range rec.Messages {
		author := m.AuthorName
		if author == "" {
			author = string(m.Role)
		}
		parts = append(parts, "["+author+"] "+m.Content)
	}
	return strings.Join(parts, "\n")
}

func (a *GenericAdapter) Invoke(ctx context.Context, rec model.InvocationRecord, workspaceDir string) model.AgentOutput {
	if a.Command == "" {
		return model.AgentOutput{
			Content:       "[Error] GenericAdapter: command not configured",
			ShouldRespond: true,
			ExecutionMeta: model.ExecutionMeta{IsError: true},
		}
	}

	prompt := a.BuildPrompt(rec)

	started := time.Now()
	result := runSubprocess(ctx, "sh", []string{"-c", a.Command}, workspaceDir, mergeEnv(os.Environ(), a.Env), prompt, a.Timeout)
	duration := time.Since(started)

	output := sentinelOrParse(result, "generic")
	output.ExecutionMeta.DurationMS = duration.Milliseconds()
	output.PromptSent = prompt
	return output
}

func (a *GenericAdapter) HealthCheck(ctx context.Context, workspaceDir string) bool {
	return a.Command != ""
}
