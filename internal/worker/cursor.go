package worker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentarena/arena/internal/model"
)

// CursorAdapter invokes the Cursor Headless CLI: `<command> -p "<prompt>"
// --output-format json`, relying on the workspace's `.cursor/rules/` for
// role context, mirroring ClaudeAdapter's CLAUDE.md convention.
type CursorAdapter struct {
	Command   string
	Timeout   time.Duration
	ExtraArgs []string
	Env       map[string]string
}

// NewCursorAdapter returns a CursorAdapter from the agent's CLI config.
func NewCursorAdapter(cfg model.CLIConfig) *CursorAdapter {
	command := cfg.Command
	if command == "" {
		command = "agent"
	}
	timeout := cfg.TimeoutSec
	if timeout <= 0 {
		timeout = 300
	}
	return &CursorAdapter{Command: command, Timeout: time.Duration(timeout) * time.Second, ExtraArgs: cfg.ExtraArgs, Env: cfg.Env}
}

func (a *CursorAdapter) BuildPrompt(rec model.InvocationRecord) string {
	var parts []string

	if len(rec.Messages) > 0 {
		parts = append(parts, "## Current conversation")
		for _, m := range rec.Messages {
			author := m.AuthorName
			if author == "" {
				author = string(m.Role)
			}
			parts = append(parts, fmt.Sprintf("[%s]: %s", author, m.Content))
		}
	}

	if rec.MemoryContext != "" {
		parts = append(parts, "\n## Relevant memory\n"+rec.MemoryContext)
	}

	if rec.Invocation == model.ModeMayReply {
		parts = append(parts, "\n## Note\nIf this message isn't relevant to your role, reply with exactly: SKIP")
	}

	if rec.PreferConcise {
		parts = append(parts, "\nKeep the reply concise and lead with the key point.")
	}

	parts = append(parts, "\n## Collaboration\n"+
		"If you need another teammate involved, end your reply with this marker:\n"+
		`<!--NEXT_MENTIONS:["agent_id_1","agent_id_2"]-->`)

	return strings.Join(parts, "\n")
}

func (a *CursorAdapter) Invoke(ctx context.Context, rec model.InvocationRecord, workspaceDir string) model.AgentOutput {
	prompt := a.BuildPrompt(rec)
	args := append([]string{"-p", prompt, "--output-format", "json"}, a.ExtraArgs...)

	started := time.Now()
	result := runSubprocess(ctx, a.Command, args, workspaceDir, mergeEnv(os.Environ(), a.Env), "", a.Timeout)
	duration := time.Since(started)

	output := sentinelOrParse(result, "cursor")
	output.ExecutionMeta.DurationMS = duration.Milliseconds()
	output.PromptSent = prompt
	return output
}

func (a *CursorAdapter) HealthCheck(ctx context.Context, workspaceDir string) bool {
	result := runSubprocess(ctx, a.Command, []string{"--version"}, workspaceDir, mergeEnv(os.Environ(), a.Env), "", 10*time.Second)
	if !result.NotFound && !result.TimedOut && result.ExitCode == 0 {
		return true
	}
	probe := runSubprocess(ctx, a.Command, []string{"-p", "ok", "--output-format", "json"}, workspaceDir, mergeEnv(os.Environ(), a.Env), "", 15*time.Second)
	return !probe.NotFound && !probe.TimedOut && probe.ExitCode == 0
}
