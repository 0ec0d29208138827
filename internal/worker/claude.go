package worker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentarena/arena/internal/model"
)

// ClaudeAdapter invokes the Claude Code CLI: `claude -p "<prompt>"
// --output-format json`, with the agent's CLAUDE.md supplying role context
// implicitly from its workspace directory — role_prompt is therefore never
// injected into the prompt text itself.
type ClaudeAdapter struct {
	Timeout   time.Duration
	ExtraArgs []string
	Env       map[string]string
}

// NewClaudeAdapter returns a ClaudeAdapter from the agent's CLI config.
func NewClaudeAdapter(cfg model.CLIConfig) *ClaudeAdapter {
	timeout := cfg.TimeoutSec
	if timeout <= 0 {
		timeout = 300
	}
	return &ClaudeAdapter{Timeout: time.Duration(timeout) * time.Second, ExtraArgs: cfg.ExtraArgs, Env: cfg.Env}
}

func (a *ClaudeAdapter) BuildPrompt(rec model.InvocationRecord) string {
	var parts []string

	label := fmt.Sprintf("(%s)", rec.AgentID)
	if rec.AgentName != "" {
		label = fmt.Sprintf("%q (%s)", rec.AgentName, rec.AgentID)
	}
	parts = append(parts, "## Current session members\nYou are "+label+".")
	if len(rec.Peers) > 0 {
		parts = append(parts, "The other members of this group are:")
		for _, p := range rec.Peers {
			skills := "none"
			if len(p.Skills) > 0 {
				skills = strings.Join(p.Skills, ", ")
			}
			parts = append(parts, fmt.Sprintf("- %s (%s) — skills: %s", p.Name, p.AgentID, skills))
		}
	}
	parts = append(parts, "")

	if len(rec.Messages) > 1 {
		history := rec.Messages[:len(rec.Messages)-1]
		parts = append(parts, "## Dialogue history (read-only context, do not reply to these)")
		for _, m := range history {
			author := m.AuthorName
			if author == "" {
				author = string(m.Role)
			}
			parts = append(parts, fmt.Sprintf("[%s]: %s", author, m.Content))
		}
		parts = append(parts, "")
	}

	if rec.MemoryContext != "" {
		parts = append(parts, "## Relevant memory\n"+rec.MemoryContext+"\n")
	}

	parts = append(parts, "---\n")
	if len(rec.Messages) > 0 {
		current := rec.Messages[len(rec.Messages)-1]
		author := current.AuthorName
		if author == "" {
			author = string(current.Role)
		}
		parts = append(parts, "## Current message to reply to")
		parts = append(parts, "From: "+author)
		parts = append(parts, "Content:\n"+current.Content)
	}
	parts = append(parts, "\n---\n")

	rules := []string{"## Reply rules"}
	rules = append(rules, "1. Reply only to the \"current message to reply to\"; the dialogue history is context, not something you need to respond to.")
	if rec.PreferConcise {
		rules = append(rules, "2. Keep the reply concise and lead with the key point.")
	}
	if rec.Invocation == model.ModeMayReply {
		rules = append(rules, "3. If this message isn't relevant to your role, reply with exactly: SKIP")
	}
	parts = append(parts, strings.Join(rules, "\n"))

	parts = append(parts, "\n## Collaboration\n"+
		"If you need another teammate involved, end your reply with this marker "+
		"(agent_id must come from the member list above):\n"+
		`<!--NEXT_MENTIONS:["agent_id_1","agent_id_2"]-->`)

	return strings.Join(parts, "\n")
}

func (a *ClaudeAdapter) Invoke(ctx context.Context, rec model.InvocationRecord, workspaceDir string) model.AgentOutput {
	prompt := a.BuildPrompt(rec)
	args := append([]string{"-p", prompt, "--output-format", "json"}, a.ExtraArgs...)

	started := time.Now()
	result := runSubprocess(ctx, "claude", args, workspaceDir, mergeEnv(os.Environ(), a.Env), "", a.Timeout)
	duration := time.Since(started)

	output := sentinelOrParse(result, "claude")
	output.ExecutionMeta.DurationMS = duration.Milliseconds()
	output.PromptSent = prompt
	return output
}

func (a *ClaudeAdapter) HealthCheck(ctx context.Context, workspaceDir string) bool {
	result := runSubprocess(ctx, "claude", []string{"--version"}, workspaceDir, mergeEnv(os.Environ(), a.Env), "", 10*time.Second)
	return !result.NotFound && !result.TimedOut && result.ExitCode == 0
}
