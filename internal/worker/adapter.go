package worker

import (
	"context"

	"github.com/agentarena/arena/internal/model"
)

// Adapter translates one Invocation Record into a CLI invocation and back
// into an Agent Output. Each CLI type (claude, cursor, generic) has its own
// adapter; all share ParseOutput (§4.3).
type Adapter interface {
	// BuildPrompt renders the text sent to the CLI for one invocation.
	BuildPrompt(rec model.InvocationRecord) string

	// Invoke spawns the CLI in workspaceDir and returns its parsed output.
	// It never returns an error for invocation failures (timeout, missing
	// binary, non-zero exit) — those are normalized into a sentinel
	// AgentOutput per §7, matching the original adapters' contract.
	Invoke(ctx context.Context, rec model.InvocationRecord, workspaceDir string) model.AgentOutput

	// HealthCheck reports whether the underlying CLI binary is usable.
	HealthCheck(ctx context.Context, workspaceDir string) bool
}
