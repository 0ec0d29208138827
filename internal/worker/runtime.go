package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/model"
)

// StatusFunc receives status transitions as an invocation progresses
// (§6 agent_status egress), scoped to the group the invocation belongs to
// so a host can broadcast it on the right per-group channel. The Runtime
// calls it best-effort; a nil StatusFunc is a no-op.
type StatusFunc func(groupID, agentID string, event model.StatusEvent)

// Runtime is the Worker Runtime: it picks an Adapter by CLI type and
// invokes it in the agent's workspace, emitting status events around the
// call (§4.3).
type Runtime struct {
	log           *logging.Logger
	onStatus      StatusFunc
	maxConcurrent chan struct{}
}

// NewRuntime returns a Runtime. maxConcurrent bounds the number of
// subprocess invocations running at once across the whole process (§5
// "bounded-size goroutine semaphore inside the Worker Runtime").
func NewRuntime(log *logging.Logger, maxConcurrent int, onStatus StatusFunc) *Runtime {
	if log == nil {
		log = logging.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Runtime{log: log, onStatus: onStatus, maxConcurrent: make(chan struct{}, maxConcurrent)}
}

// NewAdapter selects an Adapter for the given CLI config.
func NewAdapter(cfg model.CLIConfig) (Adapter, error) {
	switch cfg.CLIType {
	case model.CLITypeClaude, "":
		return NewClaudeAdapter(cfg), nil
	case model.CLITypeCursor:
		return NewCursorAdapter(cfg), nil
	case model.CLITypeGeneric:
		return NewGenericAdapter(cfg), nil
	default:
		return nil, apperrors.Config(fmt.Sprintf("unknown CLI type: %s", cfg.CLIType))
	}
}

// InvokeAgent picks an adapter for profile's CLI config and invokes it with
// rec inside profile.WorkspaceDir, emitting analyzing/done/error status
// events around the call, scoped to groupID.
func (rt *Runtime) InvokeAgent(ctx context.Context, groupID string, profile model.AgentProfile, rec model.InvocationRecord) (model.AgentOutput, error) {
	if _, err := os.Stat(profile.WorkspaceDir); os.IsNotExist(err) {
		rt.emit(groupID, profile.AgentID, model.StatusError, fmt.Sprintf("workspace not found: %s", profile.WorkspaceDir))
		return model.AgentOutput{}, apperrors.Config(fmt.Sprintf("workspace not found for agent %s: %s", profile.AgentID, profile.WorkspaceDir))
	}

	adapter, err := NewAdapter(profile.CLIConfig)
	if err != nil {
		rt.emit(groupID, profile.AgentID, model.StatusError, err.Error())
		return model.AgentOutput{}, err
	}

	rt.maxConcurrent <- struct{}{}
	defer func() { <-rt.maxConcurrent }()

	rt.emit(groupID, profile.AgentID, model.StatusAnalyzing, "")
	output := adapter.Invoke(ctx, rec, profile.WorkspaceDir)

	switch {
	case output.ExecutionMeta.IsTimeout:
		rt.emit(groupID, profile.AgentID, model.StatusTimeout, output.Content)
	case output.ExecutionMeta.IsError:
		rt.emit(groupID, profile.AgentID, model.StatusError, output.Content)
	default:
		rt.emit(groupID, profile.AgentID, model.StatusDone, "")
	}
	return output, nil
}

// HealthCheck reports whether profile's CLI is currently invokable.
func (rt *Runtime) HealthCheck(ctx context.Context, profile model.AgentProfile) bool {
	adapter, err := NewAdapter(profile.CLIConfig)
	if err != nil {
		return false
	}
	return adapter.HealthCheck(ctx, profile.WorkspaceDir)
}

func (rt *Runtime) emit(groupID, agentID string, status model.Status, detail string) {
	if rt.onStatus == nil {
		return
	}
	rt.onStatus(groupID, agentID, model.StatusEvent{Status: status, Detail: detail})
}
