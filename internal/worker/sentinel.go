package worker

import (
	"fmt"

	"github.com/agentarena/arena/internal/model"
)

// sentinelOrParse normalizes a subprocess result into an AgentOutput: a
// timeout, missing binary, or non-zero exit becomes a bracketed sentinel
// reply (§7); a clean exit is handed to ParseOutput.
func sentinelOrParse(result runResult, cliLabel string) model.AgentOutput {
	switch {
	case result.TimedOut:
		return model.AgentOutput{Content: "[Timeout] CLI did not respond in time", ShouldRespond: true, ExecutionMeta: model.ExecutionMeta{IsError: true, IsTimeout: true}}
	case result.NotFound:
		return model.AgentOutput{
			Content:       fmt.Sprintf("[Error] %s CLI not found on PATH", cliLabel),
			ShouldRespond: true,
			ExecutionMeta: model.ExecutionMeta{IsError: true},
		}
	case result.ExitCode != 0:
		detail := result.Stderr
		if detail == "" {
			detail = result.Stdout
		}
		return model.AgentOutput{
			Content:       "[CLI Error] " + detail,
			ShouldRespond: true,
			ExecutionMeta: model.ExecutionMeta{IsError: true},
		}
	default:
		return ParseOutput(result.Stdout)
	}
}
