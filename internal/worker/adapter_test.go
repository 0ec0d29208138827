package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/arena/internal/model"
)

func sampleRecord() model.InvocationRecord {
	return model.InvocationRecord{
		AgentID:    "backend",
		AgentName:  "Backend",
		Invocation: model.ModeMustReply,
		RolePrompt: "You own the API layer.",
		Peers: []model.Peer{
			{AgentID: "qa", Name: "QA", Skills: []string{"testing"}},
		},
		Messages: []model.Message{
			{Role: model.RoleUser, AuthorName: "alice", Content: "what's the schema?"},
		},
		PreferConcise: true,
	}
}

func TestClaudeAdapterBuildPromptIncludesPeersAndCurrentMessage(t *testing.T) {
	a := NewClaudeAdapter(model.CLIConfig{})
	prompt := a.BuildPrompt(sampleRecord())
	assert.Contains(t, prompt, "backend")
	assert.Contains(t, prompt, "QA (qa)")
	assert.Contains(t, prompt, "what's the schema?")
	assert.Contains(t, prompt, "NEXT_MENTIONS")
	assert.NotContains(t, prompt, "You own the API layer.") // role lives in CLAUDE.md, not the prompt
}

func TestClaudeAdapterBuildPromptAddsSkipRuleOnlyForMayReply(t *testing.T) {
	a := NewClaudeAdapter(model.CLIConfig{})
	rec := sampleRecord()

	rec.Invocation = model.ModeMustReply
	assert.NotContains(t, a.BuildPrompt(rec), "SKIP")

	rec.Invocation = model.ModeMayReply
	assert.Contains(t, a.BuildPrompt(rec), "SKIP")
}

func TestCursorAdapterBuildPromptOmitsRolePrompt(t *testing.T) {
	a := NewCursorAdapter(model.CLIConfig{})
	prompt := a.BuildPrompt(sampleRecord())
	assert.Contains(t, prompt, "what's the schema?")
	assert.NotContains(t, prompt, "You own the API layer.") // role lives in .cursor/rules/role.mdc, not the prompt
}

func TestGenericAdapterBuildPromptIsPlain(t *testing.T) {
	a := NewGenericAdapter(model.CLIConfig{Command: "cat"})
	prompt := a.BuildPrompt(sampleRecord())
	assert.Contains(t, prompt, "[System] You own the API layer.")
	assert.Contains(t, prompt, "[alice] what's the schema?")
}

func TestGenericAdapterInvokeRunsCommandAndParsesOutput(t *testing.T) {
	a := NewGenericAdapter(model.CLIConfig{Command: "cat", TimeoutSec: 5})
	out := a.Invoke(context.Background(), model.InvocationRecord{
		Messages: []model.Message{{Role: model.RoleUser, Content: "ping"}},
	}, t.TempDir())
	assert.Contains(t, out.Content, "ping")
	assert.False(t, out.ExecutionMeta.IsError)
}

func TestGenericAdapterInvokeWithoutCommandIsSentinelError(t *testing.T) {
	a := NewGenericAdapter(model.CLIConfig{})
	out := a.Invoke(context.Background(), model.InvocationRecord{}, t.TempDir())
	assert.Contains(t, out.Content, "[Error]")
	assert.True(t, out.ExecutionMeta.IsError)
}

func TestRunSubprocessTimesOut(t *testing.T) {
	result := runSubprocess(context.Background(), "sleep", []string{"2"}, t.TempDir(), nil, "", 50*time.Millisecond)
	assert.True(t, result.TimedOut)
}

func TestRunSubprocessMissingBinary(t *testing.T) {
	result := runSubprocess(context.Background(), "definitely-not-a-real-binary-xyz", nil, t.TempDir(), nil, "", 5*time.Second)
	assert.True(t, result.NotFound)
}

func TestRunSubprocessNonZeroExit(t *testing.T) {
	result := runSubprocess(context.Background(), "sh", []string{"-c", "exit 3"}, t.TempDir(), nil, "", 5*time.Second)
	assert.Equal(t, 3, result.ExitCode)
}

func TestNewAdapterUnknownCLIType(t *testing.T) {
	_, err := NewAdapter(model.CLIConfig{CLIType: "unknown"})
	require.Error(t, err)
}

func TestNewAdapterDefaultsToClaude(t *testing.T) {
	a, err := NewAdapter(model.CLIConfig{})
	require.NoError(t, err)
	_, ok := a.(*ClaudeAdapter)
	assert.True(t, ok)
}
