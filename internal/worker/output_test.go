package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutputPlainText(t *testing.T) {
	out := ParseOutput("hello there")
	assert.Equal(t, "hello there", out.Content)
	assert.True(t, out.ShouldRespond)
	assert.Empty(t, out.NextMentions)
}

func TestParseOutputJSONResultField(t *testing.T) {
	out := ParseOutput(`{"result": "the answer is 42"}`)
	assert.Equal(t, "the answer is 42", out.Content)
}

func TestParseOutputJSONContentField(t *testing.T) {
	out := ParseOutput(`{"content": "fallback field"}`)
	assert.Equal(t, "fallback field", out.Content)
}

func TestParseOutputJSONBlockArray(t *testing.T) {
	out := ParseOutput(`[{"type":"text","text":"part one"},{"type":"tool_use"},{"type":"text","text":"part two"}]`)
	assert.Equal(t, "part one\npart two", out.Content)
}

func TestParseOutputSkip(t *testing.T) {
	out := ParseOutput("SKIP")
	assert.False(t, out.ShouldRespond)
	assert.Equal(t, "", out.Content)
}

func TestParseOutputSkipPrefix(t *testing.T) {
	out := ParseOutput("SKIP - not relevant to me")
	assert.False(t, out.ShouldRespond)
}

func TestParseOutputExtractsNextMentions(t *testing.T) {
	out := ParseOutput(`Let's loop in backend.` + "\n" + `<!--NEXT_MENTIONS:["backend","qa"]-->`)
	assert.Equal(t, []string{"backend", "qa"}, out.NextMentions)
	assert.Equal(t, "Let's loop in backend.", out.Content)
	assert.True(t, out.ShouldRespond)
}

func TestParseOutputMultipleNextMentionsMarkersUsesLast(t *testing.T) {
	out := ParseOutput(`<!--NEXT_MENTIONS:["backend"]-->` + "\n" +
		`Let's loop in qa instead.` + "\n" +
		`<!--NEXT_MENTIONS:["qa"]-->`)
	assert.Equal(t, []string{"qa"}, out.NextMentions)
	assert.Equal(t, "Let's loop in qa instead.", out.Content)
}

func TestParseOutputMalformedJSONFallsBackToRawText(t *testing.T) {
	out := ParseOutput(`{"result": not valid json`)
	assert.Equal(t, `{"result": not valid json`, out.Content)
}

func TestSentinelOrParseTimeout(t *testing.T) {
	out := sentinelOrParse(runResult{TimedOut: true}, "claude")
	assert.Contains(t, out.Content, "[Timeout]")
	assert.True(t, out.ExecutionMeta.IsError)
}

func TestSentinelOrParseNotFound(t *testing.T) {
	out := sentinelOrParse(runResult{NotFound: true}, "cursor")
	assert.Contains(t, out.Content, "[Error]")
	assert.Contains(t, out.Content, "cursor")
}

func TestSentinelOrParseNonZeroExit(t *testing.T) {
	out := sentinelOrParse(runResult{ExitCode: 1, Stderr: "boom"}, "generic")
	assert.Contains(t, out.Content, "[CLI Error]")
	assert.Contains(t, out.Content, "boom")
}

func TestSentinelOrParseCleanExit(t *testing.T) {
	out := sentinelOrParse(runResult{ExitCode: 0, Stdout: "hello"}, "claude")
	assert.Equal(t, "hello", out.Content)
	assert.False(t, out.ExecutionMeta.IsError)
}
