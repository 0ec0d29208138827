package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/arena/internal/model"
)

func TestSummaryRebuildGroupsByFixedOrder(t *testing.T) {
	s, err := NewSummary(t.TempDir())
	require.NoError(t, err)

	entries := []model.MemoryEntry{
		{Content: "fix crash on startup", Type: model.MemoryIssue, Importance: 0.5},
		{Content: "use B-tree", Type: model.MemoryDecision, Importance: 0.9},
		{Content: "need auth flow", Type: model.MemoryRequirement, Importance: 0.7},
	}
	require.NoError(t, s.Rebuild("sess-1", entries))

	text := s.Read("sess-1")
	decisionIdx := indexOf(text, "## Key decisions")
	reqIdx := indexOf(text, "## Requirements")
	issueIdx := indexOf(text, "## Issues / bugs")

	require.True(t, decisionIdx >= 0 && reqIdx >= 0 && issueIdx >= 0)
	assert.True(t, decisionIdx < reqIdx)
	assert.True(t, reqIdx < issueIdx)
	assert.Contains(t, text, "use B-tree")
}

func TestSummaryRebuildIsDeterministic(t *testing.T) {
	s, err := NewSummary(t.TempDir())
	require.NoError(t, err)

	entries := []model.MemoryEntry{
		{Content: "a", Type: model.MemoryTask, Importance: 0.5},
		{Content: "b", Type: model.MemoryTask, Importance: 0.5},
	}
	require.NoError(t, s.Rebuild("sess-1", entries))
	first := s.Read("sess-1")
	require.NoError(t, s.Rebuild("sess-1", entries))
	second := s.Read("sess-1")
	assert.Equal(t, first, second)
}

func TestSummaryRebuildCapsAtMaxEntries(t *testing.T) {
	s, err := NewSummary(t.TempDir())
	require.NoError(t, err)

	entries := make([]model.MemoryEntry, 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, model.MemoryEntry{
			Content:    "item",
			Type:       model.MemoryTask,
			Importance: float64(i) / 30.0,
		})
	}
	require.NoError(t, s.Rebuild("sess-1", entries))
	text := s.Read("sess-1")
	assert.Equal(t, SummaryMaxEntries, countOccurrences(text, "- item"))
}

func TestSummaryReadMissingReturnsEmpty(t *testing.T) {
	s, err := NewSummary(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", s.Read("does-not-exist"))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
