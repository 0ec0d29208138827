package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/arena/internal/model"
)

func TestStoreSaveAndGetAll(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved, err := store.Save("sess-1", model.MemoryEntry{Content: "use B-tree", Type: model.MemoryDecision, Importance: 0.9})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.EntryID)
	assert.Equal(t, "sess-1", saved.SessionID)

	all, err := store.GetAll("sess-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "use B-tree", all[0].Content)
}

func TestStoreSearchScoringAndOrdering(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("sess-1", model.MemoryEntry{Content: "database schema migration plan", Importance: 0.2})
	require.NoError(t, err)
	_, err = store.Save("sess-1", model.MemoryEntry{Content: "unrelated topic entirely", Importance: 0.9})
	require.NoError(t, err)
	_, err = store.Save("sess-1", model.MemoryEntry{Content: "database schema review notes", Importance: 0.8})
	require.NoError(t, err)

	results, err := store.Search("sess-1", "database schema", 5)
	require.NoError(t, err)
	// all three score positive: overlap contributes 0.5/token, importance contributes 0.5*importance,
	// "unrelated topic entirely" has zero overlap but still scores 0.5*0.9=0.45 > 0.
	require.Len(t, results, 3)
	// "database schema review notes" has overlap=2, importance=0.8 -> score=1.0+0.4=1.4
	// "database schema migration plan" has overlap=2, importance=0.2 -> score=1.0+0.1=1.1
	// "unrelated topic entirely" has overlap=0, importance=0.9 -> score=0+0.45=0.45
	assert.Equal(t, "database schema review notes", results[0].Content)
	assert.Equal(t, "database schema migration plan", results[1].Content)
	assert.Equal(t, "unrelated topic entirely", results[2].Content)
}

func TestStoreSearchTopKAndPositiveScoreOnly(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("sess-1", model.MemoryEntry{Content: "alpha", Importance: 0})
	require.NoError(t, err)

	results, err := store.Search("sess-1", "beta", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreSearchMissingSessionReturnsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	results, err := store.Search("no-such-session", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
