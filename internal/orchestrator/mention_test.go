package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentarena/arena/internal/model"
)

func testMembers() []model.GroupMember {
	return []model.GroupMember{
		{ID: "m1", Type: model.MemberAgent, AgentID: "alpha", DisplayName: "Alpha"},
		{ID: "m2", Type: model.MemberAgent, AgentID: "bravo", DisplayName: "Bravo the Builder"},
		{ID: "m3", Type: model.MemberHuman, DisplayName: "Human"},
	}
}

func TestParseMentionsResolvesByAgentID(t *testing.T) {
	got := ParseMentions("hey @alpha can you look at this", testMembers())
	assert.Equal(t, []string{"alpha"}, got)
}

func TestParseMentionsIgnoresEmbeddedAtSigns(t *testing.T) {
	got := ParseMentions("contact me at foo@alpha.com please", testMembers())
	assert.Empty(t, got)
}

func TestParseMentionsBroadcastSentinel(t *testing.T) {
	got := ParseMentions("@all please review", testMembers())
	assert.Equal(t, []string{broadcastSentinel}, got)
}

func TestParseMentionsLocalizedBroadcastSynonym(t *testing.T) {
	got := ParseMentions("@所有人 注意", testMembers())
	assert.Equal(t, []string{broadcastSentinel}, got)
}

func TestParseMentionsDeduplicatesPreservingFirstOccurrence(t *testing.T) {
	got := ParseMentions("@alpha ping @bravo and @alpha again", testMembers())
	assert.Equal(t, []string{"alpha", "bravo"}, got)
}

func TestParseMentionsDiscardsUnresolvedTokens(t *testing.T) {
	got := ParseMentions("@charlie where are you", testMembers())
	assert.Empty(t, got)
}

func TestParseMentionsNoMentionsReturnsNil(t *testing.T) {
	got := ParseMentions("just a plain message", testMembers())
	assert.Nil(t, got)
}
