package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentarena/arena/internal/model"
)

func TestPartitionBroadcastPutsEveryoneInMust(t *testing.T) {
	must, may := Partition([]string{"alpha", "bravo", "charlie"}, []string{broadcastSentinel}, model.GroupConfig{})
	assert.ElementsMatch(t, []string{"alpha", "bravo", "charlie"}, must)
	assert.Empty(t, may)
}

func TestPartitionExplicitMentionsSplitMustAndMay(t *testing.T) {
	must, may := Partition([]string{"alpha", "bravo", "charlie"}, []string{"bravo"}, model.GroupConfig{})
	assert.Equal(t, []string{"bravo"}, must)
	assert.ElementsMatch(t, []string{"alpha", "charlie"}, may)
}

func TestPartitionNoMentionsMakesEveryoneMayReply(t *testing.T) {
	must, may := Partition([]string{"alpha", "bravo"}, nil, model.GroupConfig{})
	assert.Empty(t, must)
	assert.ElementsMatch(t, []string{"alpha", "bravo"}, may)
}

func TestPartitionUnresolvedMentionsAlsoFallsBackToMayReplyForAll(t *testing.T) {
	must, may := Partition([]string{"alpha", "bravo"}, []string{"nonmember"}, model.GroupConfig{})
	assert.Empty(t, must)
	assert.ElementsMatch(t, []string{"alpha", "bravo"}, may)
}

func TestPartitionSupervisorAlwaysInMustAndRemovedFromMay(t *testing.T) {
	cfg := model.GroupConfig{SupervisorEnabled: true, SupervisorAgentID: "sup"}
	must, may := Partition([]string{"alpha", "sup", "bravo"}, []string{"alpha"}, cfg)
	assert.ElementsMatch(t, []string{"alpha", "sup"}, must)
	assert.ElementsMatch(t, []string{"bravo"}, may)
}

func TestPartitionSupervisorInjectedEvenWithNoMentions(t *testing.T) {
	cfg := model.GroupConfig{SupervisorEnabled: true, SupervisorAgentID: "sup"}
	must, may := Partition([]string{"alpha", "sup"}, nil, cfg)
	assert.Equal(t, []string{"sup"}, must)
	assert.Equal(t, []string{"alpha"}, may)
}

func TestPartitionSupervisorNotAMemberIsIgnored(t *testing.T) {
	cfg := model.GroupConfig{SupervisorEnabled: true, SupervisorAgentID: "ghost"}
	must, may := Partition([]string{"alpha", "bravo"}, []string{"alpha"}, cfg)
	assert.Equal(t, []string{"alpha"}, must)
	assert.Equal(t, []string{"bravo"}, may)
}
