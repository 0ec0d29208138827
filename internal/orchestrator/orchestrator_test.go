package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/arena/internal/broadcast"
	"github.com/agentarena/arena/internal/calllog"
	"github.com/agentarena/arena/internal/contextbuild"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/memory"
	"github.com/agentarena/arena/internal/model"
	"github.com/agentarena/arena/internal/registry"
	"github.com/agentarena/arena/internal/session"
	"github.com/agentarena/arena/internal/worker"
)

// testRig wires a real Orchestrator to real leaves, using the generic CLI
// adapter with a canned shell command in place of an actual agent binary so
// the whole pipeline runs deterministically without a live CLI on PATH.
type testRig struct {
	orch     *Orchestrator
	sessions *session.Manager
	reg      *registry.Registry
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	log := logging.Default()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	sessions, err := session.NewManager("file:" + dbPath + "?_foreign_keys=on&_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	reg := registry.New(log)
	store, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)
	summary, err := memory.NewSummary(t.TempDir())
	require.NoError(t, err)
	personal := memory.NewPersonal()
	callLogger, err := calllog.New(t.TempDir(), log)
	require.NoError(t, err)

	bus := broadcast.NewMemoryBus(log)
	broadcaster := broadcast.New(bus)

	builder := contextbuild.New(reg, sessions, store, personal, summary)
	runtime := worker.NewRuntime(log, 4, nil)

	orch := New(sessions, builder, runtime, reg, store, personal, summary, callLogger, broadcaster, log)
	return &testRig{orch: orch, sessions: sessions, reg: reg}
}

// registerAgent registers a generic-adapter agent whose "CLI" is a fixed
// shell command so Invoke's output is deterministic.
func (rig *testRig) registerAgent(t *testing.T, agentID, command string) model.AgentProfile {
	t.Helper()
	profile := model.AgentProfile{
		AgentID:      agentID,
		Name:         agentID,
		WorkspaceDir: t.TempDir(),
		RolePrompt:   "You are " + agentID + ".",
		CLIConfig: model.CLIConfig{
			CLIType:    model.CLITypeGeneric,
			Command:    command,
			TimeoutSec: 10,
		},
		MaxOutputTokens: 1000,
	}
	rig.reg.Register(profile)
	return profile
}

func ackCommand(text string) string {
	return `printf '%s' '{"result":"` + text + `"}'`
}

func TestOnNewMessageMustReplyAlwaysKeptMayReplyCanSkip(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAgent(t, "alpha", ackCommand("ack-alpha"))
	rig.registerAgent(t, "bravo", `printf '%s' 'SKIP'`)

	group, err := rig.sessions.CreateGroup(ctx, "room", "", model.GroupConfig{
		MaxResponders:       5,
		TurnTimeoutSeconds:  10,
		ChainDepthLimit:     3,
		AutoSummaryInterval: 100,
	})
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "alpha", "Alpha", "")
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "bravo", "Bravo", "")
	require.NoError(t, err)

	_, err = rig.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID: group.ID, AuthorID: "human", AuthorType: model.AuthorHuman, Content: "@alpha please check this",
	})
	require.NoError(t, err)

	rig.orch.OnNewMessage(ctx, group.ID, "@alpha please check this", "human", nil)

	msgs, err := rig.sessions.GetMessages(ctx, group.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alpha", msgs[1].AuthorID)
	assert.Equal(t, "ack-alpha", msgs[1].Content)
}

func TestOnNewMessageBroadcastInvokesEveryAgent(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAgent(t, "alpha", ackCommand("ack-alpha"))
	rig.registerAgent(t, "bravo", ackCommand("ack-bravo"))

	group, err := rig.sessions.CreateGroup(ctx, "room", "", model.GroupConfig{
		MaxResponders:       5,
		TurnTimeoutSeconds:  10,
		ChainDepthLimit:     3,
		AutoSummaryInterval: 100,
	})
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "alpha", "Alpha", "")
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "bravo", "Bravo", "")
	require.NoError(t, err)

	_, err = rig.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID: group.ID, AuthorID: "human", AuthorType: model.AuthorHuman, Content: "@all status please",
	})
	require.NoError(t, err)

	rig.orch.OnNewMessage(ctx, group.ID, "@all status please", "human", nil)

	msgs, err := rig.sessions.GetMessages(ctx, group.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	authors := map[string]bool{}
	for _, m := range msgs[1:] {
		authors[m.AuthorID] = true
	}
	assert.True(t, authors["alpha"])
	assert.True(t, authors["bravo"])
}

func TestOnNewMessageChainsFollowUpMention(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAgent(t, "alpha", `printf '%s' '{"result":"ack <!--NEXT_MENTIONS:[\"bravo\"]-->"}'`)
	rig.registerAgent(t, "bravo", ackCommand("ack-bravo-followup"))

	group, err := rig.sessions.CreateGroup(ctx, "room", "", model.GroupConfig{
		MaxResponders:       1,
		TurnTimeoutSeconds:  10,
		ChainDepthLimit:     3,
		AutoSummaryInterval: 100,
	})
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "alpha", "Alpha", "")
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "bravo", "Bravo", "")
	require.NoError(t, err)

	_, err = rig.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID: group.ID, AuthorID: "human", AuthorType: model.AuthorHuman, Content: "@alpha kick this off",
	})
	require.NoError(t, err)

	rig.orch.OnNewMessage(ctx, group.ID, "@alpha kick this off", "human", nil)

	msgs, err := rig.sessions.GetMessages(ctx, group.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "alpha", msgs[1].AuthorID)
	assert.Equal(t, "ack", msgs[1].Content)
	assert.Equal(t, "bravo", msgs[2].AuthorID)
	assert.Equal(t, "ack-bravo-followup", msgs[2].Content)
	assert.NotEqual(t, msgs[1].TurnID, msgs[2].TurnID)
}

func TestOnNewMessageSkipResponseIsNotPersisted(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAgent(t, "alpha", ackCommand("ack-alpha"))
	rig.registerAgent(t, "bravo", `printf '%s' 'SKIP'`)

	group, err := rig.sessions.CreateGroup(ctx, "room", "", model.GroupConfig{
		MaxResponders:       5,
		TurnTimeoutSeconds:  10,
		ChainDepthLimit:     3,
		AutoSummaryInterval: 100,
	})
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "alpha", "Alpha", "")
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "bravo", "Bravo", "")
	require.NoError(t, err)

	_, err = rig.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID: group.ID, AuthorID: "human", AuthorType: model.AuthorHuman, Content: "anyone have thoughts?",
	})
	require.NoError(t, err)

	rig.orch.OnNewMessage(ctx, group.ID, "anyone have thoughts?", "human", nil)

	msgs, err := rig.sessions.GetMessages(ctx, group.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alpha", msgs[1].AuthorID)
}

func TestOnNewMessageStripsAndPersistsMemoryMarker(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAgent(t, "alpha",
		`printf '%s' '{"result":"done. <!--MEMORY:{\"type\":\"decision\",\"content\":\"use postgres\"}-->"}'`)

	group, err := rig.sessions.CreateGroup(ctx, "room", "", model.GroupConfig{
		MaxResponders:       5,
		TurnTimeoutSeconds:  10,
		ChainDepthLimit:     3,
		AutoSummaryInterval: 100,
	})
	require.NoError(t, err)
	_, err = rig.sessions.AddMember(ctx, group.ID, model.MemberAgent, "alpha", "Alpha", "")
	require.NoError(t, err)

	_, err = rig.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID: group.ID, AuthorID: "human", AuthorType: model.AuthorHuman, Content: "@alpha decide on a db",
	})
	require.NoError(t, err)

	rig.orch.OnNewMessage(ctx, group.ID, "@alpha decide on a db", "human", nil)

	msgs, err := rig.sessions.GetMessages(ctx, group.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotContains(t, msgs[1].Content, "<!--MEMORY")
	assert.Contains(t, msgs[1].Content, "done.")

	entries, err := rig.orch.store.GetAll(group.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "use postgres", entries[0].Content)

	assert.NotEmpty(t, rig.orch.summary.Read(group.ID))
}
