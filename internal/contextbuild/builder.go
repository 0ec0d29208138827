// Package contextbuild implements the Context Builder: it assembles one
// Invocation Record per agent per turn from the Registry, the Session
// Manager, and every layer of the Memory Plane (§4.2). It is pure aside
// from those reads — no orchestration decisions are made here.
package contextbuild

import (
	"context"
	"strings"

	"github.com/agentarena/arena/internal/memory"
	"github.com/agentarena/arena/internal/model"
	"github.com/agentarena/arena/internal/registry"
	"github.com/agentarena/arena/internal/session"
)

// historyWindow is N, the most recent messages read per build (§4.2 step 3).
const historyWindow = 50

// memoryRetrievalTopK is the number of Memory Store entries merged in.
const memoryRetrievalTopK = 5

const memoryDelimiter = "\n\n---\n\n"

// Request names the inputs to one Invocation Record build (§4.2 contract).
type Request struct {
	AgentID          string
	SessionID        string
	TurnID           string
	Invocation       model.InvocationMode
	MentionedBy      string
	FullAgentRoster  []string
	UseDigestForOldHistory bool
}

// Builder assembles Invocation Records from the Registry, Session Manager,
// and Memory Plane.
type Builder struct {
	registry *registry.Registry
	sessions *session.Manager
	store    *memory.Store
	personal *memory.Personal
	summary  *memory.Summary
}

// New returns a Builder wired to the given leaves.
func New(reg *registry.Registry, sessions *session.Manager, store *memory.Store, personal *memory.Personal, summary *memory.Summary) *Builder {
	return &Builder{registry: reg, sessions: sessions, store: store, personal: personal, summary: summary}
}

// Build assembles exactly one Invocation Record for req (§4.2 steps 1-5).
func (b *Builder) Build(ctx context.Context, req Request) (model.InvocationRecord, error) {
	profile, err := b.registry.Get(req.AgentID)
	if err != nil {
		return model.InvocationRecord{}, err
	}

	peers := b.resolvePeers(req.AgentID, req.FullAgentRoster)

	messages, err := b.recentMessages(ctx, req)
	if err != nil {
		return model.InvocationRecord{}, err
	}

	memoryContext := b.mergedMemoryContext(profile, req.SessionID, messages)

	return model.InvocationRecord{
		SessionID:       req.SessionID,
		TurnID:          req.TurnID,
		AgentID:         profile.AgentID,
		AgentName:       profile.Name,
		RolePrompt:      profile.RolePrompt,
		Invocation:      req.Invocation,
		MentionedBy:     req.MentionedBy,
		Messages:        messages,
		Peers:           peers,
		MemoryContext:   memoryContext,
		MaxOutputTokens: profile.MaxOutputTokens,
		PreferConcise:   true,
	}, nil
}

// resolvePeers builds the peer list for step 2: every other roster id that
// still resolves in the Registry, self excluded, unresolved ids skipped.
func (b *Builder) resolvePeers(selfID string, roster []string) []model.Peer {
	peers := make([]model.Peer, 0, len(roster))
	for _, id := range roster {
		if id == selfID {
			continue
		}
		profile, err := b.registry.Get(id)
		if err != nil {
			continue
		}
		peers = append(peers, model.Peer{AgentID: profile.AgentID, Name: profile.Name, Skills: profile.Skills})
	}
	return peers
}

// recentMessages implements step 3: up to historyWindow messages, newest
// window of the session's history, optionally digesting the older portion.
func (b *Builder) recentMessages(ctx context.Context, req Request) ([]model.Message, error) {
	stored, err := b.sessions.GetMessages(ctx, req.SessionID, historyWindow, nil)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, len(stored))
	for i, s := range stored {
		messages[i] = session.StoredToProtocol(s)
	}

	if !req.UseDigestForOldHistory || len(messages) <= 1 {
		return messages, nil
	}

	// Digest every message but the most recent one, which is never replaced.
	splitAt := len(messages) - 1
	digestText := memory.Digest(messages[:splitAt])
	if digestText == "" {
		return messages, nil
	}
	digestMessage := model.Message{
		Role:    model.RoleSystem,
		Content: digestText,
	}
	return append([]model.Message{digestMessage}, messages[splitAt:]...), nil
}

// mergedMemoryContext implements step 4: personal long-term + daily logs,
// then session summary, then top-K retrieved store entries, in that
// priority order, any empty layer skipped.
func (b *Builder) mergedMemoryContext(profile model.AgentProfile, sessionID string, messages []model.Message) string {
	var parts []string

	if personalText := b.personal.ReadContext(profile.WorkspaceDir); personalText != "" {
		parts = append(parts, personalText)
	}

	if summaryText := b.summary.Read(sessionID); summaryText != "" {
		parts = append(parts, "### Session summary\n"+summaryText)
	}

	query := lastMessageContent(messages)
	if query != "" {
		retrieved, err := b.store.Search(sessionID, query, memoryRetrievalTopK)
		if err == nil && len(retrieved) > 0 {
			var sb strings.Builder
			sb.WriteString("### Retrieved memory\n")
			for _, e := range retrieved {
				sb.WriteString("- [" + string(e.Type) + "] " + e.Content + "\n")
			}
			parts = append(parts, strings.TrimRight(sb.String(), "\n"))
		}
	}

	return strings.Join(parts, memoryDelimiter)
}

func lastMessageContent(messages []model.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
