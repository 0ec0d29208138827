package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/broadcast"
	"github.com/agentarena/arena/internal/calllog"
	"github.com/agentarena/arena/internal/contextbuild"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/memory"
	"github.com/agentarena/arena/internal/model"
	"github.com/agentarena/arena/internal/registry"
	"github.com/agentarena/arena/internal/session"
	"github.com/agentarena/arena/internal/worker"
	"github.com/google/uuid"
)

// Orchestrator is the turn scheduler: it resolves mentions into must/may
// reply sets, runs concurrent agent invocations per phase, processes
// memory markers, and chains follow-up turns (§4.1).
type Orchestrator struct {
	sessions    *session.Manager
	builder     *contextbuild.Builder
	runtime     *worker.Runtime
	registry    *registry.Registry
	store       *memory.Store
	personal    *memory.Personal
	summary     *memory.Summary
	calllog     *calllog.Logger
	broadcaster *broadcast.Broadcaster
	log         *logging.Logger

	countsMu      sync.Mutex
	messageCounts map[string]int
}

// New wires an Orchestrator to every leaf component it coordinates.
func New(
	sessions *session.Manager,
	builder *contextbuild.Builder,
	runtime *worker.Runtime,
	reg *registry.Registry,
	store *memory.Store,
	personal *memory.Personal,
	summary *memory.Summary,
	callLogger *calllog.Logger,
	broadcaster *broadcast.Broadcaster,
	log *logging.Logger,
) *Orchestrator {
	if log == nil {
		log = logging.Default()
	}
	return &Orchestrator{
		sessions: sessions, builder: builder, runtime: runtime, registry: reg,
		store: store, personal: personal, summary: summary, calllog: callLogger,
		broadcaster: broadcaster, log: log, messageCounts: make(map[string]int),
	}
}

// OnNewMessage is the core's sole ingress entry point (§6). The caller is
// expected to have already persisted the human message via the Session
// Manager and to invoke this without awaiting completion.
func (o *Orchestrator) OnNewMessage(ctx context.Context, groupID, content, authorID string, mentions []string) {
	if err := o.broadcaster.Publish(broadcast.EventUserMessage, groupID, map[string]interface{}{
		"author_id": authorID, "content": content,
	}); err != nil {
		o.log.WithError(err).Warn("orchestrator: failed to broadcast user_message")
	}

	group, err := o.sessions.GetGroup(ctx, groupID)
	if err != nil {
		o.log.WithGroupID(groupID).WithErrorKind(string(apperrors.KindOf(err))).WithError(err).
			Error("orchestrator: group not found, dropping message")
		return
	}

	if mentions == nil {
		mentions = ParseMentions(content, group.Members)
	}
	agentMembers := group.AgentMemberIDs()
	must, may := Partition(agentMembers, mentions, group.Config)

	turn := Turn{
		TurnID:         uuid.NewString(),
		TriggerSource:  authorID,
		MustReply:      must,
		MayReply:       may,
		AgentMembers:   agentMembers,
		MaxResponders:  group.Config.MaxResponders,
		TimeoutSeconds: group.Config.TurnTimeoutSeconds,
		ChainDepth:     0,
	}

	o.executeTurn(ctx, groupID, turn, group.Config)
}

// turnResult is one agent's outcome within a phase.
type turnResult struct {
	agentID string
	output  model.AgentOutput
	err     error
}

// executeTurn runs Phase A then Phase B, persists and broadcasts every kept
// reply, and recurses into a chained turn if any next_mentions remain
// (§4.1 Turn execution, Chaining).
func (o *Orchestrator) executeTurn(ctx context.Context, groupID string, turn Turn, cfg model.GroupConfig) {
	replied := make(map[string]bool)
	nextMentions := make(map[string]bool)

	for _, r := range o.invokePhase(ctx, groupID, turn, turn.MustReply, model.ModeMustReply) {
		if r.err != nil {
			continue
		}
		o.recordOutput(ctx, groupID, turn, r.agentID, r.output)
		replied[r.agentID] = true
		for _, m := range r.output.NextMentions {
			nextMentions[m] = true
		}
	}

	quota := turn.MaxResponders - len(replied)
	if quota > 0 {
		mayCandidates := firstN(filterOut(turn.MayReply, replied), quota)
		for _, r := range o.invokePhase(ctx, groupID, turn, mayCandidates, model.ModeMayReply) {
			if r.err != nil {
				continue
			}
			if !r.output.ShouldRespond {
				continue
			}
			o.recordOutput(ctx, groupID, turn, r.agentID, r.output)
			replied[r.agentID] = true
			for _, m := range r.output.NextMentions {
				nextMentions[m] = true
			}
		}
	}

	if !cfg.ReInvokeAlreadyReplied {
		for id := range replied {
			delete(nextMentions, id)
		}
	}

	if len(nextMentions) == 0 {
		return
	}

	if turn.ChainDepth >= cfg.ChainDepthLimit {
		if err := o.broadcaster.Publish(broadcast.EventSystemMessage, groupID, map[string]interface{}{
			"content": fmt.Sprintf("Automatic follow-up reached the %d-turn limit; waiting for a human prompt.", cfg.ChainDepthLimit),
		}); err != nil {
			o.log.WithError(err).Warn("orchestrator: failed to broadcast chain-depth-limit notice")
		}
		return
	}

	must := keys(nextMentions)
	may := filterOut(filterOut(turn.AgentMembers, nextMentions), replied)
	nextTurn := Turn{
		TurnID:         uuid.NewString(),
		TriggerSource:  "system",
		MustReply:      must,
		MayReply:       may,
		AgentMembers:   turn.AgentMembers,
		MaxResponders:  turn.MaxResponders,
		TimeoutSeconds: turn.TimeoutSeconds,
		ChainDepth:     turn.ChainDepth + 1,
	}
	o.executeTurn(ctx, groupID, nextTurn, cfg)
}

// invokePhase runs agentIDs concurrently, each under its own per-invocation
// timeout, and waits for all of them before returning. Every invocation's
// own goroutine func always returns nil to errgroup — its error is captured
// into that agent's own result instead — so one agent's failure never
// cancels or short-circuits the others (§5). Results are returned in the
// order the invocations completed, which is the order they are persisted.
func (o *Orchestrator) invokePhase(ctx context.Context, groupID string, turn Turn, agentIDs []string, mode model.InvocationMode) []turnResult {
	if len(agentIDs) == 0 {
		return nil
	}

	results := make([]turnResult, 0, len(agentIDs))
	var resultsMu sync.Mutex
	var eg errgroup.Group
	for _, agentID := range agentIDs {
		agentID := agentID
		eg.Go(func() error {
			output, err := o.invokeOne(ctx, agentID, groupID, mode, turn)
			resultsMu.Lock()
			results = append(results, turnResult{agentID: agentID, output: output, err: err})
			resultsMu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// invokeOne builds an invocation record and invokes one agent with a
// per-invocation timeout (§5 cancellation and timeouts).
func (o *Orchestrator) invokeOne(ctx context.Context, agentID, groupID string, mode model.InvocationMode, turn Turn) (model.AgentOutput, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, time.Duration(turn.TimeoutSeconds)*time.Second)
	defer cancel()

	rec, err := o.builder.Build(invokeCtx, contextbuild.Request{
		AgentID:         agentID,
		SessionID:       groupID,
		TurnID:          turn.TurnID,
		Invocation:      mode,
		MentionedBy:     turn.TriggerSource,
		FullAgentRoster: turn.AgentMembers,
	})
	if err != nil {
		o.log.WithAgentID(agentID).WithTurnID(turn.TurnID).WithErrorKind(string(apperrors.KindOf(err))).
			WithError(err).Error("orchestrator: failed to build invocation record")
		return model.AgentOutput{}, err
	}

	profile, err := o.registry.Get(agentID)
	if err != nil {
		o.log.WithAgentID(agentID).WithTurnID(turn.TurnID).WithErrorKind(string(apperrors.KindOf(err))).
			WithError(err).Error("orchestrator: agent not registered")
		return model.AgentOutput{}, err
	}

	output, err := o.runtime.InvokeAgent(invokeCtx, groupID, profile, rec)
	if err != nil {
		o.log.WithAgentID(agentID).WithTurnID(turn.TurnID).WithErrorKind(string(apperrors.KindOf(err))).
			WithError(err).Error("orchestrator: invocation failed")
		o.saveCallLog(groupID, turn, agentID, profile.Name, mode, model.AgentOutput{ExecutionMeta: model.ExecutionMeta{IsError: true}})
		return model.AgentOutput{}, err
	}

	o.saveCallLog(groupID, turn, agentID, profile.Name, mode, output)
	return output, nil
}

// recordOutput processes one kept agent reply: strips memory markers,
// persists the Memory Store and Personal entries they describe, persists
// the reply as a message, and broadcasts it (§4.1, §4.4 steps 1-5).
func (o *Orchestrator) recordOutput(ctx context.Context, groupID string, turn Turn, agentID string, output model.AgentOutput) {
	profile, err := o.registry.Get(agentID)
	if err != nil {
		return
	}

	markers := ExtractMarkers(output.Content, o.log)

	for _, entry := range markers.MemoryEntries {
		if _, err := o.store.Save(groupID, entry); err != nil {
			o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to save memory entry")
			continue
		}
	}
	if len(markers.MemoryEntries) > 0 {
		o.rebuildSummary(groupID)
	}

	for _, text := range markers.PersonalLogs {
		if err := o.personal.AppendDailyLog(profile.WorkspaceDir, text); err != nil {
			o.log.WithAgentID(agentID).WithError(err).Warn("orchestrator: failed to append personal log")
		}
	}

	stored, err := o.sessions.SaveMessage(ctx, model.StoredMessage{
		GroupID:    groupID,
		TurnID:     turn.TurnID,
		AuthorID:   agentID,
		AuthorType: model.AuthorAgent,
		AuthorName: profile.Name,
		Content:    markers.StrippedContent,
		Metadata:   map[string]interface{}{"next_mentions": output.NextMentions},
	})
	if err != nil {
		o.log.WithGroupID(groupID).WithError(err).Error("orchestrator: failed to persist agent reply")
		return
	}

	if err := o.broadcaster.Publish(broadcast.EventAgentMessage, groupID, map[string]interface{}{
		"agent_id": agentID, "turn_id": turn.TurnID, "content": stored.Content,
	}); err != nil {
		o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to broadcast agent_message")
	}

	o.bumpMessageCountAndMaybeSummarize(groupID)
}

func (o *Orchestrator) saveCallLog(groupID string, turn Turn, agentID, agentName string, mode model.InvocationMode, output model.AgentOutput) {
	entry := model.CallLogEntry{
		SessionID:   groupID,
		TurnID:      turn.TurnID,
		AgentID:     agentID,
		AgentName:   agentName,
		Invocation:  mode,
		Prompt:      output.PromptSent,
		Content:     output.Content,
		DurationMS:  output.ExecutionMeta.DurationMS,
		TokenCounts: output.ExecutionMeta.TokenCounts,
		ToolCalls:   output.ExecutionMeta.ToolCalls,
		IsError:     output.ExecutionMeta.IsError,
		Timestamp:   time.Now().UTC(),
	}
	if err := o.calllog.Save(entry); err != nil {
		o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to save call log entry")
	}
	if err := o.broadcaster.Publish(broadcast.EventTurnLog, groupID, map[string]interface{}{
		"agent_id": agentID, "turn_id": turn.TurnID, "duration_ms": entry.DurationMS, "is_error": entry.IsError,
	}); err != nil {
		o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to broadcast turn_log")
	}
}

// bumpMessageCountAndMaybeSummarize implements the auto-summary floor: a
// proactive, non-marker-triggered Session Summary rebuild every
// auto_summary_interval persisted messages (§4.1).
func (o *Orchestrator) bumpMessageCountAndMaybeSummarize(groupID string) {
	o.countsMu.Lock()
	o.messageCounts[groupID]++
	count := o.messageCounts[groupID]
	o.countsMu.Unlock()

	group, err := o.sessions.GetGroup(context.Background(), groupID)
	if err != nil {
		return
	}
	interval := group.Config.AutoSummaryInterval
	if interval <= 0 {
		return
	}
	if count%interval == 0 {
		o.rebuildSummary(groupID)
	}
}

func (o *Orchestrator) rebuildSummary(groupID string) {
	entries, err := o.store.GetAll(groupID)
	if err != nil {
		o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to read memory entries for summary rebuild")
		return
	}
	if err := o.summary.Rebuild(groupID, entries); err != nil {
		o.log.WithGroupID(groupID).WithError(err).Warn("orchestrator: failed to rebuild session summary")
	}
}

func filterOut(list []string, exclude map[string]bool) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !exclude[v] {
			out = append(out, v)
		}
	}
	return out
}

func firstN(list []string, n int) []string {
	if n >= len(list) {
		return list
	}
	return list[:n]
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
