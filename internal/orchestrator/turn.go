package orchestrator

import "github.com/agentarena/arena/internal/model"

// Turn is the Orchestrator's in-memory scheduling unit: one message (human
// or system, chained) and the agents it obligates or invites to reply
// (§3 Turn).
type Turn struct {
	TurnID         string
	TriggerSource  string
	MustReply      []string
	MayReply       []string
	AgentMembers   []string
	MaxResponders  int
	TimeoutSeconds int
	ChainDepth     int
}
