package model

import "time"

// MessageRole is the role a Message plays in a model-facing dialogue history.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one line of dialogue history as handed to an adapter — the
// Context Builder's truncated view of a session, not the persisted form.
type Message struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"role"`
	AuthorID   string      `json:"author_id"`
	AuthorName string      `json:"author_name"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Status is one state in the agent's execution lifecycle (§3, the richer set).
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAnalyzing     Status = "analyzing"
	StatusReadingMemory Status = "reading_memory"
	StatusCallingTool   Status = "calling_tool"
	StatusGenerating    Status = "generating"
	StatusReviewing     Status = "reviewing"
	StatusWaiting       Status = "waiting"
	StatusDone          Status = "done"
	StatusError         Status = "error"
	StatusTimeout       Status = "timeout"
)

// StatusEvent reports one state transition of an agent invocation.
type StatusEvent struct {
	Status   Status  `json:"status"`
	Detail   string  `json:"detail,omitempty"`
	Progress float64 `json:"progress,omitempty"`
}

// InvocationMode is whether an agent is expected to answer (must_reply) or
// may silently decline (may_reply).
type InvocationMode string

const (
	ModeMustReply InvocationMode = "must_reply"
	ModeMayReply  InvocationMode = "may_reply"
)

// Peer is one other roster member as presented to an invoked agent — self excluded.
type Peer struct {
	AgentID string   `json:"agent_id"`
	Name    string   `json:"name"`
	Skills  []string `json:"skills"`
}

// InvocationRecord is the Context Builder's sole output: everything an
// adapter needs to build a prompt and invoke an agent (§3, §4.2).
type InvocationRecord struct {
	SessionID       string         `json:"session_id"`
	TurnID          string         `json:"turn_id"`
	AgentID         string         `json:"agent_id"`
	AgentName       string         `json:"agent_name"`
	RolePrompt      string         `json:"role_prompt"`
	Invocation      InvocationMode `json:"invocation"`
	MentionedBy     string         `json:"mentioned_by,omitempty"`
	Messages        []Message      `json:"messages"`
	Peers           []Peer         `json:"peers"`
	MemoryContext   string         `json:"memory_context,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	PreferConcise   bool           `json:"prefer_concise"`
}

// ExecutionMeta carries the non-content facts about one invocation, used for
// the call log and for `turn_log` broadcast events.
type ExecutionMeta struct {
	DurationMS  int64    `json:"duration_ms"`
	TokenCounts int      `json:"token_counts,omitempty"`
	ToolCalls   []string `json:"tool_calls,omitempty"`
	IsError     bool     `json:"is_error"`
	IsTimeout   bool     `json:"is_timeout,omitempty"`
}

// AgentOutput is what an adapter returns for one invocation (§3).
type AgentOutput struct {
	Content        string        `json:"content"`
	NextMentions   []string      `json:"next_mentions"`
	StatusUpdates  []StatusEvent `json:"status_updates,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	ShouldRespond  bool          `json:"should_respond"`
	ExecutionMeta  ExecutionMeta `json:"execution_meta"`
	PromptSent     string        `json:"-"`
}
