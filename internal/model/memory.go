package model

import "time"

// MemoryType classifies a Memory Entry for the fixed grouping order the
// Session Summary rebuild uses (§4.4).
type MemoryType string

const (
	MemoryDecision    MemoryType = "decision"
	MemoryRequirement MemoryType = "requirement"
	MemoryTask        MemoryType = "task"
	MemoryIssue       MemoryType = "issue"
	MemorySummary     MemoryType = "summary"
)

// MemoryTypeOrder is the fixed group order the Session Summary rebuild emits
// sections in (§4.4); never alphabetical, never insertion order.
var MemoryTypeOrder = []MemoryType{
	MemoryDecision, MemoryRequirement, MemoryTask, MemoryIssue, MemorySummary,
}

// MemoryEntry is one structured fact recorded in a session's Memory Store (§3).
type MemoryEntry struct {
	EntryID           string     `json:"entry_id"`
	SessionID         string     `json:"session_id"`
	Content           string     `json:"content"`
	Type              MemoryType `json:"type"`
	Importance        float64    `json:"importance"`
	CreatedAt         time.Time  `json:"created_at"`
	SourceMessageID   string     `json:"source_message_id,omitempty"`
}

// CallLogEntry is one append-only record of an agent invocation (§3, §4.6).
type CallLogEntry struct {
	LogID        string         `json:"log_id"`
	SessionID    string         `json:"session_id"`
	TurnID       string         `json:"turn_id"`
	AgentID      string         `json:"agent_id"`
	AgentName    string         `json:"agent_name"`
	Invocation   InvocationMode `json:"invocation"`
	Prompt       string         `json:"prompt"`
	RawOutput    string         `json:"raw_output"`
	Content      string         `json:"content"`
	DurationMS   int64          `json:"duration_ms"`
	Cost         float64        `json:"cost,omitempty"`
	TokenCounts  int            `json:"token_counts,omitempty"`
	ToolCalls    []string       `json:"tool_calls,omitempty"`
	IsError      bool           `json:"is_error"`
	Timestamp    time.Time      `json:"timestamp"`
}
