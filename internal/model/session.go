package model

import "time"

// MemberType distinguishes a human participant from an agent participant.
type MemberType string

const (
	MemberHuman MemberType = "human"
	MemberAgent MemberType = "agent"
)

// AuthorType classifies the author of a Stored Message.
type AuthorType string

const (
	AuthorHuman  AuthorType = "human"
	AuthorAgent  AuthorType = "agent"
	AuthorSystem AuthorType = "system"
)

// GroupConfig carries per-group orchestration and behavior settings (§3).
type GroupConfig struct {
	MaxResponders          int    `json:"max_responders"`
	TurnTimeoutSeconds     int    `json:"turn_timeout_seconds"`
	ChainDepthLimit        int    `json:"chain_depth_limit"`
	ReInvokeAlreadyReplied bool   `json:"re_invoke_already_replied"`
	SupervisorEnabled      bool   `json:"supervisor_enabled"`
	SupervisorAgentID      string `json:"supervisor_agent_id"`
	AutoSummaryInterval    int    `json:"auto_summary_interval"`
}

// DefaultGroupConfig returns the spec's documented defaults.
func DefaultGroupConfig() GroupConfig {
	return GroupConfig{
		MaxResponders:          5,
		TurnTimeoutSeconds:     120,
		ChainDepthLimit:        5,
		ReInvokeAlreadyReplied: false,
		SupervisorEnabled:      false,
		SupervisorAgentID:      "supervisor",
		AutoSummaryInterval:    20,
	}
}

// GroupMember is one participant of a Group — a human or an agent.
type GroupMember struct {
	ID          string     `json:"id"`
	Type        MemberType `json:"type"`
	AgentID     string     `json:"agent_id,omitempty"`
	DisplayName string     `json:"display_name"`
	JoinedAt    time.Time  `json:"joined_at"`
	RoleInGroup string     `json:"role_in_group,omitempty"`
}

// Group is a persisted chat room: identity, members, and orchestration config.
type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
	Members     []GroupMember `json:"members"`
	Config      GroupConfig   `json:"config"`
}

// AgentMemberIDs returns the agent_id of every agent-type member, in stable
// join order — this is the "group-member order" Phase B iterates over (§4.1).
func (g Group) AgentMemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.Type == MemberAgent && m.AgentID != "" {
			ids = append(ids, m.AgentID)
		}
	}
	return ids
}

// Attachment is a small file/code/json/image blob carried alongside a message.
type Attachment struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
}

// StoredMessage is the persisted form of one chat message (§3).
type StoredMessage struct {
	ID          string                 `json:"id"`
	GroupID     string                 `json:"group_id"`
	TurnID      string                 `json:"turn_id"`
	AuthorID    string                 `json:"author_id"`
	AuthorType  AuthorType             `json:"author_type"`
	AuthorName  string                 `json:"author_name"`
	Content     string                 `json:"content"`
	Mentions    []string               `json:"mentions"`
	Attachments []Attachment           `json:"attachments"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata"`
}
