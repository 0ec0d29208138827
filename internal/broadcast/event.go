// Package broadcast implements the Broadcaster: group-scoped fan-out of
// typed events to subscribers, over an in-memory bus by default or an
// optional NATS-backed bus for a multi-process deployment (§4.8).
package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the egress event kinds the core emits (§6).
type EventType string

const (
	EventUserMessage   EventType = "user_message"
	EventAgentMessage  EventType = "agent_message"
	EventTurnLog       EventType = "turn_log"
	EventAgentStatus   EventType = "agent_status"
	EventSystemMessage EventType = "system_message"
)

// Event is one message on the bus, scoped to a single group subject.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	GroupID   string                 `json:"group_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates an Event with a fresh id and the current timestamp.
func NewEvent(eventType EventType, groupID string, data map[string]interface{}) *Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GroupID:   groupID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Handler processes one event delivered to a subscription.
type Handler func(event *Event) error

// Subscription represents an active subscription to a group's events.
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// subject returns the bus subject for a group's events, or the wildcard
// subject matching every group when groupID is empty.
func subject(groupID string) string {
	if groupID == "" {
		return "arena.group.*"
	}
	return "arena.group." + groupID
}
