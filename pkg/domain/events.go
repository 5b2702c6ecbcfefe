package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFlowStart    EventType = "flow_start"
	EventNodeEnter    EventType = "node_enter"
	EventFlowEnd      EventType = "flow_end"
	EventClassifyMiss EventType = "classify_miss"
	EventClarify      EventType = "clarify"
	EventReset        EventType = "reset"
	EventTimeout      EventType = "timeout"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// FlowEvent reports a flow entering, moving through or leaving the graph.
type FlowEvent struct {
	EventBase
	Emergency string      `json:"emergency,omitempty"`
	NodeID    string      `json:"node_id,omitempty"`
	Kind      OutcomeKind `json:"kind,omitempty"`
}

// SessionEvent reports a change to the session lifecycle (reset, timeout, miss).
type SessionEvent struct {
	EventBase
	Reason string `json:"reason,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnFlowStart func(context.Context, *FlowEvent)
	OnNodeEnter func(context.Context, *FlowEvent)
	OnFlowEnd   func(context.Context, *FlowEvent)
	OnSession   func(context.Context, *SessionEvent)
}
