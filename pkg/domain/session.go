package domain

import "time"

// PositionKind tells what the session's position points at.
type PositionKind string

const (
	PositionNone     PositionKind = ""
	PositionQuestion PositionKind = "question"
	PositionStep     PositionKind = "step"
	// PositionEnd is the sentinel set when a flow terminates.
	PositionEnd PositionKind = "end"
)

// Position is the last node surfaced to the user.
type Position struct {
	NodeID string       `json:"node_id,omitempty"`
	Kind   PositionKind `json:"kind,omitempty"`
}

// Status is the state-machine state derived from a Session.
type Status string

const (
	StatusNew               Status = "NEW"
	StatusAwaitingEmergency Status = "AWAITING_EMERGENCY"
	StatusAwaitingAnswer    Status = "AWAITING_ANSWER"
	StatusInStepFlow        Status = "IN_STEP_FLOW"
	StatusEnded             Status = "ENDED"
)

// Session captures the per-session conversation state.
type Session struct {
	ID             string    `json:"id"`
	Emergency      string    `json:"emergency,omitempty"`
	Position       Position  `json:"position"`
	AwaitingAnswer bool      `json:"awaiting_answer"`
	LastActivity   time.Time `json:"last_activity"`
	CreatedAt      time.Time `json:"created_at"`
	// Path lists the node IDs surfaced in the current flow.
	Path []string `json:"path,omitempty"`
	// Sealed holds the encrypted session when an encrypting store wrapped it.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates the state for a session that has not seen any message yet.
func NewSession(id string) *Session {
	return &Session{ID: id, Path: []string{}}
}

// Status derives the state-machine state from the stored fields.
func (s *Session) Status() Status {
	switch {
	case s.CreatedAt.IsZero():
		return StatusNew
	case s.Position.Kind == PositionEnd:
		return StatusEnded
	case s.Emergency == "":
		return StatusAwaitingEmergency
	case s.AwaitingAnswer:
		return StatusAwaitingAnswer
	case s.Position.Kind == PositionStep:
		return StatusInStepFlow
	default:
		return StatusAwaitingEmergency
	}
}

// Clear resets the flow fields in place. The session itself is kept.
func (s *Session) Clear() {
	s.Emergency = ""
	s.Position = Position{}
	s.AwaitingAnswer = false
	s.Path = []string{}
}

// End moves the session into the ENDED state.
func (s *Session) End() {
	s.Emergency = ""
	s.Position = Position{Kind: PositionEnd}
	s.AwaitingAnswer = false
}

// Touch records activity at the given instant.
func (s *Session) Touch(now time.Time) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.LastActivity = now
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Path = append([]string(nil), s.Path...)
	return &c
}
