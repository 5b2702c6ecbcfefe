package domain

// OutcomeKind classifies what a turn surfaces to the user.
type OutcomeKind string

const (
	OutcomeQuestion OutcomeKind = "question"
	OutcomeStep     OutcomeKind = "step"
	OutcomeClarify  OutcomeKind = "clarify"
	OutcomeTerminal OutcomeKind = "terminal"
	OutcomeError    OutcomeKind = "error"
	OutcomeWelcome  OutcomeKind = "welcome"
	OutcomeHelp     OutcomeKind = "help"
)

// Outcome is the raw payload decided for a turn, before phrasing.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Content  string      `json:"content"`
	NodeID   string      `json:"node_id,omitempty"`
	Terminal bool        `json:"terminal"`
}

// Reply is what the engine returns to transports.
type Reply struct {
	Text     string      `json:"response"`
	Kind     OutcomeKind `json:"kind"`
	Terminal bool        `json:"terminal"`
	Status   Status      `json:"status"`
}

// PhraseRequest asks the phraser to rewrite a raw payload conversationally.
type PhraseRequest struct {
	SessionID string
	Kind      OutcomeKind
	Content   string
	// Escalation forces the "seek emergency services" directive.
	Escalation bool
	History    []Turn
}

// Role of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session's conversational memory.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
