package audit

import "context"

// EventKind identifies what an entry records.
type EventKind string

const (
	EventUserInput      EventKind = "user_input"
	EventLLMRequest     EventKind = "llm_request"
	EventLLMResponse    EventKind = "llm_response"
	EventToolCall       EventKind = "tool_call"
	EventDisputeFlagged EventKind = "dispute_flagged"
	EventSecurity       EventKind = "security"
)

// Severity is an optional entry severity.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Reserved entry fields. Payload keys with these names are overwritten.
const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"
	FieldUserHash  = "user_hash"
	FieldEvent     = "event"
	FieldSeverity  = "severity"
	FieldTurnID    = "turn_id"
	FieldPrevHash  = "prev_hash"
	FieldHash      = "hash"
)

// Observer receives one call per attempted write. It is implemented by the
// metrics collector.
type Observer interface {
	ObserveAuditWrite(event string, err error)
}

type turnKey struct{}

// WithTurnID tags every entry written with ctx with the given turn id so the
// entries of one user turn can be correlated.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnKey{}, turnID)
}

// TurnID returns the turn id set by WithTurnID, if any.
func TurnID(ctx context.Context) string {
	id, _ := ctx.Value(turnKey{}).(string)
	return id
}
