package model

// Outbound event names
const (
	EventRiskSubmitted  = "risk.submitted_for_review"
	EventTaskOverdue    = "grc.task.overdue"
	EventTaskEscalation = "grc.task.overdue.escalation"
)

// Notification is an outbound message produced by a cascade. Delivery is
// decided by the caller.
type Notification struct {
	Event     string         `json:"event"`
	Subject   Ref            `json:"subject"`
	Recipient string         `json:"recipient"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Summary counts per-entity outcomes of a batch operation
type Summary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// Add accumulates another summary
func (s *Summary) Add(o Summary) {
	s.Processed += o.Processed
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Errored += o.Errored
}
