package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Issue is follow-up work raised against a source entity. Issues are closed
// by cascades but never reopened.
type Issue struct {
	Meta
	Number           string           `json:"number"`
	ShortDescription string           `json:"short_description"`
	Source           Ref              `json:"source"`
	State            types.IssueState `json:"state"`
	Priority         types.Priority   `json:"priority"`
	CloseNotes       string           `json:"close_notes"`
	ClosedAt         *time.Time       `json:"closed_at,omitempty"`
	ClosedBy         string           `json:"closed_by"`
}

// NewIssue creates an open issue. Priority defaults to moderate.
func NewIssue(source Ref, description string, priority types.Priority) *Issue {
	if !priority.IsValid() {
		priority = types.PriorityModerate
	}
	id := NewID()
	return &Issue{
		Meta:             Meta{ID: id},
		Number:           "ISS" + strings.ToUpper(id[:8]),
		ShortDescription: description,
		Source:           source,
		State:            types.IssueStateOpen,
		Priority:         priority,
	}
}

func (i *Issue) Clone() *Issue {
	c := *i
	c.ClosedAt = cloneTime(i.ClosedAt)
	return &c
}

// IsClosed reports whether the issue is closed
func (i *Issue) IsClosed() bool {
	return i.State == types.IssueStateClosed
}

// Close moves the issue to closed with a closure reason
func (i *Issue) Close(notes, actor string, at time.Time) {
	i.State = types.IssueStateClosed
	i.CloseNotes = notes
	i.ClosedAt = &at
	i.ClosedBy = actor
}
