package model

import (
	"time"

	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Task is a unit of GRC work with a due date. EscalatedAt is set once when
// the task is escalated to the group manager and is never cleared by the
// sweep, so priority is raised at most once per task.
type Task struct {
	Meta
	Number          string          `json:"number"`
	Title           string          `json:"title"`
	DueDate         time.Time       `json:"due_date"`
	Priority        types.Priority  `json:"priority"`
	AssignmentGroup types.GroupID   `json:"assignment_group"`
	AssignedTo      string          `json:"assigned_to"`
	State           types.TaskState `json:"state"`
	EscalatedAt     *time.Time      `json:"escalated_at,omitempty"`
	WorkNotes       []WorkNote      `json:"work_notes,omitempty"`
}

// NewTask creates an open task
func NewTask(number, title string, due time.Time, priority types.Priority) *Task {
	return &Task{
		Meta:     Meta{ID: NewID()},
		Number:   number,
		Title:    title,
		DueDate:  due,
		Priority: priority,
		State:    types.TaskStateOpen,
	}
}

func (t *Task) Clone() *Task {
	c := *t
	c.EscalatedAt = cloneTime(t.EscalatedAt)
	c.WorkNotes = cloneNotes(t.WorkNotes)
	return &c
}

// AddWorkNote appends an audit note
func (t *Task) AddWorkNote(author, body string, at time.Time) {
	t.WorkNotes = append(t.WorkNotes, WorkNote{Author: author, Body: body, CreatedAt: at})
}

// IsOverdue reports whether the task is unfinished and past its due date
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.State.IsFinished() && t.DueDate.Before(now)
}

// DaysOverdue returns the number of whole days past the due date
func (t *Task) DaysOverdue(now time.Time) int {
	if !t.DueDate.Before(now) {
		return 0
	}
	return int(now.Sub(t.DueDate) / (24 * time.Hour))
}
