package model

import (
	"time"

	"github.com/google/uuid"
)

// Meta is the bookkeeping shared by every stored entity. Version is the
// compare-and-set key: it is incremented by the store on every successful
// update, and an update carrying a stale Version is rejected.
type Meta struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// GetMeta returns the metadata of the entity
func (m *Meta) GetMeta() *Meta {
	return m
}

// NewID generates a new entity ID
func NewID() string {
	return uuid.NewString()
}

// WorkNote is an audit note appended to an entity
type WorkNote struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneNotes(notes []WorkNote) []WorkNote {
	if notes == nil {
		return nil
	}
	out := make([]WorkNote, len(notes))
	copy(out, notes)
	return out
}
