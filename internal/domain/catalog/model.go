package catalog

import "time"

// EntryType classifies the evidence a checklist entry expects.
type EntryType string

const (
	TypeURL      EntryType = "url"
	TypeBoolean  EntryType = "boolean"
	TypeWorkItem EntryType = "workItem"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case TypeURL, TypeBoolean, TypeWorkItem:
		return true
	}
	return false
}

// EntrySpec describes one expected piece of evidence under a question.
type EntrySpec struct {
	Label  string    `json:"label"`
	Type   EntryType `json:"type"`
	Weight int64     `json:"weight"`
}

// Question is one checklist question with its ordered expected entries.
type Question struct {
	ID                 string      `json:"id"`
	Text               string      `json:"text"`
	Entries            []EntrySpec `json:"entries"`
	LinkedDeliverables []string    `json:"linkedDeliverables,omitempty"`
}

// Version is an immutable-once-saved snapshot of the question set.
// ID is assigned at creation and never changes; answer records reference
// versions by this ID (or by description for records written before IDs
// existed), never by array position.
type Version struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Deliverable is a configured artifact type questions can require.
type Deliverable struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Type  EntryType `json:"type"`
}

// Role is a person/function that can carry RACI duties.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PersonName  string `json:"personName,omitempty"`
	Department  string `json:"department,omitempty"`
	Email       string `json:"email,omitempty"`
}
