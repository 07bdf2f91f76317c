// Package answers owns the per-work-item answer record: the in-memory
// model, the single-field codec with its historical shapes, and the form
// service that mutates and persists records.
package answers

import (
	"encoding/json"

	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/scoring"
)

// Value is an entry answer payload: either a string (url, work item id) or
// a boolean completion flag. It round-trips the wire format written by all
// client revisions, where the JSON value is a bare string or bool.
type Value struct {
	str    string
	b      bool
	isBool bool
}

// StringValue wraps a string payload.
func StringValue(s string) Value { return Value{str: s} }

// BoolValue wraps a boolean payload.
func BoolValue(b bool) Value { return Value{b: b, isBool: true} }

// IsBool reports whether the payload is a boolean.
func (v Value) IsBool() bool { return v.isBool }

// Bool returns the boolean payload, false for string payloads.
func (v Value) Bool() bool { return v.isBool && v.b }

// Str returns the string payload, "" for boolean payloads.
func (v Value) Str() string {
	if v.isBool {
		return ""
	}
	return v.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isBool {
		return json.Marshal(v.b)
	}
	return json.Marshal(v.str)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}
	// Numbers and other scalars occasionally leak in from hand-edited
	// fields; treat them as absent rather than failing the whole record.
	*v = Value{}
	return nil
}

// EntryAnswer is one expected piece of evidence with its current value.
type EntryAnswer struct {
	Label  string            `json:"label"`
	Type   catalog.EntryType `json:"type"`
	Value  Value             `json:"value"`
	Weight int64             `json:"weight"`
}

// Completed decides, once, whether an entry counts as done: a true flag
// for boolean entries, a non-empty string for url and work item entries.
func (e EntryAnswer) Completed() bool {
	if e.Type == catalog.TypeBoolean {
		return e.Value.Bool()
	}
	return e.Value.Str() != ""
}

// QuestionAnswer is the answer state for one question.
type QuestionAnswer struct {
	QuestionText string        `json:"questionText"`
	Entries      []EntryAnswer `json:"entries"`
	Checked      bool          `json:"checked"`
	UniqueResult int64         `json:"uniqueResult"`
	TotalWeight  int64         `json:"totalWeight"`
}

// Record is the canonical in-memory answer record for one work item.
// Exactly one of the version references is meaningful: VersionID for
// records written by this service, VersionDescription or VersionIndex for
// records written by older clients (normalized away on the next save).
type Record struct {
	VersionID          string `json:"versionId,omitempty"`
	VersionDescription string `json:"version,omitempty"`
	VersionIndex       *int   `json:"versionIndex,omitempty"`

	Data map[string]QuestionAnswer `json:"data"`

	UniqueResult int64 `json:"uniqueResult"`
	TotalWeight  int64 `json:"totalWeight"`

	// Deliverable values carried over from the legacy flat shape, keyed by
	// deliverable id. Rebound onto question entries once the catalog is
	// available, then dropped; never serialized.
	LegacyDeliverables map[string]Value `json:"-"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{Data: map[string]QuestionAnswer{}}
}

// VersionRef converts the record's version reference for catalog lookup.
func (r *Record) VersionRef() catalog.VersionRef {
	return catalog.VersionRef{
		ID:          r.VersionID,
		Description: r.VersionDescription,
		Index:       r.VersionIndex,
	}
}

// Recompute rebuilds the per-question and record-level score integers from
// the entry arrays, never trusting stored values. Questions keep their own
// totals; the record totals aggregate checked questions only. Records with
// no entries at all (legacy flat records awaiting catalog rebinding) keep
// their stored totals.
func (r *Record) Recompute() {
	hasEntries := false
	var achieved, total int64

	for qid, qa := range r.Data {
		entries := make([]scoring.Entry, len(qa.Entries))
		for i, e := range qa.Entries {
			entries[i] = scoring.Entry{Completed: e.Completed(), Weight: e.Weight}
		}
		qa.UniqueResult, qa.TotalWeight = scoring.Score(entries)
		r.Data[qid] = qa

		if len(qa.Entries) > 0 {
			hasEntries = true
		}
		if qa.Checked {
			achieved += qa.UniqueResult
			total += qa.TotalWeight
		}
	}

	if hasEntries || len(r.Data) == 0 && len(r.LegacyDeliverables) == 0 {
		r.UniqueResult = achieved
		r.TotalWeight = total
	}
}

// CheckedQuestions returns the ids of questions marked as selected.
func (r *Record) CheckedQuestions() []string {
	var ids []string
	for qid, qa := range r.Data {
		if qa.Checked {
			ids = append(ids, qid)
		}
	}
	return ids
}
