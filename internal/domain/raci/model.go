// Package raci tracks which roles are Responsible, Accountable, Consulted,
// and Informed for each deliverable of a work item. Assignments live in
// their own custom field with a lifecycle independent of the answer record.
package raci

import (
	"encoding/json"
	"strings"
)

// Duty is a set over the four RACI duties, encoded as a bitmask. The wire
// format is the legacy duty string ("RA", "C", ...); using a set internally
// means toggling a duty can never produce duplicate characters.
type Duty uint8

const (
	Responsible Duty = 1 << iota
	Accountable
	Consulted
	Informed
)

var dutyOrder = []struct {
	duty Duty
	char byte
}{
	{Responsible, 'R'},
	{Accountable, 'A'},
	{Consulted, 'C'},
	{Informed, 'I'},
}

// DutyFromChar maps a duty character to its flag, 0 for unknown characters.
func DutyFromChar(c byte) Duty {
	for _, d := range dutyOrder {
		if d.char == c {
			return d.duty
		}
	}
	return 0
}

// ParseDuty builds a duty set from a duty string. Unknown and repeated
// characters are ignored, so corrupted legacy strings normalize cleanly.
func ParseDuty(s string) Duty {
	var d Duty
	for i := 0; i < len(s); i++ {
		d |= DutyFromChar(s[i])
	}
	return d
}

// Has reports whether all duties in other are present.
func (d Duty) Has(other Duty) bool { return d&other == other }

// With returns d with the given duties set.
func (d Duty) With(other Duty) Duty { return d | other }

// Without returns d with the given duties cleared.
func (d Duty) Without(other Duty) Duty { return d &^ other }

// String renders the duty set in canonical R, A, C, I order.
func (d Duty) String() string {
	var b strings.Builder
	for _, o := range dutyOrder {
		if d&o.duty != 0 {
			b.WriteByte(o.char)
		}
	}
	return b.String()
}

func (d Duty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDuty(s)
	return nil
}

// Assignment binds one role to a duty set under some key.
type Assignment struct {
	RoleID string `json:"roleId"`
	Duty   Duty   `json:"raci"`
}

// AssignmentMap is the persisted structure: assignment lists keyed by
// deliverable id, or by question/entry identity for records written by the
// earlier schema.
type AssignmentMap map[string][]Assignment

// EntryKey builds the key the earlier schema used for a question entry.
func EntryKey(questionID, entryLabel string) string {
	return questionID + "/" + entryLabel
}
