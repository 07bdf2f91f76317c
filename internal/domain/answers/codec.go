package answers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tallgren/gatecheck/internal/domain/catalog"
)

// DecodeHTMLEntities reverses the entity escaping the platform applies to
// stored field text when it is read back. Substitution order matters and
// matches what every reader applies: quote, apostrophe, ampersand, then
// angle brackets.
func DecodeHTMLEntities(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return s
}

// Encode serializes a record in the canonical versioned shape.
func Encode(rec *Record) (string, error) {
	if rec.Data == nil {
		rec.Data = map[string]QuestionAnswer{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding answer record: %w", err)
	}
	return string(data), nil
}

// legacyFlat is the flat shape written by the deliverables form revision.
type legacyFlat struct {
	Version           string                      `json:"version"`
	Deliverables      map[string]struct{ Value Value `json:"value"` } `json:"deliverables"`
	SelectedQuestions []string                    `json:"selectedQuestions"`
	Weights           []int64                     `json:"weights"`
	TotalWeight       int64                       `json:"totalWeight"`
	UniqueResult      int64                       `json:"uniqueResult"`
}

// legacyPair is the earliest per-question shape: answer flag plus link.
type legacyPair struct {
	Answer *bool   `json:"answer"`
	Link   *string `json:"link"`
}

// Decode parses a field payload into the canonical record. It detects three
// historical shapes and normalizes all of them (migrate-on-read; the next
// save writes the canonical shape). An empty field yields a fresh record.
// A malformed payload yields an error; callers log it and fall back to a
// fresh record rather than failing the form.
func Decode(field string) (*Record, error) {
	if strings.TrimSpace(field) == "" {
		return NewRecord(), nil
	}

	decoded := DecodeHTMLEntities(field)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(decoded), &probe); err != nil {
		return nil, fmt.Errorf("parsing answer record: %w", err)
	}

	if _, ok := probe["data"]; ok {
		return decodeVersioned(decoded)
	}
	if _, ok := probe["deliverables"]; ok {
		return decodeLegacyFlat(decoded)
	}
	if _, ok := probe["selectedQuestions"]; ok {
		return decodeLegacyFlat(decoded)
	}
	return decodeBareMap(probe)
}

func decodeVersioned(decoded string) (*Record, error) {
	rec := NewRecord()
	if err := json.Unmarshal([]byte(decoded), rec); err != nil {
		return nil, fmt.Errorf("parsing versioned record: %w", err)
	}
	if rec.Data == nil {
		rec.Data = map[string]QuestionAnswer{}
	}
	rec.Recompute()
	return rec, nil
}

func decodeLegacyFlat(decoded string) (*Record, error) {
	var flat legacyFlat
	if err := json.Unmarshal([]byte(decoded), &flat); err != nil {
		return nil, fmt.Errorf("parsing legacy record: %w", err)
	}

	rec := NewRecord()
	rec.VersionDescription = flat.Version
	rec.UniqueResult = flat.UniqueResult
	rec.TotalWeight = flat.TotalWeight
	for _, qid := range flat.SelectedQuestions {
		rec.Data[qid] = QuestionAnswer{Checked: true}
	}
	if len(flat.Deliverables) > 0 {
		rec.LegacyDeliverables = map[string]Value{}
		for id, d := range flat.Deliverables {
			rec.LegacyDeliverables[id] = d.Value
		}
	}
	return rec, nil
}

// decodeBareMap handles the shape the first questionnaire form wrote: a
// top-level map of question id to answer detail, with the score integers
// as sibling keys, plus the even earlier {answer, link} per-question pairs.
func decodeBareMap(probe map[string]json.RawMessage) (*Record, error) {
	rec := NewRecord()
	for key, raw := range probe {
		switch key {
		case "uniqueResult":
			_ = json.Unmarshal(raw, &rec.UniqueResult)
			continue
		case "totalWeight":
			_ = json.Unmarshal(raw, &rec.TotalWeight)
			continue
		case "version":
			_ = json.Unmarshal(raw, &rec.VersionDescription)
			continue
		case "versionIndex":
			_ = json.Unmarshal(raw, &rec.VersionIndex)
			continue
		}

		var qa QuestionAnswer
		if err := json.Unmarshal(raw, &qa); err == nil && (qa.QuestionText != "" || len(qa.Entries) > 0) {
			qa.Checked = true
			rec.Data[key] = qa
			continue
		}

		var pair legacyPair
		if err := json.Unmarshal(raw, &pair); err == nil && (pair.Answer != nil || pair.Link != nil) {
			rec.Data[key] = pairToAnswer(pair)
			continue
		}
		// Unknown sibling keys are dropped rather than failing the record.
	}
	rec.Recompute()
	return rec, nil
}

func pairToAnswer(pair legacyPair) QuestionAnswer {
	qa := QuestionAnswer{Checked: true}
	if pair.Answer != nil {
		qa.Entries = append(qa.Entries, EntryAnswer{
			Label:  "Answer",
			Type:   catalog.TypeBoolean,
			Value:  BoolValue(*pair.Answer),
			Weight: 1,
		})
	}
	if pair.Link != nil {
		qa.Entries = append(qa.Entries, EntryAnswer{
			Label:  "Link",
			Type:   catalog.TypeURL,
			Value:  StringValue(*pair.Link),
			Weight: 2,
		})
	}
	return qa
}
