package answers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/scoring"
	"github.com/tallgren/gatecheck/internal/host"
)

// Catalog is the slice of the catalog service the form needs.
type Catalog interface {
	GetVersion(ctx context.Context, scope string, ref catalog.VersionRef) (*catalog.Version, error)
	SelectedVersion(ctx context.Context, scope string) (*catalog.Version, error)
	ListDeliverables(ctx context.Context, scope string) ([]catalog.Deliverable, error)
}

// Service loads, mutates, and persists answer records through a work item's
// field accessor. Every mutation persists immediately; there is no separate
// save step.
type Service struct {
	catalog Catalog
	field   string
	logger  *slog.Logger
}

// NewService creates a new answers service writing to the given field name.
func NewService(catalogSvc Catalog, field string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalogSvc, field: field, logger: logger}
}

// Form is a loaded answer record together with its resolved version.
// Version is nil when the record references a version that no longer
// exists; the form still renders, with the missing reference reported
// in Warnings instead of failing.
type Form struct {
	WorkItemID int64             `json:"work_item_id"`
	Record     *Record           `json:"record"`
	Version    *catalog.Version  `json:"version,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Load reads and normalizes the answer record for one work item. A missing
// field yields a fresh record bound to the currently selected version; a
// corrupt field is logged and treated the same way.
func (s *Service) Load(ctx context.Context, scope string, fields host.FieldAccessor) (*Form, error) {
	raw, err := fields.GetFieldValue(ctx, s.field)
	if err != nil {
		return nil, fmt.Errorf("reading answers field: %w", err)
	}

	rec, err := Decode(raw)
	if err != nil {
		s.logger.Error("undecodable answers field, starting fresh",
			"work_item", fields.ID(), "error", err)
		rec = NewRecord()
	}

	form := &Form{WorkItemID: fields.ID(), Record: rec}

	version, err := s.resolveVersion(ctx, scope, rec)
	if err != nil {
		if !errors.Is(err, catalog.ErrVersionNotFound) {
			return nil, err
		}
		form.Warnings = append(form.Warnings,
			"answer record references a catalog version that no longer exists")
		rec.Recompute()
		return form, nil
	}
	form.Version = version
	rec.VersionID = version.ID
	rec.VersionDescription = ""
	rec.VersionIndex = nil

	s.bindToVersion(ctx, scope, form)
	rec.Recompute()
	return form, nil
}

// SelectQuestion marks a question as in scope (or out of scope) for the
// work item and persists the record. Checking a question initializes its
// entries from the version's expected entries.
func (s *Service) SelectQuestion(ctx context.Context, scope string, fields host.FieldAccessor, questionID string, checked bool) (*Form, error) {
	form, err := s.Load(ctx, scope, fields)
	if err != nil {
		return nil, err
	}
	if form.Version == nil {
		return nil, ErrNoVersion
	}
	q := form.Version.Question(questionID)
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	qa := form.Record.Data[questionID]
	qa.QuestionText = q.Text
	qa.Checked = checked
	if checked && len(qa.Entries) == 0 {
		qa.Entries = entriesFromSpec(q)
	}
	form.Record.Data[questionID] = qa
	form.Record.Recompute()

	if err := s.save(ctx, fields, form.Record); err != nil {
		return nil, err
	}
	return form, nil
}

// SetEntry sets one entry's value on a checked question and persists the
// record.
func (s *Service) SetEntry(ctx context.Context, scope string, fields host.FieldAccessor, questionID string, index int, value Value) (*Form, error) {
	form, err := s.Load(ctx, scope, fields)
	if err != nil {
		return nil, err
	}
	qa, ok := form.Record.Data[questionID]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	if index < 0 || index >= len(qa.Entries) {
		return nil, ErrEntryOutOfRange
	}
	qa.Entries[index].Value = value
	form.Record.Data[questionID] = qa
	form.Record.Recompute()

	if err := s.save(ctx, fields, form.Record); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *Service) save(ctx context.Context, fields host.FieldAccessor, rec *Record) error {
	encoded, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := fields.SetFieldValue(ctx, s.field, encoded); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := fields.Save(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// resolveVersion picks the version an existing record references, or the
// currently selected version for fresh records.
func (s *Service) resolveVersion(ctx context.Context, scope string, rec *Record) (*catalog.Version, error) {
	ref := rec.VersionRef()
	if ref.ID == "" && ref.Description == "" && ref.Index == nil {
		return s.catalog.SelectedVersion(ctx, scope)
	}
	return s.catalog.GetVersion(ctx, scope, ref)
}

// bindToVersion reconciles a decoded record against its version: questions
// that vanished from the catalog are dropped with a warning, legacy flat
// deliverable values are rebound onto question entries, and entry metadata
// (labels, types, weights) is refreshed from the version spec.
func (s *Service) bindToVersion(ctx context.Context, scope string, form *Form) {
	rec, version := form.Record, form.Version

	for qid := range rec.Data {
		if version.Question(qid) == nil {
			s.logger.Warn("dropping answer for question missing from version",
				"work_item", form.WorkItemID, "question_id", qid, "version_id", version.ID)
			form.Warnings = append(form.Warnings,
				fmt.Sprintf("question %s is not part of version %q; its answer was skipped", qid, version.Description))
			delete(rec.Data, qid)
		}
	}

	if len(rec.LegacyDeliverables) > 0 {
		s.rebindLegacy(ctx, scope, form)
	}
}

// rebindLegacy turns legacy flat deliverable values into per-question
// entries using the version's linked deliverables.
func (s *Service) rebindLegacy(ctx context.Context, scope string, form *Form) {
	rec, version := form.Record, form.Version

	deliverables, err := s.catalog.ListDeliverables(ctx, scope)
	if err != nil {
		// Catalog not ready; keep the legacy values for a later load.
		s.logger.Warn("deliverables unavailable, deferring legacy migration",
			"work_item", form.WorkItemID, "error", err)
		return
	}
	byID := map[string]catalog.Deliverable{}
	for _, d := range deliverables {
		byID[d.ID] = d
	}

	for qid, qa := range rec.Data {
		q := version.Question(qid)
		if q == nil || len(qa.Entries) > 0 {
			continue
		}
		weights := scoring.PowerWeights(len(q.LinkedDeliverables))
		for i, did := range q.LinkedDeliverables {
			d, ok := byID[did]
			if !ok {
				s.logger.Warn("question links unknown deliverable",
					"question_id", qid, "deliverable_id", did)
				continue
			}
			qa.Entries = append(qa.Entries, EntryAnswer{
				Label:  d.Label,
				Type:   d.Type,
				Value:  rec.LegacyDeliverables[did],
				Weight: weights[i],
			})
		}
		qa.QuestionText = q.Text
		rec.Data[qid] = qa
	}
	rec.LegacyDeliverables = nil
}

func entriesFromSpec(q *catalog.Question) []EntryAnswer {
	entries := make([]EntryAnswer, len(q.Entries))
	for i, spec := range q.Entries {
		value := StringValue("")
		if spec.Type == catalog.TypeBoolean {
			value = BoolValue(false)
		}
		entries[i] = EntryAnswer{
			Label:  spec.Label,
			Type:   spec.Type,
			Value:  value,
			Weight: spec.Weight,
		}
	}
	return entries
}
