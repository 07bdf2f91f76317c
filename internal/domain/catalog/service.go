package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallgren/gatecheck/internal/domain/scoring"
	"github.com/tallgren/gatecheck/internal/host"
)

// Configuration store keys. The names predate this service and are kept so
// existing installations keep their data.
const (
	versionsKey        = "questionaryVersions"
	deliverablesKey    = "deliverables"
	rolesKey           = "roles"
	selectedVersionKey = "selectedVersion"
)

// Service manages the question catalog, deliverable and role configuration.
type Service struct {
	store  host.ConfigStore
	logger *slog.Logger
}

// NewService creates a new catalog service.
func NewService(store host.ConfigStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SaveVersionRequest describes a version save. An empty ID appends a new
// version; a set ID overwrites that version in place.
type SaveVersionRequest struct {
	ID          string
	Description string
	Questions   []Question
}

// VersionRef identifies a version by stable ID, by description, or (for
// answer records written before stable IDs existed) by array position.
// Resolution tries the fields in that order.
type VersionRef struct {
	ID          string
	Description string
	Index       *int
}

// ListVersions returns all saved versions, oldest first.
func (s *Service) ListVersions(ctx context.Context, scope string) ([]Version, error) {
	var versions []Version
	if _, err := s.store.GetValue(ctx, scope, versionsKey, &versions); err != nil {
		return nil, fmt.Errorf("loading versions: %w", err)
	}
	for i := range versions {
		normalizeQuestions(versions[i].Questions)
	}
	return versions, nil
}

// SaveVersion validates and persists a snapshot of the question set.
// The stored snapshot is a deep copy; later edits to the caller's slice
// cannot mutate a saved version.
func (s *Service) SaveVersion(ctx context.Context, scope string, req SaveVersionRequest) (*Version, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: description required", ErrInvalidInput)
	}

	snapshot := Version{
		ID:          req.ID,
		Description: req.Description,
		Questions:   copyQuestions(req.Questions),
		CreatedAt:   time.Now().UTC(),
	}
	normalizeQuestions(snapshot.Questions)
	if err := validateQuestions(snapshot.Questions); err != nil {
		return nil, err
	}

	versions, err := s.ListVersions(ctx, scope)
	if err != nil {
		return nil, err
	}

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
		versions = append(versions, snapshot)
	} else {
		idx := indexByID(versions, snapshot.ID)
		if idx < 0 {
			return nil, ErrVersionNotFound
		}
		snapshot.CreatedAt = versions[idx].CreatedAt
		versions[idx] = snapshot
	}

	if err := s.store.SetValue(ctx, scope, versionsKey, versions); err != nil {
		return nil, fmt.Errorf("saving versions: %w", err)
	}
	return &snapshot, nil
}

// GetVersion resolves a version reference.
func (s *Service) GetVersion(ctx context.Context, scope string, ref VersionRef) (*Version, error) {
	versions, err := s.ListVersions(ctx, scope)
	if err != nil {
		return nil, err
	}
	return resolveRef(versions, ref)
}

// DeleteVersion removes a version by ID. If it was the selected version the
// selection moves to the nearest remaining neighbor, or clears when none
// remain. Records referencing other versions by ID or description are
// unaffected by the positional shift.
func (s *Service) DeleteVersion(ctx context.Context, scope, id string) error {
	versions, err := s.ListVersions(ctx, scope)
	if err != nil {
		return err
	}
	idx := indexByID(versions, id)
	if idx < 0 {
		return ErrVersionNotFound
	}

	deleted := versions[idx]
	versions = append(versions[:idx:idx], versions[idx+1:]...)
	if err := s.store.SetValue(ctx, scope, versionsKey, versions); err != nil {
		return fmt.Errorf("saving versions: %w", err)
	}

	selected, err := s.selectedRef(ctx, scope)
	if err != nil {
		return err
	}
	if selected != deleted.ID && selected != deleted.Description {
		return nil
	}

	next := ""
	if len(versions) > 0 {
		neighbor := idx
		if neighbor >= len(versions) {
			neighbor = len(versions) - 1
		}
		next = versions[neighbor].ID
	}
	if err := s.store.SetValue(ctx, scope, selectedVersionKey, next); err != nil {
		return fmt.Errorf("re-pointing selected version: %w", err)
	}
	return nil
}

// SelectVersion marks a version as the one new answer records should use.
func (s *Service) SelectVersion(ctx context.Context, scope, id string) error {
	versions, err := s.ListVersions(ctx, scope)
	if err != nil {
		return err
	}
	if indexByID(versions, id) < 0 {
		return ErrVersionNotFound
	}
	if err := s.store.SetValue(ctx, scope, selectedVersionKey, id); err != nil {
		return fmt.Errorf("saving selected version: %w", err)
	}
	return nil
}

// SelectedVersion returns the currently selected version, falling back to
// the latest saved version when nothing was selected explicitly.
func (s *Service) SelectedVersion(ctx context.Context, scope string) (*Version, error) {
	versions, err := s.ListVersions(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrVersionNotFound
	}

	selected, err := s.selectedRef(ctx, scope)
	if err != nil {
		return nil, err
	}
	if selected != "" {
		// Stored selections were descriptions before stable IDs existed.
		if v, err := resolveRef(versions, VersionRef{ID: selected, Description: selected}); err == nil {
			return v, nil
		}
		s.logger.Warn("selected version no longer exists", "selected", selected)
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

// ListDeliverables returns the configured deliverables.
func (s *Service) ListDeliverables(ctx context.Context, scope string) ([]Deliverable, error) {
	var deliverables []Deliverable
	if _, err := s.store.GetValue(ctx, scope, deliverablesKey, &deliverables); err != nil {
		return nil, fmt.Errorf("loading deliverables: %w", err)
	}
	return deliverables, nil
}

// SaveDeliverable inserts or updates a deliverable.
func (s *Service) SaveDeliverable(ctx context.Context, scope string, d Deliverable) (*Deliverable, error) {
	if strings.TrimSpace(d.Label) == "" || !d.Type.Valid() {
		return nil, fmt.Errorf("%w: deliverable needs a label and a valid type", ErrInvalidInput)
	}
	deliverables, err := s.ListDeliverables(ctx, scope)
	if err != nil {
		return nil, err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
		deliverables = append(deliverables, d)
	} else {
		found := false
		for i := range deliverables {
			if deliverables[i].ID == d.ID {
				deliverables[i] = d
				found = true
				break
			}
		}
		if !found {
			return nil, ErrDeliverableNotFound
		}
	}
	if err := s.store.SetValue(ctx, scope, deliverablesKey, deliverables); err != nil {
		return nil, fmt.Errorf("saving deliverables: %w", err)
	}
	return &d, nil
}

// DeleteDeliverable removes a deliverable and strips it from question links.
func (s *Service) DeleteDeliverable(ctx context.Context, scope, id string) error {
	deliverables, err := s.ListDeliverables(ctx, scope)
	if err != nil {
		return err
	}
	kept := deliverables[:0]
	found := false
	for _, d := range deliverables {
		if d.ID == id {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return ErrDeliverableNotFound
	}
	if err := s.store.SetValue(ctx, scope, deliverablesKey, kept); err != nil {
		return fmt.Errorf("saving deliverables: %w", err)
	}
	return nil
}

// ListRoles returns the configured roles.
func (s *Service) ListRoles(ctx context.Context, scope string) ([]Role, error) {
	var roles []Role
	if _, err := s.store.GetValue(ctx, scope, rolesKey, &roles); err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}
	return roles, nil
}

// SaveRole inserts or updates a role.
func (s *Service) SaveRole(ctx context.Context, scope string, r Role) (*Role, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: role name required", ErrInvalidInput)
	}
	roles, err := s.ListRoles(ctx, scope)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
		roles = append(roles, r)
	} else {
		found := false
		for i := range roles {
			if roles[i].ID == r.ID {
				roles[i] = r
				found = true
				break
			}
		}
		if !found {
			return nil, ErrRoleNotFound
		}
	}
	if err := s.store.SetValue(ctx, scope, rolesKey, roles); err != nil {
		return nil, fmt.Errorf("saving roles: %w", err)
	}
	return &r, nil
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, scope, id string) error {
	roles, err := s.ListRoles(ctx, scope)
	if err != nil {
		return err
	}
	kept := roles[:0]
	found := false
	for _, r := range roles {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrRoleNotFound
	}
	if err := s.store.SetValue(ctx, scope, rolesKey, kept); err != nil {
		return fmt.Errorf("saving roles: %w", err)
	}
	return nil
}

// LinkedDeliverables resolves the distinct deliverables linked from the
// given questions of a version, preserving configuration order. Unknown
// deliverable ids are skipped.
func (s *Service) LinkedDeliverables(ctx context.Context, scope string, v *Version, questionIDs []string) ([]Deliverable, error) {
	all, err := s.ListDeliverables(ctx, scope)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, qid := range questionIDs {
		q := v.Question(qid)
		if q == nil {
			s.logger.Warn("answer references unknown question", "question_id", qid, "version_id", v.ID)
			continue
		}
		for _, did := range q.LinkedDeliverables {
			wanted[did] = true
		}
	}

	var out []Deliverable
	for _, d := range all {
		if wanted[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Question returns the question with the given id, or nil.
func (v *Version) Question(id string) *Question {
	for i := range v.Questions {
		if v.Questions[i].ID == id {
			return &v.Questions[i]
		}
	}
	return nil
}

func (s *Service) selectedRef(ctx context.Context, scope string) (string, error) {
	var selected string
	if _, err := s.store.GetValue(ctx, scope, selectedVersionKey, &selected); err != nil {
		return "", fmt.Errorf("loading selected version: %w", err)
	}
	return selected, nil
}

func resolveRef(versions []Version, ref VersionRef) (*Version, error) {
	if ref.ID != "" {
		if idx := indexByID(versions, ref.ID); idx >= 0 {
			return &versions[idx], nil
		}
	}
	if ref.Description != "" {
		for i := range versions {
			if versions[i].Description == ref.Description {
				return &versions[i], nil
			}
		}
	}
	if ref.Index != nil && *ref.Index >= 0 && *ref.Index < len(versions) {
		return &versions[*ref.Index], nil
	}
	return nil, ErrVersionNotFound
}

func indexByID(versions []Version, id string) int {
	for i := range versions {
		if versions[i].ID == id {
			return i
		}
	}
	return -1
}

func validateQuestions(questions []Question) error {
	seen := map[string]bool{}
	for _, q := range questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question id and text required", ErrInvalidInput)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = true

		weights := make([]int64, len(q.Entries))
		for i, e := range q.Entries {
			if !e.Type.Valid() {
				return fmt.Errorf("%w: question %s entry %d has unknown type %q", ErrInvalidInput, q.ID, i, e.Type)
			}
			weights[i] = e.Weight
		}
		if err := scoring.ValidateWeights(weights); err != nil {
			return fmt.Errorf("question %s: %w", q.ID, err)
		}
	}
	return nil
}

// normalizeQuestions fills in positional power-of-two weights for entries
// saved by older configuration pages that wrote no weight at all.
func normalizeQuestions(questions []Question) {
	for qi := range questions {
		entries := questions[qi].Entries
		defaults := scoring.PowerWeights(len(entries))
		for i := range entries {
			if entries[i].Weight == 0 {
				entries[i].Weight = defaults[i]
			}
		}
	}
}

func copyQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = q
		out[i].Entries = append([]EntrySpec(nil), q.Entries...)
		out[i].LinkedDeliverables = append([]string(nil), q.LinkedDeliverables...)
	}
	return out
}
