package raci

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/host"
)

// Catalog is the slice of the catalog service the RACI views need.
type Catalog interface {
	ListRoles(ctx context.Context, scope string) ([]catalog.Role, error)
	ListDeliverables(ctx context.Context, scope string) ([]catalog.Deliverable, error)
}

// Service loads and mutates a work item's RACI assignments. The whole map
// is persisted on every mutation, mirroring the field-level last-write-wins
// model of the platform.
type Service struct {
	catalog Catalog
	field   string
	logger  *slog.Logger
}

// NewService creates a new RACI service writing to the given field name.
func NewService(catalogSvc Catalog, field string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalogSvc, field: field, logger: logger}
}

// Load reads and normalizes the assignments for one work item. A corrupt
// field is logged and treated as empty.
func (s *Service) Load(ctx context.Context, fields host.FieldAccessor) (AssignmentMap, error) {
	raw, err := fields.GetFieldValue(ctx, s.field)
	if err != nil {
		return nil, fmt.Errorf("reading assignments field: %w", err)
	}
	m, err := Decode(raw)
	if err != nil {
		s.logger.Error("undecodable assignments field, starting fresh",
			"work_item", fields.ID(), "error", err)
		return AssignmentMap{}, nil
	}
	return m, nil
}

// AddAssignment appends an empty-duty assignment for a role under a key
// and persists the map.
func (s *Service) AddAssignment(ctx context.Context, fields host.FieldAccessor, key, roleID string) (AssignmentMap, error) {
	m, err := s.Load(ctx, fields)
	if err != nil {
		return nil, err
	}
	m[key] = append(m[key], Assignment{RoleID: roleID})
	if err := s.save(ctx, fields, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveAssignment deletes the assignment at index under a key and
// persists the map. Keys left without assignments are removed entirely.
func (s *Service) RemoveAssignment(ctx context.Context, fields host.FieldAccessor, key string, index int) (AssignmentMap, error) {
	m, err := s.Load(ctx, fields)
	if err != nil {
		return nil, err
	}
	assignments, ok := m[key]
	if !ok || index < 0 || index >= len(assignments) {
		return nil, ErrAssignmentNotFound
	}
	assignments = append(assignments[:index:index], assignments[index+1:]...)
	if len(assignments) == 0 {
		delete(m, key)
	} else {
		m[key] = assignments
	}
	if err := s.save(ctx, fields, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetDuty sets or clears one duty on the assignment at index under a key
// and persists the map. Toggling is a set-membership flip: setting an
// already-present duty or clearing an absent one is a no-op, and the duty
// string can never accumulate duplicate characters.
func (s *Service) SetDuty(ctx context.Context, fields host.FieldAccessor, key string, index int, dutyChar byte, present bool) (AssignmentMap, error) {
	duty := DutyFromChar(dutyChar)
	if duty == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDuty, string(dutyChar))
	}

	m, err := s.Load(ctx, fields)
	if err != nil {
		return nil, err
	}
	assignments, ok := m[key]
	if !ok || index < 0 || index >= len(assignments) {
		return nil, ErrAssignmentNotFound
	}
	if present {
		assignments[index].Duty = assignments[index].Duty.With(duty)
	} else {
		assignments[index].Duty = assignments[index].Duty.Without(duty)
	}
	if err := s.save(ctx, fields, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RelevantRoles returns the configured roles actually referenced by any
// assignment, in configuration order. Unknown role ids are skipped with a
// warning.
func (s *Service) RelevantRoles(ctx context.Context, scope string, m AssignmentMap) ([]catalog.Role, error) {
	roles, err := s.catalog.ListRoles(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}

	referenced := map[string]bool{}
	for _, assignments := range m {
		for _, a := range assignments {
			if a.RoleID != "" {
				referenced[a.RoleID] = true
			}
		}
	}

	var out []catalog.Role
	for _, r := range roles {
		if referenced[r.ID] {
			out = append(out, r)
			delete(referenced, r.ID)
		}
	}
	for id := range referenced {
		s.logger.Warn("assignment references unknown role", "role_id", id)
	}
	return out, nil
}

// RelevantDeliverables filters the given deliverables to those with at
// least one assignment.
func RelevantDeliverables(m AssignmentMap, deliverables []catalog.Deliverable) []catalog.Deliverable {
	var out []catalog.Deliverable
	for _, d := range deliverables {
		if len(m[d.ID]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// DutyStringFor returns the rendered duty string for a key/role cell, and
// whether the role is assigned there at all.
func DutyStringFor(m AssignmentMap, key, roleID string) (string, bool) {
	for _, a := range m[key] {
		if a.RoleID == roleID {
			return a.Duty.String(), true
		}
	}
	return "", false
}

func (s *Service) save(ctx context.Context, fields host.FieldAccessor, m AssignmentMap) error {
	encoded, err := Encode(m)
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
