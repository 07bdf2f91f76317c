package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tallgren/gatecheck/internal/host"
)

// WorkItemStore implements host.WorkItems over the work_items and
// work_item_fields tables.
type WorkItemStore struct {
	db *DB
}

// NewWorkItemStore creates a new WorkItemStore
func NewWorkItemStore(db *DB) *WorkItemStore {
	return &WorkItemStore{db: db}
}

// Open returns a field accessor for an existing work item.
func (s *WorkItemStore) Open(ctx context.Context, scope string, id int64) (host.FieldAccessor, error) {
	query := `
		SELECT id
		FROM work_items
		WHERE id = ? AND scope = ?
	`

	var found int64
	err := s.db.QueryRowContext(ctx, query, id, scope).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, host.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open work item: %w", err)
	}

	return &fieldAccessor{db: s.db, id: id}, nil
}

// Create inserts a new work item and returns its field accessor.
func (s *WorkItemStore) Create(ctx context.Context, scope, title string) (host.FieldAccessor, error) {
	query := `
		INSERT INTO work_items (scope, title)
		VALUES (?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, scope, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create work item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get work item id: %w", err)
	}

	return &fieldAccessor{db: s.db, id: id}, nil
}

// List returns the ids of all work items in a scope, oldest first.
func (s *WorkItemStore) List(ctx context.Context, scope string) ([]int64, error) {
	query := `
		SELECT id
		FROM work_items
		WHERE scope = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan work item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work item rows: %w", err)
	}

	return ids, nil
}

// fieldAccessor implements host.FieldAccessor. Writes are buffered until
// Save, matching the host form's dirty-tracking model. Reads return the
// stored text entity-escaped, the way the platform hands field values back
// to widgets; the record codec undoes the escaping.
type fieldAccessor struct {
	db      *DB
	id      int64
	pending map[string]string
}

func (f *fieldAccessor) ID() int64 { return f.id }

func (f *fieldAccessor) GetFieldValue(ctx context.Context, field string) (string, error) {
	if v, ok := f.pending[field]; ok {
		return escapeEntities(v), nil
	}

	query := `
		SELECT value
		FROM work_item_fields
		WHERE work_item_id = ? AND name = ?
	`

	var value string
	err := f.db.QueryRowContext(ctx, query, f.id, field).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get field %s: %w", field, err)
	}

	return escapeEntities(value), nil
}

func (f *fieldAccessor) SetFieldValue(_ context.Context, field, value string) error {
	if f.pending == nil {
		f.pending = map[string]string{}
	}
	f.pending[field] = value
	return nil
}

func (f *fieldAccessor) IsDirty() bool { return len(f.pending) > 0 }

func (f *fieldAccessor) Save(ctx context.Context) error {
	if len(f.pending) == 0 {
		return nil
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_item_fields (work_item_id, name, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(work_item_id, name) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	for name, value := range f.pending {
		if _, err := tx.ExecContext(ctx, query, f.id, name, value); err != nil {
			if isForeignKeyViolation(err) {
				return host.ErrNotFound
			}
			return fmt.Errorf("%w: field %s: %v", host.ErrSaveRejected, name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", host.ErrSaveRejected, err)
	}

	f.pending = nil
	return nil
}

// escapeEntities applies the platform's entity encoding to field text as it
// is read back. Ampersands escape first so existing entities round-trip.
func escapeEntities(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
