package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ConfigStore implements host.ConfigStore over the config_entries table.
type ConfigStore struct {
	db *DB
}

// NewConfigStore creates a new ConfigStore
func NewConfigStore(db *DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// GetValue reads one configuration entry into out. The second return is
// false when no entry exists for the scope and key.
func (s *ConfigStore) GetValue(ctx context.Context, scope, key string, out any) (bool, error) {
	query := `
		SELECT value
		FROM config_entries
		WHERE scope = ? AND key = ?
	`

	var raw string
	err := s.db.QueryRowContext(ctx, query, scope, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get config entry %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, fmt.Errorf("failed to decode config entry %s: %w", key, err)
	}
	return true, nil
}

// SetValue writes one configuration entry, replacing any previous value.
func (s *ConfigStore) SetValue(ctx context.Context, scope, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode config entry %s: %w", key, err)
	}

	query := `
		INSERT INTO config_entries (scope, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, scope, key, string(raw)); err != nil {
		return fmt.Errorf("failed to set config entry %s: %w", key, err)
	}
	return nil
}
