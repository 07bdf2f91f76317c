package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tallgren/gatecheck/internal/host"
)

// APIKeyStore resolves hashed API keys to their scope.
type APIKeyStore struct {
	db *DB
}

// NewAPIKeyStore creates a new APIKeyStore
func NewAPIKeyStore(db *DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Insert registers a key hash for a scope.
func (s *APIKeyStore) Insert(ctx context.Context, keyHash, scope, description string) error {
	query := `
		INSERT INTO api_keys (key_hash, scope, description)
		VALUES (?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, keyHash, scope, description); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("api key already registered")
		}
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// ResolveScope looks up the scope for a key hash and stamps last_used.
func (s *APIKeyStore) ResolveScope(ctx context.Context, keyHash string) (string, error) {
	query := `
		SELECT scope
		FROM api_keys
		WHERE key_hash = ?
	`

	var scope string
	err := s.db.QueryRowContext(ctx, query, keyHash).Scan(&scope)
	if err == sql.ErrNoRows {
		return "", host.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE key_hash = ?`, keyHash)

	return scope, nil
}
