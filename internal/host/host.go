// Package host defines the capability interfaces through which domain
// services reach the work-tracking platform: an org-scoped key-value
// configuration store and per-work-item custom field access. Services take
// these as explicit constructor arguments; nothing in the tree reaches for
// an ambient singleton.
package host

import "context"

// ConfigStore is organization-scoped key-value configuration storage.
// Values are JSON documents; GetValue unmarshals into out and reports
// whether the key was present.
type ConfigStore interface {
	GetValue(ctx context.Context, scope, key string, out any) (bool, error)
	SetValue(ctx context.Context, scope, key string, value any) error
}

// FieldAccessor reads and writes custom fields on a single work item.
// Writes are buffered until Save; IsDirty reports buffered writes.
// GetFieldValue returns "" for fields that were never set.
type FieldAccessor interface {
	ID() int64
	GetFieldValue(ctx context.Context, field string) (string, error)
	SetFieldValue(ctx context.Context, field, value string) error
	IsDirty() bool
	Save(ctx context.Context) error
}

// WorkItems opens field accessors and enumerates items within a scope.
// List stands in for the platform's query service on the dashboard side.
type WorkItems interface {
	Open(ctx context.Context, scope string, id int64) (FieldAccessor, error)
	Create(ctx context.Context, scope, title string) (FieldAccessor, error)
	List(ctx context.Context, scope string) ([]int64, error)
}
