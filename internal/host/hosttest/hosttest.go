// Package hosttest provides in-memory host implementations for unit tests.
// Unlike the sqlite stores these return field text exactly as written, with
// no platform entity escaping.
package hosttest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tallgren/gatecheck/internal/host"
)

// MemStore is an in-memory host.ConfigStore.
type MemStore struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: map[string]json.RawMessage{}}
}

func (s *MemStore) GetValue(_ context.Context, scope, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[scope+"/"+key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *MemStore) SetValue(_ context.Context, scope, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[scope+"/"+key] = raw
	return nil
}

// MemWorkItems is an in-memory host.WorkItems.
type MemWorkItems struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*MemFields
}

// NewMemWorkItems creates an empty MemWorkItems.
func NewMemWorkItems() *MemWorkItems {
	return &MemWorkItems{nextID: 1, items: map[int64]*MemFields{}}
}

func (w *MemWorkItems) Open(_ context.Context, _ string, id int64) (host.FieldAccessor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return nil, host.ErrNotFound
	}
	return item, nil
}

func (w *MemWorkItems) Create(_ context.Context, _ string, title string) (host.FieldAccessor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item := &MemFields{id: w.nextID, Title: title, Fields: map[string]string{}}
	w.items[w.nextID] = item
	w.nextID++
	return item, nil
}

func (w *MemWorkItems) List(_ context.Context, _ string) ([]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int64, 0, len(w.items))
	for id := int64(1); id < w.nextID; id++ {
		if _, ok := w.items[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// MemFields is an in-memory host.FieldAccessor.
type MemFields struct {
	id      int64
	Title   string
	Fields  map[string]string
	pending map[string]string

	// SaveErr, when set, makes Save fail without applying writes.
	SaveErr error
}

// NewMemFields creates a standalone accessor not attached to a MemWorkItems.
func NewMemFields(id int64) *MemFields {
	return &MemFields{id: id, Fields: map[string]string{}}
}

func (f *MemFields) ID() int64 { return f.id }

func (f *MemFields) GetFieldValue(_ context.Context, field string) (string, error) {
	if v, ok := f.pending[field]; ok {
		return v, nil
	}
	return f.Fields[field], nil
}

func (f *MemFields) SetFieldValue(_ context.Context, field, value string) error {
	if f.pending == nil {
		f.pending = map[string]string{}
	}
	f.pending[field] = value
	return nil
}

func (f *MemFields) IsDirty() bool { return len(f.pending) > 0 }

func (f *MemFields) Save(_ context.Context) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	for k, v := range f.pending {
		f.Fields[k] = v
	}
	f.pending = nil
	return nil
}
