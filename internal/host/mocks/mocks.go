// Package mocks provides testify mocks for the host capability interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tallgren/gatecheck/internal/host"
)

// ConfigStore is a mock for host.ConfigStore.
type ConfigStore struct {
	mock.Mock
}

func (m *ConfigStore) GetValue(ctx context.Context, scope, key string, out any) (bool, error) {
	args := m.Called(ctx, scope, key, out)
	return args.Bool(0), args.Error(1)
}

func (m *ConfigStore) SetValue(ctx context.Context, scope, key string, value any) error {
	args := m.Called(ctx, scope, key, value)
	return args.Error(0)
}

// FieldAccessor is a mock for host.FieldAccessor.
type FieldAccessor struct {
	mock.Mock
}

func (m *FieldAccessor) ID() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *FieldAccessor) GetFieldValue(ctx context.Context, field string) (string, error) {
	args := m.Called(ctx, field)
	return args.String(0), args.Error(1)
}

func (m *FieldAccessor) SetFieldValue(ctx context.Context, field, value string) error {
	args := m.Called(ctx, field, value)
	return args.Error(0)
}

func (m *FieldAccessor) IsDirty() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *FieldAccessor) Save(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// WorkItems is a mock for host.WorkItems.
type WorkItems struct {
	mock.Mock
}

func (m *WorkItems) Open(ctx context.Context, scope string, id int64) (host.FieldAccessor, error) {
	args := m.Called(ctx, scope, id)
	if fa, ok := args.Get(0).(host.FieldAccessor); ok {
		return fa, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkItems) Create(ctx context.Context, scope, title string) (host.FieldAccessor, error) {
	args := m.Called(ctx, scope, title)
	if fa, ok := args.Get(0).(host.FieldAccessor); ok {
		return fa, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkItems) List(ctx context.Context, scope string) ([]int64, error) {
	args := m.Called(ctx, scope)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
