package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"outpost/internal/docstore"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(docstore.Record), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, collection string) ([]docstore.Record, error) {
	args := m.Called(ctx, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]docstore.Record), args.Error(1)
}

func (m *MockStore) Add(ctx context.Context, collection string, data docstore.Record) (string, error) {
	args := m.Called(ctx, collection, data)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, collection, id string, data docstore.Record, merge bool) error {
	args := m.Called(ctx, collection, id, data, merge)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, collection, id string, patch docstore.Record) error {
	args := m.Called(ctx, collection, id, patch)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}
