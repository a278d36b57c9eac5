package testutil

import (
	"context"

	"github.com/labflow/backend/internal/domain/remote"
	"github.com/stretchr/testify/mock"
)

// MockSetService is a mock implementation of remote.SetService
type MockSetService struct {
	mock.Mock
}

func (m *MockSetService) set(args mock.Arguments) (*remote.Set, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Set), args.Error(1)
}

func (m *MockSetService) Find(ctx context.Context, id string) (*remote.Set, error) {
	return m.set(m.Called(ctx, id))
}

func (m *MockSetService) FindWithMaterials(ctx context.Context, id string) (*remote.Set, error) {
	return m.set(m.Called(ctx, id))
}

func (m *MockSetService) Create(ctx context.Context, name string) (*remote.Set, error) {
	return m.set(m.Called(ctx, name))
}

func (m *MockSetService) SetMaterials(ctx context.Context, id string, materialIDs []string) error {
	args := m.Called(ctx, id, materialIDs)
	return args.Error(0)
}

func (m *MockSetService) Update(ctx context.Context, id string, update remote.SetUpdate) (*remote.Set, error) {
	return m.set(m.Called(ctx, id, update))
}

func (m *MockSetService) CreateLockedClone(ctx context.Context, id, name string) (*remote.Set, error) {
	return m.set(m.Called(ctx, id, name))
}

func (m *MockSetService) CreateUnlockedClone(ctx context.Context, id, name string) (*remote.Set, error) {
	return m.set(m.Called(ctx, id, name))
}

func (m *MockSetService) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStudyService is a mock implementation of remote.StudyService
type MockStudyService struct {
	mock.Mock
}

func (m *MockStudyService) FindNode(ctx context.Context, id string) (*remote.Node, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Node), args.Error(1)
}

var (
	_ remote.SetService   = (*MockSetService)(nil)
	_ remote.StudyService = (*MockStudyService)(nil)
)
