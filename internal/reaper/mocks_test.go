package reaper

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/store"
)

type MockReaperStore struct {
	mock.Mock
}

func (m *MockReaperStore) ListIdleRunning(cutoff time.Time) ([]*store.Session, error) {
	args := m.Called(cutoff)
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReaperStore) GetSession(id string) (*store.Session, error) {
	args := m.Called(id)
	if sess := args.Get(0); sess != nil {
		return sess.(*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockReaperRuntime struct {
	mock.Mock
}

func (m *MockReaperRuntime) ListManaged(ctx context.Context) ([]docker.ManagedContainer, error) {
	args := m.Called(ctx)
	if managed := args.Get(0); managed != nil {
		return managed.([]docker.ManagedContainer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReaperRuntime) RemoveContainer(ctx context.Context, h docker.Handle, keepVolume bool) error {
	args := m.Called(ctx, h, keepVolume)
	return args.Error(0)
}

func (m *MockReaperRuntime) Exec(ctx context.Context, h docker.Handle, argv []string, cwd string) (*docker.ExecResult, error) {
	args := m.Called(ctx, h, argv, cwd)
	if result := args.Get(0); result != nil {
		return result.(*docker.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSuspender struct {
	mock.Mock
}

func (m *MockSuspender) Suspend(ctx context.Context, ownerID, sessionID string) (*session.Info, error) {
	args := m.Called(ctx, ownerID, sessionID)
	if info := args.Get(0); info != nil {
		return info.(*session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}
