package fsops

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/werkbank/internal/docker"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	args := m.Called(ctx, ownerID, sessionID)
	return args.Get(0).(docker.Handle), args.Error(1)
}

func (m *MockResolver) Touch(sessionID string) {
	m.Called(sessionID)
}

type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) Exec(ctx context.Context, h docker.Handle, argv []string, cwd string) (*docker.ExecResult, error) {
	args := m.Called(ctx, h, argv, cwd)
	if res := args.Get(0); res != nil {
		return res.(*docker.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRuntime) ExecInput(ctx context.Context, h docker.Handle, argv []string, cwd string, stdin []byte) (*docker.ExecResult, error) {
	args := m.Called(ctx, h, argv, cwd, stdin)
	if res := args.Get(0); res != nil {
		return res.(*docker.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}
