package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/werkbank/internal/docker"
)

type MockRuntimeAdapter struct {
	mock.Mock
}

func (m *MockRuntimeAdapter) EnsureVolume(ctx context.Context, ownerID, sessionID string) (string, error) {
	args := m.Called(ctx, ownerID, sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockRuntimeAdapter) EnsureContainer(ctx context.Context, opts docker.EnsureOpts) (docker.Handle, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(docker.Handle), args.Error(1)
}

func (m *MockRuntimeAdapter) Lookup(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	args := m.Called(ctx, ownerID, sessionID)
	return args.Get(0).(docker.Handle), args.Error(1)
}

func (m *MockRuntimeAdapter) StopContainer(ctx context.Context, h docker.Handle, timeoutSeconds int) error {
	args := m.Called(ctx, h, timeoutSeconds)
	return args.Error(0)
}

func (m *MockRuntimeAdapter) RemoveContainer(ctx context.Context, h docker.Handle, keepVolume bool) error {
	args := m.Called(ctx, h, keepVolume)
	return args.Error(0)
}

func (m *MockRuntimeAdapter) RemoveVolume(ctx context.Context, volumeRef string) error {
	args := m.Called(ctx, volumeRef)
	return args.Error(0)
}
