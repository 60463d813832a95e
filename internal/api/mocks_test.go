package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/fsops"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/terminal"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, ownerID, displayName string) (*session.Info, error) {
	args := m.Called(ctx, ownerID, displayName)
	if info := args.Get(0); info != nil {
		return info.(*session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Get(ctx context.Context, ownerID, sessionID string) (*session.Info, error) {
	args := m.Called(ctx, ownerID, sessionID)
	if info := args.Get(0); info != nil {
		return info.(*session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context, ownerID string) ([]session.Info, error) {
	args := m.Called(ctx, ownerID)
	if infos := args.Get(0); infos != nil {
		return infos.([]session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Open(ctx context.Context, ownerID, sessionID string) (*session.Info, error) {
	args := m.Called(ctx, ownerID, sessionID)
	if info := args.Get(0); info != nil {
		return info.(*session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Suspend(ctx context.Context, ownerID, sessionID string) (*session.Info, error) {
	args := m.Called(ctx, ownerID, sessionID)
	if info := args.Get(0); info != nil {
		return info.(*session.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Delete(ctx context.Context, ownerID, sessionID string, force bool) error {
	args := m.Called(ctx, ownerID, sessionID, force)
	return args.Error(0)
}

func (m *MockSessionService) Resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	args := m.Called(ctx, ownerID, sessionID)
	return args.Get(0).(docker.Handle), args.Error(1)
}

func (m *MockSessionService) Touch(sessionID string) {
	m.Called(sessionID)
}

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) List(ctx context.Context, ownerID, sessionID, path string) ([]fsops.Entry, error) {
	args := m.Called(ctx, ownerID, sessionID, path)
	if entries := args.Get(0); entries != nil {
		return entries.([]fsops.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileService) Read(ctx context.Context, ownerID, sessionID, path string) ([]byte, error) {
	args := m.Called(ctx, ownerID, sessionID, path)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileService) Write(ctx context.Context, ownerID, sessionID, path string, data []byte) error {
	args := m.Called(ctx, ownerID, sessionID, path, data)
	return args.Error(0)
}

func (m *MockFileService) Rename(ctx context.Context, ownerID, sessionID, from, to string) error {
	args := m.Called(ctx, ownerID, sessionID, from, to)
	return args.Error(0)
}

func (m *MockFileService) Move(ctx context.Context, ownerID, sessionID, from, to string) error {
	args := m.Called(ctx, ownerID, sessionID, from, to)
	return args.Error(0)
}

func (m *MockFileService) Delete(ctx context.Context, ownerID, sessionID, path string) error {
	args := m.Called(ctx, ownerID, sessionID, path)
	return args.Error(0)
}

func (m *MockFileService) Create(ctx context.Context, ownerID, sessionID, path string, isDir bool) error {
	args := m.Called(ctx, ownerID, sessionID, path, isDir)
	return args.Error(0)
}

func (m *MockFileService) RunCommand(ctx context.Context, ownerID, sessionID, raw string) (*fsops.CommandResult, error) {
	args := m.Called(ctx, ownerID, sessionID, raw)
	if result := args.Get(0); result != nil {
		return result.(*fsops.CommandResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTerminalAttacher struct {
	mock.Mock
}

func (m *MockTerminalAttacher) AttachInteractive(ctx context.Context, h docker.Handle, shell string) (terminal.ContainerStream, error) {
	args := m.Called(ctx, h, shell)
	if stream := args.Get(0); stream != nil {
		return stream.(terminal.ContainerStream), args.Error(1)
	}
	return nil, args.Error(1)
}
