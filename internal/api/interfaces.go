package api

import (
	"context"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/fsops"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/terminal"
)

// SessionService abstracts the lifecycle orchestrator for handlers.
type SessionService interface {
	Create(ctx context.Context, ownerID, displayName string) (*session.Info, error)
	Get(ctx context.Context, ownerID, sessionID string) (*session.Info, error)
	List(ctx context.Context, ownerID string) ([]session.Info, error)
	Open(ctx context.Context, ownerID, sessionID string) (*session.Info, error)
	Suspend(ctx context.Context, ownerID, sessionID string) (*session.Info, error)
	Delete(ctx context.Context, ownerID, sessionID string, force bool) error
	Resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error)
	Touch(sessionID string)
}

// FileService abstracts the workspace file-operations proxy.
type FileService interface {
	List(ctx context.Context, ownerID, sessionID, path string) ([]fsops.Entry, error)
	Read(ctx context.Context, ownerID, sessionID, path string) ([]byte, error)
	Write(ctx context.Context, ownerID, sessionID, path string, data []byte) error
	Rename(ctx context.Context, ownerID, sessionID, from, to string) error
	Move(ctx context.Context, ownerID, sessionID, from, to string) error
	Delete(ctx context.Context, ownerID, sessionID, path string) error
	Create(ctx context.Context, ownerID, sessionID, path string, isDir bool) error
	RunCommand(ctx context.Context, ownerID, sessionID, raw string) (*fsops.CommandResult, error)
}

// TerminalAttacher opens the interactive byte stream for a resolved
// container handle.
type TerminalAttacher interface {
	AttachInteractive(ctx context.Context, h docker.Handle, shell string) (terminal.ContainerStream, error)
}

// DockerAttacher adapts the runtime client to TerminalAttacher.
type DockerAttacher struct {
	Client *docker.Client
}

func (a DockerAttacher) AttachInteractive(ctx context.Context, h docker.Handle, shell string) (terminal.ContainerStream, error) {
	return a.Client.AttachInteractive(ctx, h, shell)
}
