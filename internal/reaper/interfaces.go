package reaper

import (
	"context"
	"time"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/store"
)

// ReaperStore abstracts store operations needed by the reaper.
type ReaperStore interface {
	ListIdleRunning(cutoff time.Time) ([]*store.Session, error)
	GetSession(id string) (*store.Session, error)
}

// ReaperRuntime abstracts engine operations needed by the reaper.
type ReaperRuntime interface {
	ListManaged(ctx context.Context) ([]docker.ManagedContainer, error)
	RemoveContainer(ctx context.Context, h docker.Handle, keepVolume bool) error
	Exec(ctx context.Context, h docker.Handle, argv []string, cwd string) (*docker.ExecResult, error)
}

// SessionSuspender is the slice of the orchestrator the reaper drives.
type SessionSuspender interface {
	Suspend(ctx context.Context, ownerID, sessionID string) (*session.Info, error)
}
