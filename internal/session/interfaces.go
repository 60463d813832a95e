package session

import (
	"context"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/store"
)

// RuntimeAdapter is the engine-facing surface the orchestrator needs.
// All idempotency lives behind it; the orchestrator never distinguishes
// first-create from resume.
type RuntimeAdapter interface {
	EnsureVolume(ctx context.Context, ownerID, sessionID string) (string, error)
	EnsureContainer(ctx context.Context, opts docker.EnsureOpts) (docker.Handle, error)
	Lookup(ctx context.Context, ownerID, sessionID string) (docker.Handle, error)
	StopContainer(ctx context.Context, h docker.Handle, timeoutSeconds int) error
	RemoveContainer(ctx context.Context, h docker.Handle, keepVolume bool) error
	RemoveVolume(ctx context.Context, volumeRef string) error
}

// SessionStore is the persistence surface. It never reaches the engine.
type SessionStore interface {
	CreateSession(sess *store.Session) error
	GetSession(id string) (*store.Session, error)
	ListForOwner(ownerID string) ([]*store.Session, error)
	UpdateStatusIf(id string, from []string, to string, containerRef *string) error
	TouchActivity(id string) error
	HardDelete(id string) error
}
