// Package session is the lifecycle state machine for development
// workspaces. It turns create/open/suspend/delete intents into runtime
// adapter calls and reconciles observed container state against the
// persisted record. Transitions on one session id are linearized by the
// store's conditional status update; a losing racer is told to retry,
// never queued.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/p-arndt/werkbank/internal/config"
	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/store"
)

type Orchestrator struct {
	cfg     *config.Config
	store   SessionStore
	runtime RuntimeAdapter
	logger  *slog.Logger
}

func NewOrchestrator(cfg *config.Config, st SessionStore, rt RuntimeAdapter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		store:   st,
		runtime: rt,
		logger:  logger,
	}
}

// Info is the client-facing session record.
type Info struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func infoFrom(sess *store.Session) *Info {
	return &Info{
		ID:          sess.ID,
		OwnerID:     sess.OwnerID,
		DisplayName: sess.DisplayName,
		Status:      sess.Status,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
	}
}

// ownedSession loads a session and enforces ownership. Foreign sessions
// read as not found so session ids leak nothing across owners.
func (o *Orchestrator) ownedSession(ownerID, sessionID string) (*store.Session, error) {
	sess, err := o.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return sess, nil
}

// Create provisions a new session: record first, then volume, then
// container. A mid-sequence failure parks the record in
// provision_failed instead of deleting it, so the volume is never
// orphaned silently and the client can retry.
func (o *Orchestrator) Create(ctx context.Context, ownerID, displayName string) (*Info, error) {
	sessionID := uuid.New().String()[:12]
	now := time.Now().UTC()

	sess := &store.Session{
		ID:           sessionID,
		OwnerID:      ownerID,
		DisplayName:  displayName,
		Status:       store.StatusProvisioning,
		VolumeRef:    docker.VolumeName(ownerID, sessionID),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
	if err := o.store.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	handle, err := o.provision(ctx, ownerID, sessionID)
	if err != nil {
		o.logger.Error("provisioning failed", "session_id", sessionID, "error", err)
		if casErr := o.store.UpdateStatusIf(sessionID,
			[]string{store.StatusProvisioning}, store.StatusProvisionFailed, nil); casErr != nil {
			o.logger.Error("mark provision_failed", "session_id", sessionID, "error", casErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}

	if err := o.store.UpdateStatusIf(sessionID,
		[]string{store.StatusProvisioning}, store.StatusRunning, &handle.ID); err != nil {
		return nil, o.mapStoreErr(err)
	}

	o.logger.Info("session created", "session_id", sessionID, "owner_id", ownerID, "container", handle.Name)

	created, err := o.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return infoFrom(created), nil
}

func (o *Orchestrator) provision(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	var handle docker.Handle
	err := withEngineRetry(ctx, func() error {
		volumeRef, err := o.runtime.EnsureVolume(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		handle, err = o.runtime.EnsureContainer(ctx, docker.EnsureOpts{
			OwnerID:   ownerID,
			SessionID: sessionID,
			Image:     o.cfg.Image,
			VolumeRef: volumeRef,
			Limits:    o.cfg.Limits,
		})
		return err
	})
	return handle, err
}

// Open brings a suspended session back to running. Safe to call on an
// already-running session: ensure is idempotent and simply re-resolves
// the live container.
func (o *Orchestrator) Open(ctx context.Context, ownerID, sessionID string) (*Info, error) {
	sess, err := o.ownedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case store.StatusDeleted:
		return nil, fmt.Errorf("%w: %s", ErrDeleted, sessionID)
	case store.StatusProvisioning:
		return nil, fmt.Errorf("%w: create in flight for %s", ErrConflict, sessionID)
	case store.StatusProvisionFailed:
		return nil, fmt.Errorf("%w: %s, retry create", ErrProvisionFailed, sessionID)
	case store.StatusRunning, store.StatusSuspended:
		// fall through
	default:
		return nil, fmt.Errorf("%w: unexpected status %s", ErrConflict, sess.Status)
	}

	// Claim the transition before touching the engine, whatever the
	// prior state; a concurrent open, suspend, or delete loses here.
	// Ensuring first and claiming after would let a suspend complete
	// mid-ensure and leave a live container behind a suspended record.
	if err := o.store.UpdateStatusIf(sessionID,
		[]string{sess.Status}, store.StatusProvisioning, nil); err != nil {
		return nil, o.mapStoreErr(err)
	}

	handle, err := o.provision(ctx, ownerID, sessionID)
	if err != nil {
		if casErr := o.store.UpdateStatusIf(sessionID,
			[]string{store.StatusProvisioning}, sess.Status, nil); casErr != nil {
			o.logger.Error("rollback open claim", "session_id", sessionID, "error", casErr)
		}
		return nil, fmt.Errorf("open session: %w", err)
	}

	if err := o.store.UpdateStatusIf(sessionID,
		[]string{store.StatusProvisioning}, store.StatusRunning, &handle.ID); err != nil {
		return nil, o.mapStoreErr(err)
	}

	o.logger.Info("session opened", "session_id", sessionID, "container", handle.Name)

	opened, err := o.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return infoFrom(opened), nil
}

// Suspend stops and removes the session container while keeping the
// workspace volume. The status flip is the linearization point; an
// engine failure rolls it back so the record never claims a state the
// engine contradicts.
func (o *Orchestrator) Suspend(ctx context.Context, ownerID, sessionID string) (*Info, error) {
	sess, err := o.ownedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.StatusDeleted {
		return nil, fmt.Errorf("%w: %s", ErrDeleted, sessionID)
	}
	if sess.Status != store.StatusRunning {
		return nil, fmt.Errorf("%w: suspend requires a running session, got %s", ErrConflict, sess.Status)
	}

	cleared := ""
	if err := o.store.UpdateStatusIf(sessionID,
		[]string{store.StatusRunning}, store.StatusSuspended, &cleared); err != nil {
		return nil, o.mapStoreErr(err)
	}

	err = withEngineRetry(ctx, func() error {
		handle, err := o.runtime.Lookup(ctx, ownerID, sessionID)
		if err != nil {
			if errors.Is(err, docker.ErrNotFound) {
				return nil // already gone, nothing to stop
			}
			return err
		}
		if err := o.runtime.StopContainer(ctx, handle, o.cfg.StopTimeoutSeconds); err != nil {
			return err
		}
		return o.runtime.RemoveContainer(ctx, handle, true)
	})
	if err != nil {
		if casErr := o.store.UpdateStatusIf(sessionID,
			[]string{store.StatusSuspended}, store.StatusRunning, &sess.ContainerRef); casErr != nil {
			o.logger.Error("rollback to running", "session_id", sessionID, "error", casErr)
		}
		return nil, fmt.Errorf("suspend session: %w", err)
	}

	o.logger.Info("session suspended", "session_id", sessionID)

	suspended, err := o.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return infoFrom(suspended), nil
}

// Delete removes the session container. Soft delete (force=false)
// keeps the volume and the record for later reclamation; force also
// removes the volume and the record. Force on an already soft-deleted
// session escalates it to a hard delete.
func (o *Orchestrator) Delete(ctx context.Context, ownerID, sessionID string, force bool) error {
	sess, err := o.ownedSession(ownerID, sessionID)
	if err != nil {
		return err
	}

	if sess.Status == store.StatusDeleted {
		if !force {
			return fmt.Errorf("%w: %s", ErrDeleted, sessionID)
		}
		return o.reclaim(ctx, sess)
	}

	cleared := ""
	from := []string{store.StatusRunning, store.StatusSuspended, store.StatusProvisionFailed}
	if err := o.store.UpdateStatusIf(sessionID, from, store.StatusDeleted, &cleared); err != nil {
		return o.mapStoreErr(err)
	}

	err = withEngineRetry(ctx, func() error {
		handle, err := o.runtime.Lookup(ctx, ownerID, sessionID)
		if err != nil {
			if errors.Is(err, docker.ErrNotFound) {
				if !force {
					return nil
				}
				return o.runtime.RemoveVolume(ctx, sess.VolumeRef)
			}
			return err
		}
		return o.runtime.RemoveContainer(ctx, handle, !force)
	})
	if err != nil {
		// Status stays deleted: the record is terminal, the reaper
		// sweeps whatever the engine still holds.
		o.logger.Error("delete cleanup incomplete", "session_id", sessionID, "error", err)
		return fmt.Errorf("delete session: %w", err)
	}

	if force {
		if err := o.store.HardDelete(sessionID); err != nil {
			return err
		}
	}

	o.logger.Info("session deleted", "session_id", sessionID, "force", force)
	return nil
}

// reclaim finishes a force delete on a previously soft-deleted session.
func (o *Orchestrator) reclaim(ctx context.Context, sess *store.Session) error {
	err := withEngineRetry(ctx, func() error {
		return o.runtime.RemoveVolume(ctx, sess.VolumeRef)
	})
	if err != nil {
		return fmt.Errorf("reclaim volume: %w", err)
	}
	return o.store.HardDelete(sess.ID)
}

func (o *Orchestrator) Get(ctx context.Context, ownerID, sessionID string) (*Info, error) {
	sess, err := o.ownedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return infoFrom(sess), nil
}

func (o *Orchestrator) List(ctx context.Context, ownerID string) ([]Info, error) {
	sessions, err := o.store.ListForOwner(ownerID)
	if err != nil {
		return nil, err
	}
	result := make([]Info, len(sessions))
	for i, s := range sessions {
		result[i] = *infoFrom(s)
	}
	return result, nil
}

// Resolve maps a session to its live container handle for file and
// terminal operations. The engine is queried every time; a running
// record with no live container reads as not running, and nothing here
// ever starts a container on the caller's behalf.
func (o *Orchestrator) Resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	sess, err := o.ownedSession(ownerID, sessionID)
	if err != nil {
		return docker.Handle{}, err
	}
	if sess.Status != store.StatusRunning {
		return docker.Handle{}, fmt.Errorf("%w: status %s", ErrNotRunning, sess.Status)
	}

	handle, err := o.runtime.Lookup(ctx, ownerID, sessionID)
	if err != nil {
		if errors.Is(err, docker.ErrNotFound) {
			return docker.Handle{}, fmt.Errorf("%w: container missing", ErrNotRunning)
		}
		return docker.Handle{}, err
	}
	if !handle.Running {
		return docker.Handle{}, fmt.Errorf("%w: container stopped", ErrNotRunning)
	}
	return handle, nil
}

// Touch records session activity for idle-suspend bookkeeping.
func (o *Orchestrator) Touch(sessionID string) {
	if err := o.store.TouchActivity(sessionID); err != nil {
		o.logger.Error("touch activity", "session_id", sessionID, "error", err)
	}
}

func (o *Orchestrator) mapStoreErr(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
