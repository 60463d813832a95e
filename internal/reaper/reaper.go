// Package reaper runs the background maintenance loop: suspending idle
// sessions, removing engine containers whose sessions are gone, and
// optionally purging aged trash inside running workspaces.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/sanitize"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/store"
)

type Reaper struct {
	store          ReaperStore
	runtime        ReaperRuntime
	sessions       SessionSuspender
	idleAfter      time.Duration // 0 disables idle suspension
	trashRetention time.Duration // 0 disables trash purging
	interval       time.Duration
	logger         *slog.Logger
}

func New(st ReaperStore, rt ReaperRuntime, sessions SessionSuspender, idleAfter, trashRetention, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		store:          st,
		runtime:        rt,
		sessions:       sessions,
		idleAfter:      idleAfter,
		trashRetention: trashRetention,
		interval:       interval,
		logger:         logger,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started",
		"interval", r.interval,
		"idle_after", r.idleAfter,
		"trash_retention", r.trashRetention)

	r.reconcileOrphans(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.suspendIdle(ctx)
			r.reconcileOrphans(ctx)
			r.purgeTrash(ctx)
		}
	}
}

// suspendIdle suspends running sessions with no activity past the idle
// threshold. Losing a race to a concurrent transition is fine; the
// session is picked up again next tick if it is still idle.
func (r *Reaper) suspendIdle(ctx context.Context) {
	if r.idleAfter <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-r.idleAfter)
	idle, err := r.store.ListIdleRunning(cutoff)
	if err != nil {
		r.logger.Error("reaper: list idle sessions", "error", err)
		return
	}

	for _, sess := range idle {
		r.logger.Info("suspending idle session",
			"session_id", sess.ID, "last_activity", sess.LastActivity)

		_, err := r.sessions.Suspend(ctx, sess.OwnerID, sess.ID)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrConflict), errors.Is(err, session.ErrNotRunning):
			r.logger.Debug("reaper: session transitioned concurrently", "session_id", sess.ID)
		default:
			r.logger.Error("reaper: suspend idle session", "session_id", sess.ID, "error", err)
		}
	}
}

// reconcileOrphans removes managed containers whose session record is
// deleted or missing. The workspace volume is kept when the record
// still exists, since a soft-deleted session retains its data.
func (r *Reaper) reconcileOrphans(ctx context.Context) {
	managed, err := r.runtime.ListManaged(ctx)
	if err != nil {
		r.logger.Error("reaper: list managed containers", "error", err)
		return
	}

	removed := 0
	for _, mc := range managed {
		sess, err := r.store.GetSession(mc.SessionID)
		if err != nil {
			r.logger.Warn("reaper: look up session for container",
				"session_id", mc.SessionID, "error", err)
			continue
		}
		if sess != nil && sess.Status != store.StatusDeleted {
			continue
		}

		h := docker.Handle{
			ID:        mc.ContainerID,
			Name:      docker.ContainerName(mc.OwnerID, mc.SessionID),
			OwnerID:   mc.OwnerID,
			SessionID: mc.SessionID,
		}
		keepVolume := sess != nil
		r.logger.Info("removing orphan container",
			"container", h.Name, "session_id", mc.SessionID, "keep_volume", keepVolume)

		if err := r.runtime.RemoveContainer(ctx, h, keepVolume); err != nil {
			r.logger.Error("reaper: remove orphan container", "container", h.Name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		r.logger.Info("reaper: removed orphan containers", "count", removed)
	}
}

// purgeTrash deletes trash entries older than the retention window in
// every running managed container. Disabled by default; soft-deleted
// files then live forever.
func (r *Reaper) purgeTrash(ctx context.Context) {
	if r.trashRetention <= 0 {
		return
	}

	managed, err := r.runtime.ListManaged(ctx)
	if err != nil {
		r.logger.Error("reaper: list managed containers", "error", err)
		return
	}

	trashRoot := sanitize.WorkspaceRoot + "/" + sanitize.TrashDir
	minutes := fmt.Sprintf("+%d", int(r.trashRetention.Minutes()))

	for _, mc := range managed {
		if !mc.Running {
			continue
		}
		h := docker.Handle{
			ID:        mc.ContainerID,
			Name:      docker.ContainerName(mc.OwnerID, mc.SessionID),
			OwnerID:   mc.OwnerID,
			SessionID: mc.SessionID,
			Running:   true,
		}

		argv := []string{
			"find", trashRoot,
			"-mindepth", "1", "-maxdepth", "1",
			"-mmin", minutes,
			"-exec", "rm", "-rf", "{}", "+",
		}
		result, err := r.runtime.Exec(ctx, h, argv, sanitize.WorkspaceRoot)
		if err != nil {
			r.logger.Error("reaper: purge trash", "container", h.Name, "error", err)
			continue
		}
		// find exits nonzero when the trash root does not exist yet.
		if result.ExitCode != 0 {
			r.logger.Debug("reaper: trash purge skipped",
				"container", h.Name, "exit_code", result.ExitCode)
		}
	}
}
