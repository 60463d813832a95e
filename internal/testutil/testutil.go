// Package testutil holds helpers shared across test packages.
package testutil

import (
	"testing"
	"time"

	"github.com/p-arndt/werkbank/internal/config"
	"github.com/p-arndt/werkbank/internal/store"
)

// TestConfig returns a Config with sensible test defaults.
func TestConfig() *config.Config {
	return &config.Config{
		Listen:             "127.0.0.1:0",
		APIKey:             "test-api-key",
		Image:              "werkbank-workspace:base",
		DBPath:             ":memory:",
		Shell:              "/bin/bash",
		StopTimeoutSeconds: 5,
		Limits: config.Limits{
			CPULimit:    1.0,
			MemLimitMB:  512,
			PidsLimit:   256,
			NetworkMode: "none",
		},
		Terminal: config.TerminalConfig{
			ChunkBytes: 32 * 1024,
		},
	}
}

// NewTestStore opens an in-memory store and registers cleanup.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSession returns a running session record for fixtures.
func TestSession(id, ownerID string) *store.Session {
	now := time.Now().UTC()
	return &store.Session{
		ID:           id,
		OwnerID:      ownerID,
		DisplayName:  "fixture",
		Status:       store.StatusRunning,
		ContainerRef: "werkbank-" + ownerID + "-" + id,
		VolumeRef:    "werkbank-ws-" + ownerID + "-" + id,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
}
