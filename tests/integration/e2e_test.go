//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/werkbank/internal/api"
	"github.com/p-arndt/werkbank/internal/config"
	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/fsops"
	"github.com/p-arndt/werkbank/internal/session"
	"github.com/p-arndt/werkbank/internal/store"
)

const testAPIKey = "wb-integration-test"

func startTestServer(t *testing.T) (string, *docker.Client, func()) {
	t.Helper()

	cfg := &config.Config{
		Listen:             "127.0.0.1:0",
		APIKey:             testAPIKey,
		Image:              imageFromEnv(),
		DBPath:             ":memory:",
		Shell:              "/bin/sh",
		StopTimeoutSeconds: 5,
		Limits: config.Limits{
			CPULimit:    0.5,
			MemLimitMB:  256,
			PidsLimit:   128,
			NetworkMode: "none",
		},
		Terminal: config.TerminalConfig{ChunkBytes: 32 * 1024},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	st, err := store.New(cfg.DBPath)
	require.NoError(t, err)

	dc, err := docker.New()
	require.NoError(t, err)
	if err := dc.Ping(context.Background()); err != nil {
		t.Skipf("docker engine unavailable: %v", err)
	}

	orch := session.NewOrchestrator(cfg, st, dc, logger)
	files := fsops.NewProxy(orch, dc, logger)
	srv := api.NewServer(cfg, orch, files, api.DockerAttacher{Client: dc}, logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	httpServer := &http.Server{Handler: srv.Handler()}
	go httpServer.Serve(listener)

	baseURL := fmt.Sprintf("http://%s", listener.Addr().String())

	cleanup := func() {
		httpServer.Close()
		dc.Close()
		st.Close()
	}

	return baseURL, dc, cleanup
}

func imageFromEnv() string {
	if img := os.Getenv("WERKBANK_TEST_IMAGE"); img != "" {
		return img
	}
	return "alpine:3.20"
}

func TestE2E_Healthz(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t)
	defer cleanup()

	client := newTestClient(baseURL, testAPIKey, "alice")
	resp := client.doRequest(t, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestE2E_AuthRequired(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t)
	defer cleanup()

	noAuth := newTestClient(baseURL, "", "alice")
	resp := noAuth.doRequest(t, "GET", "/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	wrongKey := newTestClient(baseURL, "wrong-key", "alice")
	resp = wrongKey.doRequest(t, "GET", "/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	noOwner := newTestClient(baseURL, testAPIKey, "")
	resp = noOwner.doRequest(t, "GET", "/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	valid := newTestClient(baseURL, testAPIKey, "alice")
	resp = valid.doRequest(t, "GET", "/v1/sessions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// Full lifecycle: the workspace survives suspension, and suspension
// removes the container from the engine.
func TestE2E_SuspendResumeKeepsWorkspace(t *testing.T) {
	baseURL, dc, cleanup := startTestServer(t)
	defer cleanup()

	client := newTestClient(baseURL, testAPIKey, "alice")

	created := client.createSession(t, "e2e")
	sessionID := created["id"].(string)
	require.Equal(t, "running", created["status"])
	defer client.deleteSession(t, sessionID, true)

	client.writeFile(t, sessionID, "notes/hello.txt", "persisted across suspend\n")

	entries := client.listFiles(t, sessionID, "/")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e["name"].(string))
	}
	assert.Contains(t, names, "notes")

	suspended := client.suspendSession(t, sessionID)
	assert.Equal(t, "suspended", suspended["status"])

	// The engine must no longer hold a container for this session.
	_, err := dc.Lookup(context.Background(), "alice", sessionID)
	assert.Error(t, err)

	reopened := client.openSession(t, sessionID)
	assert.Equal(t, "running", reopened["status"])

	content := client.readFile(t, sessionID, "notes/hello.txt")
	assert.Equal(t, "persisted across suspend\n", content)
}

func TestE2E_ExecAndTrash(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t)
	defer cleanup()

	client := newTestClient(baseURL, testAPIKey, "alice")

	created := client.createSession(t, "exec-test")
	sessionID := created["id"].(string)
	defer client.deleteSession(t, sessionID, true)

	result := client.exec(t, sessionID, "echo hello-from-container")
	assert.Equal(t, float64(0), result["exit_code"])
	assert.Contains(t, result["stdout"], "hello-from-container")

	// Unsafe commands never reach the container.
	resp := client.doRequest(t, "POST",
		fmt.Sprintf("/v1/sessions/%s/exec", sessionID),
		map[string]any{"cmd": "echo hi; rm -rf /"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Deleting a file moves it into the trash rather than removing it.
	client.writeFile(t, sessionID, "scratch.txt", "bye\n")
	resp = client.doRequest(t, "DELETE",
		fmt.Sprintf("/v1/sessions/%s/fs?path=scratch.txt", sessionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	trash := client.exec(t, sessionID, "find /workspace/.trash -name scratch.txt")
	assert.Contains(t, trash["stdout"], "scratch.txt")
}

// Writes larger than the engine's transport buffering must not wedge
// against tee echoing the payload back on stdout.
func TestE2E_LargeFileWrite(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t)
	defer cleanup()

	client := newTestClient(baseURL, testAPIKey, "alice")

	created := client.createSession(t, "big-write")
	sessionID := created["id"].(string)
	defer client.deleteSession(t, sessionID, true)

	payload := strings.Repeat("0123456789abcdef", 256*1024) // 4 MiB
	client.writeFile(t, sessionID, "blob.bin", payload)

	result := client.exec(t, sessionID, "wc -c /workspace/blob.bin")
	assert.Equal(t, float64(0), result["exit_code"])
	assert.Contains(t, result["stdout"], fmt.Sprintf("%d", len(payload)))
}

func TestE2E_OwnershipIsolation(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t)
	defer cleanup()

	alice := newTestClient(baseURL, testAPIKey, "alice")
	mallory := newTestClient(baseURL, testAPIKey, "mallory")

	created := alice.createSession(t, "private")
	sessionID := created["id"].(string)
	defer alice.deleteSession(t, sessionID, true)

	// A foreign principal sees someone else's session as missing.
	resp := mallory.doRequest(t, "GET", "/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestE2E_SoftDeleteThenForce(t *testing.T) {
	baseURL, dc, cleanup := startTestServer(t)
	defer cleanup()

	client := newTestClient(baseURL, testAPIKey, "alice")

	created := client.createSession(t, "doomed")
	sessionID := created["id"].(string)

	client.deleteSession(t, sessionID, false)

	// Soft delete keeps the record but refuses reopening.
	resp := client.doRequest(t, "POST", fmt.Sprintf("/v1/sessions/%s/open", sessionID), nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()

	// Give the engine a moment to finish removing the container.
	time.Sleep(time.Second)

	client.deleteSession(t, sessionID, true)

	_, err := dc.Lookup(context.Background(), "alice", sessionID)
	assert.Error(t, err)
}
