// Package docker adapts the Docker Engine control API for session
// containers and workspace volumes. The engine is the source of truth
// for container liveness: handles are looked up by deterministic name
// per operation and never cached across calls.
package docker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"

	"github.com/p-arndt/werkbank/internal/config"
)

type Client struct {
	docker *client.Client
}

func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{docker: cli}, nil
}

func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.docker.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Handle is a runtime-observed container reference. It is valid for the
// scope of one orchestration call only.
type Handle struct {
	ID        string
	Name      string
	OwnerID   string
	SessionID string
	Running   bool
}

// EnsureOpts describes the desired container for a session.
type EnsureOpts struct {
	OwnerID   string
	SessionID string
	Image     string
	VolumeRef string
	Limits    config.Limits
}

// EnsureVolume creates the workspace volume for a session if it does
// not already exist and returns its name. Idempotent.
func (c *Client) EnsureVolume(ctx context.Context, ownerID, sessionID string) (string, error) {
	name := VolumeName(ownerID, sessionID)

	vol, err := c.docker.VolumeInspect(ctx, name)
	if err == nil {
		if vol.Labels[LabelOwnerID] != ownerID {
			return "", fmt.Errorf("%w: volume %s belongs to a different owner", ErrResourceConflict, name)
		}
		return name, nil
	}
	if !client.IsErrNotFound(err) {
		return "", classify("volume inspect", err)
	}

	_, err = c.docker.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Driver: "local",
		Labels: sessionLabels(ownerID, sessionID),
	})
	if err != nil {
		return "", classify("volume create", err)
	}
	return name, nil
}

// RemoveVolume removes a workspace volume. Idempotent on missing volumes.
func (c *Client) RemoveVolume(ctx context.Context, volumeRef string) error {
	err := c.docker.VolumeRemove(ctx, volumeRef, true)
	if err != nil && !client.IsErrNotFound(err) {
		return classify("volume remove", err)
	}
	return nil
}

// EnsureContainer reconciles observed container state with the desired
// state for a session: absent creates and starts, stopped starts,
// running returns as-is. Callers never distinguish first-create from
// resume. A name collision with foreign labels is ErrResourceConflict.
func (c *Client) EnsureContainer(ctx context.Context, opts EnsureOpts) (Handle, error) {
	name := ContainerName(opts.OwnerID, opts.SessionID)

	info, err := c.docker.ContainerInspect(ctx, name)
	if err == nil {
		if info.Config.Labels[LabelOwnerID] != opts.OwnerID ||
			info.Config.Labels[LabelSessionID] != opts.SessionID {
			return Handle{}, fmt.Errorf("%w: container %s carries foreign labels", ErrResourceConflict, name)
		}
		h := Handle{
			ID:        info.ID,
			Name:      name,
			OwnerID:   opts.OwnerID,
			SessionID: opts.SessionID,
			Running:   info.State.Running,
		}
		if !h.Running {
			if err := c.docker.ContainerStart(ctx, h.ID, container.StartOptions{}); err != nil {
				return Handle{}, classify("container start", err)
			}
			h.Running = true
		}
		return h, nil
	}
	if !client.IsErrNotFound(err) {
		return Handle{}, classify("container inspect", err)
	}

	return c.createContainer(ctx, name, opts)
}

func (c *Client) createContainer(ctx context.Context, name string, opts EnsureOpts) (Handle, error) {
	resources := container.Resources{
		NanoCPUs:  int64(opts.Limits.CPULimit * 1e9),
		Memory:    int64(opts.Limits.MemLimitMB) * 1024 * 1024,
		PidsLimit: int64Ptr(int64(opts.Limits.PidsLimit)),
	}

	hostCfg := &container.HostConfig{
		Resources:   resources,
		AutoRemove:  false,
		SecurityOpt: []string{"no-new-privileges"},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeVolume,
				Source: opts.VolumeRef,
				Target: "/workspace",
			},
			{
				Type:   mount.TypeTmpfs,
				Target: "/tmp",
				TmpfsOptions: &mount.TmpfsOptions{
					SizeBytes: 512 * units.MiB,
				},
			},
		},
	}
	if opts.Limits.NetworkMode == "none" {
		hostCfg.NetworkMode = "none"
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Labels:     sessionLabels(opts.OwnerID, opts.SessionID),
		WorkingDir: "/workspace",
		Tty:        false,
		// Keep PID 1 alive so the container idles until exec'd into.
		Cmd: []string{"sleep", "infinity"},
	}

	resp, err := c.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil {
		return Handle{}, classify("container create", err)
	}

	if err := c.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		c.docker.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return Handle{}, classify("container start", err)
	}

	return Handle{
		ID:        resp.ID,
		Name:      name,
		OwnerID:   opts.OwnerID,
		SessionID: opts.SessionID,
		Running:   true,
	}, nil
}

// Lookup re-discovers a session's container by deterministic name.
// Returns ErrNotFound if none exists.
func (c *Client) Lookup(ctx context.Context, ownerID, sessionID string) (Handle, error) {
	name := ContainerName(ownerID, sessionID)
	info, err := c.docker.ContainerInspect(ctx, name)
	if err != nil {
		return Handle{}, classify("container inspect", err)
	}
	if info.Config.Labels[LabelOwnerID] != ownerID ||
		info.Config.Labels[LabelSessionID] != sessionID {
		return Handle{}, fmt.Errorf("%w: container %s carries foreign labels", ErrResourceConflict, name)
	}
	return Handle{
		ID:        info.ID,
		Name:      name,
		OwnerID:   ownerID,
		SessionID: sessionID,
		Running:   info.State.Running,
	}, nil
}

// StopContainer stops the process tree gracefully within the timeout,
// then force-kills. The volume is never touched. Idempotent on
// already-stopped and missing containers.
func (c *Client) StopContainer(ctx context.Context, h Handle, timeoutSeconds int) error {
	err := c.docker.ContainerStop(ctx, h.ID, container.StopOptions{Timeout: &timeoutSeconds})
	if err != nil && !client.IsErrNotFound(err) {
		return classify("container stop", err)
	}
	return nil
}

// RemoveContainer removes the container; the workspace volume is
// removed only when keepVolume is false. Idempotent on missing
// containers.
func (c *Client) RemoveContainer(ctx context.Context, h Handle, keepVolume bool) error {
	err := c.docker.ContainerRemove(ctx, h.ID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return classify("container remove", err)
	}
	if !keepVolume {
		return c.RemoveVolume(ctx, VolumeName(h.OwnerID, h.SessionID))
	}
	return nil
}

// ExecResult is the outcome of a one-shot command.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Exec runs argv one-shot inside the container. cwd must already be
// sanitized by the caller; it is resolved against the workspace mount.
func (c *Client) Exec(ctx context.Context, h Handle, argv []string, cwd string) (*ExecResult, error) {
	return c.exec(ctx, h, argv, cwd, nil)
}

// ExecInput is Exec with bytes fed to the command's stdin.
func (c *Client) ExecInput(ctx context.Context, h Handle, argv []string, cwd string, stdin []byte) (*ExecResult, error) {
	return c.exec(ctx, h, argv, cwd, stdin)
}

func (c *Client) exec(ctx context.Context, h Handle, argv []string, cwd string, stdin []byte) (*ExecResult, error) {
	execCfg := container.ExecOptions{
		Cmd:          argv,
		WorkingDir:   cwd,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  stdin != nil,
	}

	execResp, err := c.docker.ContainerExecCreate(ctx, h.ID, execCfg)
	if err != nil {
		return nil, classify("exec create", err)
	}

	attachResp, err := c.docker.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, classify("exec attach", err)
	}
	defer attachResp.Close()

	// Demultiplex Docker's stdout/stderr stream (8-byte headers).
	// Draining must start before stdin is written: commands like tee
	// echo input back on stdout, and writing a large payload against an
	// undrained stream deadlocks once the transport buffers fill.
	var stdoutBuf, stderrBuf bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, attachResp.Reader)
		copyDone <- err
	}()

	if stdin != nil {
		if _, err := attachResp.Conn.Write(stdin); err != nil {
			return nil, fmt.Errorf("exec stdin: %w", err)
		}
		if err := attachResp.CloseWrite(); err != nil {
			return nil, fmt.Errorf("exec stdin close: %w", err)
		}
	}

	if err := <-copyDone; err != nil {
		return nil, fmt.Errorf("exec read: %w", err)
	}

	inspect, err := c.docker.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, classify("exec inspect", err)
	}

	return &ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
	}, nil
}

// ManagedContainer is one engine-observed container carrying our labels.
type ManagedContainer struct {
	ContainerID string
	OwnerID     string
	SessionID   string
	Running     bool
}

// ListManaged returns every container labeled as werkbank-managed,
// including stopped ones. Used by the reaper to reconcile orphans.
func (c *Client) ListManaged(ctx context.Context) ([]ManagedContainer, error) {
	f := filters.NewArgs()
	f.Add("label", LabelManaged+"=true")

	containers, err := c.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: f,
	})
	if err != nil {
		return nil, classify("container list", err)
	}

	var result []ManagedContainer
	for _, ctr := range containers {
		sessionID := ctr.Labels[LabelSessionID]
		if sessionID == "" {
			continue
		}
		result = append(result, ManagedContainer{
			ContainerID: ctr.ID,
			OwnerID:     ctr.Labels[LabelOwnerID],
			SessionID:   sessionID,
			Running:     ctr.State == "running",
		})
	}
	return result, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
