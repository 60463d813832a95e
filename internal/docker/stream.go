package docker

import (
	"context"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
)

// Stream is a raw duplex byte channel bound to an interactive process
// inside a container. Closing the stream detaches from the process but
// does not stop it; a later attach starts a fresh shell in the same
// container.
type Stream struct {
	resp types.HijackedResponse
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.resp.Reader.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.resp.Conn.Write(p)
}

// SetReadDeadline bounds the next Read. A deadline expiry surfaces as a
// net.Error with Timeout() == true; the terminal bridge treats that as
// an idle tick.
func (s *Stream) SetReadDeadline(t time.Time) error {
	return s.resp.Conn.SetReadDeadline(t)
}

// CloseWrite half-closes the client-to-process direction.
func (s *Stream) CloseWrite() error {
	return s.resp.CloseWrite()
}

func (s *Stream) Close() error {
	s.resp.Close()
	return nil
}

// AttachInteractive starts a login shell inside the container with a
// TTY and returns the duplex byte stream bound to its stdio. The
// shell's own protocol defines all structure; no framing is added.
func (c *Client) AttachInteractive(ctx context.Context, h Handle, shell string) (*Stream, error) {
	execCfg := container.ExecOptions{
		Cmd:          []string{shell, "-l"},
		WorkingDir:   "/workspace",
		Env:          []string{"TERM=xterm-256color"},
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	}

	execResp, err := c.docker.ContainerExecCreate(ctx, h.ID, execCfg)
	if err != nil {
		return nil, classify("exec create", err)
	}

	attachResp, err := c.docker.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return nil, classify("exec attach", err)
	}

	return &Stream{resp: attachResp}, nil
}
