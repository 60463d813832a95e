// Package terminal relays raw bytes between a client connection and a
// container's interactive shell. No framing is imposed; the shell's own
// protocol defines all structure.
package terminal

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// ContainerStream is the duplex byte channel returned by the runtime
// adapter's interactive attach.
type ContainerStream interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// pollInterval bounds each container-side read. An expired deadline
// with zero bytes is an idle tick, not a stream failure; this keeps a
// silent shell from looking like a dead one.
const pollInterval = time.Second

type Bridge struct {
	chunkBytes  int
	idleTimeout time.Duration // 0 disables idle teardown
	logger      *slog.Logger
}

func NewBridge(chunkBytes int, idleTimeout time.Duration, logger *slog.Logger) *Bridge {
	if chunkBytes <= 0 {
		chunkBytes = 32 * 1024
	}
	return &Bridge{
		chunkBytes:  chunkBytes,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Relay pumps bytes both directions until the client disconnects, the
// container process exits, or the idle timeout (when configured)
// elapses with no traffic in either direction. Returning always
// detaches from the process; it is never stopped from here, so a later
// connection can reattach.
func (b *Bridge) Relay(client io.ReadWriter, container ContainerStream, onActivity func()) error {
	defer container.Close()

	lastActivity := &atomic.Int64{}
	lastActivity.Store(time.Now().UnixNano())
	touch := func() {
		lastActivity.Store(time.Now().UnixNano())
		if onActivity != nil {
			onActivity()
		}
	}

	// Client to container. A client read error means disconnect: poke
	// the container-side loop loose by closing the stream.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		buf := make([]byte, b.chunkBytes)
		for {
			n, err := client.Read(buf)
			if n > 0 {
				touch()
				if _, werr := container.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// Container to client, in bounded-deadline reads.
	buf := make([]byte, b.chunkBytes)
	for {
		select {
		case <-clientGone:
			return nil
		default:
		}

		container.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := container.Read(buf)
		if n > 0 {
			touch()
			if _, werr := client.Write(buf[:n]); werr != nil {
				return nil // client disconnected mid-write
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if b.idleTimeout > 0 {
				idle := time.Since(time.Unix(0, lastActivity.Load()))
				if idle >= b.idleTimeout {
					b.logger.Info("terminal idle timeout", "idle", idle)
					return nil
				}
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil // process exited
		}
		return err
	}
}
