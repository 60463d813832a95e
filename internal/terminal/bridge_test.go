package terminal

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ptyStream adapts a pty master to the ContainerStream surface, which
// matches how an interactive attach behaves: raw duplex bytes with
// read deadlines.
type ptyStream struct {
	f *os.File
}

func (p *ptyStream) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *ptyStream) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *ptyStream) Close() error                { return p.f.Close() }

func (p *ptyStream) SetReadDeadline(t time.Time) error { return p.f.SetReadDeadline(t) }

// duplexClient is an in-memory client connection for relay tests.
type duplexClient struct {
	mu     sync.Mutex
	out    []byte      // bytes the bridge wrote toward the client
	in     chan []byte // bytes the client sends toward the bridge
	closed chan struct{}
}

func newDuplexClient() *duplexClient {
	return &duplexClient{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *duplexClient) Read(p []byte) (int, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, data), nil
	case <-c.closed:
		return 0, io.EOF
	}
}

func (c *duplexClient) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, p...)
	return len(p), nil
}

func (c *duplexClient) received() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.out)
}

func (c *duplexClient) disconnect() {
	close(c.closed)
}

func openTestPTY(t *testing.T) (*ptyStream, *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})
	return &ptyStream{f: ptmx}, tty
}

func relayDone(b *Bridge, client io.ReadWriter, cs ContainerStream) chan error {
	done := make(chan error, 1)
	go func() {
		done <- b.Relay(client, cs, nil)
	}()
	return done
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRelayContainerOutputReachesClient(t *testing.T) {
	cs, tty := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(32*1024, 0, testLogger())

	done := relayDone(b, client, cs)

	_, err := tty.Write([]byte("hello from shell"))
	require.NoError(t, err)

	waitFor(t, func() bool { return client.received() == "hello from shell" },
		"container output never reached the client")

	client.disconnect()
	assert.NoError(t, <-done)
}

func TestRelayClientInputReachesContainer(t *testing.T) {
	cs, _ := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(32*1024, 0, testLogger())

	done := relayDone(b, client, cs)

	client.in <- []byte("ls -la\n")

	// The pty echoes input back through the master, so the client sees
	// its own keystrokes, proving the bytes reached the tty line.
	waitFor(t, func() bool { return client.received() != "" },
		"client input never reached the container side")

	client.disconnect()
	assert.NoError(t, <-done)
}

func TestRelayIdleContainerStaysOpen(t *testing.T) {
	cs, _ := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(32*1024, 0, testLogger())

	done := relayDone(b, client, cs)

	// Several poll intervals with zero output: the deadline expiries
	// must read as idle ticks, not failures.
	select {
	case err := <-done:
		t.Fatalf("bridge closed during idle period: %v", err)
	case <-time.After(2500 * time.Millisecond):
	}

	client.disconnect()
	assert.NoError(t, <-done)
}

func TestRelayClientDisconnectEndsCleanly(t *testing.T) {
	cs, _ := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(32*1024, 0, testLogger())

	done := relayDone(b, client, cs)

	client.disconnect()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not end after client disconnect")
	}
}

func TestRelayIdleTimeoutCloses(t *testing.T) {
	cs, _ := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(32*1024, 1500*time.Millisecond, testLogger())

	done := relayDone(b, client, cs)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("idle timeout never fired")
	}
}

func TestRelayChunksLargeOutput(t *testing.T) {
	cs, tty := openTestPTY(t)
	client := newDuplexClient()
	b := NewBridge(1024, 0, testLogger())

	done := relayDone(b, client, cs)

	payload := make([]byte, 8192)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	go tty.Write(payload)

	waitFor(t, func() bool { return len(client.received()) == len(payload) },
		"large output was not fully relayed")
	assert.Equal(t, string(payload), client.received())

	client.disconnect()
	assert.NoError(t, <-done)
}
