// Package fsops proxies logical workspace file operations into
// container execs. Every path is sanitized before it reaches the
// runtime, and deletes are soft: files move into a hidden trash root on
// the same volume and are never physically removed here.
package fsops

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync/atomic"
	"time"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/sanitize"
)

// HandleResolver maps (owner, session) to a live container handle. The
// orchestrator implements it; a session that is not running fails the
// operation instead of being started implicitly.
type HandleResolver interface {
	Resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error)
	Touch(sessionID string)
}

// Runtime is the exec surface the proxy needs.
type Runtime interface {
	Exec(ctx context.Context, h docker.Handle, argv []string, cwd string) (*docker.ExecResult, error)
	ExecInput(ctx context.Context, h docker.Handle, argv []string, cwd string, stdin []byte) (*docker.ExecResult, error)
}

// Entry is one workspace file listing row. Produced transiently; the
// container filesystem stays authoritative.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

type Proxy struct {
	resolver HandleResolver
	runtime  Runtime
	logger   *slog.Logger

	// now is swappable for deterministic trash paths in tests.
	now func() time.Time

	// trashSeq disambiguates trash slots created within one second, so
	// repeated deletes of a same-named path never overwrite each other.
	trashSeq atomic.Uint64
}

func NewProxy(resolver HandleResolver, rt Runtime, logger *slog.Logger) *Proxy {
	return &Proxy{
		resolver: resolver,
		runtime:  rt,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Proxy) resolve(ctx context.Context, ownerID, sessionID string) (docker.Handle, error) {
	h, err := p.resolver.Resolve(ctx, ownerID, sessionID)
	if err != nil {
		return docker.Handle{}, err
	}
	p.resolver.Touch(sessionID)
	return h, nil
}

// run execs argv in the workspace root and fails on nonzero exit.
func (p *Proxy) run(ctx context.Context, h docker.Handle, argv []string) (*docker.ExecResult, error) {
	res, err := p.runtime.Exec(ctx, h, argv, sanitize.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s: exit %d: %s", argv[0], res.ExitCode, string(res.Stderr))
	}
	return res, nil
}

// List returns the entries of a workspace directory.
func (p *Proxy) List(ctx context.Context, ownerID, sessionID, dirPath string) ([]Entry, error) {
	abs, err := sanitize.AbsWorkspacePath(dirPath)
	if err != nil {
		return nil, err
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := p.run(ctx, h, []string{"ls", "-lA", "--", abs})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dirPath, err)
	}
	return parseLongListing(string(res.Stdout)), nil
}

// Read returns the raw bytes of a workspace file.
func (p *Proxy) Read(ctx context.Context, ownerID, sessionID, filePath string) ([]byte, error) {
	abs, err := sanitize.AbsWorkspacePath(filePath)
	if err != nil {
		return nil, err
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := p.run(ctx, h, []string{"cat", "--", abs})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	return res.Stdout, nil
}

// Write stores data at a workspace path, creating parent directories as
// needed.
func (p *Proxy) Write(ctx context.Context, ownerID, sessionID, filePath string, data []byte) error {
	abs, err := sanitize.AbsWorkspacePath(filePath)
	if err != nil {
		return err
	}
	if abs == sanitize.WorkspaceRoot {
		return fmt.Errorf("%w: cannot write the workspace root", sanitize.ErrInvalidPath)
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}

	if dir := path.Dir(abs); dir != sanitize.WorkspaceRoot {
		if _, err := p.run(ctx, h, []string{"mkdir", "-p", "--", dir}); err != nil {
			return fmt.Errorf("write %s: %w", filePath, err)
		}
	}

	res, err := p.runtime.ExecInput(ctx, h, []string{"tee", "--", abs}, sanitize.WorkspaceRoot, data)
	if err != nil {
		return fmt.Errorf("write %s: %w", filePath, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("write %s: exit %d: %s", filePath, res.ExitCode, string(res.Stderr))
	}
	return nil
}

// Rename renames a file or directory in place.
func (p *Proxy) Rename(ctx context.Context, ownerID, sessionID, fromPath, toPath string) error {
	return p.move(ctx, ownerID, sessionID, fromPath, toPath, false)
}

// Move relocates a file or directory, creating the target directory.
func (p *Proxy) Move(ctx context.Context, ownerID, sessionID, fromPath, toPath string) error {
	return p.move(ctx, ownerID, sessionID, fromPath, toPath, true)
}

func (p *Proxy) move(ctx context.Context, ownerID, sessionID, fromPath, toPath string, mkTargetDir bool) error {
	fromAbs, err := sanitize.AbsWorkspacePath(fromPath)
	if err != nil {
		return err
	}
	toAbs, err := sanitize.AbsWorkspacePath(toPath)
	if err != nil {
		return err
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}

	if mkTargetDir {
		if dir := path.Dir(toAbs); dir != sanitize.WorkspaceRoot {
			if _, err := p.run(ctx, h, []string{"mkdir", "-p", "--", dir}); err != nil {
				return fmt.Errorf("move %s: %w", fromPath, err)
			}
		}
	}

	if _, err := p.run(ctx, h, []string{"mv", "--", fromAbs, toAbs}); err != nil {
		return fmt.Errorf("move %s to %s: %w", fromPath, toPath, err)
	}
	return nil
}

// Delete moves a file or directory into the timestamped trash root on
// the same volume. Trash contents stay byte-for-byte recoverable.
func (p *Proxy) Delete(ctx context.Context, ownerID, sessionID, filePath string) error {
	abs, err := sanitize.AbsWorkspacePath(filePath)
	if err != nil {
		return err
	}
	if abs == sanitize.WorkspaceRoot {
		return fmt.Errorf("%w: cannot delete the workspace root", sanitize.ErrInvalidPath)
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}

	trashDir := fmt.Sprintf("%s/%s/%d-%d",
		sanitize.WorkspaceRoot, sanitize.TrashDir,
		p.now().UTC().Unix(), p.trashSeq.Add(1))
	if _, err := p.run(ctx, h, []string{"mkdir", "-p", "--", trashDir}); err != nil {
		return fmt.Errorf("delete %s: %w", filePath, err)
	}

	target := trashDir + "/" + path.Base(abs)
	if _, err := p.run(ctx, h, []string{"mv", "--", abs, target}); err != nil {
		return fmt.Errorf("delete %s: %w", filePath, err)
	}

	p.logger.Debug("moved to trash", "session_id", sessionID, "path", filePath, "trash", target)
	return nil
}

// CommandResult is the outcome of a one-shot sanitized command.
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// RunCommand tokenizes and vets a raw command line, then executes it
// one-shot in the session's workspace. Nothing ever goes through a
// shell.
func (p *Proxy) RunCommand(ctx context.Context, ownerID, sessionID, raw string) (*CommandResult, error) {
	argv, err := sanitize.SplitCommand(raw)
	if err != nil {
		return nil, err
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := p.runtime.Exec(ctx, h, argv, sanitize.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("run command: %w", err)
	}
	return &CommandResult{
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
	}, nil
}

// Create makes an empty file or directory at a workspace path.
func (p *Proxy) Create(ctx context.Context, ownerID, sessionID, filePath string, isDir bool) error {
	abs, err := sanitize.AbsWorkspacePath(filePath)
	if err != nil {
		return err
	}
	if abs == sanitize.WorkspaceRoot {
		return fmt.Errorf("%w: workspace root already exists", sanitize.ErrInvalidPath)
	}
	h, err := p.resolve(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}

	if isDir {
		if _, err := p.run(ctx, h, []string{"mkdir", "-p", "--", abs}); err != nil {
			return fmt.Errorf("create %s: %w", filePath, err)
		}
		return nil
	}

	if dir := path.Dir(abs); dir != sanitize.WorkspaceRoot {
		if _, err := p.run(ctx, h, []string{"mkdir", "-p", "--", dir}); err != nil {
			return fmt.Errorf("create %s: %w", filePath, err)
		}
	}
	if _, err := p.run(ctx, h, []string{"touch", "--", abs}); err != nil {
		return fmt.Errorf("create %s: %w", filePath, err)
	}
	return nil
}
