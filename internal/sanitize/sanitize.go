// Package sanitize validates workspace paths and command lines before
// they are handed to the container runtime. All functions are pure and
// deterministic; nothing here touches the engine.
package sanitize

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrUnsafeCommand = errors.New("unsafe command")
)

// WorkspaceRoot is the mount point of the session volume inside the
// container. All sanitized paths resolve under it.
const WorkspaceRoot = "/workspace"

// TrashDir is the hidden trash root used for soft deletes, relative to
// the workspace root.
const TrashDir = ".trash"

// shellMeta are rejected anywhere in a command line. Commands never go
// through a shell, so none of these can ever be meaningful.
const shellMeta = ";&|`$()"

// deniedCommands lists argv[0] values that are never executed in a
// session container: process management, privilege escalation, and
// network exfiltration primitives.
var deniedCommands = map[string]struct{}{
	"sudo": {}, "su": {}, "doas": {},
	"kill": {}, "pkill": {}, "killall": {},
	"reboot": {}, "shutdown": {}, "halt": {}, "poweroff": {},
	"nc": {}, "ncat": {}, "netcat": {}, "socat": {},
	"curl": {}, "wget": {}, "ssh": {}, "scp": {}, "sftp": {},
	"telnet": {}, "ftp": {},
}

// WorkspacePath normalizes a workspace-root-relative path. "" and "/"
// both name the workspace root. Inputs containing NUL bytes, absolute
// prefixes other than the bare root, or traversal that would escape the
// root fail with ErrInvalidPath. The returned path is relative to the
// workspace root and never empty ("." for the root itself).
func WorkspacePath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	if p == "" || p == "/" {
		return ".", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrInvalidPath, p)
	}

	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: traversal in %q", ErrInvalidPath, p)
	}
	// path.Clean collapses interior "..", so any remaining component
	// check is belt only for inputs like "a/../../b" already caught above.
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: traversal in %q", ErrInvalidPath, p)
		}
	}
	return cleaned, nil
}

// AbsWorkspacePath sanitizes p and joins it under the workspace root.
func AbsWorkspacePath(p string) (string, error) {
	rel, err := WorkspacePath(p)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return WorkspaceRoot, nil
	}
	return WorkspaceRoot + "/" + rel, nil
}

// SplitCommand tokenizes a raw command line without invoking a shell.
// Single and double quotes group tokens; no expansion of any kind is
// performed. Shell metacharacters and denylisted command names fail
// with ErrUnsafeCommand.
func SplitCommand(raw string) ([]string, error) {
	if strings.ContainsRune(raw, 0) {
		return nil, fmt.Errorf("%w: contains NUL byte", ErrUnsafeCommand)
	}
	if i := strings.IndexAny(raw, shellMeta); i >= 0 {
		return nil, fmt.Errorf("%w: metacharacter %q", ErrUnsafeCommand, raw[i])
	}

	argv, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnsafeCommand)
	}

	// Denylist matches the bare command name regardless of path prefix.
	name := argv[0]
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if _, denied := deniedCommands[name]; denied {
		return nil, fmt.Errorf("%w: %s is not permitted", ErrUnsafeCommand, name)
	}

	return argv, nil
}

func tokenize(raw string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	inToken := false
	var quote byte

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if inToken {
				argv = append(argv, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrUnsafeCommand)
	}
	if inToken {
		argv = append(argv, cur.String())
	}
	return argv, nil
}
