package testing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	hderrors "github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
	"github.com/twpayne/go-vfs"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Hang makes the command never finish, so ExecTimeout reports a timeout.
	Hang bool
}

// Call is one recorded operation on the mock, in the order it happened.
type Call struct {
	Op      string // "exec", "upload", "stat" or "close"
	Target  string // the command or remote path
	Timeout time.Duration
}

// MockClient simulates a remote session for testing.
// It parses the shell commands hadeploy issues and executes them against a
// virtual filesystem; uploads land in the same filesystem.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	fs       *MockFS
	localFS  vfs.FS
	closed   bool
	closes   int
	commands map[string]CommandResponse // pattern -> response
	order    []string                   // registration order, so patterns match predictably

	uploadErrors map[string]error
	sizes        map[string]int64
	calls        []Call
}

var _ sshutil.RemoteSession = (*MockClient)(nil)

// NewMockClient creates a new mock client with an empty remote filesystem.
// Local files for UploadFile are read from the host OS unless SetLocalFS is used.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:         host,
		address:      host + ":22",
		fs:           NewMockFS(),
		localFS:      vfs.OSFS,
		commands:     make(map[string]CommandResponse),
		uploadErrors: make(map[string]error),
		sizes:        make(map[string]int64),
	}
}

// Exec runs a command against the virtual filesystem.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return m.ExecTimeout(cmd, 0)
}

// ExecTimeout runs a command like Exec. Commands registered with Hang report a
// timeout when timeout is positive.
func (m *MockClient) ExecTimeout(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "exec", Target: cmd, Timeout: timeout})

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}

	if resp, ok := m.lookup(cmd); ok {
		if resp.Hang {
			if timeout > 0 {
				return nil, nil, -1, hderrors.New(hderrors.ErrExec,
					fmt.Sprintf("Command timed out after %s: %s", timeout, cmd), "")
			}
			return nil, nil, -1, errors.New("mock command hangs with no timeout")
		}
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	return m.parseAndExecute(cmd)
}

// lookup finds an exact match first, then the first regex match in
// registration order.
func (m *MockClient) lookup(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for _, pattern := range m.order {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return m.commands[pattern], true
		}
	}
	return CommandResponse{}, false
}

// UploadFile reads localPath from the local FS and stores it at remotePath.
func (m *MockClient) UploadFile(localPath, remotePath string) (int64, error) {
	m.mu.Lock()
	localFS := m.localFS
	m.mu.Unlock()

	f, err := localFS.Open(localPath)
	if err != nil {
		m.record(Call{Op: "upload", Target: remotePath})
		return 0, hderrors.WrapWithCode(err, hderrors.ErrLocalFile, "Couldn't open local file "+localPath, "")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		m.record(Call{Op: "upload", Target: remotePath})
		return 0, hderrors.WrapWithCode(err, hderrors.ErrLocalFile, "Couldn't read local file "+localPath, "")
	}
	return m.UploadContent(content, remotePath)
}

// UploadContent stores content at remotePath. The parent directory must exist.
func (m *MockClient) UploadContent(content []byte, remotePath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "upload", Target: remotePath})

	if m.closed {
		return 0, errors.New("connection closed")
	}
	if err, ok := m.uploadErrors[remotePath]; ok {
		return 0, hderrors.WrapWithCode(err, hderrors.ErrTransfer,
			fmt.Sprintf("Couldn't open %s on %s for writing", remotePath, m.host), "")
	}

	dir := path.Dir(path.Clean(remotePath))
	if dir != "." && dir != "/" && !m.fs.IsDir(dir) {
		return 0, hderrors.WrapWithCode(os.ErrNotExist, hderrors.ErrTransfer,
			fmt.Sprintf("Couldn't open %s on %s for writing", remotePath, m.host), "")
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	if err := m.fs.WriteFile(remotePath, stored); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

// RemoteSize returns the stored size of remotePath, or the override set with SetRemoteSize.
func (m *MockClient) RemoteSize(remotePath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "stat", Target: remotePath})

	if m.closed {
		return 0, errors.New("connection closed")
	}
	if size, ok := m.sizes[remotePath]; ok {
		return size, nil
	}
	content, err := m.fs.ReadFile(remotePath)
	if err != nil {
		return 0, hderrors.WrapWithCode(err, hderrors.ErrTransfer, "Couldn't stat "+remotePath, "")
	}
	return int64(len(content)), nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "close"})
	m.closed = true
	m.closes++
	return nil
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[pattern]; !exists {
		m.order = append(m.order, pattern)
	}
	m.commands[pattern] = resp
}

// SetUploadError makes every upload to remotePath fail with err.
func (m *MockClient) SetUploadError(remotePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrors[remotePath] = err
}

// SetRemoteSize makes RemoteSize report size for remotePath regardless of content.
func (m *MockClient) SetRemoteSize(remotePath string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[remotePath] = size
}

// SetLocalFS sets the filesystem UploadFile reads from.
func (m *MockClient) SetLocalFS(fs vfs.FS) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localFS = fs
}

// GetFS returns the mock filesystem for direct manipulation in tests.
func (m *MockClient) GetFS() *MockFS {
	return m.fs
}

// Calls returns a copy of every recorded operation.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Commands returns the executed commands in order.
func (m *MockClient) Commands() []string {
	var cmds []string
	for _, c := range m.Calls() {
		if c.Op == "exec" {
			cmds = append(cmds, c.Target)
		}
	}
	return cmds
}

// Uploads returns the remote paths written, in order.
func (m *MockClient) Uploads() []string {
	var paths []string
	for _, c := range m.Calls() {
		if c.Op == "upload" {
			paths = append(paths, c.Target)
		}
	}
	return paths
}

// CloseCount returns how many times Close was called.
func (m *MockClient) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// IsClosed reports whether Close has been called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// parseAndExecute handles the shell commands used by hadeploy, including a
// single "if A; then B; else C; fi" conditional.
func (m *MockClient) parseAndExecute(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	cond, then, els, ok := splitConditional(cmd)
	if !ok {
		return m.executeOne(cmd)
	}

	if _, _, code, _ := m.executeOne(cond); code == 0 {
		return m.executeOne(then)
	}
	if els == "" {
		return nil, nil, 0, nil
	}
	return m.executeOne(els)
}

// splitConditional takes "if A; then B; else C; fi" apart. The else branch
// is optional.
func splitConditional(cmd string) (cond, then, els string, ok bool) {
	if !strings.HasPrefix(cmd, "if ") || !strings.HasSuffix(cmd, "; fi") {
		return "", "", "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(cmd, "if "), "; fi")

	cond, rest, found := strings.Cut(body, "; then ")
	if !found {
		return "", "", "", false
	}
	then, els, _ = strings.Cut(rest, "; else ")
	return strings.TrimSpace(cond), strings.TrimSpace(then), strings.TrimSpace(els), true
}

// executeOne runs a single command. A response registered with
// SetCommandResponse also applies to the branches of a conditional.
func (m *MockClient) executeOne(cmd string) ([]byte, []byte, int, error) {
	// Strip common redirects
	cmd = strings.TrimSuffix(cmd, " 2>/dev/null")
	cmd = strings.TrimSuffix(cmd, " 2>&1")
	cmd = strings.TrimSpace(cmd)

	if resp, ok := m.lookup(cmd); ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	switch {
	case strings.HasPrefix(cmd, "cp "):
		return m.handleCp(cmd)
	case strings.HasPrefix(cmd, "test -f "), strings.HasPrefix(cmd, "[ -f "):
		return m.handleTestFile(cmd)
	case strings.HasPrefix(cmd, "echo "):
		return []byte(extractPath(strings.TrimPrefix(cmd, "echo ")) + "\n"), nil, 0, nil
	}

	// Unknown command - return success by default
	return nil, nil, 0, nil
}

// handleCp processes: cp 'src' 'dst'
func (m *MockClient) handleCp(cmd string) ([]byte, []byte, int, error) {
	args := splitArgs(strings.TrimPrefix(cmd, "cp "))
	if len(args) != 2 {
		return nil, []byte("cp: missing destination file operand"), 1, nil
	}

	content, err := m.fs.ReadFile(args[0])
	if err != nil {
		return nil, []byte(fmt.Sprintf("cp: cannot stat '%s': No such file or directory", args[0])), 1, nil
	}
	_ = m.fs.WriteFile(args[1], append([]byte(nil), content...))
	return nil, nil, 0, nil
}

// handleTestFile processes: test -f "path" or [ -f "path" ]
func (m *MockClient) handleTestFile(cmd string) ([]byte, []byte, int, error) {
	var p string
	if strings.HasPrefix(cmd, "test -f ") {
		p = extractPath(strings.TrimPrefix(cmd, "test -f "))
	} else {
		p = extractPath(strings.TrimPrefix(strings.TrimSuffix(cmd, " ]"), "[ -f "))
	}

	if m.fs.IsFile(p) {
		return nil, nil, 0, nil
	}
	return nil, nil, 1, nil
}

// splitArgs splits a command line into arguments, honouring single and
// double quotes.
func splitArgs(s string) []string {
	var args []string
	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		arg := extractPath(s)
		consumed := len(arg)
		if s[0] == '"' || s[0] == '\'' {
			consumed += 2
		}
		if consumed > len(s) {
			consumed = len(s)
		}
		args = append(args, arg)
		s = s[consumed:]
	}
	return args
}

// extractPath extracts a path from a command argument.
// Handles both quoted and unquoted paths.
func extractPath(arg string) string {
	arg = strings.TrimSpace(arg)

	if strings.HasPrefix(arg, "\"") {
		endQuote := strings.Index(arg[1:], "\"")
		if endQuote != -1 {
			return arg[1 : endQuote+1]
		}
	}
	if strings.HasPrefix(arg, "'") {
		endQuote := strings.Index(arg[1:], "'")
		if endQuote != -1 {
			return arg[1 : endQuote+1]
		}
	}

	// Unquoted path - take first space-separated token
	parts := strings.Fields(arg)
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}
