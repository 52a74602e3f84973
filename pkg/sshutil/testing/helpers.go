package testing

import (
	"sync"

	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
)

// WithFiles pre-populates the mock filesystem with files.
// Keys are paths, values are file contents.
func WithFiles(client *MockClient, files map[string]string) {
	for path, content := range files {
		_ = client.GetFS().WriteFile(path, []byte(content))
	}
}

// WithDirs pre-populates the mock filesystem with directories.
func WithDirs(client *MockClient, dirs []string) {
	for _, dir := range dirs {
		_ = client.GetFS().MkdirAll(dir)
	}
}

// Dialer hands out a fixed session and remembers how it was asked to connect.
type Dialer struct {
	mu      sync.Mutex
	session sshutil.RemoteSession
	err     error
	dials   []sshutil.ConnectOptions
}

// NewDialer returns a Dialer that always connects to session.
func NewDialer(session sshutil.RemoteSession) *Dialer {
	return &Dialer{session: session}
}

// NewFailingDialer returns a Dialer whose every attempt fails with err.
func NewFailingDialer(err error) *Dialer {
	return &Dialer{err: err}
}

// Dial matches the signature of a connect function.
func (d *Dialer) Dial(opts sshutil.ConnectOptions) (sshutil.RemoteSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, opts)
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

// Dials returns the options of every connection attempt.
func (d *Dialer) Dials() []sshutil.ConnectOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sshutil.ConnectOptions, len(d.dials))
	copy(out, d.dials)
	return out
}

// Count returns the number of connection attempts.
func (d *Dialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}
