package sshutil

import "time"

// RemoteSession is one authenticated connection to a remote host: a shell
// channel for commands and a file-transfer channel for uploads.
// Both the real Client and mock implementations satisfy this interface.
//
// A RemoteSession is used by a single goroutine; callers never run two
// operations on it at the same time.
type RemoteSession interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecTimeout is Exec bounded by timeout. A zero timeout waits forever.
	// When the timeout fires the remote command is killed and an error is returned.
	ExecTimeout(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error)

	// UploadFile streams a local file to remotePath, replacing any existing file.
	// Returns the number of bytes written.
	UploadFile(localPath, remotePath string) (int64, error)

	// UploadContent writes content to remotePath, replacing any existing file.
	UploadContent(content []byte, remotePath string) (int64, error)

	// RemoteSize returns the size in bytes of the file at remotePath.
	RemoteSize(remotePath string) (int64, error)

	// Close releases both channels. Calling it more than once is safe.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}
