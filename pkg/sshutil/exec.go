package sshutil

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return c.ExecTimeout(cmd, 0)
}

// ExecTimeout runs a command and kills it if it hasn't finished after timeout.
// A zero or negative timeout waits for the command indefinitely.
func (c *Client) ExecTimeout(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Start(cmd); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to start command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err = <-done:
	case <-expired:
		// Not every sshd honours signals; closing the session unblocks Wait either way.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.New(errors.ErrExec,
			fmt.Sprintf("Command timed out after %s: %s", timeout, cmd),
			"The remote host may be overloaded, or the command is waiting on input.")
	}

	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}
