package sshutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/errors"
)

// Upload streams r to remotePath over SFTP, creating or truncating the file.
// The remote parent directory must already exist.
func (c *Client) Upload(r io.Reader, remotePath string) (int64, error) {
	target := SFTPPath(remotePath)

	f, err := c.sftp.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't open %s on %s for writing", remotePath, c.Host),
			"Check that the remote directory exists and is writable by the SSH user.")
	}

	n, err := f.ReadFrom(r)
	if err != nil {
		f.Close()
		return n, errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Writing %s on %s failed after %d bytes", remotePath, c.Host, n),
			"The connection may have dropped, or the remote disk is full.")
	}

	if err := f.Close(); err != nil {
		return n, errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't finish writing %s on %s", remotePath, c.Host),
			"The remote disk may be full.")
	}

	return n, nil
}

// UploadFile streams the local file at localPath to remotePath.
func (c *Client) UploadFile(localPath, remotePath string) (int64, error) {
	f, err := c.fs.Open(localPath)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrLocalFile,
			"Couldn't open local file "+localPath,
			"Check the file exists and is readable.")
	}
	defer f.Close()

	return c.Upload(f, remotePath)
}

// UploadContent writes an in-memory buffer to remotePath.
func (c *Client) UploadContent(content []byte, remotePath string) (int64, error) {
	return c.Upload(bytes.NewReader(content), remotePath)
}

// RemoteSize stats remotePath over SFTP.
func (c *Client) RemoteSize(remotePath string) (int64, error) {
	info, err := c.sftp.Stat(SFTPPath(remotePath))
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't stat %s on %s", remotePath, c.Host),
			"")
	}
	return info.Size(), nil
}

// SFTPPath converts a shell-style remote path into one the SFTP server
// understands. SFTP has no tilde expansion, but relative paths resolve
// against the login directory, so "~/x" becomes "x".
func SFTPPath(remotePath string) string {
	switch {
	case remotePath == "~":
		return "."
	case strings.HasPrefix(remotePath, "~/"):
		rest := strings.TrimLeft(remotePath[2:], "/")
		if rest == "" {
			return "."
		}
		return rest
	}
	return remotePath
}
