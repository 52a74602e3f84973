package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/logger"
	"github.com/pkg/sftp"
	"github.com/twpayne/go-vfs"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy controls how the server's host key is verified.
type HostKeyPolicy string

const (
	// HostKeyStrict rejects hosts that are not already in known_hosts.
	HostKeyStrict HostKeyPolicy = "strict"
	// HostKeyAcceptNew trusts and records unknown hosts, but rejects changed keys.
	HostKeyAcceptNew HostKeyPolicy = "accept-new"
	// HostKeyInsecure skips verification entirely.
	HostKeyInsecure HostKeyPolicy = "insecure"
)

// ValidHostKeyPolicy reports whether p is one of the known policies.
func ValidHostKeyPolicy(p HostKeyPolicy) bool {
	switch p {
	case HostKeyStrict, HostKeyAcceptNew, HostKeyInsecure:
		return true
	}
	return false
}

// DefaultConnectTimeout bounds the TCP dial and SSH handshake.
const DefaultConnectTimeout = 10 * time.Second

// ConnectOptions describes how to reach and authenticate to one host.
// Exactly one of KeyPath and Password must be set.
type ConnectOptions struct {
	Host     string // hostname, IP, or ~/.ssh/config alias
	Port     int    // 0 means "from ssh config, else 22"
	User     string // empty means "from ssh config, else $USER"
	KeyPath  string
	Password string

	Timeout        time.Duration
	HostKeyPolicy  HostKeyPolicy
	KnownHostsPath string // defaults to ~/.ssh/known_hosts
	SSHConfigPath  string // defaults to ~/.ssh/config

	// FS is used to read local files for UploadFile. Defaults to the host OS.
	FS vfs.FS

	Logger logger.Logger
}

// Client wraps an SSH connection and its SFTP channel.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)

	sftp *sftp.Client
	fs   vfs.FS

	closeOnce sync.Once
	closeErr  error
}

// Connect dials the host, authenticates, verifies the host key and opens the
// file-transfer channel. A single failed attempt is returned as an ErrSSH
// error; nothing is retried.
func Connect(opts ConnectOptions) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	if (opts.KeyPath == "") == (opts.Password == "") {
		return nil, errors.New(errors.ErrAuth,
			"Exactly one of a private key or a password is needed to connect",
			"Pass --key <path> or --password")
	}

	settings := resolveSSHSettings(opts)

	auth, err := authMethods(opts)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := createHostKeyCallback(opts.HostKeyPolicy, opts.KnownHostsPath, log)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't load known_hosts",
			"Check permissions on ~/.ssh/known_hosts, or use --host-key-policy insecure")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	config := &ssh.ClientConfig{
		User:            settings.user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	address := settings.address()
	log.Debug("dialing %s as %s", address, settings.user)

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", opts.Host, address),
			suggestionForDialError(err))
	}

	// The handshake has no deadline of its own.
	_ = conn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", opts.Host),
			suggestionForHandshakeError(err, opts))
	}
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't open an SFTP channel on '%s'", opts.Host),
			"Make sure the SFTP subsystem is enabled in the server's sshd_config")
	}

	fs := opts.FS
	if fs == nil {
		fs = vfs.OSFS
	}

	return &Client{
		Client:  sshClient,
		Host:    opts.Host,
		Address: address,
		sftp:    sftpClient,
		fs:      fs,
	}, nil
}

// Close closes the SFTP channel and then the SSH connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.sftp != nil {
			if err := c.sftp.Close(); err != nil {
				c.closeErr = err
			}
		}
		if c.Client != nil {
			if err := c.Client.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname string
	port     string
	user     string
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings merges ~/.ssh/config values for the host alias with the
// explicit options. Explicit options always win.
func resolveSSHSettings(opts ConnectOptions) *sshSettings {
	settings := &sshSettings{
		hostname: opts.Host,
		port:     "22",
		user:     currentUser(),
	}

	configPath := opts.SSHConfigPath
	if configPath == "" {
		configPath = filepath.Join(homeDir(), ".ssh", "config")
	}

	// The ssh_config library doesn't understand Match blocks, so only the
	// part of the file before the first Match is parsed.
	if content, _, err := preprocessSSHConfig(configPath); err == nil {
		if cfg, err := ssh_config.Decode(bytes.NewReader(content)); err == nil {
			if hostname, _ := cfg.Get(opts.Host, "HostName"); hostname != "" {
				settings.hostname = hostname
			}
			if port, _ := cfg.Get(opts.Host, "Port"); port != "" {
				settings.port = port
			}
			if user, _ := cfg.Get(opts.Host, "User"); user != "" {
				settings.user = user
			}
		}
	}

	if opts.Port > 0 {
		settings.port = strconv.Itoa(opts.Port)
	}
	if opts.User != "" {
		settings.user = opts.User
	}

	return settings
}

// authMethods builds the single auth method selected by the options.
func authMethods(opts ConnectOptions) ([]ssh.AuthMethod, error) {
	if opts.KeyPath != "" {
		keyPath := expandPath(opts.KeyPath)
		auth, err := keyFileAuth(keyPath)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				return nil, errors.New(errors.ErrAuth,
					encErr.Error(),
					"Use an unencrypted deploy key, or decrypt it with: ssh-keygen -p -f "+keyPath)
			}
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrAuth,
					"SSH key not found: "+keyPath,
					"Check the --key path")
			}
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				"Couldn't load SSH key "+keyPath,
				"Supported key types: RSA, Ed25519, ECDSA")
		}
		return []ssh.AuthMethod{auth}, nil
	}

	password := opts.Password
	return []ssh.AuthMethod{
		ssh.Password(password),
		// Some servers only offer keyboard-interactive for password logins.
		ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = password
			}
			return answers, nil
		}),
	}, nil
}

// keyFileAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// createHostKeyCallback builds the host key check for the given policy and
// wraps knownhosts errors with a more helpful mismatch error.
func createHostKeyCallback(policy HostKeyPolicy, knownHostsPath string, log logger.Logger) (ssh.HostKeyCallback, error) {
	if policy == "" {
		policy = HostKeyAcceptNew
	}
	if policy == HostKeyInsecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // User explicitly disabled host key checking
	}

	if knownHostsPath == "" {
		knownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	knownHostsPath = expandPath(knownHostsPath)

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !stderrors.As(err, &keyErr) {
			return err
		}

		if len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}

		if policy != HostKeyAcceptNew {
			return fmt.Errorf("host %s is not in %s: %w", hostname, knownHostsPath, err)
		}

		if err := appendKnownHost(knownHostsPath, hostname, key); err != nil {
			log.Warn("couldn't record host key for %s: %v", hostname, err)
		} else {
			log.Info("added %s key for %s to %s", key.Type(), hostname, knownHostsPath)
		}
		return nil
	}, nil
}

// appendKnownHost records an accepted host key.
func appendKnownHost(knownHostsPath, hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	_, err = f.WriteString(line + "\n")
	return err
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? On Home Assistant OS, install the 'Advanced SSH & Web Terminal' add-on."
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	if strings.Contains(errStr, "no such host") {
		return "The hostname didn't resolve. Try the server's IP address."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, opts ConnectOptions) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if opts.KeyPath != "" {
			return "The server rejected the key. Check it's listed in authorized_keys for that user."
		}
		return "The server rejected the password. Check the user and password."
	}
	if strings.Contains(errStr, "host key") || strings.Contains(errStr, "known_hosts") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the server was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host)
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED")) ||
		bytes.Contains(data, []byte("Proc-Type: 4,ENCRYPTED"))
}
