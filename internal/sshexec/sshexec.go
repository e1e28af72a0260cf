// Package sshexec runs pre-flight commands on a remote host over SSH.
// It is deliberately small: the Docker daemon itself is reached through the
// client's own ssh:// transport, this helper only verifies the environment
// (for example that Docker is installed) before a remote deploy starts.
package sshexec

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const dialTimeout = 10 * time.Second

// Client wraps a single SSH connection to one host.
type Client struct {
	conn *ssh.Client
}

// Options configures authentication for Connect. KeyPath takes precedence
// over Password when both are set.
type Options struct {
	User     string
	KeyPath  string
	Password string
}

// Connect opens an SSH connection to host (host or host:port).
func Connect(host string, opts Options) (*Client, error) {
	if !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, "22")
	}

	var auth []ssh.AuthMethod
	switch {
	case opts.KeyPath != "":
		path := expandHome(opts.KeyPath)
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case opts.Password != "":
		auth = append(auth, ssh.Password(opts.Password))
	default:
		return nil, fmt.Errorf("no SSH authentication configured for %s", host)
	}

	conn, err := ssh.Dial("tcp", host, &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	return &Client{conn: conn}, nil
}

// Run executes a command and returns its exit code and combined output.
func (c *Client) Run(command string) (int, string, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return -1, "", fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), out.String(), nil
		}
		return -1, out.String(), fmt.Errorf("failed to run %q: %w", command, err)
	}
	return 0, out.String(), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
