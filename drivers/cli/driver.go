// Package cli drives an OLT management CLI over SSH with an expect session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nanoncore/nano-inventory/types"
)

const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second

	// MetadataEnablePassword is the EquipmentConfig metadata key of the
	// privileged mode password.
	MetadataEnablePassword = "enable_password"
)

var (
	ErrNotConnected = errors.New("cli: not connected to device")

	errConfigRequired  = errors.New("cli: config is required")
	errAddressRequired = errors.New("cli: address is required")
)

// DialFunc opens the transport connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Option configures a Driver.
type Option func(*Driver)

// WithDialer replaces the TCP dialer.
func WithDialer(dial DialFunc) Option {
	return func(d *Driver) {
		if dial != nil {
			d.dial = dial
		}
	}
}

// Driver is an SSH CLI session to one device.
// It implements types.CLIExecutor.
type Driver struct {
	config *types.EquipmentConfig
	dial   DialFunc

	mu            sync.Mutex
	sshClient     *ssh.Client
	expectSession *ExpectSession
}

// NewDriver creates a new CLI driver. The config is copied; Port and Timeout
// default to 22 and 30s.
func NewDriver(config *types.EquipmentConfig, opts ...Option) (*Driver, error) {
	if config == nil {
		return nil, errConfigRequired
	}
	if config.Address == "" {
		return nil, errAddressRequired
	}

	c := *config
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	d := &Driver{config: &c}
	d.dial = (&net.Dialer{Timeout: c.Timeout}).DialContext
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Target returns host:port.
func (d *Driver) Target() string {
	return net.JoinHostPort(d.config.Address, strconv.Itoa(d.config.Port))
}

// Connect establishes the SSH connection and opens the interactive shell.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sshClient != nil {
		return nil
	}

	// Some OLTs only offer keyboard-interactive authentication
	keyboardInteractive := ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = d.config.Password
		}
		return answers, nil
	})

	sshConfig := &ssh.ClientConfig{
		User: d.config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.config.Password),
			keyboardInteractive,
		},
		Timeout:         d.config.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // OLT host keys are not provisioned
	}

	target := d.Target()

	conn, err := d.dial(ctx, "tcp", target)
	if err != nil {
		return fmt.Errorf("failed to dial SSH: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, sshConfig)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("ssh handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := NewExpectSession(ExpectSessionConfig{
		SSHClient:      client,
		Vendor:         string(d.config.Vendor),
		Timeout:        d.config.Timeout,
		DisablePager:   true,
		EnablePassword: d.config.Metadata[MetadataEnablePassword],
	})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to create expect session: %w", err)
	}

	d.sshClient = client
	d.expectSession = session
	return nil
}

// Disconnect closes the shell and the SSH connection.
func (d *Driver) Disconnect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.expectSession != nil {
		_ = d.expectSession.Close()
		d.expectSession = nil
	}
	if d.sshClient != nil {
		err := d.sshClient.Close()
		d.sshClient = nil
		return err
	}
	return nil
}

// IsConnected returns true if connected
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expectSession != nil
}

func (d *Driver) execCommand(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.expectSession == nil {
		return "", ErrNotConnected
	}

	output, err := d.expectSession.Execute(command)
	if err != nil {
		return output, fmt.Errorf("command failed: %w", err)
	}
	return output, nil
}

// ExecCommand implements types.CLIExecutor - executes a single CLI command
func (d *Driver) ExecCommand(ctx context.Context, command string) (string, error) {
	return d.execCommand(ctx, command)
}

// ExecCommands implements types.CLIExecutor - executes multiple CLI commands sequentially
func (d *Driver) ExecCommands(ctx context.Context, commands []string) ([]string, error) {
	results := make([]string, 0, len(commands))
	for _, cmd := range commands {
		output, err := d.execCommand(ctx, cmd)
		if err != nil {
			return results, fmt.Errorf("command %q failed: %w", cmd, err)
		}
		results = append(results, output)
	}
	return results, nil
}

// Ensure Driver implements CLIExecutor
var _ types.CLIExecutor = (*Driver)(nil)
