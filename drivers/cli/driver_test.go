package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-inventory/types"
)

func TestNewDriver(t *testing.T) {
	tests := []struct {
		name        string
		config      *types.EquipmentConfig
		wantErr     error
		wantPort    int
		wantTimeout time.Duration
	}{
		{
			name:    "nil config",
			wantErr: errConfigRequired,
		},
		{
			name:    "missing address",
			config:  &types.EquipmentConfig{Vendor: types.VendorZTE},
			wantErr: errAddressRequired,
		},
		{
			name:        "defaults",
			config:      &types.EquipmentConfig{Address: "10.0.0.1", Vendor: types.VendorZTE},
			wantPort:    DefaultPort,
			wantTimeout: DefaultTimeout,
		},
		{
			name:        "explicit port and timeout",
			config:      &types.EquipmentConfig{Address: "10.0.0.1", Port: 2222, Timeout: 5 * time.Second},
			wantPort:    2222,
			wantTimeout: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDriver(tt.config)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewDriver() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			if d.config.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", d.config.Port, tt.wantPort)
			}
			if d.config.Timeout != tt.wantTimeout {
				t.Errorf("Timeout = %v, want %v", d.config.Timeout, tt.wantTimeout)
			}
		})
	}
}

func TestNewDriverCopiesConfig(t *testing.T) {
	cfg := &types.EquipmentConfig{Address: "10.0.0.1"}
	_, err := NewDriver(cfg)
	require.NoError(t, err)
	assert.Zero(t, cfg.Port)
}

func TestTarget(t *testing.T) {
	d, err := NewDriver(&types.EquipmentConfig{Address: "fe80::1", Port: 2222})
	require.NoError(t, err)
	assert.Equal(t, "[fe80::1]:2222", d.Target())
}

func TestExecCommandNotConnected(t *testing.T) {
	d, err := NewDriver(&types.EquipmentConfig{Address: "10.0.0.1"})
	require.NoError(t, err)

	assert.False(t, d.IsConnected())

	_, err = d.ExecCommand(context.Background(), "show version")
	assert.ErrorIs(t, err, ErrNotConnected)

	out, err := d.ExecCommands(context.Background(), []string{"configure terminal", "end"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, out)
}

func TestExecCommandCanceled(t *testing.T) {
	d, err := NewDriver(&types.EquipmentConfig{Address: "10.0.0.1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.ExecCommand(ctx, "show version")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecCommandsThroughSession(t *testing.T) {
	dev := newFakeDevice(true)
	dev.responses["show clock"] = "10:00:00 UTC Mon Oct 19 2026"

	session, err := newExpectSession(dev, ExpectSessionConfig{Vendor: "zte"})
	require.NoError(t, err)

	d, err := NewDriver(&types.EquipmentConfig{Address: "10.0.0.1", Vendor: types.VendorZTE})
	require.NoError(t, err)
	d.expectSession = session

	assert.True(t, d.IsConnected())

	out, err := d.ExecCommands(context.Background(), []string{"configure terminal", "show clock"})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "10:00:00 UTC Mon Oct 19 2026"}, out)

	require.NoError(t, d.Disconnect(context.Background()))
	assert.False(t, d.IsConnected())
	assert.True(t, dev.closed)
}

func TestConnectDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	d, err := NewDriver(&types.EquipmentConfig{Address: "10.0.0.1"},
		WithDialer(func(context.Context, string, string) (net.Conn, error) {
			return nil, dialErr
		}))
	require.NoError(t, err)

	err = d.Connect(context.Background())
	assert.ErrorIs(t, err, dialErr)
	assert.False(t, d.IsConnected())
}

func TestConnectHandshakeFailure(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	// a peer that is not an SSH server
	go func() { _, _ = io.Copy(io.Discard, server) }()
	go func() {
		_, _ = server.Write([]byte("garbage\r\n"))
		_ = server.Close()
	}()

	d, err := NewDriver(&types.EquipmentConfig{Address: "10.0.0.1", Timeout: time.Second},
		WithDialer(func(context.Context, string, string) (net.Conn, error) {
			return client, nil
		}))
	require.NoError(t, err)

	err = d.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh handshake")
	assert.False(t, d.IsConnected())
}
