package zte

import (
	"errors"
	"testing"

	"github.com/nanoncore/nano-inventory/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeCommands(t *testing.T) {
	a := NewAuthorizer()

	cmds, err := a.AuthorizeCommands(types.AuthorizeRequest{Slot: 1, Port: 2, TerminalID: 3, Serial: "ZTEG0001"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"configure terminal",
		"interface gpon-olt_1/1/2",
		"onu 3 type ZTE-F601 sn ZTEG0001",
		"exit",
		"end",
	}, cmds)

	cmds, err = a.AuthorizeCommands(types.AuthorizeRequest{Slot: 1, Port: 2, TerminalID: 3, Serial: "ZTEG0001", ONUType: "ZTE-F660"})
	require.NoError(t, err)
	assert.Equal(t, "onu 3 type ZTE-F660 sn ZTEG0001", cmds[2])
}

func TestAuthorizeCommandsRejects(t *testing.T) {
	tests := []struct {
		name    string
		req     types.AuthorizeRequest
		wantErr error
	}{
		{name: "missing serial", req: types.AuthorizeRequest{Slot: 1, Port: 1, TerminalID: 1}, wantErr: errMissingSerial},
		{name: "newline in serial", req: types.AuthorizeRequest{Serial: "ZTEG0001\nreload"}, wantErr: errBadSerial},
		{name: "carriage return in serial", req: types.AuthorizeRequest{Serial: "ZTEG0001\r"}, wantErr: errBadSerial},
		{name: "tab in serial", req: types.AuthorizeRequest{Serial: "ZTEG\t0001"}, wantErr: errBadSerial},
		{name: "space in serial", req: types.AuthorizeRequest{Serial: "ZTEG 0001"}, wantErr: errBadSerial},
		{name: "newline in onu type", req: types.AuthorizeRequest{Serial: "X", ONUType: "F601\nreload"}, wantErr: errBadONUType},
	}

	a := NewAuthorizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.AuthorizeCommands(tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("AuthorizeCommands() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
