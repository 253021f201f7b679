package snmp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gosnmp/gosnmp"
	snmpmock "github.com/gosnmp/gosnmp/mocks"
	"github.com/nanoncore/nano-inventory/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultMockExpects(m *snmpmock.MockHandler) {
	m.EXPECT().SetTarget(gomock.Any()).AnyTimes()
	m.EXPECT().SetPort(gomock.Any()).AnyTimes()
	m.EXPECT().SetRetries(gomock.Any()).AnyTimes()
	m.EXPECT().SetTimeout(gomock.Any()).AnyTimes()
	m.EXPECT().SetMaxRepetitions(gomock.Any()).AnyTimes()
	m.EXPECT().SetCommunity(gomock.Any()).AnyTimes()
	m.EXPECT().SetVersion(gomock.Any()).AnyTimes()
	m.EXPECT().SetSecurityModel(gomock.Any()).AnyTimes()
	m.EXPECT().SetMsgFlags(gomock.Any()).AnyTimes()
	m.EXPECT().SetSecurityParameters(gomock.Any()).AnyTimes()
	m.EXPECT().Connect().Return(nil).AnyTimes()
	m.EXPECT().Close().Return(nil).AnyTimes()
}

func newMockClient(t *testing.T, version string, opts ...Option) (*Client, *snmpmock.MockHandler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := snmpmock.NewMockHandler(ctrl)
	defaultMockExpects(m)

	config := &types.EquipmentConfig{
		Address:  "192.0.2.10",
		Username: "inventory",
		Password: "secret-pass",
		Metadata: map[string]string{"snmp_version": version, "snmp_community": "ro"},
	}

	opts = append([]Option{WithHandlerFactory(func() gosnmp.Handler { return m })}, opts...)

	c, err := NewClient(config, opts...)
	require.NoError(t, err)

	return c, m
}

func packet(pdus ...gosnmp.SnmpPDU) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{Variables: pdus}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  *types.EquipmentConfig
		wantErr error
	}{
		{name: "nil config", config: nil, wantErr: errAddressRequired},
		{name: "no address", config: &types.EquipmentConfig{}, wantErr: errAddressRequired},
		{
			name:    "bad version",
			config:  &types.EquipmentConfig{Address: "h", Metadata: map[string]string{"snmp_version": "5"}},
			wantErr: errInvalidVersion,
		},
		{
			name:    "v3 without user",
			config:  &types.EquipmentConfig{Address: "h", Metadata: map[string]string{"snmp_version": "3"}},
			wantErr: errUserRequired,
		},
		{name: "defaults to v2c", config: &types.EquipmentConfig{Address: "h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, gosnmp.Version2c, c.version)
			assert.Equal(t, "public", c.community)
			assert.Equal(t, "h:161", c.Target())
		})
	}
}

func TestClientGet(t *testing.T) {
	tests := []struct {
		name    string
		pkt     *gosnmp.SnmpPacket
		err     error
		want    string
		wantErr error
	}{
		{
			name: "octet string",
			pkt:  packet(gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.OctetString, Value: []byte("ZXA10 C320")}),
			want: "ZXA10 C320",
		},
		{
			name: "negative integer",
			pkt:  packet(gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -2550}),
			want: "-2550",
		},
		{
			name: "gauge",
			pkt:  packet(gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(1234)}),
			want: "1234",
		},
		{
			name:    "no such instance",
			pkt:     packet(gosnmp.SnmpPDU{Type: gosnmp.NoSuchInstance}),
			wantErr: ErrNotFound,
		},
		{
			name:    "empty response",
			pkt:     packet(),
			wantErr: ErrNotFound,
		},
		{
			name:    "v1 no such name",
			pkt:     &gosnmp.SnmpPacket{Error: gosnmp.NoSuchName, Variables: []gosnmp.SnmpPDU{{Type: gosnmp.Null}}},
			wantErr: ErrNotFound,
		},
		{
			name:    "timeout",
			err:     errors.New("request timeout (after 3 retries)"),
			wantErr: ErrUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newMockClient(t, "2c")
			m.EXPECT().Get([]string{OIDSysDescr}).Return(tt.pkt, tt.err)

			got, err := c.Get(context.Background(), OIDSysDescr)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientGetConnectFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := snmpmock.NewMockHandler(ctrl)
	m.EXPECT().SetTarget(gomock.Any()).AnyTimes()
	m.EXPECT().SetPort(gomock.Any()).AnyTimes()
	m.EXPECT().SetRetries(gomock.Any()).AnyTimes()
	m.EXPECT().SetTimeout(gomock.Any()).AnyTimes()
	m.EXPECT().SetMaxRepetitions(gomock.Any()).AnyTimes()
	m.EXPECT().SetCommunity(gomock.Any()).AnyTimes()
	m.EXPECT().SetVersion(gomock.Any()).AnyTimes()
	m.EXPECT().Connect().Return(errors.New("no route to host"))

	c, err := NewClient(&types.EquipmentConfig{Address: "192.0.2.99"},
		WithHandlerFactory(func() gosnmp.Handler { return m }))
	require.NoError(t, err)

	assert.False(t, c.TestReachable(context.Background()))
}

func collect(c *Client, oid string) ([]Variable, error) {
	var vars []Variable
	err := c.Walk(context.Background(), oid, func(name, value string) error {
		vars = append(vars, Variable{OID: name, Value: value})
		return nil
	})
	return vars, err
}

func TestClientWalkUsesBulkForV2c(t *testing.T) {
	c, m := newMockClient(t, "2c")

	base := "1.3.6.1.4.1.3902.1012.3.28.1.1.3"
	m.EXPECT().BulkWalk(base, gomock.Any()).DoAndReturn(func(_ string, fn gosnmp.WalkFunc) error {
		for _, pdu := range []gosnmp.SnmpPDU{
			{Name: "." + base + ".1.65536.1", Type: gosnmp.Integer, Value: 1},
			{Name: "." + base + ".1.65536.2", Type: gosnmp.Integer, Value: 0},
			{Name: "." + base + ".9", Type: gosnmp.EndOfMibView},
		} {
			if err := fn(pdu); err != nil {
				return err
			}
		}
		return nil
	})

	vars, err := collect(c, base)
	require.NoError(t, err)
	assert.Equal(t, []Variable{
		{OID: base + ".1.65536.1", Value: "1"},
		{OID: base + ".1.65536.2", Value: "0"},
	}, vars)
}

func TestClientWalkUsesGetNextForV1(t *testing.T) {
	c, m := newMockClient(t, "1")

	m.EXPECT().Walk("1.3.6.1.2.1.1", gomock.Any()).Return(nil)

	vars, err := collect(c, "1.3.6.1.2.1.1")
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestClientWalkErrors(t *testing.T) {
	t.Run("transport failure is unreachable", func(t *testing.T) {
		c, m := newMockClient(t, "2c")
		m.EXPECT().BulkWalk(gomock.Any(), gomock.Any()).Return(errors.New("request timeout"))

		err := c.Walk(context.Background(), "1.3", func(string, string) error { return nil })
		require.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("callback error is returned unchanged", func(t *testing.T) {
		c, m := newMockClient(t, "2c")
		stop := errors.New("stop")
		m.EXPECT().BulkWalk(gomock.Any(), gomock.Any()).DoAndReturn(func(_ string, fn gosnmp.WalkFunc) error {
			return fn(gosnmp.SnmpPDU{Name: ".1.3.1", Type: gosnmp.Integer, Value: 1})
		})

		err := c.Walk(context.Background(), "1.3", func(string, string) error { return stop })
		require.ErrorIs(t, err, stop)
		assert.NotErrorIs(t, err, ErrUnreachable)
	})

	t.Run("walk deadline surfaces as unreachable", func(t *testing.T) {
		c, m := newMockClient(t, "2c", WithWalkTimeout(10*time.Millisecond))
		m.EXPECT().BulkWalk(gomock.Any(), gomock.Any()).DoAndReturn(func(_ string, fn gosnmp.WalkFunc) error {
			time.Sleep(30 * time.Millisecond)
			return fn(gosnmp.SnmpPDU{Name: ".1.3.1", Type: gosnmp.Integer, Value: 1})
		})

		err := c.Walk(context.Background(), "1.3", func(string, string) error { return nil })
		require.ErrorIs(t, err, ErrUnreachable)
	})
}

func TestClientSystemInfo(t *testing.T) {
	c, m := newMockClient(t, "3")

	m.EXPECT().Get([]string{OIDSysDescr}).Return(
		packet(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("ZXA10 C320 V2.1")}), nil)
	m.EXPECT().Get([]string{OIDSysUpTime}).Return(
		packet(gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: uint32(123456)}), nil)
	m.EXPECT().Get([]string{OIDSysName}).Return(nil, errors.New("request timeout"))

	info, err := c.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ZXA10 C320 V2.1", info.Description)
	assert.Equal(t, "123456", info.UpTime)
	assert.Empty(t, info.Name)
}
