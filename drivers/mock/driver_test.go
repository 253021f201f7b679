package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverGet(t *testing.T) {
	ctx := context.Background()
	d := NewDriver()
	d.Set(".1.3.6.1.4.1.3902.1", "value")

	got, err := d.Get(ctx, "1.3.6.1.4.1.3902.1")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = d.Get(ctx, "1.3.6.1.4.1.3902.2")
	require.ErrorIs(t, err, snmp.ErrNotFound)

	boom := errors.New("boom")
	d.Fail("1.3.6.1.4.1.3902.1", boom)
	_, err = d.Get(ctx, "1.3.6.1.4.1.3902.1")
	require.ErrorIs(t, err, boom)

	d.Fail("1.3.6.1.4.1.3902.1", nil)
	_, err = d.Get(ctx, "1.3.6.1.4.1.3902.1")
	require.NoError(t, err)

	assert.Equal(t, 4, d.GetCount())
}

func TestDriverWalkOrder(t *testing.T) {
	d := NewDriver()
	d.Set("1.3.6.1.9.1.10", "c")
	d.Set("1.3.6.1.9.1.2", "b")
	d.Set("1.3.6.1.9.1.1", "a")
	d.Set("1.3.6.1.90.1", "other branch")

	var got []string
	err := d.Walk(context.Background(), "1.3.6.1.9", func(oid, value string) error {
		got = append(got, value)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDriverUnreachable(t *testing.T) {
	ctx := context.Background()
	d := NewDriver()
	assert.True(t, d.TestReachable(ctx))

	d.SetUnreachable(true)
	assert.False(t, d.TestReachable(ctx))

	err := d.Walk(ctx, "1.3", func(string, string) error { return nil })
	require.ErrorIs(t, err, snmp.ErrUnreachable)
	require.Error(t, d.Connect(ctx))
}

func TestDriverCLI(t *testing.T) {
	ctx := context.Background()
	d := NewDriver()

	_, err := d.ExecCommand(ctx, "show version")
	require.Error(t, err)

	require.NoError(t, d.Connect(ctx))
	d.Respond("show version", "ZXA10 C320")

	out, err := d.ExecCommands(ctx, []string{"show version", "exit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ZXA10 C320", ""}, out)

	require.NoError(t, d.Disconnect(ctx))
	assert.False(t, d.IsConnected())
	assert.Equal(t, []string{"connect", "show version", "exit", "disconnect"}, d.CommandHistory())
}
