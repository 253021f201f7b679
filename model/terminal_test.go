package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTerminalPatchApply(t *testing.T) {
	observed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		patch TerminalPatch
		check func(t *testing.T, term *Terminal)
	}{
		{
			name:  "empty patch leaves terminal untouched",
			patch: TerminalPatch{},
			check: func(t *testing.T, term *Terminal) {
				assert.Equal(t, TerminalOffline, term.Status)
				assert.Equal(t, -20.0, *term.Signal.RxPower)
			},
		},
		{
			name:  "relink to another port",
			patch: TerminalPatch{DeviceID: ptr(int64(9)), PortID: ptr(int64(33)), TerminalID: ptr(4)},
			check: func(t *testing.T, term *Terminal) {
				assert.Equal(t, int64(9), term.DeviceID)
				assert.Equal(t, int64(33), term.PortID)
				assert.Equal(t, 4, term.TerminalID)
			},
		},
		{
			name:  "status online stamps last online",
			patch: TerminalPatch{Status: ptr(TerminalOnline), ObservedAt: observed},
			check: func(t *testing.T, term *Terminal) {
				assert.Equal(t, TerminalOnline, term.Status)
				require.NotNil(t, term.LastOnline)
				assert.Equal(t, observed, *term.LastOnline)
				assert.Nil(t, term.LastOffline)
			},
		},
		{
			name:  "signal replaces every reading",
			patch: TerminalPatch{Signal: &SignalReadings{TxPower: ptr(2.3)}},
			check: func(t *testing.T, term *Terminal) {
				assert.Nil(t, term.Signal.RxPower)
				assert.Equal(t, 2.3, *term.Signal.TxPower)
				assert.Nil(t, term.Signal.Distance)
			},
		},
		{
			name: "subscriber fields merge",
			patch: TerminalPatch{Subscriber: &SubscriberPatch{
				Name: ptr("Ana"),
				VLAN: ptr(120),
			}},
			check: func(t *testing.T, term *Terminal) {
				assert.Equal(t, "Ana", term.Subscriber.Name)
				assert.Equal(t, "Main St 1", term.Subscriber.Address)
				assert.Equal(t, 120, *term.Subscriber.VLAN)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := &Terminal{
				Status:     TerminalOffline,
				Signal:     SignalReadings{RxPower: ptr(-20.0), Distance: ptr(800)},
				Subscriber: Subscriber{Address: "Main St 1"},
			}
			tt.patch.Apply(term)
			tt.check(t, term)
		})
	}
}

func TestTerminalPatchIsEmpty(t *testing.T) {
	assert.True(t, TerminalPatch{ObservedAt: time.Now()}.IsEmpty())
	assert.False(t, TerminalPatch{AuthStatus: ptr(AuthAuthorized)}.IsEmpty())
}

func TestTerminalCloneIsDeep(t *testing.T) {
	orig := &Terminal{Signal: SignalReadings{RxPower: ptr(-10.0)}}
	c := orig.Clone()
	*c.Signal.RxPower = 1

	assert.Equal(t, -10.0, *orig.Signal.RxPower)
}
