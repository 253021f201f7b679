package model

import "time"

// Terminal operational and authorization statuses.
const (
	TerminalOnline  = "online"
	TerminalOffline = "offline"

	AuthUnauthorized = "unauthorized"
	AuthAuthorized   = "authorized"
)

// SignalReadings are the optical measurements of one observation.
// A nil field means the reading was unavailable.
type SignalReadings struct {
	RxPower  *float64 `json:"rx_power_dbm"`
	TxPower  *float64 `json:"tx_power_dbm"`
	Distance *int     `json:"distance_m"`
}

func (s SignalReadings) clone() SignalReadings {
	var c SignalReadings
	if s.RxPower != nil {
		v := *s.RxPower
		c.RxPower = &v
	}
	if s.TxPower != nil {
		v := *s.TxPower
		c.TxPower = &v
	}
	if s.Distance != nil {
		v := *s.Distance
		c.Distance = &v
	}
	return c
}

// Terminal is an ONU. Serial is its global identity; when the device never
// reports one, Serial holds a synthesized key and Synthetic is set.
type Terminal struct {
	ID       int64  `json:"id"`
	DeviceID int64  `json:"device_id"`
	PortID   int64  `json:"port_id"`
	Serial   string `json:"serial"`

	// Synthetic marks a serial derived from the terminal position
	Synthetic bool `json:"synthetic"`

	// TerminalID is the ONU ID within its port
	TerminalID int `json:"onu_id"`

	Status     string `json:"status"`
	AuthStatus string `json:"auth_status"`

	Signal     SignalReadings `json:"signal"`
	Subscriber Subscriber     `json:"subscriber"`

	LastOnline  *time.Time `json:"last_online,omitempty"`
	LastOffline *time.Time `json:"last_offline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Terminal) Clone() *Terminal {
	if t == nil {
		return nil
	}
	c := *t
	c.Signal = t.Signal.clone()
	if t.Subscriber.VLAN != nil {
		v := *t.Subscriber.VLAN
		c.Subscriber.VLAN = &v
	}
	if t.LastOnline != nil {
		v := *t.LastOnline
		c.LastOnline = &v
	}
	if t.LastOffline != nil {
		v := *t.LastOffline
		c.LastOffline = &v
	}
	return &c
}

// TerminalPatch is a partial update of a terminal. Only non-nil fields are
// applied. Signal replaces all three readings together, including clearing
// a reading to unavailable.
type TerminalPatch struct {
	DeviceID   *int64
	PortID     *int64
	TerminalID *int
	Status     *string
	AuthStatus *string
	Signal     *SignalReadings
	Subscriber *SubscriberPatch

	// ObservedAt stamps LastOnline/LastOffline when Status is supplied
	ObservedAt time.Time
}

// IsEmpty reports whether the patch would change nothing.
func (p TerminalPatch) IsEmpty() bool {
	return p.DeviceID == nil && p.PortID == nil && p.TerminalID == nil &&
		p.Status == nil && p.AuthStatus == nil && p.Signal == nil && p.Subscriber == nil
}

// Apply writes every supplied field onto t.
func (p TerminalPatch) Apply(t *Terminal) {
	if p.DeviceID != nil {
		t.DeviceID = *p.DeviceID
	}
	if p.PortID != nil {
		t.PortID = *p.PortID
	}
	if p.TerminalID != nil {
		t.TerminalID = *p.TerminalID
	}
	if p.Status != nil {
		t.Status = *p.Status
		if !p.ObservedAt.IsZero() {
			at := p.ObservedAt
			switch t.Status {
			case TerminalOnline:
				t.LastOnline = &at
			case TerminalOffline:
				t.LastOffline = &at
			}
		}
	}
	if p.AuthStatus != nil {
		t.AuthStatus = *p.AuthStatus
	}
	if p.Signal != nil {
		t.Signal = p.Signal.clone()
	}
	if p.Subscriber != nil {
		p.Subscriber.Apply(&t.Subscriber)
	}
}
