// Package model contains the persisted inventory entities: devices (OLTs),
// their card slots and PON ports, and the terminals (ONUs) attached to them.
package model

import "time"

// Device reachability status.
const (
	DeviceOnline  = "online"
	DeviceOffline = "offline"
	DeviceUnknown = "unknown"
)

// Device is a polled OLT. Devices are created outside discovery; the
// reconciler only refreshes Status, LastSeen and the system fields.
type Device struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`

	// Vendor selects the terminal source and authorize commands ("zte", "mock")
	Vendor string `json:"vendor"`
	Model  string `json:"model,omitempty"`

	SNMPCommunity string `json:"-"`
	SNMPVersion   string `json:"snmp_version"`
	SNMPPort      int    `json:"snmp_port"`

	CLIUsername string `json:"-"`
	CLIPassword string `json:"-"`
	CLIPort     int    `json:"cli_port,omitempty"`

	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Uptime is the raw sysUpTime value from the last successful run
	Uptime string `json:"uptime,omitempty"`

	// Description is the sysDescr value from the last successful run
	Description string `json:"description,omitempty"`

	// Annotations carries free-form settings (e.g. snmp.timeout, onu.type)
	Annotations map[string]string `json:"annotations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	c := *d
	if d.LastSeen != nil {
		ls := *d.LastSeen
		c.LastSeen = &ls
	}
	if d.Annotations != nil {
		c.Annotations = make(map[string]string, len(d.Annotations))
		for k, v := range d.Annotations {
			c.Annotations[k] = v
		}
	}
	return &c
}

// DeviceStatusUpdate is the reachability outcome written back after a run.
type DeviceStatusUpdate struct {
	Status      string
	LastSeen    *time.Time
	Uptime      *string
	Description *string
}
