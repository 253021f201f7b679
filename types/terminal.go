package types

import (
	"context"
	"fmt"
)

// TerminalAddress identifies one ONU row as advertised by the OLT status table.
type TerminalAddress struct {
	// Slot is the card slot number
	Slot int `json:"slot"`

	// Port is the decoded, human PON port number
	Port int `json:"port"`

	// RawPortIndex is the port index exactly as it appears in the OID
	RawPortIndex int64 `json:"raw_port_index"`

	// TerminalID is the ONU ID within the port
	TerminalID int `json:"onu_id"`

	// Status is the raw status value returned by the walk
	Status string `json:"status"`

	// RawSuffix is the OID suffix observed during the walk ("slot.rawPort.onu")
	RawSuffix string `json:"oid_suffix"`
}

// Suffix returns the addressing tail for targeted queries. The raw suffix
// seen during the walk is always preferred; the reconstruction from decoded
// values is best-effort and does not resolve on every firmware.
func (a TerminalAddress) Suffix() string {
	if a.RawSuffix != "" {
		return a.RawSuffix
	}
	return fmt.Sprintf("%d.%d.%d", a.Slot, a.Port, a.TerminalID)
}

// String implements fmt.Stringer
func (a TerminalAddress) String() string {
	return fmt.Sprintf("%d/%d:%d", a.Slot, a.Port, a.TerminalID)
}

// TerminalScan is the decoded content of one status-table walk.
type TerminalScan struct {
	// Addresses are the rows that decoded cleanly and passed the filter
	Addresses []TerminalAddress

	// DecodeErrors holds one error per row that could not be decoded
	DecodeErrors []error
}

// ScanFilter restricts a scan to one slot and/or one decoded port.
type ScanFilter struct {
	Slot *int `json:"slot,omitempty"`
	Port *int `json:"port,omitempty"`
}

// Match reports whether an address passes the filter.
func (f *ScanFilter) Match(addr TerminalAddress) bool {
	if f == nil {
		return true
	}
	if f.Slot != nil && addr.Slot != *f.Slot {
		return false
	}
	if f.Port != nil && addr.Port != *f.Port {
		return false
	}
	return true
}

// TerminalDetail is the normalized per-ONU attribute set. A nil reading
// means the value was unavailable, which is distinct from a zero reading.
type TerminalDetail struct {
	// Status is the normalized operational status ("online", "offline")
	Status string `json:"status"`

	// Serial is the ONU serial number, empty when it could not be read
	Serial string `json:"serial,omitempty"`

	// RxPower is the receive power in dBm
	RxPower *float64 `json:"rx_power_dbm,omitempty"`

	// TxPower is the transmit power in dBm
	TxPower *float64 `json:"tx_power_dbm,omitempty"`

	// Distance is the fiber distance in meters
	Distance *int `json:"distance_m,omitempty"`
}

// TerminalSource enumerates and describes the ONUs of one device.
type TerminalSource interface {
	// ScanTerminals walks the status table and decodes every row.
	ScanTerminals(ctx context.Context, filter *ScanFilter) (*TerminalScan, error)

	// FetchDetail queries the attributes of one ONU.
	FetchDetail(ctx context.Context, addr TerminalAddress) (*TerminalDetail, error)
}

// AuthorizeRequest identifies a discovered ONU to register on its PON port.
type AuthorizeRequest struct {
	Slot       int
	Port       int
	TerminalID int
	Serial     string

	// ONUType is the vendor ONU profile name (e.g. "ZTE-F601")
	ONUType string
}

// TerminalAuthorizer builds the management CLI commands that register an ONU.
type TerminalAuthorizer interface {
	AuthorizeCommands(req AuthorizeRequest) ([]string, error)
}
