package model

// Slot and port statuses assigned when discovery materializes them.
const (
	SlotOnline  = "online"
	SlotUnknown = "unknown"

	PortUp      = "up"
	PortDown    = "down"
	PortUnknown = "unknown"
)

// Slot is a line card position within a device, unique per (DeviceID, SlotNumber).
type Slot struct {
	ID         int64  `json:"id"`
	DeviceID   int64  `json:"device_id"`
	SlotNumber int    `json:"slot_number"`
	CardType   string `json:"card_type,omitempty"`
	Status     string `json:"status"`
}

// Port is a PON port within a slot, unique per (SlotID, PortNumber).
// PortNumber is always the decoded port, never the raw protocol index.
type Port struct {
	ID         int64  `json:"id"`
	SlotID     int64  `json:"slot_id"`
	PortNumber int    `json:"port_number"`
	Status     string `json:"status"`

	TotalTerminals   int `json:"total_onus"`
	OnlineTerminals  int `json:"online_onus"`
	OfflineTerminals int `json:"offline_onus"`
}
