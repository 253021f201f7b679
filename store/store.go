// Package store defines the inventory persistence contract shared by the
// in-memory and PostgreSQL implementations.
package store

import (
	"context"
	"errors"

	"github.com/nanoncore/nano-inventory/model"
)

var (
	// ErrDeviceNotFound is returned for an unknown device id.
	ErrDeviceNotFound = errors.New("store: device not found")

	// ErrNotFound is returned for an unknown slot, port or terminal.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Store is the inventory. Reads outside a transaction see committed state only.
type Store interface {
	CreateDevice(ctx context.Context, d *model.Device) (*model.Device, error)
	GetDevice(ctx context.Context, id int64) (*model.Device, error)
	ListDevices(ctx context.Context) ([]*model.Device, error)
	UpdateDeviceStatus(ctx context.Context, id int64, upd model.DeviceStatusUpdate) error

	GetSlot(ctx context.Context, id int64) (*model.Slot, error)
	GetPort(ctx context.Context, id int64) (*model.Port, error)
	ListPorts(ctx context.Context, deviceID int64) ([]*model.Port, error)

	GetTerminal(ctx context.Context, id int64) (*model.Terminal, error)
	FindTerminalBySerial(ctx context.Context, serial string) (*model.Terminal, error)
	ListTerminals(ctx context.Context, deviceID int64) ([]*model.Terminal, error)
	PatchTerminal(ctx context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error)
	CountTerminals(ctx context.Context) (int64, error)

	// Begin opens a write transaction. All mutations of one discovery run
	// happen in a single transaction.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is a write transaction. Rollback after Commit is a no-op.
type Tx interface {
	// EnsureSlot returns the slot (deviceID, slotNumber), creating it with
	// status when absent. created reports whether this call created it.
	EnsureSlot(ctx context.Context, deviceID int64, slotNumber int, status string) (slot *model.Slot, created bool, err error)

	// EnsurePort returns the port (slotID, portNumber), creating it with
	// status when absent.
	EnsurePort(ctx context.Context, slotID int64, portNumber int, status string) (port *model.Port, created bool, err error)

	FindTerminalBySerial(ctx context.Context, serial string) (*model.Terminal, error)
	CreateTerminal(ctx context.Context, t *model.Terminal) (*model.Terminal, error)
	PatchTerminal(ctx context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error)

	// RefreshPortCounters recomputes the terminal counters of the given ports.
	RefreshPortCounters(ctx context.Context, portIDs []int64) error

	// Savepoint runs fn so that a failure undoes only fn's writes.
	Savepoint(ctx context.Context, fn func() error) error

	Commit() error
	Rollback() error
}
