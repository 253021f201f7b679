package types

import (
	"context"
	"time"
)

// Protocol represents the southbound protocol type
type Protocol string

const (
	ProtocolCLI  Protocol = "cli"
	ProtocolSNMP Protocol = "snmp"
)

// Vendor represents the network equipment vendor
type Vendor string

const (
	VendorZTE  Vendor = "zte"
	VendorMock Vendor = "mock" // For testing/simulation
)

// EquipmentType represents the type of network equipment
type EquipmentType string

const (
	EquipmentTypeOLT EquipmentType = "olt"
	EquipmentTypeONU EquipmentType = "onu"
)

// EquipmentConfig contains connection parameters for one equipment session.
// It is built per call from the persisted device; nothing holds it long-term.
type EquipmentConfig struct {
	// Name is a unique identifier for this equipment
	Name string

	// Type is the equipment type (OLT, ONU)
	Type EquipmentType

	// Vendor is the equipment vendor
	Vendor Vendor

	// Address is the management IP/hostname
	Address string

	// Port is the management port (if not default)
	Port int

	// Protocol is the protocol this session speaks
	Protocol Protocol

	// Username for authentication (CLI, SNMPv3)
	Username string

	// Password for authentication (CLI, SNMPv3)
	Password string

	// Timeout for a single request
	Timeout time.Duration

	// Retries is the number of retransmissions before a request fails
	Retries int

	// Metadata contains protocol-specific configuration
	// (snmp_version, snmp_community)
	Metadata map[string]string
}

// CLIExecutor is implemented by drivers that run commands on a management CLI.
type CLIExecutor interface {
	// ExecCommand executes a CLI command and returns the output
	ExecCommand(ctx context.Context, command string) (string, error)

	// ExecCommands executes multiple CLI commands sequentially
	ExecCommands(ctx context.Context, commands []string) ([]string, error)
}

// WalkFunc receives one row of a table walk. Returning an error stops the walk.
type WalkFunc func(oid, value string) error

// SNMPExecutor is the polling capability the discovery engine needs from a device.
type SNMPExecutor interface {
	// Get retrieves a single value by OID.
	Get(ctx context.Context, oid string) (string, error)

	// Walk streams every (oid, value) below the base OID.
	Walk(ctx context.Context, oid string, fn WalkFunc) error

	// TestReachable reports whether the device answers a sysDescr query.
	TestReachable(ctx context.Context) bool
}
