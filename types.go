// Package inventory wires vendor adapters and protocol drivers to persisted
// devices. The shared contracts live in the types sub-package and are
// re-exported here for callers.
package inventory

import (
	"github.com/nanoncore/nano-inventory/types"
)

type (
	Protocol           = types.Protocol
	Vendor             = types.Vendor
	EquipmentType      = types.EquipmentType
	EquipmentConfig    = types.EquipmentConfig
	CLIExecutor        = types.CLIExecutor
	SNMPExecutor       = types.SNMPExecutor
	TerminalAddress    = types.TerminalAddress
	TerminalScan       = types.TerminalScan
	TerminalDetail     = types.TerminalDetail
	ScanFilter         = types.ScanFilter
	TerminalSource     = types.TerminalSource
	AuthorizeRequest   = types.AuthorizeRequest
	TerminalAuthorizer = types.TerminalAuthorizer
)

const (
	ProtocolCLI  = types.ProtocolCLI
	ProtocolSNMP = types.ProtocolSNMP

	VendorZTE  = types.VendorZTE
	VendorMock = types.VendorMock

	EquipmentTypeOLT = types.EquipmentTypeOLT
	EquipmentTypeONU = types.EquipmentTypeONU
)
