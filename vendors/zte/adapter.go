// Package zte implements terminal discovery and authorization for ZTE
// ZXA10 C300/C320 OLTs.
package zte

import (
	"context"
	"fmt"

	"github.com/nanoncore/nano-inventory/types"
)

// Adapter reads ONU tables from a ZTE OLT.
// It implements types.TerminalSource.
type Adapter struct {
	exec types.SNMPExecutor
}

// NewAdapter wraps an SNMP executor.
func NewAdapter(exec types.SNMPExecutor) *Adapter {
	return &Adapter{exec: exec}
}

// ScanTerminals walks the ONU status table. Rows that fail to decode are
// collected in DecodeErrors; the filter is applied to decoded values.
func (a *Adapter) ScanTerminals(ctx context.Context, filter *types.ScanFilter) (*types.TerminalScan, error) {
	scan := &types.TerminalScan{}

	err := a.exec.Walk(ctx, OIDONUStatus, func(oid, value string) error {
		addr, err := DecodeStatusRow(oid, value)
		if err != nil {
			scan.DecodeErrors = append(scan.DecodeErrors, err)
			return nil
		}
		if filter.Match(addr) {
			scan.Addresses = append(scan.Addresses, addr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk onu status: %w", err)
	}

	return scan, nil
}

var _ types.TerminalSource = (*Adapter)(nil)
