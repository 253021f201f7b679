package discovery

import (
	"fmt"
	"strings"

	"github.com/nanoncore/nano-inventory/types"
)

const syntheticKeyPrefix = "NOSN"

// SyntheticKey is the identity used for a terminal whose serial cannot be
// read. It depends only on the device and the terminal position, so repeated
// runs converge on the same record.
func SyntheticKey(deviceID int64, addr types.TerminalAddress) string {
	return fmt.Sprintf("%s-%d-%d-%d-%d", syntheticKeyPrefix, deviceID, addr.Slot, addr.Port, addr.TerminalID)
}

// terminalKey returns the upsert key for an observed terminal and whether it
// was synthesized.
func terminalKey(deviceID int64, addr types.TerminalAddress, detail *types.TerminalDetail) (string, bool) {
	if detail != nil {
		if serial := strings.TrimSpace(detail.Serial); serial != "" {
			return serial, false
		}
	}
	return SyntheticKey(deviceID, addr), true
}
