package zte

import (
	"fmt"
	"strconv"

	"github.com/nanoncore/nano-inventory/types"
	"github.com/nanoncore/nano-inventory/vendors/common"
)

// DecodePortIndex extracts the human PON port number from the raw port index.
// The raw index must never be used as a port number.
func DecodePortIndex(raw int64) int {
	return int((raw >> 16) & 0xFF)
}

// EncodePortIndex is the inverse of DecodePortIndex for the port bits only.
// Other bits the agent may set are not reconstructed.
func EncodePortIndex(port int) int64 {
	return int64(port&0xFF) << 16
}

// DecodeStatusRow decodes one row of the ONU status walk. The OID must be
// OIDONUStatus followed by exactly (slot, rawPortIndex, onuID). A bare
// three-component suffix is accepted as well.
func DecodeStatusRow(oid, value string) (types.TerminalAddress, error) {
	suffix, ok := common.TrimOIDPrefix(oid, OIDONUStatus)
	if !ok {
		suffix = oid
	}

	parts, err := common.ParseOID(suffix)
	if err != nil {
		return types.TerminalAddress{}, fmt.Errorf("%w: %v", ErrTupleDecode, err)
	}

	if len(parts) != 3 {
		return types.TerminalAddress{}, fmt.Errorf("%w: %q has %d index components, want 3", ErrTupleDecode, oid, len(parts))
	}

	slot, rawPort, onuID := parts[0], parts[1], parts[2]

	if slot < 0 || rawPort < 0 || onuID < 0 {
		return types.TerminalAddress{}, fmt.Errorf("%w: negative index in %q", ErrTupleDecode, oid)
	}

	return types.TerminalAddress{
		Slot:         int(slot),
		Port:         DecodePortIndex(rawPort),
		RawPortIndex: rawPort,
		TerminalID:   int(onuID),
		Status:       value,
		RawSuffix:    rawSuffix(slot, rawPort, onuID),
	}, nil
}

func rawSuffix(slot, rawPort, onuID int64) string {
	return strconv.FormatInt(slot, 10) + "." + strconv.FormatInt(rawPort, 10) + "." + strconv.FormatInt(onuID, 10)
}

// LegacySuffix builds "slot.port.onu" from decoded values. Some firmware does
// not resolve it; prefer the raw suffix observed during the walk.
func LegacySuffix(slot, port, onuID int) string {
	return fmt.Sprintf("%d.%d.%d", slot, port, onuID)
}

// RawSuffix builds the suffix the agent indexes by, re-encoding the port.
func RawSuffix(slot, port, onuID int) string {
	return rawSuffix(int64(slot), EncodePortIndex(port), int64(onuID))
}
