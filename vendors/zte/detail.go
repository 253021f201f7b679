package zte

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/types"
	"github.com/nanoncore/nano-inventory/vendors/common"
)

// MapStatus normalizes an ONU status code: "1" is online, anything else offline.
func MapStatus(code string) string {
	if strings.TrimSpace(code) == statusOnline {
		return model.TerminalOnline
	}
	return model.TerminalOffline
}

// ParseCentiDBm converts a reading in hundredths of dBm to dBm.
// The agent's invalid marker yields (nil, nil).
func ParseCentiDBm(value string) (*float64, error) {
	raw, ok := common.ParseNumericSNMPValue(value)
	if !ok || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, fmt.Errorf("%w: power %q", ErrUnitConversion, value)
	}
	if !validReading(raw) {
		return nil, nil
	}
	dbm := raw / 100
	return &dbm, nil
}

// ParseDistance converts a distance reading to whole meters, flooring fractions.
func ParseDistance(value string) (*int, error) {
	raw, ok := common.ParseNumericSNMPValue(value)
	if !ok || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, fmt.Errorf("%w: distance %q", ErrUnitConversion, value)
	}
	if !validReading(raw) {
		return nil, nil
	}
	meters := int(math.Floor(raw))
	return &meters, nil
}

// validReading reports whether raw is a real measurement. Agents encode
// readings as INTEGER, so anything outside the 32-bit range is unavailable.
func validReading(raw float64) bool {
	if raw < math.MinInt32 || raw > math.MaxInt32 {
		return false
	}
	return common.IsValidSNMPValue(int64(raw))
}

// NormalizeSerial renders a serial number as printable text. ZTE agents may
// return the 8-byte GPON serial raw; the last four bytes are then hex encoded
// ("ZTEG" + "C8A1B2C3").
func NormalizeSerial(value string) string {
	if printable(value) {
		s, _ := common.ParseStringSNMPValue(value)
		return s
	}

	if len(value) == 8 && printable(value[:4]) {
		return value[:4] + strings.ToUpper(fmt.Sprintf("%x", value[4:]))
	}

	return strings.ToUpper(fmt.Sprintf("%x", value))
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// FetchDetail queries status, serial, rx/tx power and distance of one ONU
// using its raw suffix. Missing objects and unparseable readings are reported
// as unavailable; any other query failure returns ErrDetailFetch. When the
// status object is missing, the status seen during the walk is used.
func (a *Adapter) FetchDetail(ctx context.Context, addr types.TerminalAddress) (*types.TerminalDetail, error) {
	detail, err := a.fetchDetail(ctx, addr.Suffix())
	if err != nil {
		return nil, err
	}
	if detail.Status == "" && addr.Status != "" {
		detail.Status = MapStatus(addr.Status)
	}
	return detail, nil
}

// FetchDetailLegacy queries an ONU by decoded (slot, port, onu) values.
// Best-effort only: the agent may not resolve this addressing.
func (a *Adapter) FetchDetailLegacy(ctx context.Context, slot, port, onuID int) (*types.TerminalDetail, error) {
	return a.fetchDetail(ctx, LegacySuffix(slot, port, onuID))
}

func (a *Adapter) fetchDetail(ctx context.Context, suffix string) (*types.TerminalDetail, error) {
	get := func(base string) (string, bool, error) {
		v, err := a.exec.Get(ctx, base+"."+suffix)
		switch {
		case err == nil:
			return v, true, nil
		case errors.Is(err, snmp.ErrNotFound):
			return "", false, nil
		default:
			return "", false, fmt.Errorf("%w: %s.%s: %v", ErrDetailFetch, base, suffix, err)
		}
	}

	detail := &types.TerminalDetail{}

	status, ok, err := get(OIDONUStatus)
	if err != nil {
		return nil, err
	}
	if ok {
		detail.Status = MapStatus(status)
	}

	serial, ok, err := get(OIDONUSerial)
	if err != nil {
		return nil, err
	}
	if ok {
		detail.Serial = NormalizeSerial(serial)
	}

	rx, ok, err := get(OIDONURxPower)
	if err != nil {
		return nil, err
	}
	if ok {
		detail.RxPower, _ = ParseCentiDBm(rx)
	}

	tx, ok, err := get(OIDONUTxPower)
	if err != nil {
		return nil, err
	}
	if ok {
		detail.TxPower, _ = ParseCentiDBm(tx)
	}

	distance, ok, err := get(OIDONUDistance)
	if err != nil {
		return nil, err
	}
	if ok {
		detail.Distance, _ = ParseDistance(distance)
	}

	return detail, nil
}
