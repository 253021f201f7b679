package common

import (
	"fmt"
	"strconv"
	"strings"
)

// SNMPInvalidValue is the marker OLT agents return for a reading they cannot
// take, typically because the ONU is offline.
const SNMPInvalidValue int64 = 2147483647

// IsValidSNMPValue reports whether a raw integer reading is a real measurement.
// Zero is a valid reading.
func IsValidSNMPValue(value int64) bool {
	return value != SNMPInvalidValue && value != -SNMPInvalidValue
}

// NormalizeOID removes a leading dot. gosnmp reports names as ".1.3.6...",
// OID constants carry no dot.
func NormalizeOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}

// TrimOIDPrefix returns the suffix of oid below base, without the joining dot.
func TrimOIDPrefix(oid, base string) (string, bool) {
	oid, base = NormalizeOID(oid), NormalizeOID(base)
	if !strings.HasPrefix(oid, base+".") {
		return "", false
	}
	return oid[len(base)+1:], true
}

// ParseOID splits a dotted OID (or suffix) into numeric components.
func ParseOID(oid string) ([]int64, error) {
	oid = NormalizeOID(oid)
	if oid == "" {
		return nil, fmt.Errorf("empty oid")
	}

	parts := strings.Split(oid, ".")
	out := make([]int64, len(parts))

	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("oid %q component %d: %w", oid, i, err)
		}
		out[i] = v
	}

	return out, nil
}

// CompareOIDs orders OIDs lexicographically by numeric component, the order
// an agent walks them in. Unparseable OIDs fall back to string comparison.
func CompareOIDs(a, b string) int {
	pa, errA := ParseOID(a)
	pb, errB := ParseOID(b)
	if errA != nil || errB != nil {
		return strings.Compare(NormalizeOID(a), NormalizeOID(b))
	}

	for i := 0; i < len(pa) && i < len(pb); i++ {
		switch {
		case pa[i] < pb[i]:
			return -1
		case pa[i] > pb[i]:
			return 1
		}
	}

	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return 0
}

// ParseNumericSNMPValue parses a stringified integer or decimal reading.
func ParseNumericSNMPValue(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseStringSNMPValue cleans an octet-string value: surrounding whitespace,
// NUL padding and quotes are removed. An empty result reports false.
func ParseStringSNMPValue(value string) (string, bool) {
	v := strings.TrimSpace(strings.Trim(value, "\x00"))
	v = strings.Trim(v, `"`)
	if v == "" {
		return "", false
	}
	return v, true
}
