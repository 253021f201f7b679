package zte

import "errors"

var (
	// ErrTupleDecode is returned for a status row whose index cannot be decoded.
	ErrTupleDecode = errors.New("zte: cannot decode terminal index")

	// ErrDetailFetch is returned when a detail query fails for a reason other
	// than a missing object.
	ErrDetailFetch = errors.New("zte: detail fetch failed")

	// ErrUnitConversion is returned by the unit parsers. FetchDetail never
	// surfaces it; a failed conversion yields an unavailable reading.
	ErrUnitConversion = errors.New("zte: unit conversion failed")

	errMissingSerial = errors.New("zte: serial number required")
	errBadSerial     = errors.New("zte: serial must be alphanumeric")
	errBadONUType    = errors.New("zte: invalid onu type")
)
