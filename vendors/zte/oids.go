package zte

// ZTE ZXA10 C300/C320 GPON MIB OIDs
// Index of every ONU table: <slot>.<rawPortIndex>.<onuID>
// rawPortIndex carries the PON port in bits 16-23 (see DecodePortIndex).

const (
	// Enterprise OID prefix for ZTE
	OIDZTEEnterprise = "1.3.6.1.4.1.3902"

	// ONU operational status (1 = online / working)
	OIDONUStatus = "1.3.6.1.4.1.3902.1012.3.28.1.1.3"

	// ONU serial number (octet string, 4 vendor letters + 4 bytes)
	OIDONUSerial = "1.3.6.1.4.1.3902.1012.3.28.1.1.5"

	// ONU fiber distance in meters
	OIDONUDistance = "1.3.6.1.4.1.3902.1012.3.28.1.1.8"

	// ONU optical receive / transmit power (value * 0.01 dBm)
	// Note: 2147483647 marks an ONU that cannot be measured
	OIDONURxPower = "1.3.6.1.4.1.3902.1012.3.28.2.1.5"
	OIDONUTxPower = "1.3.6.1.4.1.3902.1012.3.28.2.1.6"
)

// Status values of OIDONUStatus.
const (
	statusOnline = "1"
)
