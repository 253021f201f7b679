package snmp

import "errors"

var (
	// ErrNotFound is returned when the agent has no value at the requested OID.
	ErrNotFound = errors.New("snmp: no such object")

	// ErrUnreachable is returned when the agent does not answer after all retries.
	ErrUnreachable = errors.New("snmp: device unreachable")

	errAddressRequired = errors.New("snmp: address is required")
	errUserRequired    = errors.New("snmp: username is required for SNMPv3")
	errInvalidVersion  = errors.New("snmp: invalid version")
)
