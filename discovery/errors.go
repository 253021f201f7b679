package discovery

import (
	"errors"

	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/nanoncore/nano-inventory/store"
)

// Fatal run errors. Callers classify them with errors.Is.
var (
	ErrDeviceNotFound = store.ErrDeviceNotFound
	ErrUnreachable    = snmp.ErrUnreachable
)

var (
	errNilStore         = errors.New("discovery: store is required")
	errNilClientFactory = errors.New("discovery: client factory is required")
	errNilSourceFactory = errors.New("discovery: source factory is required")
)
