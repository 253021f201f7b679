package zte

import (
	"strconv"

	"github.com/nanoncore/nano-inventory/drivers/mock"
	"github.com/nanoncore/nano-inventory/drivers/snmp"
)

// SimulatedONU describes one ONU row served by NewSimulator.
// Nil readings are left out of the tables.
type SimulatedONU struct {
	Slot   int
	Port   int
	ONUID  int
	Online bool
	Serial string

	RxCentiDBm *int
	TxCentiDBm *int
	Distance   *int
}

// Suffix returns the raw table index of the ONU.
func (o SimulatedONU) Suffix() string {
	return RawSuffix(o.Slot, o.Port, o.ONUID)
}

// NewSimulator returns a mock agent answering like a C320 with the given ONUs.
func NewSimulator(onus ...SimulatedONU) *mock.Driver {
	d := mock.NewDriver()
	d.Set(snmp.OIDSysDescr, "ZXA10 C320, ZTE ZXA10 Software Version: V2.1.0")
	d.Set(snmp.OIDSysName, "c320-sim")
	d.Set(snmp.OIDSysUpTime, "8640000")

	for _, o := range onus {
		Load(d, o)
	}
	return d
}

// Load writes (or overwrites) one ONU's rows on a simulated agent.
func Load(d *mock.Driver, o SimulatedONU) {
	suffix := "." + o.Suffix()

	status := "0"
	if o.Online {
		status = statusOnline
	}
	d.Set(OIDONUStatus+suffix, status)

	setOrDelete(d, OIDONUSerial+suffix, o.Serial != "", o.Serial)
	setOrDelete(d, OIDONURxPower+suffix, o.RxCentiDBm != nil, intString(o.RxCentiDBm))
	setOrDelete(d, OIDONUTxPower+suffix, o.TxCentiDBm != nil, intString(o.TxCentiDBm))
	setOrDelete(d, OIDONUDistance+suffix, o.Distance != nil, intString(o.Distance))
}

func setOrDelete(d *mock.Driver, oid string, ok bool, value string) {
	if ok {
		d.Set(oid, value)
		return
	}
	d.Delete(oid)
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
