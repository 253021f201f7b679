package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nanoncore/nano-inventory/drivers/cli"
	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/provision"
	"github.com/nanoncore/nano-inventory/vendors/common"
	"github.com/nanoncore/nano-inventory/vendors/zte"
)

var (
	// ErrUnsupportedVendor is returned for a vendor missing from CapabilityMatrix.
	ErrUnsupportedVendor = errors.New("unsupported vendor")

	// ErrAuthorizeUnsupported is returned when a vendor has no authorize commands.
	ErrAuthorizeUnsupported = errors.New("vendor does not support terminal authorization")
)

// CapabilityMatrix defines what each vendor supports.
// Mock devices answer with the ZTE C320 table layout.
var CapabilityMatrix = map[Vendor]VendorCapabilities{
	VendorZTE: {
		DiscoveryProtocol: ProtocolSNMP,
		ConfigProtocol:    ProtocolCLI,
		SupportsAuthorize: true,
	},
	VendorMock: {
		DiscoveryProtocol: ProtocolSNMP,
		ConfigProtocol:    ProtocolCLI,
		SupportsAuthorize: false,
	},
}

// VendorCapabilities defines what protocols and features a vendor supports
type VendorCapabilities struct {
	DiscoveryProtocol Protocol
	ConfigProtocol    Protocol
	SupportsAuthorize bool
}

// Defaults are the polling settings used when a device carries no
// per-device annotation.
type Defaults struct {
	Timeout     time.Duration
	Retries     int
	WalkTimeout time.Duration
}

func vendorOf(name string) (Vendor, VendorCapabilities, error) {
	vendor := Vendor(strings.ToLower(strings.TrimSpace(name)))
	caps, ok := CapabilityMatrix[vendor]
	if !ok {
		return vendor, caps, fmt.Errorf("%w: %q", ErrUnsupportedVendor, name)
	}
	return vendor, caps, nil
}

// EquipmentConfigFor builds the session parameters of one protocol from a
// persisted device.
func EquipmentConfigFor(device *model.Device, protocol Protocol, defaults Defaults) (*EquipmentConfig, error) {
	vendor, _, err := vendorOf(device.Vendor)
	if err != nil {
		return nil, err
	}

	ann := common.Annotations(device.Annotations)
	cfg := &EquipmentConfig{
		Name:     device.Name,
		Type:     EquipmentTypeOLT,
		Vendor:   vendor,
		Address:  device.Address,
		Protocol: protocol,
		Metadata: map[string]string{},
	}

	switch protocol {
	case ProtocolSNMP:
		cfg.Port = device.SNMPPort
		cfg.Timeout = ann.DurationOr(defaults.Timeout, common.AnnotationSNMPTimeout)
		cfg.Retries = ann.IntOr(defaults.Retries, common.AnnotationSNMPRetries)
		cfg.Username = ann.StringOr("", common.AnnotationSNMPUser)
		cfg.Password = ann.StringOr("", common.AnnotationSNMPPassword)
		cfg.Metadata["snmp_version"] = device.SNMPVersion
		cfg.Metadata["snmp_community"] = device.SNMPCommunity
		for key, annotation := range map[string]string{
			"snmp_v3_security_level": common.AnnotationSNMPSecLevel,
			"snmp_v3_auth_protocol":  common.AnnotationSNMPAuthProto,
			"snmp_v3_priv_protocol":  common.AnnotationSNMPPrivProto,
		} {
			if v, ok := ann.String(annotation); ok {
				cfg.Metadata[key] = v
			}
		}
	case ProtocolCLI:
		cfg.Port = device.CLIPort
		cfg.Timeout = ann.DurationOr(0, common.AnnotationCLITimeout)
		cfg.Username = device.CLIUsername
		cfg.Password = device.CLIPassword
		if v, ok := ann.String(common.AnnotationCLIEnablePass); ok {
			cfg.Metadata[cli.MetadataEnablePassword] = v
		}
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}

	return cfg, nil
}

// NewSNMPClient returns the polling client of a device.
func NewSNMPClient(device *model.Device, defaults Defaults) (*snmp.Client, error) {
	cfg, err := EquipmentConfigFor(device, ProtocolSNMP, defaults)
	if err != nil {
		return nil, err
	}

	var opts []snmp.Option
	if defaults.WalkTimeout > 0 {
		opts = append(opts, snmp.WithWalkTimeout(defaults.WalkTimeout))
	}
	return snmp.NewClient(cfg, opts...)
}

// NewTerminalSource returns the vendor terminal source reading through exec.
func NewTerminalSource(device *model.Device, exec SNMPExecutor) (TerminalSource, error) {
	vendor, _, err := vendorOf(device.Vendor)
	if err != nil {
		return nil, err
	}

	switch vendor {
	case VendorZTE, VendorMock:
		return zte.NewAdapter(exec), nil
	default:
		return nil, fmt.Errorf("%w: no terminal source for %s", ErrUnsupportedVendor, vendor)
	}
}

// NewAuthorizer returns the authorize command builder of a vendor.
func NewAuthorizer(vendorName string) (TerminalAuthorizer, error) {
	vendor, caps, err := vendorOf(vendorName)
	if err != nil {
		return nil, err
	}
	if !caps.SupportsAuthorize {
		return nil, fmt.Errorf("%w: %s", ErrAuthorizeUnsupported, vendor)
	}

	switch vendor {
	case VendorZTE:
		return zte.NewAuthorizer(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAuthorizeUnsupported, vendor)
	}
}

// NewCLIDriver returns an unconnected management CLI driver for a device.
func NewCLIDriver(device *model.Device) (*cli.Driver, error) {
	cfg, err := EquipmentConfigFor(device, ProtocolCLI, Defaults{})
	if err != nil {
		return nil, err
	}
	return cli.NewDriver(cfg)
}

// OpenCLISession connects a management CLI session to a device.
func OpenCLISession(ctx context.Context, device *model.Device) (provision.Session, error) {
	d, err := NewCLIDriver(device)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// GetSupportedVendors returns every registered vendor, sorted.
func GetSupportedVendors() []Vendor {
	vendors := make([]Vendor, 0, len(CapabilityMatrix))
	for v := range CapabilityMatrix {
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i] < vendors[j] })
	return vendors
}

// GetVendorCapabilities returns the capabilities for a vendor
func GetVendorCapabilities(vendor Vendor) (VendorCapabilities, bool) {
	caps, ok := CapabilityMatrix[vendor]
	return caps, ok
}
