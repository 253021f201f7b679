// Package snmp is the device protocol client used by discovery. A Client is
// a stateless factory over connection parameters: every Get or Walk opens a
// transient session and closes it when the operation finishes.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/nanoncore/nano-inventory/types"
)

// MIB-II system group
const (
	OIDSysDescr  = "1.3.6.1.2.1.1.1.0"
	OIDSysUpTime = "1.3.6.1.2.1.1.3.0"
	OIDSysName   = "1.3.6.1.2.1.1.5.0"
)

const (
	DefaultPort           = 161
	DefaultTimeout        = 5 * time.Second
	DefaultRetries        = 3
	DefaultMaxRepetitions = 25
)

// Variable is one stringified row of a walk.
type Variable struct {
	OID   string
	Value string
}

// SystemInfo is the MIB-II identity of a device.
type SystemInfo struct {
	Description string
	UpTime      string
	Name        string
}

// Option customizes a Client.
type Option func(*Client)

// WithHandlerFactory replaces the gosnmp session constructor.
func WithHandlerFactory(fn func() gosnmp.Handler) Option {
	return func(c *Client) { c.newHandler = fn }
}

// WithWalkTimeout bounds the total duration of one walk.
func WithWalkTimeout(d time.Duration) Option {
	return func(c *Client) { c.walkTimeout = d }
}

// Client performs SNMP operations against a single device.
type Client struct {
	config      *types.EquipmentConfig
	version     gosnmp.SnmpVersion
	community   string
	walkTimeout time.Duration
	newHandler  func() gosnmp.Handler
}

// NewClient validates config and returns a Client. No network I/O happens here.
func NewClient(config *types.EquipmentConfig, opts ...Option) (*Client, error) {
	if config == nil || config.Address == "" {
		return nil, errAddressRequired
	}

	version, err := parseVersion(config.Metadata["snmp_version"])
	if err != nil {
		return nil, err
	}

	if version == gosnmp.Version3 && config.Username == "" {
		return nil, errUserRequired
	}

	community := "public"
	if c, ok := config.Metadata["snmp_community"]; ok && c != "" {
		community = c
	}

	c := &Client{
		config:     config,
		version:    version,
		community:  community,
		newHandler: gosnmp.NewHandler,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Target returns "address:port" for logging.
func (c *Client) Target() string {
	return fmt.Sprintf("%s:%d", c.config.Address, c.port())
}

func (c *Client) port() uint16 {
	if c.config.Port <= 0 || c.config.Port > 65535 {
		return DefaultPort
	}
	return uint16(c.config.Port) //nolint:gosec // range checked above
}

// open prepares and connects a fresh session.
func (c *Client) open() (gosnmp.Handler, error) {
	h := c.newHandler()

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retries := c.config.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	h.SetTarget(c.config.Address)
	h.SetPort(c.port())
	h.SetTimeout(timeout)
	h.SetRetries(retries)
	h.SetMaxRepetitions(DefaultMaxRepetitions)
	h.SetVersion(c.version)

	if c.version == gosnmp.Version3 {
		md := c.config.Metadata
		h.SetSecurityModel(gosnmp.UserSecurityModel)
		h.SetMsgFlags(parseSecurityLevel(md["snmp_v3_security_level"]))
		h.SetSecurityParameters(&gosnmp.UsmSecurityParameters{
			UserName:                 c.config.Username,
			AuthenticationProtocol:   parseAuthProtocol(md["snmp_v3_auth_protocol"]),
			AuthenticationPassphrase: c.config.Password,
			PrivacyProtocol:          parsePrivProtocol(md["snmp_v3_priv_protocol"]),
			PrivacyPassphrase:        c.config.Password,
		})
	} else {
		h.SetCommunity(c.community)
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrUnreachable, c.Target(), err)
	}

	return h, nil
}

// Get retrieves a single value. It returns ErrNotFound when the agent has
// no such object and ErrUnreachable when the request times out.
func (c *Client) Get(ctx context.Context, oid string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h, err := c.open()
	if err != nil {
		return "", err
	}
	defer h.Close() //nolint:errcheck

	pkt, err := h.Get([]string{oid})
	if err != nil {
		return "", fmt.Errorf("%w: get %s on %s: %v", ErrUnreachable, oid, c.Target(), err)
	}

	if pkt == nil || len(pkt.Variables) == 0 || pkt.Error == gosnmp.NoSuchName {
		return "", fmt.Errorf("%w: %s", ErrNotFound, oid)
	}

	pdu := pkt.Variables[0]
	if isMissing(pdu.Type) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, oid)
	}

	return FormatValue(pdu), nil
}

// Walk streams every row below oid to fn. v2c and v3 use GETBULK, v1 uses
// GETNEXT. An error returned by fn stops the walk and is returned unchanged.
func (c *Client) Walk(ctx context.Context, oid string, fn types.WalkFunc) error {
	if c.walkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.walkTimeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := c.open()
	if err != nil {
		return err
	}
	defer h.Close() //nolint:errcheck

	var cbErr error

	walkFn := func(pdu gosnmp.SnmpPDU) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isMissing(pdu.Type) {
			return nil
		}
		if err := fn(strings.TrimPrefix(pdu.Name, "."), FormatValue(pdu)); err != nil {
			cbErr = err
			return err
		}
		return nil
	}

	if c.version == gosnmp.Version1 {
		err = h.Walk(oid, walkFn)
	} else {
		err = h.BulkWalk(oid, walkFn)
	}

	if err == nil {
		return nil
	}
	if cbErr != nil && errors.Is(err, cbErr) {
		return cbErr
	}

	return fmt.Errorf("%w: walk %s on %s: %v", ErrUnreachable, oid, c.Target(), err)
}

// TestReachable reports whether the device answers a sysDescr query.
func (c *Client) TestReachable(ctx context.Context) bool {
	_, err := c.Get(ctx, OIDSysDescr)
	return err == nil
}

// SystemInfo reads sysDescr, sysUpTime and sysName. Only sysDescr is required.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	descr, err := c.Get(ctx, OIDSysDescr)
	if err != nil {
		return nil, err
	}

	info := &SystemInfo{Description: descr}

	if v, err := c.Get(ctx, OIDSysUpTime); err == nil {
		info.UpTime = v
	}
	if v, err := c.Get(ctx, OIDSysName); err == nil {
		info.Name = v
	}

	return info, nil
}

// FormatValue renders a PDU value as text: octet strings verbatim,
// numeric types in decimal.
func FormatValue(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString, gosnmp.BitString:
		if b, ok := pdu.Value.([]byte); ok {
			return string(b)
		}
		return fmt.Sprint(pdu.Value)
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32,
		gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.ObjectIdentifier:
		return strings.TrimPrefix(fmt.Sprint(pdu.Value), ".")
	default:
		return fmt.Sprint(pdu.Value)
	}
}

func isMissing(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return true
	}
	return false
}

var _ types.SNMPExecutor = (*Client)(nil)
