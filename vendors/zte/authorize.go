package zte

import (
	"fmt"
	"regexp"

	"github.com/nanoncore/nano-inventory/types"
)

// DefaultONUType is used when the request names no ONU profile.
const DefaultONUType = "ZTE-F601"

var (
	onuTypeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	serialRegex  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Authorizer builds ZTE CLI authorization commands.
type Authorizer struct{}

// NewAuthorizer returns a ZTE command builder.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// GPONInterface returns the OLT-side interface name of a PON port.
func GPONInterface(slot, port int) string {
	return fmt.Sprintf("gpon-olt_1/%d/%d", slot, port)
}

// AuthorizeCommands returns the command sequence that registers an ONU serial
// under its ONU ID on the PON port.
func (a *Authorizer) AuthorizeCommands(req types.AuthorizeRequest) ([]string, error) {
	if req.Serial == "" {
		return nil, errMissingSerial
	}
	if !serialRegex.MatchString(req.Serial) {
		return nil, fmt.Errorf("%w: %q", errBadSerial, req.Serial)
	}

	onuType := req.ONUType
	if onuType == "" {
		onuType = DefaultONUType
	}
	if !onuTypeRegex.MatchString(onuType) {
		return nil, fmt.Errorf("%w: %q", errBadONUType, onuType)
	}

	return []string{
		"configure terminal",
		"interface " + GPONInterface(req.Slot, req.Port),
		fmt.Sprintf("onu %d type %s sn %s", req.TerminalID, onuType, req.Serial),
		"exit",
		"end",
	}, nil
}

var _ types.TerminalAuthorizer = (*Authorizer)(nil)
