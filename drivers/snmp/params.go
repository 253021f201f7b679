package snmp

import (
	"fmt"

	"github.com/gosnmp/gosnmp"
)

func parseVersion(version string) (gosnmp.SnmpVersion, error) {
	switch version {
	case "1":
		return gosnmp.Version1, nil
	case "2c", "":
		return gosnmp.Version2c, nil
	case "3":
		return gosnmp.Version3, nil
	default:
		return 0, fmt.Errorf("%w: %q", errInvalidVersion, version)
	}
}

func parseSecurityLevel(level string) gosnmp.SnmpV3MsgFlags {
	switch level {
	case "noAuthNoPriv":
		return gosnmp.NoAuthNoPriv
	case "authNoPriv":
		return gosnmp.AuthNoPriv
	default:
		return gosnmp.AuthPriv
	}
}

func parseAuthProtocol(protocol string) gosnmp.SnmpV3AuthProtocol {
	switch protocol {
	case "md5":
		return gosnmp.MD5
	case "sha224":
		return gosnmp.SHA224
	case "sha256":
		return gosnmp.SHA256
	case "sha384":
		return gosnmp.SHA384
	case "sha512":
		return gosnmp.SHA512
	default:
		return gosnmp.SHA
	}
}

func parsePrivProtocol(protocol string) gosnmp.SnmpV3PrivProtocol {
	switch protocol {
	case "des":
		return gosnmp.DES
	case "aes192":
		return gosnmp.AES192
	case "aes256":
		return gosnmp.AES256
	default:
		return gosnmp.AES
	}
}
