package common

import (
	"strconv"
	"time"
)

// Well-known device annotation keys.
const (
	AnnotationONUType       = "onu.type"
	AnnotationSNMPTimeout   = "snmp.timeout"
	AnnotationSNMPRetries   = "snmp.retries"
	AnnotationSNMPUser      = "snmp.v3.user"
	AnnotationSNMPPassword  = "snmp.v3.password"
	AnnotationSNMPSecLevel  = "snmp.v3.security_level"
	AnnotationSNMPAuthProto = "snmp.v3.auth_protocol"
	AnnotationSNMPPrivProto = "snmp.v3.priv_protocol"
	AnnotationCLITimeout    = "cli.timeout"
	AnnotationCLIEnablePass = "cli.enable_password"
)

// Annotations is a free-form key/value bag attached to a device.
// Lookups accept several keys; the first present key wins.
type Annotations map[string]string

// String returns the first value found for keys.
func (a Annotations) String(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := a[key]; ok {
			return value, true
		}
	}
	return "", false
}

// Int returns the first value for keys that parses as an integer.
func (a Annotations) Int(keys ...string) (int, bool) {
	for _, key := range keys {
		if raw, ok := a[key]; ok {
			if value, err := strconv.Atoi(raw); err == nil {
				return value, true
			}
		}
	}
	return 0, false
}

// Duration returns the first value for keys that parses as a Go duration
// ("5s") or as a whole number of seconds ("5").
func (a Annotations) Duration(keys ...string) (time.Duration, bool) {
	for _, key := range keys {
		raw, ok := a[key]
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d, true
		}
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// StringOr returns the annotation or def.
func (a Annotations) StringOr(def string, keys ...string) string {
	if value, ok := a.String(keys...); ok && value != "" {
		return value
	}
	return def
}

// IntOr returns the annotation or def.
func (a Annotations) IntOr(def int, keys ...string) int {
	if value, ok := a.Int(keys...); ok {
		return value
	}
	return def
}

// DurationOr returns the annotation or def.
func (a Annotations) DurationOr(def time.Duration, keys ...string) time.Duration {
	if value, ok := a.Duration(keys...); ok {
		return value
	}
	return def
}
