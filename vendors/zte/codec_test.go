package zte

import (
	"errors"
	"testing"

	"github.com/nanoncore/nano-inventory/types"
)

func TestDecodePortIndex(t *testing.T) {
	tests := []struct {
		raw  int64
		want int
	}{
		{raw: 65536, want: 1},
		{raw: 131072, want: 2},
		{raw: 268632064, want: 3}, // 0x10030000
		{raw: 285278464, want: 1}, // 0x11010100
		{raw: 0xFF0000, want: 255},
		{raw: 0x1000000, want: 0},
		{raw: 7, want: 0},
	}

	for _, tt := range tests {
		if got := DecodePortIndex(tt.raw); got != tt.want {
			t.Errorf("DecodePortIndex(%d) = %d, want %d", tt.raw, got, tt.want)
		}
		if got := DecodePortIndex(tt.raw); got != int((tt.raw>>16)&0xFF) {
			t.Errorf("DecodePortIndex(%d) = %d, not (raw >> 16) & 0xFF", tt.raw, got)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for port := 0; port <= 255; port++ {
		if got := DecodePortIndex(EncodePortIndex(port)); got != port {
			t.Fatalf("DecodePortIndex(EncodePortIndex(%d)) = %d", port, got)
		}
	}
}

func TestDecodeStatusRow(t *testing.T) {
	tests := []struct {
		name    string
		oid     string
		value   string
		want    types.TerminalAddress
		wantErr bool
	}{
		{
			name:  "port one",
			oid:   OIDONUStatus + ".1.65536.1",
			value: "1",
			want: types.TerminalAddress{
				Slot: 1, Port: 1, RawPortIndex: 65536, TerminalID: 1, Status: "1", RawSuffix: "1.65536.1",
			},
		},
		{
			name:  "packed index with other bits",
			oid:   "." + OIDONUStatus + ".2.268632064.17",
			value: "0",
			want: types.TerminalAddress{
				Slot: 2, Port: 3, RawPortIndex: 268632064, TerminalID: 17, Status: "0", RawSuffix: "2.268632064.17",
			},
		},
		{name: "non numeric", oid: OIDONUStatus + ".1.abc.1", value: "1", wantErr: true},
		{
			name:  "bare suffix",
			oid:   "1.65536.2",
			value: "1",
			want: types.TerminalAddress{
				Slot: 1, Port: 1, RawPortIndex: 65536, TerminalID: 2, Status: "1", RawSuffix: "1.65536.2",
			},
		},
		{name: "too short", oid: "1.3", value: "1", wantErr: true},
		{name: "two index components", oid: OIDONUStatus + ".5.7", value: "1", wantErr: true},
		{name: "four index components", oid: OIDONUStatus + ".1.65536.1.9", value: "1", wantErr: true},
		{name: "foreign table", oid: "1.3.6.1.2.1.1.65536.1", value: "1", wantErr: true},
		{name: "negative", oid: OIDONUStatus + ".-1.65536.1", value: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStatusRow(tt.oid, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrTupleDecode) {
					t.Fatalf("DecodeStatusRow() error = %v, want ErrTupleDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeStatusRow() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeStatusRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSuffixes(t *testing.T) {
	addr, err := DecodeStatusRow(OIDONUStatus+".1.268632064.4", "1")
	if err != nil {
		t.Fatal(err)
	}

	if got := addr.Suffix(); got != "1.268632064.4" {
		t.Errorf("Suffix() = %q, want raw suffix", got)
	}

	addr.RawSuffix = ""
	if got := addr.Suffix(); got != LegacySuffix(1, 3, 4) {
		t.Errorf("Suffix() without raw = %q, want %q", got, LegacySuffix(1, 3, 4))
	}

	if got := RawSuffix(1, 1, 1); got != "1.65536.1" {
		t.Errorf("RawSuffix() = %q, want 1.65536.1", got)
	}
}
