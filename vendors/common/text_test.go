package common

import (
	"errors"
	"testing"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "no ANSI codes", input: "ZXAN#", want: "ZXAN#"},
		{name: "red text", input: "\x1b[31mError\x1b[0m", want: "Error"},
		{name: "cursor movement", input: "\x1b[2J\x1b[HHello", want: "Hello"},
		{name: "complex sequence", input: "\x1b[1;31;40mBold\x1b[0m", want: "Bold"},
		{name: "OLT prompt", input: "\x1b[0mZXAN#\x1b[K show gpon onu state", want: "ZXAN# show gpon onu state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripANSI(tt.input)
			if got != tt.want {
				t.Errorf("StripANSI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanCLIOutput(t *testing.T) {
	in := "line1\r\n --More-- \x08\x08\x08\x08\x08\x08\x08\x08\x08\x08          \x08\x08\x08\x08\x08\x08\x08\x08\x08\x08line2\r\n"
	got := CleanCLIOutput(in)
	want := "line1\nline2\n"
	if got != want {
		t.Errorf("CleanCLIOutput() = %q, want %q", got, want)
	}
}

func TestCheckCLIOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{name: "accepted", output: "ZXAN(config-if)#", wantErr: false},
		{name: "error code", output: "%Error 20209: The ONU has been authenticated.\r\nZXAN(config-if)#", wantErr: true},
		{name: "invalid input", output: "\x1b[0m% Invalid input detected at '^' marker.", wantErr: true},
		{name: "error inside text", output: "description has no %Error prefix", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCLIOutput("onu 1 type ZTE-F601 sn ZTEG0001", tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCLIOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCLIRejected) {
				t.Errorf("CheckCLIOutput() error = %v, want ErrCLIRejected", err)
			}
		})
	}
}
