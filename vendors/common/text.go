package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrCLIRejected is returned when a management CLI answers a command with an error line.
var ErrCLIRejected = errors.New("cli command rejected")

var (
	ansiRegex  = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	pagerRegex = regexp.MustCompile(`\s*--More--\s*(\x08+\s*\x08+)?`)
)

// cliErrorMarkers are the line prefixes OLT CLIs use for refused commands.
var cliErrorMarkers = []string{"%Error", "% Error", "% Invalid", "%Invalid", "% Unknown command", "% Incomplete"}

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// CleanCLIOutput strips escape codes, pager prompts and carriage returns.
func CleanCLIOutput(s string) string {
	s = StripANSI(s)
	s = pagerRegex.ReplaceAllString(s, "\n")
	return strings.ReplaceAll(s, "\r", "")
}

// CheckCLIOutput returns ErrCLIRejected carrying the first error line found in output.
func CheckCLIOutput(command, output string) error {
	for _, line := range strings.Split(CleanCLIOutput(output), "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range cliErrorMarkers {
			if strings.HasPrefix(line, marker) {
				return fmt.Errorf("%w: %q: %s", ErrCLIRejected, command, line)
			}
		}
	}
	return nil
}
