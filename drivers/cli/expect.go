package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"

	"github.com/nanoncore/nano-inventory/vendors/common"
)

// DefaultPromptPattern matches common CLI prompts like "hostname#" or "hostname>"
var DefaultPromptPattern = regexp.MustCompile(`(?m)[\w\-\[\]()]+[#>]\s*$`)

// VendorPrompts contains vendor-specific prompt patterns.
// ZTE prompts carry the mode in parentheses: "ZXAN#", "ZXAN(config)#",
// "ZXAN(config-if)#".
var VendorPrompts = map[string]*regexp.Regexp{
	"zte": regexp.MustCompile(`(?m)^[\w\-.]+(\([\w\-./]+\))?[#>]\s*$`),
}

// PagerDisableCommands contains commands to disable paging per vendor
var PagerDisableCommands = map[string]string{
	"zte": "terminal length 0",
}

var passwordPrompt = regexp.MustCompile(`(?im)password:\s*$`)

// expecter is the part of *expect.GExpect the session drives.
type expecter interface {
	Send(in string) error
	Expect(re *regexp.Regexp, timeout time.Duration) (string, []string, error)
	Close() error
}

// ExpectSession wraps google/goexpect for OLT CLI interaction
type ExpectSession struct {
	expecter expecter
	promptRE *regexp.Regexp
	timeout  time.Duration
	vendor   string

	// prompt is the last prompt seen
	prompt string
}

// ExpectSessionConfig holds configuration for creating an expect session
type ExpectSessionConfig struct {
	SSHClient    *ssh.Client
	Vendor       string
	Timeout      time.Duration
	CustomPrompt *regexp.Regexp
	DisablePager bool

	// EnablePassword is sent when the device lands in user mode (">").
	EnablePassword string
}

// NewExpectSession spawns an interactive shell on an SSH client.
func NewExpectSession(cfg ExpectSessionConfig) (*ExpectSession, error) {
	if cfg.SSHClient == nil {
		return nil, fmt.Errorf("SSH client is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	exp, _, err := expect.SpawnSSH(cfg.SSHClient, cfg.Timeout,
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn SSH expect session: %w", err)
	}

	return newExpectSession(exp, cfg)
}

func newExpectSession(exp expecter, cfg ExpectSessionConfig) (*ExpectSession, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	promptRE := cfg.CustomPrompt
	if promptRE == nil {
		if vendorPrompt, ok := VendorPrompts[strings.ToLower(cfg.Vendor)]; ok {
			promptRE = vendorPrompt
		} else {
			promptRE = DefaultPromptPattern
		}
	}

	s := &ExpectSession{
		expecter: exp,
		promptRE: promptRE,
		timeout:  cfg.Timeout,
		vendor:   strings.ToLower(cfg.Vendor),
	}

	_, match, err := exp.Expect(promptRE, cfg.Timeout)
	if err != nil {
		_ = exp.Close()
		return nil, fmt.Errorf("failed to detect initial prompt: %w", err)
	}
	s.prompt = firstMatch(match)

	if cfg.EnablePassword != "" && s.InUserMode() {
		if err := s.enable(cfg.EnablePassword); err != nil {
			_ = exp.Close()
			return nil, err
		}
	}

	// non-fatal: some firmware rejects the pager command
	if cfg.DisablePager {
		_ = s.disablePager()
	}

	return s, nil
}

// InUserMode reports whether the last prompt is an unprivileged one.
func (s *ExpectSession) InUserMode() bool {
	return strings.HasSuffix(strings.TrimSpace(s.prompt), ">")
}

func (s *ExpectSession) enable(password string) error {
	if err := s.expecter.Send("enable\n"); err != nil {
		return fmt.Errorf("failed to send enable: %w", err)
	}

	either := regexp.MustCompile("(?:" + passwordPrompt.String() + ")|(?:" + s.promptRE.String() + ")")
	_, match, err := s.expecter.Expect(either, s.timeout)
	if err != nil {
		return fmt.Errorf("enable: %w", err)
	}

	if passwordPrompt.MatchString(firstMatch(match)) {
		if err := s.expecter.Send(password + "\n"); err != nil {
			return fmt.Errorf("failed to send enable password: %w", err)
		}
		if _, match, err = s.expecter.Expect(s.promptRE, s.timeout); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}

	s.prompt = firstMatch(match)
	if s.InUserMode() {
		return fmt.Errorf("enable: still in user mode after authentication")
	}
	return nil
}

// disablePager sends the appropriate command to disable pagination
func (s *ExpectSession) disablePager() error {
	cmd := PagerDisableCommands[s.vendor]
	if cmd == "" {
		cmd = "terminal length 0"
	}

	_, err := s.Execute(cmd)
	return err
}

// Execute sends a command and waits for the prompt, returning the output
func (s *ExpectSession) Execute(command string) (string, error) {
	if s.expecter == nil {
		return "", fmt.Errorf("expect session not initialized")
	}

	if err := s.expecter.Send(command + "\n"); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	output, match, err := s.expecter.Expect(s.promptRE, s.timeout)
	if err != nil {
		return output, fmt.Errorf("timeout waiting for prompt after command %q: %w", command, err)
	}
	s.prompt = firstMatch(match)

	return s.cleanOutput(output, command), nil
}

// cleanOutput removes escape codes, the command echo and prompt lines.
func (s *ExpectSession) cleanOutput(output, command string) string {
	lines := strings.Split(common.CleanCLIOutput(output), "\n")
	var cleaned []string

	echoSkipped := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !echoSkipped && trimmed != "" && strings.Contains(trimmed, command) {
			echoSkipped = true
			continue
		}
		if s.promptRE.MatchString(trimmed) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// Prompt returns the last prompt seen.
func (s *ExpectSession) Prompt() string {
	return strings.TrimSpace(s.prompt)
}

// Close closes the expect session
func (s *ExpectSession) Close() error {
	if s.expecter != nil {
		return s.expecter.Close()
	}
	return nil
}

// SetTimeout updates the command timeout
func (s *ExpectSession) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

func firstMatch(match []string) string {
	if len(match) == 0 {
		return ""
	}
	return match[0]
}
