package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/nanoncore/nano-inventory/types"
	"github.com/nanoncore/nano-inventory/vendors/common"
)

// Driver simulates an OLT agent and management CLI in memory.
// It implements types.SNMPExecutor and types.CLIExecutor.
type Driver struct {
	mu          sync.RWMutex
	values      map[string]string
	failures    map[string]error
	unreachable bool
	connected   bool
	responses   map[string]string
	cmdHistory  []string
	getCount    int
}

// NewDriver returns an empty simulated device that answers sysDescr.
func NewDriver() *Driver {
	d := &Driver{
		values:    make(map[string]string),
		failures:  make(map[string]error),
		responses: make(map[string]string),
	}
	d.values[snmp.OIDSysDescr] = "Simulated OLT"
	return d
}

// Set stores a value at oid.
func (d *Driver) Set(oid, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[common.NormalizeOID(oid)] = value
}

// Delete removes the value at oid.
func (d *Driver) Delete(oid string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.values, common.NormalizeOID(oid))
}

// Fail makes every Get of oid, or Walk rooted at oid, return err.
// A nil err clears the failure.
func (d *Driver) Fail(oid string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	oid = common.NormalizeOID(oid)
	if err == nil {
		delete(d.failures, oid)
		return
	}
	d.failures[oid] = err
}

// SetUnreachable makes every SNMP operation time out.
func (d *Driver) SetUnreachable(unreachable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unreachable = unreachable
}

// GetCount returns the number of Get calls served.
func (d *Driver) GetCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.getCount
}

// Get implements types.SNMPExecutor.
func (d *Driver) Get(ctx context.Context, oid string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.getCount++
	oid = common.NormalizeOID(oid)

	if d.unreachable {
		return "", fmt.Errorf("%w: get %s: request timeout", snmp.ErrUnreachable, oid)
	}
	if err, ok := d.failures[oid]; ok {
		return "", err
	}

	v, ok := d.values[oid]
	if !ok {
		return "", fmt.Errorf("%w: %s", snmp.ErrNotFound, oid)
	}
	return v, nil
}

// Walk implements types.SNMPExecutor. Rows are delivered in OID order.
func (d *Driver) Walk(ctx context.Context, oid string, fn types.WalkFunc) error {
	d.mu.RLock()
	oid = common.NormalizeOID(oid)

	if d.unreachable {
		d.mu.RUnlock()
		return fmt.Errorf("%w: walk %s: request timeout", snmp.ErrUnreachable, oid)
	}
	if err, ok := d.failures[oid]; ok {
		d.mu.RUnlock()
		return err
	}

	var rows []snmp.Variable
	for k, v := range d.values {
		if strings.HasPrefix(k, oid+".") {
			rows = append(rows, snmp.Variable{OID: k, Value: v})
		}
	}
	d.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return common.CompareOIDs(rows[i].OID, rows[j].OID) < 0
	})

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: walk %s: %v", snmp.ErrUnreachable, oid, err)
		}
		if err := fn(row.OID, row.Value); err != nil {
			return err
		}
	}
	return nil
}

// TestReachable implements types.SNMPExecutor.
func (d *Driver) TestReachable(ctx context.Context) bool {
	_, err := d.Get(ctx, snmp.OIDSysDescr)
	return err == nil
}

// SystemInfo answers the MIB-II system group the way snmp.Client does.
func (d *Driver) SystemInfo(ctx context.Context) (*snmp.SystemInfo, error) {
	descr, err := d.Get(ctx, snmp.OIDSysDescr)
	if err != nil {
		return nil, err
	}

	info := &snmp.SystemInfo{Description: descr}
	if v, err := d.Get(ctx, snmp.OIDSysUpTime); err == nil {
		info.UpTime = v
	}
	if v, err := d.Get(ctx, snmp.OIDSysName); err == nil {
		info.Name = v
	}
	return info, nil
}

// Connect opens the simulated CLI session.
func (d *Driver) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unreachable {
		return fmt.Errorf("connect: device unreachable")
	}
	d.connected = true
	d.cmdHistory = append(d.cmdHistory, "connect")
	return nil
}

// Disconnect closes the simulated CLI session.
func (d *Driver) Disconnect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.connected = false
	d.cmdHistory = append(d.cmdHistory, "disconnect")
	return nil
}

// IsConnected reports whether the CLI session is open.
func (d *Driver) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Respond sets the output returned for an exact command.
func (d *Driver) Respond(command, output string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[command] = output
}

// ExecCommand implements types.CLIExecutor.
func (d *Driver) ExecCommand(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return "", fmt.Errorf("not connected to device")
	}

	d.cmdHistory = append(d.cmdHistory, command)
	return d.responses[command], nil
}

// ExecCommands implements types.CLIExecutor.
func (d *Driver) ExecCommands(ctx context.Context, commands []string) ([]string, error) {
	outputs := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out, err := d.ExecCommand(ctx, cmd)
		if err != nil {
			return outputs, fmt.Errorf("command %q failed: %w", cmd, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// CommandHistory returns every CLI command executed so far.
func (d *Driver) CommandHistory() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.cmdHistory...)
}

var (
	_ types.SNMPExecutor = (*Driver)(nil)
	_ types.CLIExecutor  = (*Driver)(nil)
)
