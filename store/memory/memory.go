// Package memory is an in-process inventory store. A write transaction holds
// the store lock until it ends, so there is a single writer at a time. It
// writes in place and keeps an undo journal for Rollback and savepoints.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/store"
)

var errTxDone = errors.New("memory: transaction already finished")

type slotKey struct {
	deviceID   int64
	slotNumber int
}

type portKey struct {
	slotID     int64
	portNumber int
}

type state struct {
	nextID int64

	devices     map[int64]*model.Device
	deviceNames map[string]int64

	slots   map[int64]*model.Slot
	slotIdx map[slotKey]int64

	ports   map[int64]*model.Port
	portIdx map[portKey]int64

	terminals map[int64]*model.Terminal
	serialIdx map[string]int64
}

func newState() *state {
	return &state{
		devices:     make(map[int64]*model.Device),
		deviceNames: make(map[string]int64),
		slots:       make(map[int64]*model.Slot),
		slotIdx:     make(map[slotKey]int64),
		ports:       make(map[int64]*model.Port),
		portIdx:     make(map[portKey]int64),
		terminals:   make(map[int64]*model.Terminal),
		serialIdx:   make(map[string]int64),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps the inventory in memory.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// CreateDevice stores a new device. Names are unique.
func (s *Store) CreateDevice(_ context.Context, d *model.Device) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.deviceNames[d.Name]; ok {
		return nil, fmt.Errorf("%w: device name %q", store.ErrDuplicateKey, d.Name)
	}

	c := d.Clone()
	c.ID = s.state.id()
	if c.Status == "" {
		c.Status = model.DeviceUnknown
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt

	s.state.devices[c.ID] = c
	s.state.deviceNames[c.Name] = c.ID

	return c.Clone(), nil
}

func (s *Store) GetDevice(_ context.Context, id int64) (*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.state.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, id)
	}
	return d.Clone(), nil
}

func (s *Store) ListDevices(_ context.Context) ([]*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Device, 0, len(s.state.devices))
	for _, d := range s.state.devices {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateDeviceStatus(_ context.Context, id int64, upd model.DeviceStatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.state.devices[id]
	if !ok {
		return fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, id)
	}

	d.Status = upd.Status
	if upd.LastSeen != nil {
		ls := *upd.LastSeen
		d.LastSeen = &ls
	}
	if upd.Uptime != nil {
		d.Uptime = *upd.Uptime
	}
	if upd.Description != nil {
		d.Description = *upd.Description
	}
	d.UpdatedAt = s.now()

	return nil
}

func (s *Store) GetSlot(_ context.Context, id int64) (*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.state.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", store.ErrNotFound, id)
	}
	cp := *sl
	return &cp, nil
}

func (s *Store) GetPort(_ context.Context, id int64) (*model.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.ports[id]
	if !ok {
		return nil, fmt.Errorf("%w: port %d", store.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// ListPorts returns the ports of a device ordered by slot and port number.
func (s *Store) ListPorts(_ context.Context, deviceID int64) ([]*model.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		slot int
		port *model.Port
	}

	var rows []row
	for _, p := range s.state.ports {
		sl := s.state.slots[p.SlotID]
		if sl == nil || sl.DeviceID != deviceID {
			continue
		}
		cp := *p
		rows = append(rows, row{slot: sl.SlotNumber, port: &cp})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].slot != rows[j].slot {
			return rows[i].slot < rows[j].slot
		}
		return rows[i].port.PortNumber < rows[j].port.PortNumber
	})

	out := make([]*model.Port, len(rows))
	for i, r := range rows {
		out[i] = r.port
	}
	return out, nil
}

func (s *Store) GetTerminal(_ context.Context, id int64) (*model.Terminal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.state.terminals[id]
	if !ok {
		return nil, fmt.Errorf("%w: terminal %d", store.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *Store) FindTerminalBySerial(_ context.Context, serial string) (*model.Terminal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return findBySerial(s.state, serial)
}

func (s *Store) ListTerminals(_ context.Context, deviceID int64) ([]*model.Terminal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Terminal
	for _, t := range s.state.terminals {
		if t.DeviceID == deviceID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PatchTerminal(_ context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return patchTerminal(s.state, id, patch, s.now())
}

func (s *Store) CountTerminals(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.state.terminals)), nil
}

// Begin locks the store for writing until Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	return &tx{store: s, work: s.state}, nil
}

func (s *Store) Close() error { return nil }

func findBySerial(st *state, serial string) (*model.Terminal, error) {
	id, ok := st.serialIdx[serial]
	if !ok {
		return nil, fmt.Errorf("%w: serial %q", store.ErrNotFound, serial)
	}
	return st.terminals[id].Clone(), nil
}

func patchTerminal(st *state, id int64, patch model.TerminalPatch, now time.Time) (*model.Terminal, error) {
	t, ok := st.terminals[id]
	if !ok {
		return nil, fmt.Errorf("%w: terminal %d", store.ErrNotFound, id)
	}

	if patch.DeviceID != nil {
		if _, ok := st.devices[*patch.DeviceID]; !ok {
			return nil, fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, *patch.DeviceID)
		}
	}
	if patch.PortID != nil {
		if _, ok := st.ports[*patch.PortID]; !ok {
			return nil, fmt.Errorf("%w: port %d", store.ErrNotFound, *patch.PortID)
		}
	}

	patch.Apply(t)
	t.UpdatedAt = now

	return t.Clone(), nil
}

type tx struct {
	store   *Store
	work    *state
	journal []func()
	done    bool
}

// record pushes the inverse of a write that was just applied.
func (t *tx) record(undo func()) {
	t.journal = append(t.journal, undo)
}

// unwind reverts every write recorded after mark, newest first.
func (t *tx) unwind(mark int) {
	for i := len(t.journal) - 1; i >= mark; i-- {
		t.journal[i]()
	}
	t.journal = t.journal[:mark]
}

func (t *tx) check(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	return ctx.Err()
}

func (t *tx) EnsureSlot(ctx context.Context, deviceID int64, slotNumber int, status string) (*model.Slot, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}

	if _, ok := t.work.devices[deviceID]; !ok {
		return nil, false, fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, deviceID)
	}

	key := slotKey{deviceID: deviceID, slotNumber: slotNumber}
	if id, ok := t.work.slotIdx[key]; ok {
		cp := *t.work.slots[id]
		return &cp, false, nil
	}

	sl := &model.Slot{ID: t.work.id(), DeviceID: deviceID, SlotNumber: slotNumber, Status: status}
	t.work.slots[sl.ID] = sl
	t.work.slotIdx[key] = sl.ID
	t.record(func() {
		delete(t.work.slots, sl.ID)
		delete(t.work.slotIdx, key)
	})

	cp := *sl
	return &cp, true, nil
}

func (t *tx) EnsurePort(ctx context.Context, slotID int64, portNumber int, status string) (*model.Port, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}

	if _, ok := t.work.slots[slotID]; !ok {
		return nil, false, fmt.Errorf("%w: slot %d", store.ErrNotFound, slotID)
	}

	key := portKey{slotID: slotID, portNumber: portNumber}
	if id, ok := t.work.portIdx[key]; ok {
		cp := *t.work.ports[id]
		return &cp, false, nil
	}

	p := &model.Port{ID: t.work.id(), SlotID: slotID, PortNumber: portNumber, Status: status}
	t.work.ports[p.ID] = p
	t.work.portIdx[key] = p.ID
	t.record(func() {
		delete(t.work.ports, p.ID)
		delete(t.work.portIdx, key)
	})

	cp := *p
	return &cp, true, nil
}

func (t *tx) FindTerminalBySerial(ctx context.Context, serial string) (*model.Terminal, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return findBySerial(t.work, serial)
}

func (t *tx) CreateTerminal(ctx context.Context, term *model.Terminal) (*model.Terminal, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	if _, ok := t.work.serialIdx[term.Serial]; ok {
		return nil, fmt.Errorf("%w: serial %q", store.ErrDuplicateKey, term.Serial)
	}
	if _, ok := t.work.devices[term.DeviceID]; !ok {
		return nil, fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, term.DeviceID)
	}
	if _, ok := t.work.ports[term.PortID]; !ok {
		return nil, fmt.Errorf("%w: port %d", store.ErrNotFound, term.PortID)
	}

	c := term.Clone()
	c.ID = t.work.id()
	c.CreatedAt = t.store.now()
	c.UpdatedAt = c.CreatedAt

	t.work.terminals[c.ID] = c
	t.work.serialIdx[c.Serial] = c.ID
	t.record(func() {
		delete(t.work.terminals, c.ID)
		delete(t.work.serialIdx, c.Serial)
	})

	return c.Clone(), nil
}

func (t *tx) PatchTerminal(ctx context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	prev, ok := t.work.terminals[id]
	if !ok {
		return nil, fmt.Errorf("%w: terminal %d", store.ErrNotFound, id)
	}
	before := prev.Clone()

	out, err := patchTerminal(t.work, id, patch, t.store.now())
	if err != nil {
		return nil, err
	}
	t.record(func() { t.work.terminals[id] = before })
	return out, nil
}

func (t *tx) RefreshPortCounters(ctx context.Context, portIDs []int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	want := make(map[int64]*model.Port, len(portIDs))
	for _, id := range portIDs {
		p, ok := t.work.ports[id]
		if !ok {
			return fmt.Errorf("%w: port %d", store.ErrNotFound, id)
		}
		before := *p
		t.record(func() { *p = before })
		p.TotalTerminals, p.OnlineTerminals, p.OfflineTerminals = 0, 0, 0
		want[id] = p
	}

	for _, term := range t.work.terminals {
		p, ok := want[term.PortID]
		if !ok {
			continue
		}
		p.TotalTerminals++
		switch term.Status {
		case model.TerminalOnline:
			p.OnlineTerminals++
		case model.TerminalOffline:
			p.OfflineTerminals++
		}
	}

	return nil
}

// Savepoint undoes the writes of fn if it fails. The cost is proportional to
// what fn wrote, not to the size of the inventory.
func (t *tx) Savepoint(ctx context.Context, fn func() error) error {
	if err := t.check(ctx); err != nil {
		return err
	}

	mark := len(t.journal)
	if err := fn(); err != nil {
		t.unwind(mark)
		return err
	}
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.journal = nil
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.unwind(0)
	t.done = true
	t.store.mu.Unlock()
	return nil
}

var _ store.Store = (*Store)(nil)
