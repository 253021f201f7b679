// Package discovery reconciles the ONUs advertised by an OLT into the
// persisted Device -> Slot -> Port -> Terminal inventory.
//
// A run checks reachability, walks the status table, fetches per-terminal
// detail (concurrently, bounded), then applies every tuple in walk order in a
// single store transaction. A failing tuple is rolled back to its savepoint
// and counted; only a missing device, an unreachable device or a store
// failure aborts the run.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nanoncore/nano-inventory/drivers/snmp"
	"github.com/nanoncore/nano-inventory/logger"
	"github.com/nanoncore/nano-inventory/metrics"
	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/store"
	"github.com/nanoncore/nano-inventory/types"
)

const defaultFetchConcurrency = 4

// ClientFactory opens the polling client of a device. It is called once per run.
type ClientFactory func(device *model.Device) (types.SNMPExecutor, error)

// SourceFactory selects the vendor terminal source for a device.
type SourceFactory func(device *model.Device, exec types.SNMPExecutor) (types.TerminalSource, error)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithFetchConcurrency bounds the number of concurrent detail fetches per run.
func WithFetchConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.fetchConcurrency = n
		}
	}
}

// WithDeviceTimeout bounds a whole run. Zero means no limit beyond the
// protocol timeouts.
func WithDeviceTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.deviceTimeout = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler runs discovery against devices held in a store.
type Reconciler struct {
	store     store.Store
	newClient ClientFactory
	newSource SourceFactory

	log              logger.Logger
	fetchConcurrency int
	deviceTimeout    time.Duration
	now              func() time.Time

	mu      sync.Mutex
	running map[int64]*sync.Mutex
}

// New builds a Reconciler.
func New(st store.Store, newClient ClientFactory, newSource SourceFactory, opts ...Option) (*Reconciler, error) {
	switch {
	case st == nil:
		return nil, errNilStore
	case newClient == nil:
		return nil, errNilClientFactory
	case newSource == nil:
		return nil, errNilSourceFactory
	}

	r := &Reconciler{
		store:            st,
		newClient:        newClient,
		newSource:        newSource,
		log:              logger.NewTestLogger(),
		fetchConcurrency: defaultFetchConcurrency,
		now:              time.Now,
		running:          make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithComponent("discovery")

	return r, nil
}

// lockDevice serializes runs of the same device.
func (r *Reconciler) lockDevice(deviceID int64) func() {
	r.mu.Lock()
	m, ok := r.running[deviceID]
	if !ok {
		m = &sync.Mutex{}
		r.running[deviceID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

type run struct {
	id       string
	deviceID int64
	phase    Phase
	log      logger.Logger
}

func (rn *run) advance(p Phase) {
	rn.phase = p
	metrics.SetPhase(strconv.FormatInt(rn.deviceID, 10), int(p))
	rn.log.Debug().Str("phase", p.String()).Msg("Discovery phase")
}

type fetched struct {
	detail *types.TerminalDetail
	err    error
}

// Discover runs one reconciliation pass for a device. filter may be nil.
// It returns ErrDeviceNotFound or ErrUnreachable without touching the
// hierarchy; per-terminal failures only raise the report's error count.
func (r *Reconciler) Discover(ctx context.Context, deviceID int64, filter *types.ScanFilter) (*model.DiscoveryReport, error) {
	unlock := r.lockDevice(deviceID)
	defer unlock()

	if r.deviceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deviceTimeout)
		defer cancel()
	}

	rn := &run{id: uuid.NewString(), deviceID: deviceID}
	rn.log = logger.Wrap(r.log.With().
		Str("run_id", rn.id).
		Int64("device_id", deviceID).
		Logger())
	rn.advance(PhaseNotStarted)

	started := r.now()
	report, err := r.discover(ctx, rn, filter, started)
	elapsed := r.now().Sub(started)

	switch {
	case err == nil:
		metrics.ObserveRun(metrics.ResultSuccess, elapsed)
		rn.log.Info().
			Int("found", report.Found).
			Int("created", report.Created).
			Int("updated", report.Updated).
			Int("errors", report.Errors).
			Dur("duration", elapsed).
			Msg("Discovery completed")
	case errors.Is(err, ErrDeviceNotFound):
		metrics.ObserveRun(metrics.ResultNotFound, elapsed)
		rn.log.Warn().Err(err).Msg("Discovery rejected")
	case errors.Is(err, ErrUnreachable):
		metrics.ObserveRun(metrics.ResultUnreachable, elapsed)
		rn.log.Warn().Err(err).Str("phase", rn.phase.String()).Msg("Device unreachable")
	default:
		metrics.ObserveRun(metrics.ResultError, elapsed)
		rn.log.Error().Err(err).Str("phase", rn.phase.String()).Msg("Discovery failed")
	}

	return report, err
}

func (r *Reconciler) discover(ctx context.Context, rn *run, filter *types.ScanFilter, started time.Time) (*model.DiscoveryReport, error) {
	device, err := r.store.GetDevice(ctx, rn.deviceID)
	if err != nil {
		return nil, err
	}

	exec, err := r.newClient(device)
	if err != nil {
		return nil, fmt.Errorf("open client for device %d: %w", device.ID, err)
	}

	if !exec.TestReachable(ctx) {
		r.markOffline(ctx, rn, device)
		return nil, fmt.Errorf("%w: device %d (%s)", ErrUnreachable, device.ID, device.Address)
	}
	rn.advance(PhaseReachabilityChecked)
	r.markOnline(ctx, rn, device, exec)

	source, err := r.newSource(device, exec)
	if err != nil {
		return nil, fmt.Errorf("terminal source for device %d: %w", device.ID, err)
	}

	rn.advance(PhaseWalking)
	scan, err := source.ScanTerminals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("scan device %d: %w", device.ID, err)
	}
	metrics.ObserveWalk(len(scan.Addresses) + len(scan.DecodeErrors))
	rn.log.Debug().
		Int("tuples", len(scan.Addresses)).
		Int("decode_errors", len(scan.DecodeErrors)).
		Msg("Status table walked")

	details := r.fetchDetails(ctx, source, scan.Addresses)

	report := &model.DiscoveryReport{
		RunID:     rn.id,
		DeviceID:  device.ID,
		StartedAt: started,
	}

	for _, decodeErr := range scan.DecodeErrors {
		report.Errors++
		metrics.IncTupleError(metrics.ReasonDecode)
		rn.log.Debug().Err(decodeErr).Msg("Skipping undecodable row")
	}

	rn.advance(PhaseReconcilingTuples)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	observedAt := r.now()
	touched := make(map[int64]struct{})

	for i, addr := range scan.Addresses {
		tupleLog := rn.log.With().
			Int("slot", addr.Slot).
			Int("port", addr.Port).
			Int("onu_id", addr.TerminalID).
			Logger()

		if details[i].err != nil {
			report.Errors++
			metrics.IncTupleError(metrics.ReasonDetailFetch)
			tupleLog.Warn().Err(details[i].err).Msg("Detail fetch failed")
			continue
		}

		var res tupleResult
		err := tx.Savepoint(ctx, func() error {
			var err error
			res, err = r.applyTuple(ctx, tx, device, addr, details[i].detail, observedAt)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("reconcile device %d: %w", device.ID, ctxErr)
			}
			report.Errors++
			metrics.IncTupleError(tupleErrorReason(err))
			tupleLog.Warn().Err(err).Msg("Tuple skipped")
			continue
		}

		if res.created {
			report.Created++
		} else {
			report.Updated++
		}
		if res.slotCreated {
			report.SlotsCreated++
		}
		if res.portCreated {
			report.PortsCreated++
		}
		touched[res.portID] = struct{}{}
		if res.prevPortID != 0 {
			touched[res.prevPortID] = struct{}{}
		}
	}

	if err := tx.RefreshPortCounters(ctx, sortedIDs(touched)); err != nil {
		return nil, fmt.Errorf("refresh port counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	rn.advance(PhaseCommitted)

	report.Found = report.Created + report.Updated + report.Errors
	report.FinishedAt = r.now()

	metrics.AddTerminals(report.Created, report.Updated)
	metrics.AddHierarchyCreated(report.SlotsCreated, report.PortsCreated)

	return report, nil
}

// fetchDetails queries every address with at most fetchConcurrency requests
// in flight. Results keep walk order; failures are kept per tuple.
func (r *Reconciler) fetchDetails(ctx context.Context, source types.TerminalSource, addrs []types.TerminalAddress) []fetched {
	results := make([]fetched, len(addrs))

	var g errgroup.Group
	g.SetLimit(r.fetchConcurrency)

	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			detail, err := source.FetchDetail(ctx, addr)
			results[i] = fetched{detail: detail, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type tupleResult struct {
	portID int64
	// prevPortID is the port the terminal left, zero when it did not move.
	prevPortID  int64
	created     bool
	slotCreated bool
	portCreated bool
}

// applyTuple materializes the slot and port of addr, then creates or updates
// the terminal identified by its serial (or synthetic key).
func (r *Reconciler) applyTuple(ctx context.Context, tx store.Tx, device *model.Device, addr types.TerminalAddress,
	detail *types.TerminalDetail, observedAt time.Time) (tupleResult, error) {
	var res tupleResult

	slot, slotCreated, err := tx.EnsureSlot(ctx, device.ID, addr.Slot, model.SlotOnline)
	if err != nil {
		return res, fmt.Errorf("ensure slot %d: %w", addr.Slot, err)
	}

	port, portCreated, err := tx.EnsurePort(ctx, slot.ID, addr.Port, model.PortUp)
	if err != nil {
		return res, fmt.Errorf("ensure port %d/%d: %w", addr.Slot, addr.Port, err)
	}

	key, synthetic := terminalKey(device.ID, addr, detail)

	status := model.TerminalOffline
	signal := model.SignalReadings{}
	if detail != nil {
		if detail.Status != "" {
			status = detail.Status
		}
		signal = model.SignalReadings{
			RxPower:  detail.RxPower,
			TxPower:  detail.TxPower,
			Distance: detail.Distance,
		}
	}

	terminalID := addr.TerminalID
	patch := model.TerminalPatch{
		DeviceID:   &device.ID,
		PortID:     &port.ID,
		TerminalID: &terminalID,
		Status:     &status,
		Signal:     &signal,
		ObservedAt: observedAt,
	}

	existing, err := tx.FindTerminalBySerial(ctx, key)
	switch {
	case err == nil:
		if _, err := tx.PatchTerminal(ctx, existing.ID, patch); err != nil {
			return res, fmt.Errorf("update terminal %s: %w", key, err)
		}
		if existing.PortID != port.ID {
			res.prevPortID = existing.PortID
		}
	case errors.Is(err, store.ErrNotFound):
		term := &model.Terminal{
			Serial:     key,
			Synthetic:  synthetic,
			AuthStatus: model.AuthUnauthorized,
		}
		patch.Apply(term)
		if _, err := tx.CreateTerminal(ctx, term); err != nil {
			return res, fmt.Errorf("create terminal %s: %w", key, err)
		}
		res.created = true
	default:
		return res, fmt.Errorf("lookup terminal %s: %w", key, err)
	}

	res.portID = port.ID
	res.slotCreated = slotCreated
	res.portCreated = portCreated
	return res, nil
}

func (r *Reconciler) markOffline(ctx context.Context, rn *run, device *model.Device) {
	err := r.store.UpdateDeviceStatus(ctx, device.ID, model.DeviceStatusUpdate{Status: model.DeviceOffline})
	if err != nil {
		rn.log.Warn().Err(err).Msg("Failed to mark device offline")
	}
}

// systemReader is implemented by executors that read the MIB-II system
// group in one call, such as snmp.Client.
type systemReader interface {
	SystemInfo(ctx context.Context) (*snmp.SystemInfo, error)
}

// markOnline records the reachability outcome and the system group values.
// System values are best-effort.
func (r *Reconciler) markOnline(ctx context.Context, rn *run, device *model.Device, exec types.SNMPExecutor) {
	seen := r.now()
	upd := model.DeviceStatusUpdate{Status: model.DeviceOnline, LastSeen: &seen}

	info := readSystemInfo(ctx, exec)
	if info.Description != "" {
		upd.Description = &info.Description
	}
	if info.UpTime != "" {
		upd.Uptime = &info.UpTime
	}
	if info.Name != "" {
		rn.log.Debug().Str("sys_name", info.Name).Msg("Device identified")
	}

	if err := r.store.UpdateDeviceStatus(ctx, device.ID, upd); err != nil {
		rn.log.Warn().Err(err).Msg("Failed to record device status")
	}
}

func readSystemInfo(ctx context.Context, exec types.SNMPExecutor) snmp.SystemInfo {
	if sr, ok := exec.(systemReader); ok {
		if info, err := sr.SystemInfo(ctx); err == nil && info != nil {
			return *info
		}
		return snmp.SystemInfo{}
	}

	var info snmp.SystemInfo
	if v, err := exec.Get(ctx, snmp.OIDSysDescr); err == nil {
		info.Description = v
	}
	if v, err := exec.Get(ctx, snmp.OIDSysUpTime); err == nil {
		info.UpTime = v
	}
	return info
}

// Outcome is the result of one device in DiscoverAll.
type Outcome struct {
	DeviceID int64                  `json:"device_id"`
	Report   *model.DiscoveryReport `json:"report,omitempty"`
	Err      error                  `json:"-"`
}

// DiscoverAll runs Discover for each device concurrently. An empty deviceIDs
// discovers every device in the store. Outcomes keep the order of deviceIDs;
// per-device failures are reported in Outcome.Err.
func (r *Reconciler) DiscoverAll(ctx context.Context, deviceIDs []int64, filter *types.ScanFilter) ([]Outcome, error) {
	if len(deviceIDs) == 0 {
		devices, err := r.store.ListDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("list devices: %w", err)
		}
		for _, d := range devices {
			deviceIDs = append(deviceIDs, d.ID)
		}
	}

	outcomes := make([]Outcome, len(deviceIDs))

	var g errgroup.Group
	for i, id := range deviceIDs {
		i, id := i, id
		g.Go(func() error {
			report, err := r.Discover(ctx, id, filter)
			outcomes[i] = Outcome{DeviceID: id, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func tupleErrorReason(err error) string {
	if errors.Is(err, store.ErrDuplicateKey) {
		return metrics.ReasonDuplicate
	}
	return metrics.ReasonStore
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
