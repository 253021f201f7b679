// Command nano-inventory discovers the ONUs of ZTE OLTs over SNMP and
// reconciles them into the inventory store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	inventory "github.com/nanoncore/nano-inventory"
	"github.com/nanoncore/nano-inventory/config"
	"github.com/nanoncore/nano-inventory/discovery"
	"github.com/nanoncore/nano-inventory/drivers/mock"
	"github.com/nanoncore/nano-inventory/logger"
	"github.com/nanoncore/nano-inventory/metrics"
	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/provision"
	"github.com/nanoncore/nano-inventory/store"
	"github.com/nanoncore/nano-inventory/store/memory"
	"github.com/nanoncore/nano-inventory/store/postgres"
	"github.com/nanoncore/nano-inventory/types"
	"github.com/nanoncore/nano-inventory/vendors/zte"
)

type options struct {
	configPath string
	deviceID   int64
	all        bool
	simulate   bool
	migrate    bool
	slot       int
	port       int
	authorize  int64
	interval   time.Duration
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("nano-inventory", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML config (default $"+config.EnvConfigPath+")")
	fs.Int64Var(&opts.deviceID, "device", 0, "discover a single device by id")
	fs.BoolVar(&opts.all, "all", false, "discover every device in the store")
	fs.BoolVar(&opts.simulate, "simulate", false, "answer SNMP from a simulated C320 instead of the network")
	fs.BoolVar(&opts.migrate, "migrate", false, "create the PostgreSQL schema before running")
	fs.IntVar(&opts.slot, "slot", -1, "only reconcile terminals in this slot")
	fs.IntVar(&opts.port, "port", -1, "only reconcile terminals on this PON port")
	fs.Int64Var(&opts.authorize, "authorize", 0, "authorize the terminal with this id over CLI and exit")
	fs.DurationVar(&opts.interval, "interval", 0, "repeat discovery at this interval until interrupted")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.authorize == 0 && opts.deviceID == 0 && !opts.all {
		return opts, errors.New("one of -device, -all or -authorize is required")
	}
	if opts.deviceID != 0 && opts.all {
		return opts, errors.New("-device and -all are mutually exclusive")
	}
	return opts, nil
}

// filter returns the scan filter of -slot and -port. Negative means unset.
func (o options) filter() *types.ScanFilter {
	if o.slot < 0 && o.port < 0 {
		return nil
	}
	f := &types.ScanFilter{}
	if o.slot >= 0 {
		slot := o.slot
		f.Slot = &slot
	}
	if o.port >= 0 {
		port := o.port
		f.Port = &port
	}
	return f
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "nano-inventory:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, opts.migrate)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if cfg.Database.URL == "" {
		if err := seedDevices(ctx, st, cfg.Devices); err != nil {
			return err
		}
	}

	if opts.authorize != 0 {
		return authorize(ctx, st, log, opts.authorize, out)
	}

	metrics.Init(prometheus.DefaultRegisterer, st)
	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Listen, log)
		defer srv.Close()
	}

	reconciler, err := newReconciler(st, cfg, log, opts.simulate)
	if err != nil {
		return err
	}

	var ids []int64
	if opts.deviceID != 0 {
		ids = []int64{opts.deviceID}
	}

	for {
		failed, err := discoverOnce(ctx, reconciler, ids, opts.filter(), out)
		if err != nil {
			return err
		}
		if opts.interval <= 0 {
			if failed > 0 {
				return fmt.Errorf("%d device(s) failed discovery", failed)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.interval):
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, migrate bool) (store.Store, error) {
	if cfg.Database.URL == "" {
		return memory.New(), nil
	}

	pg, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := postgres.Migrate(ctx, pg.DB()); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}
	return pg, nil
}

// seedDevices loads the configured devices into an in-memory store.
func seedDevices(ctx context.Context, st store.Store, devices []config.DeviceConfig) error {
	for _, d := range devices {
		_, err := st.CreateDevice(ctx, &model.Device{
			Name:          d.Name,
			Address:       d.Address,
			Vendor:        d.Vendor,
			Model:         d.Model,
			SNMPCommunity: d.SNMPCommunity,
			SNMPVersion:   d.SNMPVersion,
			SNMPPort:      d.SNMPPort,
			CLIUsername:   d.CLIUsername,
			CLIPassword:   d.CLIPassword,
			CLIPort:       d.CLIPort,
			Status:        model.DeviceUnknown,
			Annotations:   d.Annotations,
		})
		if err != nil {
			return fmt.Errorf("seed device %s: %w", d.Name, err)
		}
	}
	return nil
}

func newReconciler(st store.Store, cfg config.Config, log logger.Logger, simulate bool) (*discovery.Reconciler, error) {
	defaults := inventory.Defaults{
		Timeout:     cfg.SNMP.Timeout,
		Retries:     cfg.SNMP.Retries,
		WalkTimeout: cfg.Discovery.WalkTimeout,
	}

	newClient := func(d *model.Device) (types.SNMPExecutor, error) {
		return inventory.NewSNMPClient(d, defaults)
	}
	if simulate {
		sims := newSimulators()
		newClient = sims.client
	}

	return discovery.New(st, newClient, inventory.NewTerminalSource,
		discovery.WithLogger(log),
		discovery.WithFetchConcurrency(cfg.Discovery.FetchConcurrency),
		discovery.WithDeviceTimeout(cfg.Discovery.DeviceTimeout),
	)
}

// result is the printed form of one device outcome.
type result struct {
	DeviceID int64                  `json:"device_id"`
	Report   *model.DiscoveryReport `json:"report,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func discoverOnce(ctx context.Context, r *discovery.Reconciler, ids []int64, filter *types.ScanFilter, out io.Writer) (int, error) {
	outcomes, err := r.DiscoverAll(ctx, ids, filter)
	if err != nil {
		return 0, err
	}

	failed := 0
	results := make([]result, 0, len(outcomes))
	for _, o := range outcomes {
		res := result{DeviceID: o.DeviceID, Report: o.Report}
		if o.Err != nil {
			failed++
			res.Error = o.Err.Error()
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return failed, enc.Encode(results)
}

func authorize(ctx context.Context, st store.Store, log logger.Logger, terminalID int64, out io.Writer) error {
	svc, err := provision.New(st, inventory.OpenCLISession, inventory.NewAuthorizer, provision.WithLogger(log))
	if err != nil {
		return err
	}

	t, err := svc.Authorize(ctx, terminalID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func serveMetrics(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("listen", addr).Msg("Metrics server stopped")
		}
	}()

	log.Info().Str("listen", addr).Msg("Serving metrics")
	return srv
}

// simulators hands out one simulated C320 per device name.
type simulators struct {
	mu     sync.Mutex
	agents map[string]*mock.Driver
}

func newSimulators() *simulators {
	return &simulators{agents: make(map[string]*mock.Driver)}
}

func (s *simulators) client(d *model.Device) (types.SNMPExecutor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent, ok := s.agents[d.Name]; ok {
		return agent, nil
	}
	agent := zte.NewSimulator(demoONUs(d.Name)...)
	s.agents[d.Name] = agent
	return agent, nil
}

// demoONUs returns the ONUs of a simulated device. Serials carry a token of
// the device name so that simulated devices never share a terminal.
func demoONUs(deviceName string) []zte.SimulatedONU {
	ptr := func(v int) *int { return &v }
	prefix := "ZTEG" + serialToken(deviceName)
	return []zte.SimulatedONU{
		{Slot: 1, Port: 1, ONUID: 1, Online: true, Serial: prefix + "01", RxCentiDBm: ptr(-1850), TxCentiDBm: ptr(230), Distance: ptr(1200)},
		{Slot: 1, Port: 1, ONUID: 2, Online: false, Serial: prefix + "02"},
		{Slot: 1, Port: 2, ONUID: 1, Online: true, Serial: prefix + "03", RxCentiDBm: ptr(-2210), TxCentiDBm: ptr(210), Distance: ptr(3400)},
		{Slot: 2, Port: 1, ONUID: 5, Online: true, Serial: "", RxCentiDBm: ptr(-1990)},
	}
}

// serialToken keeps the alphanumeric characters of name, upper-cased.
func serialToken(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
