// Package postgres stores the inventory in PostgreSQL through database/sql
// and the pgx driver. Uniqueness of slots, ports and serials is enforced by
// table constraints, and a discovery run maps onto one SQL transaction with a
// savepoint per tuple.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/store"
)

const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"

	savepointName = "tuple"
)

var errNilDB = errors.New("postgres store: nil db")

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store implements store.Store on a *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// mapError translates constraint violations into store errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case sqlstateUniqueViolation:
		return fmt.Errorf("%w: %s", store.ErrDuplicateKey, pgErr.ConstraintName)
	case sqlstateForeignKeyViolation:
		if strings.HasSuffix(pgErr.ConstraintName, "_device_id_fkey") {
			return fmt.Errorf("%w: %s", store.ErrDeviceNotFound, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

const deviceColumns = `id, name, address, vendor, model, snmp_community, snmp_version, snmp_port,
	cli_username, cli_password, cli_port, status, last_seen, uptime, description, annotations,
	created_at, updated_at`

func scanDevice(row rowScanner) (*model.Device, error) {
	var (
		d           model.Device
		lastSeen    sql.NullTime
		annotations []byte
	)
	if err := row.Scan(
		&d.ID, &d.Name, &d.Address, &d.Vendor, &d.Model,
		&d.SNMPCommunity, &d.SNMPVersion, &d.SNMPPort,
		&d.CLIUsername, &d.CLIPassword, &d.CLIPort,
		&d.Status, &lastSeen, &d.Uptime, &d.Description, &annotations,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d.LastSeen = timePtr(lastSeen)
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &d.Annotations); err != nil {
			return nil, fmt.Errorf("decode annotations: %w", err)
		}
		if len(d.Annotations) == 0 {
			d.Annotations = nil
		}
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

// CreateDevice inserts d. Names are unique.
func (s *Store) CreateDevice(ctx context.Context, d *model.Device) (*model.Device, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	if d == nil {
		return nil, errors.New("postgres store: nil device")
	}

	c := d.Clone()
	if c.Status == "" {
		c.Status = model.DeviceUnknown
	}
	annotations := []byte("{}")
	if len(c.Annotations) > 0 {
		raw, err := json.Marshal(c.Annotations)
		if err != nil {
			return nil, fmt.Errorf("encode annotations: %w", err)
		}
		annotations = raw
	}

	const query = `
INSERT INTO devices (
	name, address, vendor, model, snmp_community, snmp_version, snmp_port,
	cli_username, cli_password, cli_port, status, description, annotations
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
RETURNING id, created_at, updated_at`

	if err := s.db.QueryRowContext(ctx, query,
		c.Name, c.Address, c.Vendor, c.Model, c.SNMPCommunity, c.SNMPVersion, c.SNMPPort,
		c.CLIUsername, c.CLIPassword, c.CLIPort, c.Status, c.Description, annotations,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (s *Store) GetDevice(ctx context.Context, id int64) (*model.Device, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, id)
	}
	return d, err
}

func (s *Store) ListDevices(ctx context.Context) ([]*model.Device, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDeviceStatus(ctx context.Context, id int64, upd model.DeviceStatusUpdate) error {
	if s == nil || s.db == nil {
		return errNilDB
	}

	const query = `
UPDATE devices SET
	status = $2,
	last_seen = COALESCE($3, last_seen),
	uptime = COALESCE($4, uptime),
	description = COALESCE($5, description),
	updated_at = NOW()
WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, upd.Status,
		nullable(upd.LastSeen), nullable(upd.Uptime), nullable(upd.Description))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", store.ErrDeviceNotFound, id)
	}
	return nil
}

const (
	slotColumns = `id, device_id, slot_number, card_type, status`
	portColumns = `id, slot_id, port_number, status, total_onus, online_onus, offline_onus`
)

func scanSlot(row rowScanner, extra ...any) (*model.Slot, error) {
	var sl model.Slot
	dest := append([]any{&sl.ID, &sl.DeviceID, &sl.SlotNumber, &sl.CardType, &sl.Status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &sl, nil
}

func scanPort(row rowScanner, extra ...any) (*model.Port, error) {
	var p model.Port
	dest := append([]any{
		&p.ID, &p.SlotID, &p.PortNumber, &p.Status,
		&p.TotalTerminals, &p.OnlineTerminals, &p.OfflineTerminals,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetSlot(ctx context.Context, id int64) (*model.Slot, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	sl, err := scanSlot(s.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: slot %d", store.ErrNotFound, id)
	}
	return sl, err
}

func (s *Store) GetPort(ctx context.Context, id int64) (*model.Port, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	p, err := scanPort(s.db.QueryRowContext(ctx, `SELECT `+portColumns+` FROM ports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: port %d", store.ErrNotFound, id)
	}
	return p, err
}

// ListPorts returns the ports of a device ordered by slot and port number.
func (s *Store) ListPorts(ctx context.Context, deviceID int64) ([]*model.Port, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	const query = `
SELECT p.id, p.slot_id, p.port_number, p.status, p.total_onus, p.online_onus, p.offline_onus
FROM ports p
JOIN slots s ON s.id = p.slot_id
WHERE s.device_id = $1
ORDER BY s.slot_number ASC, p.port_number ASC`

	rows, err := s.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Port
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const terminalColumns = `id, device_id, port_id, serial, synthetic, onu_id, status, auth_status,
	rx_power, tx_power, distance,
	customer_name, customer_phone, customer_address, service_plan, vlan, description,
	last_online, last_offline, created_at, updated_at`

func scanTerminal(row rowScanner) (*model.Terminal, error) {
	var (
		t           model.Terminal
		rx, tx      sql.NullFloat64
		distance    sql.NullInt64
		vlan        sql.NullInt64
		lastOnline  sql.NullTime
		lastOffline sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.DeviceID, &t.PortID, &t.Serial, &t.Synthetic, &t.TerminalID, &t.Status, &t.AuthStatus,
		&rx, &tx, &distance,
		&t.Subscriber.Name, &t.Subscriber.Phone, &t.Subscriber.Address,
		&t.Subscriber.ServicePlan, &vlan, &t.Subscriber.Description,
		&lastOnline, &lastOffline, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Signal.RxPower = floatPtr(rx)
	t.Signal.TxPower = floatPtr(tx)
	t.Signal.Distance = intPtr(distance)
	t.Subscriber.VLAN = intPtr(vlan)
	t.LastOnline = timePtr(lastOnline)
	t.LastOffline = timePtr(lastOffline)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func getTerminal(ctx context.Context, q dbtx, id int64, lock bool) (*model.Terminal, error) {
	query := `SELECT ` + terminalColumns + ` FROM terminals WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	t, err := scanTerminal(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: terminal %d", store.ErrNotFound, id)
	}
	return t, err
}

func findTerminalBySerial(ctx context.Context, q dbtx, serial string) (*model.Terminal, error) {
	t, err := scanTerminal(q.QueryRowContext(ctx,
		`SELECT `+terminalColumns+` FROM terminals WHERE serial = $1`, serial))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: serial %q", store.ErrNotFound, serial)
	}
	return t, err
}

func patchTerminal(ctx context.Context, q dbtx, id int64, patch model.TerminalPatch) (*model.Terminal, error) {
	t, err := getTerminal(ctx, q, id, true)
	if err != nil {
		return nil, err
	}
	patch.Apply(t)

	const query = `
UPDATE terminals SET
	device_id = $2,
	port_id = $3,
	onu_id = $4,
	status = $5,
	auth_status = $6,
	rx_power = $7,
	tx_power = $8,
	distance = $9,
	customer_name = $10,
	customer_phone = $11,
	customer_address = $12,
	service_plan = $13,
	vlan = $14,
	description = $15,
	last_online = $16,
	last_offline = $17,
	updated_at = NOW()
WHERE id = $1
RETURNING updated_at`

	if err := q.QueryRowContext(ctx, query, t.ID,
		t.DeviceID, t.PortID, t.TerminalID, t.Status, t.AuthStatus,
		nullable(t.Signal.RxPower), nullable(t.Signal.TxPower), nullable(t.Signal.Distance),
		t.Subscriber.Name, t.Subscriber.Phone, t.Subscriber.Address, t.Subscriber.ServicePlan,
		nullable(t.Subscriber.VLAN), t.Subscriber.Description,
		nullable(t.LastOnline), nullable(t.LastOffline),
	).Scan(&t.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (s *Store) GetTerminal(ctx context.Context, id int64) (*model.Terminal, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	return getTerminal(ctx, s.db, id, false)
}

func (s *Store) FindTerminalBySerial(ctx context.Context, serial string) (*model.Terminal, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	return findTerminalBySerial(ctx, s.db, serial)
}

func (s *Store) ListTerminals(ctx context.Context, deviceID int64) ([]*model.Terminal, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+terminalColumns+` FROM terminals WHERE device_id = $1 ORDER BY id ASC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PatchTerminal applies patch in its own transaction.
func (s *Store) PatchTerminal(ctx context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sqlTx.Rollback() }()

	t, err := patchTerminal(ctx, sqlTx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) CountTerminals(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errNilDB
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM terminals`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Begin opens a SQL transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &tx{tx: sqlTx}, nil
}

type tx struct {
	tx *sql.Tx
}

// EnsureSlot upserts the slot. The no-op update makes RETURNING yield the
// existing row; xmax is zero only for a freshly inserted tuple.
func (t *tx) EnsureSlot(ctx context.Context, deviceID int64, slotNumber int, status string) (*model.Slot, bool, error) {
	const query = `
INSERT INTO slots (device_id, slot_number, status)
VALUES ($1, $2, $3)
ON CONFLICT (device_id, slot_number)
DO UPDATE SET slot_number = EXCLUDED.slot_number
RETURNING id, device_id, slot_number, card_type, status, (xmax = 0) AS created`

	var created bool
	sl, err := scanSlot(t.tx.QueryRowContext(ctx, query, deviceID, slotNumber, status), &created)
	if err != nil {
		return nil, false, mapError(err)
	}
	return sl, created, nil
}

func (t *tx) EnsurePort(ctx context.Context, slotID int64, portNumber int, status string) (*model.Port, bool, error) {
	const query = `
INSERT INTO ports (slot_id, port_number, status)
VALUES ($1, $2, $3)
ON CONFLICT (slot_id, port_number)
DO UPDATE SET port_number = EXCLUDED.port_number
RETURNING id, slot_id, port_number, status, total_onus, online_onus, offline_onus, (xmax = 0) AS created`

	var created bool
	p, err := scanPort(t.tx.QueryRowContext(ctx, query, slotID, portNumber, status), &created)
	if err != nil {
		return nil, false, mapError(err)
	}
	return p, created, nil
}

func (t *tx) FindTerminalBySerial(ctx context.Context, serial string) (*model.Terminal, error) {
	return findTerminalBySerial(ctx, t.tx, serial)
}

func (t *tx) CreateTerminal(ctx context.Context, term *model.Terminal) (*model.Terminal, error) {
	if term == nil {
		return nil, errors.New("postgres store: nil terminal")
	}

	const query = `
INSERT INTO terminals (
	device_id, port_id, serial, synthetic, onu_id, status, auth_status,
	rx_power, tx_power, distance,
	customer_name, customer_phone, customer_address, service_plan, vlan, description,
	last_online, last_offline
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING id, created_at, updated_at`

	c := term.Clone()
	if err := t.tx.QueryRowContext(ctx, query,
		c.DeviceID, c.PortID, c.Serial, c.Synthetic, c.TerminalID, c.Status, c.AuthStatus,
		nullable(c.Signal.RxPower), nullable(c.Signal.TxPower), nullable(c.Signal.Distance),
		c.Subscriber.Name, c.Subscriber.Phone, c.Subscriber.Address, c.Subscriber.ServicePlan,
		nullable(c.Subscriber.VLAN), c.Subscriber.Description,
		nullable(c.LastOnline), nullable(c.LastOffline),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (t *tx) PatchTerminal(ctx context.Context, id int64, patch model.TerminalPatch) (*model.Terminal, error) {
	return patchTerminal(ctx, t.tx, id, patch)
}

func (t *tx) RefreshPortCounters(ctx context.Context, portIDs []int64) error {
	const query = `
UPDATE ports SET
	total_onus = c.total,
	online_onus = c.online,
	offline_onus = c.offline
FROM (
	SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'online') AS online,
		COUNT(*) FILTER (WHERE status = 'offline') AS offline
	FROM terminals
	WHERE port_id = $1
) AS c
WHERE ports.id = $1`

	for _, id := range portIDs {
		res, err := t.tx.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("refresh port %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: port %d", store.ErrNotFound, id)
		}
	}
	return nil
}

// Savepoint wraps fn in SAVEPOINT / RELEASE, rolling back to the savepoint
// when fn fails so the outer transaction stays usable.
func (t *tx) Savepoint(ctx context.Context, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
