package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	address        TEXT NOT NULL,
	vendor         TEXT NOT NULL,
	model          TEXT NOT NULL DEFAULT '',
	snmp_community TEXT NOT NULL DEFAULT '',
	snmp_version   TEXT NOT NULL DEFAULT '2c',
	snmp_port      INTEGER NOT NULL DEFAULT 161,
	cli_username   TEXT NOT NULL DEFAULT '',
	cli_password   TEXT NOT NULL DEFAULT '',
	cli_port       INTEGER NOT NULL DEFAULT 22,
	status         TEXT NOT NULL DEFAULT 'unknown',
	last_seen      TIMESTAMPTZ,
	uptime         TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	annotations    JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS slots (
	id          BIGSERIAL PRIMARY KEY,
	device_id   BIGINT NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
	slot_number INTEGER NOT NULL,
	card_type   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	UNIQUE (device_id, slot_number)
);

CREATE TABLE IF NOT EXISTS ports (
	id           BIGSERIAL PRIMARY KEY,
	slot_id      BIGINT NOT NULL REFERENCES slots (id) ON DELETE CASCADE,
	port_number  INTEGER NOT NULL,
	status       TEXT NOT NULL,
	total_onus   INTEGER NOT NULL DEFAULT 0,
	online_onus  INTEGER NOT NULL DEFAULT 0,
	offline_onus INTEGER NOT NULL DEFAULT 0,
	UNIQUE (slot_id, port_number)
);

CREATE TABLE IF NOT EXISTS terminals (
	id               BIGSERIAL PRIMARY KEY,
	device_id        BIGINT NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
	port_id          BIGINT NOT NULL REFERENCES ports (id) ON DELETE CASCADE,
	serial           TEXT NOT NULL UNIQUE,
	synthetic        BOOLEAN NOT NULL DEFAULT FALSE,
	onu_id           INTEGER NOT NULL,
	status           TEXT NOT NULL,
	auth_status      TEXT NOT NULL DEFAULT 'unauthorized',
	rx_power         DOUBLE PRECISION,
	tx_power         DOUBLE PRECISION,
	distance         INTEGER,
	customer_name    TEXT NOT NULL DEFAULT '',
	customer_phone   TEXT NOT NULL DEFAULT '',
	customer_address TEXT NOT NULL DEFAULT '',
	service_plan     TEXT NOT NULL DEFAULT '',
	vlan             INTEGER,
	description      TEXT NOT NULL DEFAULT '',
	last_online      TIMESTAMPTZ,
	last_offline     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS terminals_device_idx ON terminals (device_id);
CREATE INDEX IF NOT EXISTS terminals_port_idx ON terminals (port_id);
`

// Migrate creates the inventory tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("migrate: nil db")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
