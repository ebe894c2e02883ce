package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS plates (
		id              BIGSERIAL PRIMARY KEY,
		number          TEXT NOT NULL,
		normalized      TEXT NOT NULL,
		country         TEXT,
		region          TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_plates_normalized ON plates(normalized);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id              BIGSERIAL PRIMARY KEY,
		plate_id        BIGINT REFERENCES plates(id),
		email           TEXT,
		make            TEXT,
		model           TEXT,
		color           TEXT,
		notes           TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_plate_id ON vehicles(plate_id);`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGSERIAL PRIMARY KEY,
		slot_index      INT NOT NULL,
		plate_id        BIGINT REFERENCES plates(id),
		email           TEXT,
		status          TEXT NOT NULL,
		starts_at       TIMESTAMPTZ,
		ends_at         TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot_index ON bookings(slot_index);`,
	`CREATE TABLE IF NOT EXISTS parking_events (
		id              BIGSERIAL PRIMARY KEY,
		kind            TEXT NOT NULL,
		slot_index      INT,
		plate           TEXT,
		classification  TEXT,
		detail          JSONB,
		event_time      TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_events_kind ON parking_events(kind);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_events_plate ON parking_events(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_events_event_time ON parking_events(event_time);`,
}

func RunMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
