package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS challans (
		id              BIGSERIAL PRIMARY KEY,
		vehicle_number  TEXT NOT NULL,
		vehicle_type    TEXT NOT NULL,
		violation_type  TEXT NOT NULL,
		location        TEXT NOT NULL,
		amount          NUMERIC(10,2) NOT NULL,
		status          TEXT NOT NULL DEFAULT 'PENDING',
		payment_method  TEXT,
		paid_at         TIMESTAMPTZ,
		user_id         TEXT,
		detection       JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_challans_vehicle_number ON challans(vehicle_number);`,
	`CREATE INDEX IF NOT EXISTS idx_challans_status ON challans(status);`,
	`CREATE INDEX IF NOT EXISTS idx_challans_created_at ON challans(created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
