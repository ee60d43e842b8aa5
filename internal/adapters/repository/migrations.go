package repository

import (
	migrate "github.com/rubenv/sql-migrate"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// migrations returns the schema for driver.
func migrations(driver string) (*migrate.MemoryMigrationSource, error) {
	switch driver {
	case DriverPostgres:
		return &migrate.MemoryMigrationSource{Migrations: []*migrate.Migration{
			{
				Id: "0001_analysis_records",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS analysis_records (
  id VARCHAR(64) PRIMARY KEY,
  owner_id VARCHAR(128) NOT NULL,
  video_url TEXT NOT NULL,
  scores TEXT NOT NULL,
  feedback TEXT,
  created_at TIMESTAMPTZ NOT NULL
)`,
					`CREATE INDEX IF NOT EXISTS idx_analysis_records_owner_created
  ON analysis_records (owner_id, created_at DESC)`,
				},
				Down: []string{`DROP TABLE IF EXISTS analysis_records`},
			},
			{
				Id:   "0002_analysis_records_digest",
				Up:   []string{`ALTER TABLE analysis_records ADD COLUMN IF NOT EXISTS digest VARCHAR(256) NOT NULL DEFAULT ''`},
				Down: []string{`ALTER TABLE analysis_records DROP COLUMN IF EXISTS digest`},
			},
		}}, nil
	case DriverMySQL:
		return &migrate.MemoryMigrationSource{Migrations: []*migrate.Migration{
			{
				Id: "0001_analysis_records",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS analysis_records (
  id VARCHAR(64) PRIMARY KEY,
  owner_id VARCHAR(128) NOT NULL,
  video_url TEXT NOT NULL,
  scores TEXT NOT NULL,
  feedback TEXT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_analysis_records_owner_created (owner_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				},
				Down: []string{`DROP TABLE IF EXISTS analysis_records`},
			},
			{
				Id:   "0002_analysis_records_digest",
				Up:   []string{`ALTER TABLE analysis_records ADD COLUMN digest VARCHAR(256) NOT NULL DEFAULT ''`},
				Down: []string{`ALTER TABLE analysis_records DROP COLUMN digest`},
			},
		}}, nil
	default:
		return nil, ErrUnsupportedDriver
	}
}
