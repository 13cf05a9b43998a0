package db

import (
	"fmt"

	"github.com/beaconhub/beacon-registry/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.Owner{},
		&models.Project{},
		&models.BeaconGroup{},
		&models.Beacon{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrate(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errProjectIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_beacons_project_fingerprint
		ON beacons (project_id, uuid, major, minor)
	`).Error; errProjectIdx != nil {
		return fmt.Errorf("db: create beacon project fingerprint index: %w", errProjectIdx)
	}
	if errNameIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_owner_lower_name
		ON projects (owner_id, LOWER(name))
	`).Error; errNameIdx != nil {
		return fmt.Errorf("db: create project name index: %w", errNameIdx)
	}
	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrate(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errProjectIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_beacons_project_fingerprint
		ON beacons (project_id, uuid, major, minor)
	`).Error; errProjectIdx != nil {
		return fmt.Errorf("db: create beacon project fingerprint index: %w", errProjectIdx)
	}
	return nil
}
