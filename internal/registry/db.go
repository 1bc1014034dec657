package registry

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lmorchard/tempmongo-go/internal/config"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the registry database connection.
type DB struct {
	conn *sql.DB
	path string
}

// New opens the registry at dbPath, creating the file and schema as needed.
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
	}

	// Several test processes may share one registry file.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn, path: dbPath}
	if err := db.InitSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	logrus.Debugf("Registry opened at %s", dbPath)
	return db, nil
}

// InitSchema creates missing tables and applies pending migrations.
func (db *DB) InitSchema() error {
	if _, err := db.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) Path() string {
	return db.path
}

// GetMigrationVersion returns the current migration version.
func (db *DB) GetMigrationVersion() (int, error) {
	var version sql.NullInt64
	err := db.conn.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Missing migrations table means nothing has been applied yet.
		return 0, nil //nolint:nilerr
	}

	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// ApplyMigration applies a migration unless another process already did.
func (db *DB) ApplyMigration(version int, migrationSQL string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var applied int
	if err := tx.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&applied); err != nil {
		return fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	if applied > 0 {
		return nil
	}

	if _, err := tx.Exec(migrationSQL); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", version, err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	logrus.Debugf("Applied registry migration %d", version)
	return nil
}

// Vacuum reclaims space after pruning.
func (db *DB) Vacuum() error {
	if _, err := db.conn.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum registry: %w", err)
	}
	return nil
}
