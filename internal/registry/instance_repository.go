package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const instanceColumns = `id, directory, pid, endpoint, mongod_path, started_at,
	closed_at, disowned, state, teardown_error`

// RecordStart inserts or replaces the record for inst.Directory.
func (db *DB) RecordStart(inst *Instance) error {
	if inst.StartedAt.IsZero() {
		inst.StartedAt = time.Now()
	}
	// Stored as text, so comparisons need a single zone.
	inst.StartedAt = inst.StartedAt.UTC()

	query := `
		INSERT INTO instances (directory, pid, endpoint, mongod_path, started_at, disowned, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(directory) DO UPDATE SET
			pid = excluded.pid,
			endpoint = excluded.endpoint,
			mongod_path = excluded.mongod_path,
			started_at = excluded.started_at,
			disowned = excluded.disowned,
			state = excluded.state,
			closed_at = NULL,
			teardown_error = NULL
	`

	_, err := db.conn.Exec(query, inst.Directory, inst.PID, inst.Endpoint,
		inst.MongodPath, inst.StartedAt, inst.Disowned, inst.State)
	if err != nil {
		return fmt.Errorf("failed to record instance: %w", err)
	}

	logrus.Debugf("Recorded instance: %s", inst.Directory)
	return nil
}

// UpdateState records a lifecycle transition.
func (db *DB) UpdateState(directory, state string) error {
	_, err := db.conn.Exec(`UPDATE instances SET state = ? WHERE directory = ?`, state, directory)
	if err != nil {
		return fmt.Errorf("failed to update instance state: %w", err)
	}
	return nil
}

// MarkDisowned flags the directory as one to keep after teardown.
func (db *DB) MarkDisowned(directory string) error {
	_, err := db.conn.Exec(`UPDATE instances SET disowned = 1 WHERE directory = ?`, directory)
	if err != nil {
		return fmt.Errorf("failed to mark instance disowned: %w", err)
	}
	return nil
}

// MarkClosed records the end of a teardown. An empty teardownErr is stored as NULL.
func (db *DB) MarkClosed(directory, state string, disowned bool, teardownErr string) error {
	var errText sql.NullString
	if teardownErr != "" {
		errText = sql.NullString{String: teardownErr, Valid: true}
	}

	_, err := db.conn.Exec(`
		UPDATE instances SET closed_at = ?, state = ?, disowned = ?, teardown_error = ?
		WHERE directory = ?`,
		time.Now().UTC(), state, disowned, errText, directory)
	if err != nil {
		return fmt.Errorf("failed to mark instance closed: %w", err)
	}
	return nil
}

// GetInstance returns the record for directory, or nil when there is none.
func (db *DB) GetInstance(directory string) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE directory = ?`

	inst, err := scanInstance(db.conn.QueryRow(query, directory))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

// ListInstances returns records newest first. Closed instances whose
// directory was removed are skipped unless all is set.
func (db *DB) ListInstances(all bool) ([]*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	if !all {
		query += ` WHERE closed_at IS NULL OR disowned = 1`
	}
	query += ` ORDER BY started_at DESC, id DESC`

	return db.queryInstances(query)
}

// ListStartedBefore returns records started at or before cutoff, oldest first.
func (db *DB) ListStartedBefore(cutoff time.Time) ([]*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances
		WHERE started_at <= ? ORDER BY started_at ASC, id ASC`

	return db.queryInstances(query, cutoff.UTC())
}

// DeleteInstance removes the record for directory.
func (db *DB) DeleteInstance(directory string) error {
	if _, err := db.conn.Exec(`DELETE FROM instances WHERE directory = ?`, directory); err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	logrus.Debugf("Deleted instance record: %s", directory)
	return nil
}

func (db *DB) queryInstances(query string, args ...interface{}) ([]*Instance, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}

	return instances, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row rowScanner) (*Instance, error) {
	inst := &Instance{}
	err := row.Scan(&inst.ID, &inst.Directory, &inst.PID, &inst.Endpoint, &inst.MongodPath,
		&inst.StartedAt, &inst.ClosedAt, &inst.Disowned, &inst.State, &inst.TeardownError)
	if err != nil {
		return nil, err
	}
	return inst, nil
}
