package registry

import (
	"database/sql"
	"time"
)

// Instance is the recorded lifecycle of one started server.
type Instance struct {
	ID            int64          `db:"id"`
	Directory     string         `db:"directory"`
	PID           int            `db:"pid"`
	Endpoint      string         `db:"endpoint"`
	MongodPath    string         `db:"mongod_path"`
	StartedAt     time.Time      `db:"started_at"`
	ClosedAt      sql.NullTime   `db:"closed_at"`
	Disowned      bool           `db:"disowned"`
	State         string         `db:"state"`
	TeardownError sql.NullString `db:"teardown_error"`
}

func (i *Instance) Closed() bool {
	return i.ClosedAt.Valid
}
