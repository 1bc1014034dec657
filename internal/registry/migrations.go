package registry

import "sort"

// getMigrations returns the registry migration scripts keyed by version.
func getMigrations() map[int]string {
	return map[int]string{
		2: `ALTER TABLE instances ADD COLUMN teardown_error TEXT;`,
	}
}

// RunMigrations applies any pending migrations in version order.
func (db *DB) RunMigrations() error {
	currentVersion, err := db.GetMigrationVersion()
	if err != nil {
		currentVersion = 0
	}

	migrations := getMigrations()
	versions := make([]int, 0, len(migrations))
	for v := range migrations {
		if v > currentVersion {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)

	for _, version := range versions {
		if err := db.ApplyMigration(version, migrations[version]); err != nil {
			return err
		}
	}

	return nil
}
