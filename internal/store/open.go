package store

import "strings"

// Open selects a backend by dsn's scheme: a postgres:// or postgresql://
// DSN opens PostgresStore; anything else (including empty, meaning "use
// the default path") opens a SQLiteStore at dsn, or at "melvin.db" if dsn
// is empty.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(dsn)
	}
	path := dsn
	if path == "" {
		path = "melvin.db"
	}
	return OpenSQLite(path)
}
