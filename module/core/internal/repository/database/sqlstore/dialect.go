package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case Postgres, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown store driver %q", s)
}

// rebind rewrites ? placeholders into the dialect's positional form.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	id := "BIGSERIAL PRIMARY KEY"
	ts := "TIMESTAMPTZ"
	if d == SQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
		ts = "TIMESTAMP"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS geofences (
			id ` + id + `,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			radius_meters DOUBLE PRECISION NOT NULL CHECK (radius_meters > 0),
			created_at ` + ts + ` NOT NULL,
			is_selected BOOLEAN NOT NULL DEFAULT FALSE,
			is_visited BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS visits (
			id ` + id + `,
			geofence_id BIGINT NOT NULL REFERENCES geofences(id) ON DELETE CASCADE,
			geofence_name TEXT NOT NULL,
			entry_time ` + ts + ` NOT NULL,
			exit_time ` + ts + `,
			duration_minutes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS visits_one_open_per_geofence ON visits (geofence_id) WHERE exit_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS visits_entry_time ON visits (entry_time)`,
	}
}
