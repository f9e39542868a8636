package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Commute-Live/Server/internal/importer"
)

// SQLite writes canonical rows to a local SQLite file. Writes are serialized
// with a mutex on top of a single-connection pool; SQLite supports only one
// writer at a time.
type SQLite struct {
	conn    *sql.DB
	prefix  string
	writeMu sync.Mutex
}

// NewSQLite opens the database with WAL mode enabled.
func NewSQLite(dbPath, tablePrefix string) (*SQLite, error) {
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set synchronous pragma: %w", err)
	}

	return &SQLite{conn: conn, prefix: tablePrefix}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

const sqliteSchemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	stop_id TEXT PRIMARY KEY,
	stop_name TEXT NOT NULL,
	stop_lat REAL,
	stop_lon REAL,
	parent_station TEXT,
	child_stop_ids_json TEXT NOT NULL DEFAULT '[]',
	imported_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS %[2]s (
	route_id TEXT PRIMARY KEY,
	agency_id TEXT,
	route_short_name TEXT NOT NULL DEFAULT '',
	route_long_name TEXT NOT NULL DEFAULT '',
	route_desc TEXT,
	route_type INTEGER NOT NULL,
	route_url TEXT,
	route_color TEXT,
	route_text_color TEXT,
	route_sort_order INTEGER,
	imported_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS %[3]s (
	route_id TEXT NOT NULL,
	direction_id INTEGER NOT NULL,
	stop_id TEXT NOT NULL,
	route_stop_sort_order INTEGER,
	PRIMARY KEY (route_id, direction_id, stop_id)
);
`

// EnsureSchema creates the three tables of every mode if they don't exist.
func (s *SQLite) EnsureSchema(ctx context.Context, modes []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, mode := range modes {
		stmt := fmt.Sprintf(sqliteSchemaTemplate,
			stationsTable(s.prefix, mode), routesTable(s.prefix, mode), routeStopsTable(s.prefix, mode))
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema for mode %s: %w", mode, err)
		}
	}
	return nil
}

// Replace clears the mode's three tables and writes the new rows inside one
// transaction.
func (s *SQLite) Replace(ctx context.Context, mode string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	stationsT := stationsTable(s.prefix, mode)
	routesT := routesTable(s.prefix, mode)
	routeStopsT := routeStopsTable(s.prefix, mode)

	stationSQL := fmt.Sprintf(`
		INSERT INTO %s (stop_id, stop_name, stop_lat, stop_lon, parent_station, child_stop_ids_json)
		VALUES (?, ?, ?, ?, ?, ?)`, stationsT)
	routeSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_url, route_color, route_text_color, route_sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, routesT)
	routeStopSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, direction_id, stop_id, route_stop_sort_order)
		VALUES (?, ?, ?, ?)`, routeStopsT)

	return s.write(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{routeStopsT, routesT, stationsT} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return execRows(ctx, tx, stationSQL, routeSQL, routeStopSQL, stations, routes, routeStops)
	})
}

// Merge upserts one dataset's rows in one transaction, with the same
// precedence rules as the Postgres sink.
func (s *SQLite) Merge(ctx context.Context, mode string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	stationSQL := fmt.Sprintf(`
		INSERT INTO %s (stop_id, stop_name, stop_lat, stop_lon, parent_station, child_stop_ids_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (stop_id) DO UPDATE SET
			stop_name = excluded.stop_name,
			stop_lat = COALESCE(excluded.stop_lat, stop_lat),
			stop_lon = COALESCE(excluded.stop_lon, stop_lon),
			parent_station = COALESCE(excluded.parent_station, parent_station),
			child_stop_ids_json = excluded.child_stop_ids_json,
			imported_at = datetime('now')`, stationsTable(s.prefix, mode))
	routeSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_url, route_color, route_text_color, route_sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (route_id) DO UPDATE SET
			agency_id = COALESCE(excluded.agency_id, agency_id),
			route_short_name = COALESCE(NULLIF(excluded.route_short_name, ''), route_short_name),
			route_long_name = COALESCE(NULLIF(excluded.route_long_name, ''), route_long_name),
			route_desc = COALESCE(excluded.route_desc, route_desc),
			route_type = excluded.route_type,
			route_url = COALESCE(excluded.route_url, route_url),
			route_color = COALESCE(excluded.route_color, route_color),
			route_text_color = COALESCE(excluded.route_text_color, route_text_color),
			route_sort_order = COALESCE(excluded.route_sort_order, route_sort_order),
			imported_at = datetime('now')`, routesTable(s.prefix, mode))
	routeStopSQL := fmt.Sprintf(`
		INSERT OR IGNORE INTO %s (route_id, direction_id, stop_id, route_stop_sort_order)
		VALUES (?, ?, ?, ?)`, routeStopsTable(s.prefix, mode))

	return s.write(ctx, func(tx *sql.Tx) error {
		return execRows(ctx, tx, stationSQL, routeSQL, routeStopSQL, stations, routes, routeStops)
	})
}

// write runs fn inside a serialized transaction.
func (s *SQLite) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func execRows(ctx context.Context, tx *sql.Tx, stationSQL, routeSQL, routeStopSQL string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	stationStmt, err := tx.PrepareContext(ctx, stationSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare station statement: %w", err)
	}
	defer stationStmt.Close()

	routeStmt, err := tx.PrepareContext(ctx, routeSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare route statement: %w", err)
	}
	defer routeStmt.Close()

	routeStopStmt, err := tx.PrepareContext(ctx, routeStopSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare route stop statement: %w", err)
	}
	defer routeStopStmt.Close()

	for _, row := range stations {
		if _, err := stationStmt.ExecContext(ctx,
			row.StopID, row.StopName, nullFloat(row.StopLat), nullFloat(row.StopLon),
			row.ParentStation, childIDsJSON(row.ChildStopIDs)); err != nil {
			return fmt.Errorf("failed to write station %s: %w", row.StopID, err)
		}
	}
	for _, row := range routes {
		if _, err := routeStmt.ExecContext(ctx,
			row.RouteID, row.AgencyID, row.RouteShortName, row.RouteLongName, row.RouteDesc,
			row.RouteType, row.RouteURL, row.RouteColor, row.RouteTextColor, row.RouteSortOrder); err != nil {
			return fmt.Errorf("failed to write route %s: %w", row.RouteID, err)
		}
	}
	for _, row := range routeStops {
		if _, err := routeStopStmt.ExecContext(ctx,
			row.RouteID, row.DirectionID, row.StopID, row.SortOrder); err != nil {
			return fmt.Errorf("failed to write route stop %s/%d/%s: %w", row.RouteID, row.DirectionID, row.StopID, err)
		}
	}
	return nil
}
