package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Commute-Live/Server/internal/importer"
)

// Postgres writes canonical rows through a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewPostgres opens a pooled connection and verifies it with a ping.
func NewPostgres(ctx context.Context, databaseURL, tablePrefix string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool, prefix: tablePrefix}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const pgSchemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	stop_id TEXT PRIMARY KEY,
	stop_name TEXT NOT NULL,
	stop_lat DOUBLE PRECISION,
	stop_lon DOUBLE PRECISION,
	parent_station TEXT,
	child_stop_ids_json JSONB NOT NULL DEFAULT '[]'::jsonb,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
func (p *Postgres) EnsureSchema(ctx context.Context, modes []string) error {
	for _, mode := range modes {
		stmt := fmt.Sprintf(pgSchemaTemplate,
			stationsTable(p.prefix, mode), routesTable(p.prefix, mode), routeStopsTable(p.prefix, mode))
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema for mode %s: %w", mode, err)
		}
	}
	return nil
}

// Replace clears the mode's three tables and writes the new rows, all inside
// one transaction so a partially replaced state is never observable.
func (p *Postgres) Replace(ctx context.Context, mode string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stationsT := stationsTable(p.prefix, mode)
	routesT := routesTable(p.prefix, mode)
	routeStopsT := routeStopsTable(p.prefix, mode)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s, %s, %s", routeStopsT, routesT, stationsT)); err != nil {
		return fmt.Errorf("failed to truncate %s tables: %w", mode, err)
	}

	stationSQL := fmt.Sprintf(`
		INSERT INTO %s (stop_id, stop_name, stop_lat, stop_lon, parent_station, child_stop_ids_json)
		VALUES ($1, $2, $3, $4, $5, $6)`, stationsT)
	routeSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_url, route_color, route_text_color, route_sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, routesT)
	routeStopSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, direction_id, stop_id, route_stop_sort_order)
		VALUES ($1, $2, $3, $4)`, routeStopsT)

	if err := p.writeRows(ctx, tx, stationSQL, routeSQL, routeStopSQL, stations, routes, routeStops); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Merge upserts one dataset's rows in one transaction. Stations always
// refresh name, children, and import timestamp but only fill coordinates and
// parent that were still NULL. Routes keep existing non-null values except
// route_type and the timestamp, which always take the incoming row. Route
// stops are first-writer-wins.
func (p *Postgres) Merge(ctx context.Context, mode string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stationsT := stationsTable(p.prefix, mode)
	routesT := routesTable(p.prefix, mode)
	routeStopsT := routeStopsTable(p.prefix, mode)

	stationSQL := fmt.Sprintf(`
		INSERT INTO %[1]s (stop_id, stop_name, stop_lat, stop_lon, parent_station, child_stop_ids_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stop_id) DO UPDATE SET
			stop_name = EXCLUDED.stop_name,
			stop_lat = COALESCE(EXCLUDED.stop_lat, %[1]s.stop_lat),
			stop_lon = COALESCE(EXCLUDED.stop_lon, %[1]s.stop_lon),
			parent_station = COALESCE(EXCLUDED.parent_station, %[1]s.parent_station),
			child_stop_ids_json = EXCLUDED.child_stop_ids_json,
			imported_at = now()`, stationsT)
	routeSQL := fmt.Sprintf(`
		INSERT INTO %[1]s (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_url, route_color, route_text_color, route_sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (route_id) DO UPDATE SET
			agency_id = COALESCE(EXCLUDED.agency_id, %[1]s.agency_id),
			route_short_name = COALESCE(NULLIF(EXCLUDED.route_short_name, ''), %[1]s.route_short_name),
			route_long_name = COALESCE(NULLIF(EXCLUDED.route_long_name, ''), %[1]s.route_long_name),
			route_desc = COALESCE(EXCLUDED.route_desc, %[1]s.route_desc),
			route_type = EXCLUDED.route_type,
			route_url = COALESCE(EXCLUDED.route_url, %[1]s.route_url),
			route_color = COALESCE(EXCLUDED.route_color, %[1]s.route_color),
			route_text_color = COALESCE(EXCLUDED.route_text_color, %[1]s.route_text_color),
			route_sort_order = COALESCE(EXCLUDED.route_sort_order, %[1]s.route_sort_order),
			imported_at = now()`, routesT)
	routeStopSQL := fmt.Sprintf(`
		INSERT INTO %s (route_id, direction_id, stop_id, route_stop_sort_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`, routeStopsT)

	if err := p.writeRows(ctx, tx, stationSQL, routeSQL, routeStopSQL, stations, routes, routeStops); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) writeRows(ctx context.Context, tx pgx.Tx, stationSQL, routeSQL, routeStopSQL string, stations []importer.StationRow, routes []importer.RouteRow, routeStops []importer.RouteStopRow) error {
	batch := new(pgx.Batch)
	flush := func(force bool) error {
		if batch.Len() == 0 || (!force && batch.Len() < insertPageSize) {
			return nil
		}
		err := sendBatch(ctx, tx, batch)
		batch = new(pgx.Batch)
		return err
	}

	for _, row := range stations {
		batch.Queue(stationSQL,
			row.StopID, row.StopName, nullFloat(row.StopLat), nullFloat(row.StopLon),
			row.ParentStation, childIDsJSON(row.ChildStopIDs))
		if err := flush(false); err != nil {
			return err
		}
	}
	for _, row := range routes {
		batch.Queue(routeSQL,
			row.RouteID, row.AgencyID, row.RouteShortName, row.RouteLongName, row.RouteDesc,
			row.RouteType, row.RouteURL, row.RouteColor, row.RouteTextColor, row.RouteSortOrder)
		if err := flush(false); err != nil {
			return err
		}
	}
	for _, row := range routeStops {
		batch.Queue(routeStopSQL, row.RouteID, row.DirectionID, row.StopID, row.SortOrder)
		if err := flush(false); err != nil {
			return err
		}
	}
	return flush(true)
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	var firstErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := results.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("failed to execute batch insert: %w", firstErr)
	}
	return nil
}
