// Package db persists canonical station, route, and route-stop rows. Each
// mode owns three tables named {prefix}_{mode}_stations, _routes, and
// _route_stops. Two backends implement the importer's Sink contract:
// Postgres for deployments and SQLite for local imports.
package db

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// insertPageSize bounds how many rows ride in one batched insert.
const insertPageSize = 1000

func stationsTable(prefix, mode string) string {
	return fmt.Sprintf("%s_%s_stations", prefix, mode)
}

func routesTable(prefix, mode string) string {
	return fmt.Sprintf("%s_%s_routes", prefix, mode)
}

func routeStopsTable(prefix, mode string) string {
	return fmt.Sprintf("%s_%s_route_stops", prefix, mode)
}

// childIDsJSON renders a station's child stop ids as a JSON array, "[]" when
// there are none.
func childIDsJSON(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// nullFloat converts a normalized numeric string to a nullable float for the
// database. The importer guarantees the string parses; anything else becomes
// NULL rather than an error.
func nullFloat(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}
