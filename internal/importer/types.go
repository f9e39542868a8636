package importer

import "context"

// StationRow is one canonical station, ready for the sink. Latitude and
// longitude keep the source text so no precision is lost before the database
// sees them. ChildStopIDs is nil for modes that do not cluster stops.
type StationRow struct {
	StopID        string
	StopName      string
	StopLat       *string
	StopLon       *string
	ParentStation *string
	ChildStopIDs  []string
}

// RouteRow is one canonical route. Short and long name are always-present
// strings (possibly empty); the remaining optional fields are nil when the
// feed never supplied them.
type RouteRow struct {
	RouteID        string
	AgencyID       *string
	RouteShortName string
	RouteLongName  string
	RouteDesc      *string
	RouteType      int
	RouteURL       *string
	RouteColor     *string
	RouteTextColor *string
	RouteSortOrder *int
}

// RouteStopRow assigns a station to a route and direction, carrying the
// minimal stop sequence observed across all trips (nil when no trip recorded
// one).
type RouteStopRow struct {
	RouteID     string
	DirectionID int
	StopID      string
	SortOrder   *int
}

// Mode describes one transit mode to import.
type Mode struct {
	// Name keys the mode's tables and report entries.
	Name string
	// Path is the subdirectory of the source root holding the mode's feeds.
	Path string
	// DefaultRouteType is the GTFS route type assumed when routes.txt does
	// not carry one.
	DefaultRouteType int
	// MultiDataset modes accept any number of dataset directories and are
	// written through merge upserts; all others require exactly one dataset
	// and are written by full replace.
	MultiDataset bool
	// ClusterStations groups raw stops under their parent_station. Off for
	// bus-style feeds where every raw stop is its own station.
	ClusterStations bool
}

// Sink persists the canonical rows of one mode. Replace must clear the
// mode's previous content and write the new rows as one atomic unit. Merge
// must upsert: stations refresh name and fill missing coordinates, routes
// keep existing non-null fields except route type, and route-stop
// assignments are first-writer-wins.
type Sink interface {
	Replace(ctx context.Context, mode string, stations []StationRow, routes []RouteRow, routeStops []RouteStopRow) error
	Merge(ctx context.Context, mode string, stations []StationRow, routes []RouteRow, routeStops []RouteStopRow) error
}
