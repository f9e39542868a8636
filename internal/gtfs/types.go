package gtfs

// Raw rows as read from the feed files. Fields hold the trimmed CSV cell
// values; callers normalize them further as needed.

// StopRow is one record from stops.txt.
type StopRow struct {
	StopID        string
	StopName      string
	StopLat       string
	StopLon       string
	ParentStation string
}

// RouteRow is one record from routes.txt.
type RouteRow struct {
	RouteID        string
	AgencyID       string
	RouteShortName string
	RouteLongName  string
	RouteDesc      string
	RouteType      string
	RouteURL       string
	RouteColor     string
	RouteTextColor string
	RouteSortOrder string
}

// TripRow is one record from trips.txt.
type TripRow struct {
	TripID      string
	RouteID     string
	DirectionID string
}

// StopTimeRow is one record from stop_times.txt.
type StopTimeRow struct {
	TripID       string
	StopID       string
	StopSequence string
}
