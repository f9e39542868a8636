package importer

import (
	"sort"

	"github.com/Commute-Live/Server/internal/gtfs"
)

// routeIndex folds the route rows of one dataset into canonical routes,
// keyed by uppercased route id. On collision the first non-empty value of
// each field wins; the synthetic mode default route type has the lowest
// priority of all.
type routeIndex struct {
	defaultType int
	routes      map[string]*RouteRow
}

func newRouteIndex(defaultType int) *routeIndex {
	return &routeIndex{
		defaultType: defaultType,
		routes:      make(map[string]*RouteRow),
	}
}

// Add folds one route row into the index. Rows whose normalized route id is
// empty are dropped.
func (x *routeIndex) Add(row gtfs.RouteRow) {
	id := gtfs.NormalizeRouteID(row.RouteID)
	if id == "" {
		return
	}

	incoming := RouteRow{
		RouteID:        id,
		AgencyID:       gtfs.NormalizeOptionalText(row.AgencyID),
		RouteShortName: gtfs.NormalizeText(row.RouteShortName),
		RouteLongName:  gtfs.NormalizeText(row.RouteLongName),
		RouteDesc:      gtfs.NormalizeOptionalText(row.RouteDesc),
		RouteType:      x.defaultType,
		RouteURL:       gtfs.NormalizeOptionalText(row.RouteURL),
		RouteColor:     gtfs.NormalizeOptionalText(row.RouteColor),
		RouteTextColor: gtfs.NormalizeOptionalText(row.RouteTextColor),
		RouteSortOrder: optionalInt(row.RouteSortOrder),
	}
	// route_type 0 falls back to the mode default.
	if t, ok := gtfs.ParseOptionalInt(row.RouteType); ok && t != 0 {
		incoming.RouteType = t
	}

	existing := x.routes[id]
	if existing == nil {
		x.routes[id] = &incoming
		return
	}

	if existing.AgencyID == nil && incoming.AgencyID != nil {
		existing.AgencyID = incoming.AgencyID
	}
	if existing.RouteShortName == "" && incoming.RouteShortName != "" {
		existing.RouteShortName = incoming.RouteShortName
	}
	if existing.RouteLongName == "" && incoming.RouteLongName != "" {
		existing.RouteLongName = incoming.RouteLongName
	}
	if existing.RouteDesc == nil && incoming.RouteDesc != nil {
		existing.RouteDesc = incoming.RouteDesc
	}
	if existing.RouteType == x.defaultType && incoming.RouteType != x.defaultType {
		existing.RouteType = incoming.RouteType
	}
	if existing.RouteURL == nil && incoming.RouteURL != nil {
		existing.RouteURL = incoming.RouteURL
	}
	if existing.RouteColor == nil && incoming.RouteColor != nil {
		existing.RouteColor = incoming.RouteColor
	}
	if existing.RouteTextColor == nil && incoming.RouteTextColor != nil {
		existing.RouteTextColor = incoming.RouteTextColor
	}
	if existing.RouteSortOrder == nil && incoming.RouteSortOrder != nil {
		existing.RouteSortOrder = incoming.RouteSortOrder
	}
}

// Rows flattens the index, sorted by route id.
func (x *routeIndex) Rows() []RouteRow {
	ids := make([]string, 0, len(x.routes))
	for id := range x.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]RouteRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *x.routes[id])
	}
	return rows
}

func optionalInt(v string) *int {
	n, ok := gtfs.ParseOptionalInt(v)
	if !ok {
		return nil
	}
	return &n
}
