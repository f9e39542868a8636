package importer

import (
	"math"
	"sort"

	"github.com/Commute-Live/Server/internal/gtfs"
)

type tripRef struct {
	routeID     string
	directionID int
}

type routeStopKey struct {
	routeID     string
	directionID int
	stopID      string
}

// routeStopIndex derives the per-route/direction/station stop order of one
// dataset. Trips are registered first; stop-time rows then resolve through
// the trip table and the dataset's station lookup. Each assignment keeps the
// minimum sequence ever observed for its key.
type routeStopIndex struct {
	trips     map[string]tripRef
	sequences map[routeStopKey]*int

	missingTripRefs int
	missingStopIDs  map[string]struct{}
}

func newRouteStopIndex() *routeStopIndex {
	return &routeStopIndex{
		trips:          make(map[string]tripRef),
		sequences:      make(map[routeStopKey]*int),
		missingStopIDs: make(map[string]struct{}),
	}
}

// AddTrip registers one trip row. Rows missing the trip or route id are
// dropped. A repeated trip id keeps the last row's route and direction.
func (x *routeStopIndex) AddTrip(row gtfs.TripRow) {
	tripID := gtfs.NormalizeText(row.TripID)
	routeID := gtfs.NormalizeRouteID(row.RouteID)
	if tripID == "" || routeID == "" {
		return
	}
	x.trips[tripID] = tripRef{
		routeID:     routeID,
		directionID: gtfs.ParseDirection(row.DirectionID),
	}
}

// AddStopTime folds one stop-time row into the index. Rows citing an unknown
// trip bump the missing-trip counter; rows whose stop cannot be resolved to
// a station in this dataset record the raw id for the report. Both are
// dropped, never fatal.
func (x *routeStopIndex) AddStopTime(row gtfs.StopTimeRow, stations *stationIndex) {
	tripID := gtfs.NormalizeText(row.TripID)
	rawStopID := gtfs.NormalizeText(row.StopID)
	if tripID == "" || rawStopID == "" {
		return
	}

	ref, ok := x.trips[tripID]
	if !ok {
		x.missingTripRefs++
		return
	}

	stationID, ok := stations.Resolve(rawStopID)
	if !ok {
		x.missingStopIDs[rawStopID] = struct{}{}
		return
	}

	key := routeStopKey{routeID: ref.routeID, directionID: ref.directionID, stopID: stationID}
	var next *int
	if n, ok := gtfs.ParseOptionalInt(row.StopSequence); ok {
		next = &n
	}

	// A concrete sequence always supersedes an unset one; afterwards only a
	// smaller value may replace it.
	existing := x.sequences[key]
	if existing == nil {
		x.sequences[key] = next
	} else if next != nil && *next < *existing {
		x.sequences[key] = next
	}
}

// Rows flattens the assignments in a strict total order: route id, direction
// (0 before 1), sequence with unset sorting last, then station id to break
// sequence ties.
func (x *routeStopIndex) Rows() []RouteStopRow {
	keys := make([]routeStopKey, 0, len(x.sequences))
	for key := range x.sequences {
		keys = append(keys, key)
	}

	seqOf := func(k routeStopKey) int {
		if p := x.sequences[k]; p != nil {
			return *p
		}
		return math.MaxInt32
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.routeID != b.routeID {
			return a.routeID < b.routeID
		}
		if a.directionID != b.directionID {
			return a.directionID < b.directionID
		}
		if sa, sb := seqOf(a), seqOf(b); sa != sb {
			return sa < sb
		}
		return a.stopID < b.stopID
	})

	rows := make([]RouteStopRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, RouteStopRow{
			RouteID:     key.routeID,
			DirectionID: key.directionID,
			StopID:      key.stopID,
			SortOrder:   x.sequences[key],
		})
	}
	return rows
}
