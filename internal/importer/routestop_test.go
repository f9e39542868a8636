package importer

import (
	"testing"

	"github.com/Commute-Live/Server/internal/gtfs"
)

func subwayStations(t *testing.T) *stationIndex {
	t.Helper()
	x := newStationIndex(true)
	x.Add(gtfs.StopRow{StopID: "101N", StopName: "Times Sq", ParentStation: "101"})
	x.Add(gtfs.StopRow{StopID: "101S", StopName: "Times Sq", ParentStation: "101"})
	x.Add(gtfs.StopRow{StopID: "102N", StopName: "34 St", ParentStation: "102"})
	return x
}

func TestRouteStopMinimumSequenceWins(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "t1", RouteID: "A", DirectionID: "N"})

	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: "3"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101S", StopSequence: "1"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: "5"}, stations)

	rows := x.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d assignments, want both raw stops collapsed to 1", len(rows))
	}
	r := rows[0]
	if r.RouteID != "A" || r.DirectionID != 0 || r.StopID != "101" {
		t.Errorf("assignment key = %+v, want A/0/101", r)
	}
	if r.SortOrder == nil || *r.SortOrder != 1 {
		t.Errorf("sequence = %v, want minimum 1", r.SortOrder)
	}
}

func TestRouteStopConcreteSequenceSupersedesUnset(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "t1", RouteID: "A", DirectionID: "0"})

	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: ""}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: "4"}, stations)
	// An unset sequence never overwrites a known one.
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: ""}, stations)

	r := x.Rows()[0]
	if r.SortOrder == nil || *r.SortOrder != 4 {
		t.Errorf("sequence = %v, want 4", r.SortOrder)
	}
}

func TestRouteStopMissingTripCounted(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()

	x.AddStopTime(gtfs.StopTimeRow{TripID: "ghost", StopID: "101N", StopSequence: "1"}, stations)

	if x.missingTripRefs != 1 {
		t.Errorf("missingTripRefs = %d, want 1", x.missingTripRefs)
	}
	if len(x.Rows()) != 0 {
		t.Errorf("unknown trip emitted assignments: %+v", x.Rows())
	}
}

func TestRouteStopMissingStopSampled(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "t1", RouteID: "A", DirectionID: "N"})

	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "nowhere", StopSequence: "1"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "nowhere", StopSequence: "2"}, stations)

	if len(x.missingStopIDs) != 1 {
		t.Errorf("missingStopIDs = %v, want deduplicated to 1", x.missingStopIDs)
	}
	if _, ok := x.missingStopIDs["nowhere"]; !ok {
		t.Errorf("missingStopIDs = %v, want to contain 'nowhere'", x.missingStopIDs)
	}
	if len(x.Rows()) != 0 {
		t.Errorf("unresolved stop emitted assignments: %+v", x.Rows())
	}
}

func TestRouteStopDroppedBlankIDs(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "", RouteID: "A"})
	x.AddTrip(gtfs.TripRow{TripID: "t1", RouteID: " "})
	x.AddStopTime(gtfs.StopTimeRow{TripID: "", StopID: "101N"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: ""}, stations)

	if len(x.trips) != 0 {
		t.Errorf("trips = %v, want none registered", x.trips)
	}
	if x.missingTripRefs != 0 || len(x.missingStopIDs) != 0 {
		t.Error("blank ids must be dropped silently, not counted as reference failures")
	}
}

func TestRouteStopEmissionOrder(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "n1", RouteID: "A", DirectionID: "N"})
	x.AddTrip(gtfs.TripRow{TripID: "s1", RouteID: "A", DirectionID: "S"})
	x.AddTrip(gtfs.TripRow{TripID: "b1", RouteID: "B", DirectionID: "N"})

	// Route B sorts after everything in A; direction 1 after 0; a missing
	// sequence after any concrete one; station id breaks sequence ties.
	x.AddStopTime(gtfs.StopTimeRow{TripID: "s1", StopID: "101S", StopSequence: "1"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "b1", StopID: "101N", StopSequence: "1"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "n1", StopID: "102N", StopSequence: ""}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "n1", StopID: "101N", StopSequence: "2"}, stations)

	rows := x.Rows()
	type key struct {
		route string
		dir   int
		stop  string
	}
	want := []key{
		{"A", 0, "101"}, // seq 2
		{"A", 0, "102"}, // seq unset sorts last within direction 0
		{"A", 1, "101"},
		{"B", 0, "101"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows %+v, want %d", len(rows), rows, len(want))
	}
	for i, w := range want {
		if rows[i].RouteID != w.route || rows[i].DirectionID != w.dir || rows[i].StopID != w.stop {
			t.Errorf("rows[%d] = %s/%d/%s, want %s/%d/%s",
				i, rows[i].RouteID, rows[i].DirectionID, rows[i].StopID, w.route, w.dir, w.stop)
		}
	}
}

func TestRouteStopSequenceTieBrokenByStationID(t *testing.T) {
	stations := subwayStations(t)
	x := newRouteStopIndex()
	x.AddTrip(gtfs.TripRow{TripID: "t1", RouteID: "A", DirectionID: "N"})

	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "102N", StopSequence: "7"}, stations)
	x.AddStopTime(gtfs.StopTimeRow{TripID: "t1", StopID: "101N", StopSequence: "7"}, stations)

	rows := x.Rows()
	if rows[0].StopID != "101" || rows[1].StopID != "102" {
		t.Errorf("tie order = [%s %s], want [101 102]", rows[0].StopID, rows[1].StopID)
	}
}
