package importer

import (
	"testing"

	"github.com/Commute-Live/Server/internal/gtfs"
)

func TestRouteIDCaseFolding(t *testing.T) {
	x := newRouteIndex(3)
	x.Add(gtfs.RouteRow{RouteID: "a1", RouteShortName: "A1"})
	x.Add(gtfs.RouteRow{RouteID: "A1", RouteLongName: "First Avenue"})

	rows := x.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d routes, want a1 and A1 merged into 1", len(rows))
	}
	if rows[0].RouteID != "A1" {
		t.Errorf("route id = %s, want A1", rows[0].RouteID)
	}
	if rows[0].RouteShortName != "A1" || rows[0].RouteLongName != "First Avenue" {
		t.Errorf("merged row = %+v", rows[0])
	}
}

func TestRouteMergeNeverDropsPopulatedFields(t *testing.T) {
	x := newRouteIndex(1)
	color := "EE352E"
	x.Add(gtfs.RouteRow{RouteID: "1", RouteShortName: "1", RouteLongName: "Broadway Local", RouteColor: color})
	x.Add(gtfs.RouteRow{RouteID: "1", RouteShortName: "", RouteLongName: "", RouteColor: ""})

	rows := x.Rows()
	r := rows[0]
	if r.RouteShortName != "1" || r.RouteLongName != "Broadway Local" {
		t.Errorf("populated names were dropped: %+v", r)
	}
	if r.RouteColor == nil || *r.RouteColor != color {
		t.Errorf("populated color was dropped: %v", r.RouteColor)
	}
}

func TestRouteMergeFillsEmptyFields(t *testing.T) {
	x := newRouteIndex(1)
	x.Add(gtfs.RouteRow{RouteID: "7"})
	x.Add(gtfs.RouteRow{RouteID: "7", AgencyID: "MTA", RouteDesc: "Flushing Local", RouteURL: "https://example.com/7"})

	r := x.Rows()[0]
	if r.AgencyID == nil || *r.AgencyID != "MTA" {
		t.Errorf("agency = %v, want MTA", r.AgencyID)
	}
	if r.RouteDesc == nil || *r.RouteDesc != "Flushing Local" {
		t.Errorf("desc = %v", r.RouteDesc)
	}
	if r.RouteURL == nil || *r.RouteURL != "https://example.com/7" {
		t.Errorf("url = %v", r.RouteURL)
	}
}

func TestRouteTypeDefaultOverrideRule(t *testing.T) {
	const defaultType = 3

	// Missing type falls back to the mode default.
	x := newRouteIndex(defaultType)
	x.Add(gtfs.RouteRow{RouteID: "M15"})
	if got := x.Rows()[0].RouteType; got != defaultType {
		t.Errorf("type = %d, want default %d", got, defaultType)
	}

	// A later concrete type replaces the default.
	x.Add(gtfs.RouteRow{RouteID: "M15", RouteType: "711"})
	if got := x.Rows()[0].RouteType; got != 711 {
		t.Errorf("type = %d, want 711 replacing the default", got)
	}

	// But once non-default, it never changes again.
	x.Add(gtfs.RouteRow{RouteID: "M15", RouteType: "2"})
	if got := x.Rows()[0].RouteType; got != 711 {
		t.Errorf("type = %d, want 711 kept", got)
	}
}

func TestRouteSortOrderZeroIsMeaningful(t *testing.T) {
	x := newRouteIndex(1)
	x.Add(gtfs.RouteRow{RouteID: "GS", RouteSortOrder: "0"})
	x.Add(gtfs.RouteRow{RouteID: "GS", RouteSortOrder: "9"})

	r := x.Rows()[0]
	if r.RouteSortOrder == nil || *r.RouteSortOrder != 0 {
		t.Errorf("sort order = %v, want 0 preserved against 9", r.RouteSortOrder)
	}
}

func TestRouteBlankIDDropped(t *testing.T) {
	x := newRouteIndex(1)
	x.Add(gtfs.RouteRow{RouteID: " ", RouteShortName: "ghost"})
	if len(x.Rows()) != 0 {
		t.Errorf("blank route_id produced a route: %+v", x.Rows())
	}
}

func TestRouteRowsSortedByID(t *testing.T) {
	x := newRouteIndex(1)
	for _, id := range []string{"Q", "A", "L"} {
		x.Add(gtfs.RouteRow{RouteID: id})
	}
	rows := x.Rows()
	for i, want := range []string{"A", "L", "Q"} {
		if rows[i].RouteID != want {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].RouteID, want)
		}
	}
}
