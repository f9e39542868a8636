package gtfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestEachStopStreamsRows(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon,parent_station\n"+
			"101N,Times Sq,40.75,-73.99,101\n"+
			"101S, Times Sq ,40.75,-73.99,101\n")

	var rows []StopRow
	err := OpenDataset(dir).EachStop(func(row StopRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("EachStop: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].StopID != "101N" || rows[0].ParentStation != "101" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].StopName != "Times Sq" {
		t.Errorf("fields are not trimmed: %q", rows[1].StopName)
	}
}

func TestEachStopMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "stops.txt", "stop_id,stop_lat\n101,40.75\n")

	err := OpenDataset(dir).EachStop(func(StopRow) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing stop_name column")
	}
	if !strings.Contains(err.Error(), "stop_name") {
		t.Errorf("error does not name the missing column: %v", err)
	}
}

func TestEachRouteOptionalColumnsDefaultEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "routes.txt", "route_id\nA\n")

	var rows []RouteRow
	err := OpenDataset(dir).EachRoute(func(row RouteRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("EachRoute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].RouteID != "A" || rows[0].RouteShortName != "" || rows[0].RouteType != "" {
		t.Errorf("row = %+v, want only route_id set", rows[0])
	}
}

func TestEachStopTimeRaggedRows(t *testing.T) {
	dir := t.TempDir()
	// Second data row is short one field; the reader must not choke.
	writeFeedFile(t, dir, "stop_times.txt",
		"trip_id,stop_id,stop_sequence\n"+
			"t1,101N,1\n"+
			"t2,101S\n")

	var rows []StopTimeRow
	err := OpenDataset(dir).EachStopTime(func(row StopTimeRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("EachStopTime: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].StopSequence != "" {
		t.Errorf("short row sequence = %q, want empty", rows[1].StopSequence)
	}
}

func TestHeaderBOMIsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFeedFile(t, dir, "trips.txt", "\ufefftrip_id,route_id\nt1,A\n")

	var rows []TripRow
	err := OpenDataset(dir).EachTrip(func(row TripRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("EachTrip with BOM header: %v", err)
	}
	if len(rows) != 1 || rows[0].TripID != "t1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestEachStopMissingFile(t *testing.T) {
	err := OpenDataset(t.TempDir()).EachStop(func(StopRow) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing stops.txt")
	}
}
