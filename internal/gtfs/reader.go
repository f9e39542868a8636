package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dataset reads the core files of one dataset directory. Rows are streamed to
// a callback one at a time so large feeds never have to fit in memory.
type Dataset struct {
	dir string
}

// OpenDataset wraps a dataset directory. The directory is not touched until
// one of the Each methods is called.
func OpenDataset(dir string) *Dataset {
	return &Dataset{dir: dir}
}

// Dir returns the dataset directory.
func (d *Dataset) Dir() string {
	return d.dir
}

// EachStop streams stops.txt. stop_id and stop_name are required columns.
func (d *Dataset) EachStop(fn func(StopRow) error) error {
	return d.eachRecord("stops.txt", []string{"stop_id", "stop_name"}, func(rec []string, idx map[string]int) error {
		return fn(StopRow{
			StopID:        getField(rec, idx, "stop_id"),
			StopName:      getField(rec, idx, "stop_name"),
			StopLat:       getField(rec, idx, "stop_lat"),
			StopLon:       getField(rec, idx, "stop_lon"),
			ParentStation: getField(rec, idx, "parent_station"),
		})
	})
}

// EachRoute streams routes.txt. route_id is the only required column.
func (d *Dataset) EachRoute(fn func(RouteRow) error) error {
	return d.eachRecord("routes.txt", []string{"route_id"}, func(rec []string, idx map[string]int) error {
		return fn(RouteRow{
			RouteID:        getField(rec, idx, "route_id"),
			AgencyID:       getField(rec, idx, "agency_id"),
			RouteShortName: getField(rec, idx, "route_short_name"),
			RouteLongName:  getField(rec, idx, "route_long_name"),
			RouteDesc:      getField(rec, idx, "route_desc"),
			RouteType:      getField(rec, idx, "route_type"),
			RouteURL:       getField(rec, idx, "route_url"),
			RouteColor:     getField(rec, idx, "route_color"),
			RouteTextColor: getField(rec, idx, "route_text_color"),
			RouteSortOrder: getField(rec, idx, "route_sort_order"),
		})
	})
}

// EachTrip streams trips.txt. trip_id and route_id are required columns.
func (d *Dataset) EachTrip(fn func(TripRow) error) error {
	return d.eachRecord("trips.txt", []string{"trip_id", "route_id"}, func(rec []string, idx map[string]int) error {
		return fn(TripRow{
			TripID:      getField(rec, idx, "trip_id"),
			RouteID:     getField(rec, idx, "route_id"),
			DirectionID: getField(rec, idx, "direction_id"),
		})
	})
}

// EachStopTime streams stop_times.txt. trip_id and stop_id are required
// columns.
func (d *Dataset) EachStopTime(fn func(StopTimeRow) error) error {
	return d.eachRecord("stop_times.txt", []string{"trip_id", "stop_id"}, func(rec []string, idx map[string]int) error {
		return fn(StopTimeRow{
			TripID:       getField(rec, idx, "trip_id"),
			StopID:       getField(rec, idx, "stop_id"),
			StopSequence: getField(rec, idx, "stop_sequence"),
		})
	})
}

func (d *Dataset) eachRecord(name string, required []string, fn func(rec []string, idx map[string]int) error) error {
	path := filepath.Join(d.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // feeds routinely have ragged rows

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	idx := makeIndex(header)
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns in %s: %s", path, strings.Join(missing, ", "))
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if err := fn(rec, idx); err != nil {
			return err
		}
	}
	return nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff") // some feeds ship a UTF-8 BOM
		}
		idx[h] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
