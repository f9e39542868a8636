package importer

import (
	"log"
	"time"

	"github.com/Commute-Live/Server/internal/gtfs"
)

// stopTimeLogInterval paces progress logging; stop_times.txt dwarfs the
// other files by a couple orders of magnitude.
const stopTimeLogInterval = 500000

// datasetResult holds the flattened output of one dataset directory. The
// indexes that produced it are gone by the time it is returned, so peak
// memory stays bounded by one dataset at a time.
type datasetResult struct {
	dir        string
	stations   []StationRow
	routes     []RouteRow
	routeStops []RouteStopRow

	missingTripRefs int
	missingStopIDs  map[string]struct{}
}

// processDataset runs one sequential pass over one dataset directory:
// cluster stations, merge routes, register trips, then derive route-stop
// assignments.
func processDataset(dir string, mode Mode, label string) (*datasetResult, error) {
	started := time.Now()
	ds := gtfs.OpenDataset(dir)

	var stopRows, routeRows, tripRows, stopTimeRows int

	stations := newStationIndex(mode.ClusterStations)
	if err := ds.EachStop(func(row gtfs.StopRow) error {
		stopRows++
		stations.Add(row)
		return nil
	}); err != nil {
		return nil, err
	}

	routes := newRouteIndex(mode.DefaultRouteType)
	if err := ds.EachRoute(func(row gtfs.RouteRow) error {
		routeRows++
		routes.Add(row)
		return nil
	}); err != nil {
		return nil, err
	}

	routeStops := newRouteStopIndex()
	if err := ds.EachTrip(func(row gtfs.TripRow) error {
		tripRows++
		routeStops.AddTrip(row)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := ds.EachStopTime(func(row gtfs.StopTimeRow) error {
		stopTimeRows++
		if stopTimeRows%stopTimeLogInterval == 0 {
			log.Printf("%s: processed stop_times rows=%d", label, stopTimeRows)
		}
		routeStops.AddStopTime(row, stations)
		return nil
	}); err != nil {
		return nil, err
	}

	log.Printf("%s: processed %s in %.1fs (rows stops=%d, routes=%d, trips=%d, stop_times=%d)",
		label, dir, time.Since(started).Seconds(), stopRows, routeRows, tripRows, stopTimeRows)

	return &datasetResult{
		dir:             dir,
		stations:        stations.Rows(),
		routes:          routes.Rows(),
		routeStops:      routeStops.Rows(),
		missingTripRefs: routeStops.missingTripRefs,
		missingStopIDs:  routeStops.missingStopIDs,
	}, nil
}
