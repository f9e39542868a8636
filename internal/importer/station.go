package importer

import (
	"sort"

	"github.com/Commute-Live/Server/internal/gtfs"
)

// station is the mutable accumulator behind one canonical station.
type station struct {
	id       string
	name     string
	lat      *string
	lon      *string
	parent   *string
	children map[string]struct{}
}

// stationIndex clusters the raw stops of one dataset into canonical
// stations. With clustering on, a stop with a parent_station folds into the
// parent's station; otherwise every raw stop id is its own station. The
// index also keeps the raw-stop-id to station-id lookup the sequencer needs,
// which is only valid for the dataset it was built from.
type stationIndex struct {
	cluster      bool
	stations     map[string]*station
	rawToStation map[string]string
}

func newStationIndex(cluster bool) *stationIndex {
	return &stationIndex{
		cluster:      cluster,
		stations:     make(map[string]*station),
		rawToStation: make(map[string]string),
	}
}

// Add folds one stop row into the index. Rows with a blank stop_id are
// dropped. The first sighting of a station id creates the station; later
// sightings only fill fields that are still empty, never overwrite.
func (x *stationIndex) Add(row gtfs.StopRow) {
	rawID := gtfs.NormalizeText(row.StopID)
	if rawID == "" {
		return
	}
	name := gtfs.NormalizeText(row.StopName)
	if name == "" {
		name = rawID
	}
	parent := gtfs.NormalizeText(row.ParentStation)

	stationID := rawID
	if x.cluster && parent != "" {
		stationID = parent
	}
	x.rawToStation[rawID] = stationID

	st := x.stations[stationID]
	if st == nil {
		st = &station{
			id:       stationID,
			name:     name,
			children: make(map[string]struct{}),
		}
		st.lat = optionalNumeric(row.StopLat)
		st.lon = optionalNumeric(row.StopLon)
		if parent != "" {
			st.parent = &parent
		}
		x.stations[stationID] = st
	} else {
		// A name equal to the station id is the placeholder default and may
		// still be replaced by a real one.
		if st.name == "" || st.name == st.id {
			st.name = name
		}
		if st.lat == nil {
			st.lat = optionalNumeric(row.StopLat)
		}
		if st.lon == nil {
			st.lon = optionalNumeric(row.StopLon)
		}
	}

	if x.cluster {
		st.children[rawID] = struct{}{}
	}
}

// Resolve maps a raw stop id to its station id, falling back to the raw id
// itself when the stop was never seen. The second return reports whether the
// resolved station actually exists in this dataset.
func (x *stationIndex) Resolve(rawStopID string) (string, bool) {
	id, ok := x.rawToStation[rawStopID]
	if !ok {
		id = rawStopID
	}
	_, exists := x.stations[id]
	return id, exists
}

// Rows flattens the index, sorted by station id for reproducible output.
func (x *stationIndex) Rows() []StationRow {
	ids := make([]string, 0, len(x.stations))
	for id := range x.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]StationRow, 0, len(ids))
	for _, id := range ids {
		st := x.stations[id]

		var children []string
		if x.cluster {
			children = make([]string, 0, len(st.children))
			for child := range st.children {
				children = append(children, child)
			}
			sort.Strings(children)
			if len(children) == 0 {
				children = []string{st.id}
			}
		}

		name := st.name
		if name == "" {
			name = st.id
		}

		rows = append(rows, StationRow{
			StopID:        st.id,
			StopName:      name,
			StopLat:       st.lat,
			StopLon:       st.lon,
			ParentStation: st.parent,
			ChildStopIDs:  children,
		})
	}
	return rows
}

func optionalNumeric(v string) *string {
	s, ok := gtfs.ParseOptionalNumeric(v)
	if !ok {
		return nil
	}
	return &s
}
