package importer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Commute-Live/Server/internal/gtfs"
)

// missingStopSampleLimit caps how many unresolved stop ids the report lists.
const missingStopSampleLimit = 50

// ModeCounts are the emitted row counts of one mode. For multi-dataset modes
// they count distinct keys across all of the mode's datasets.
type ModeCounts struct {
	Stations   int `json:"stations"`
	Routes     int `json:"routes"`
	RouteStops int `json:"routeStops"`
}

// ModeWarnings summarizes the row-level reference failures of one mode.
type ModeWarnings struct {
	MissingTripRefs      int      `json:"missingTripRefs"`
	MissingStopRefs      int      `json:"missingStopRefs"`
	SampleMissingStopIDs []string `json:"sampleMissingStopIds"`
}

// Report is the run summary printed after a successful import.
type Report struct {
	RunID          string                  `json:"runId"`
	SourceDir      string                  `json:"sourceDir"`
	ElapsedSeconds float64                 `json:"elapsedSeconds"`
	Datasets       map[string]int          `json:"datasets"`
	Counts         map[string]ModeCounts   `json:"counts"`
	Warnings       map[string]ModeWarnings `json:"warnings"`
}

// Options configure one import run.
type Options struct {
	// SourceDir is the root directory holding one subdirectory per mode.
	SourceDir string
	// Modes are imported in order; each mode's write commits independently.
	Modes []Mode
	// Concurrency bounds how many datasets of a multi-dataset mode are
	// parsed at once. Values below 2 keep the pass fully sequential.
	Concurrency int
}

// Run imports every configured mode and returns the run report. All dataset
// directories are resolved up front so that a configuration error aborts the
// run before anything is written. Single-dataset modes are persisted with
// Replace, multi-dataset modes with per-dataset Merge upserts applied in
// dataset order.
func Run(ctx context.Context, sink Sink, opts Options) (*Report, error) {
	started := time.Now()

	dirsByMode := make([][]string, len(opts.Modes))
	for i, mode := range opts.Modes {
		root := filepath.Join(opts.SourceDir, mode.Path)
		dirs := gtfs.Discover(root)
		if len(dirs) == 0 {
			return nil, fmt.Errorf("missing GTFS dataset for mode %s: %s", mode.Name, root)
		}
		if !mode.MultiDataset && len(dirs) > 1 {
			return nil, fmt.Errorf("expected one GTFS dataset for mode %s, found %d under %s", mode.Name, len(dirs), root)
		}
		dirsByMode[i] = dirs
	}

	report := &Report{
		RunID:     uuid.New().String(),
		SourceDir: opts.SourceDir,
		Datasets:  make(map[string]int, len(opts.Modes)),
		Counts:    make(map[string]ModeCounts, len(opts.Modes)),
		Warnings:  make(map[string]ModeWarnings, len(opts.Modes)),
	}

	for i, mode := range opts.Modes {
		dirs := dirsByMode[i]
		report.Datasets[mode.Name] = len(dirs)

		var err error
		if mode.MultiDataset {
			err = runMulti(ctx, sink, mode, dirs, opts.Concurrency, report)
		} else {
			err = runSingle(ctx, sink, mode, dirs[0], report)
		}
		if err != nil {
			return nil, err
		}
	}

	report.ElapsedSeconds = time.Since(started).Seconds()
	return report, nil
}

func runSingle(ctx context.Context, sink Sink, mode Mode, dir string, report *Report) error {
	started := time.Now()
	log.Printf("%s: parsing 1 dataset", mode.Name)

	res, err := processDataset(dir, mode, mode.Name)
	if err != nil {
		return err
	}
	if err := sink.Replace(ctx, mode.Name, res.stations, res.routes, res.routeStops); err != nil {
		return fmt.Errorf("failed to replace %s tables: %w", mode.Name, err)
	}

	report.Counts[mode.Name] = ModeCounts{
		Stations:   len(res.stations),
		Routes:     len(res.routes),
		RouteStops: len(res.routeStops),
	}
	report.Warnings[mode.Name] = ModeWarnings{
		MissingTripRefs:      res.missingTripRefs,
		MissingStopRefs:      len(res.missingStopIDs),
		SampleMissingStopIDs: sampleIDs(res.missingStopIDs, missingStopSampleLimit),
	}

	log.Printf("%s: wrote stations=%d, routes=%d, routeStops=%d in %.1fs",
		mode.Name, len(res.stations), len(res.routes), len(res.routeStops), time.Since(started).Seconds())
	return nil
}

func runMulti(ctx context.Context, sink Sink, mode Mode, dirs []string, concurrency int, report *Report) error {
	started := time.Now()
	log.Printf("%s: parsing %d dataset(s)", mode.Name, len(dirs))

	// Datasets are independent until they hit the sink, so parsing may fan
	// out. Results are applied strictly in dataset order: the upsert rules
	// make the outcome depend on write order, and that order has to stay
	// reproducible.
	results := make([]*datasetResult, len(dirs))
	g := new(errgroup.Group)
	g.SetLimit(max(1, concurrency))
	for i, dir := range dirs {
		i, dir := i, dir
		label := fmt.Sprintf("%s dataset %d/%d (%s)", mode.Name, i+1, len(dirs), filepath.Base(dir))
		g.Go(func() error {
			res, err := processDataset(dir, mode, label)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stationIDs := make(map[string]struct{})
	routeIDs := make(map[string]struct{})
	routeStopKeys := make(map[routeStopKey]struct{})
	missingStopIDs := make(map[string]struct{})
	missingTripRefs := 0

	for i, res := range results {
		if err := sink.Merge(ctx, mode.Name, res.stations, res.routes, res.routeStops); err != nil {
			return fmt.Errorf("failed to merge %s dataset %s: %w", mode.Name, res.dir, err)
		}

		for _, row := range res.stations {
			stationIDs[row.StopID] = struct{}{}
		}
		for _, row := range res.routes {
			routeIDs[row.RouteID] = struct{}{}
		}
		for _, row := range res.routeStops {
			routeStopKeys[routeStopKey{row.RouteID, row.DirectionID, row.StopID}] = struct{}{}
		}
		missingTripRefs += res.missingTripRefs
		for id := range res.missingStopIDs {
			missingStopIDs[id] = struct{}{}
		}

		log.Printf("%s: merged dataset %d/%d (%s); cumulative unique stations=%d, routes=%d, routeStops=%d",
			mode.Name, i+1, len(dirs), filepath.Base(res.dir), len(stationIDs), len(routeIDs), len(routeStopKeys))

		results[i] = nil // release the dataset's rows
	}

	report.Counts[mode.Name] = ModeCounts{
		Stations:   len(stationIDs),
		Routes:     len(routeIDs),
		RouteStops: len(routeStopKeys),
	}
	report.Warnings[mode.Name] = ModeWarnings{
		MissingTripRefs:      missingTripRefs,
		MissingStopRefs:      len(missingStopIDs),
		SampleMissingStopIDs: sampleIDs(missingStopIDs, missingStopSampleLimit),
	}

	log.Printf("%s: merged %d dataset(s) in %.1fs", mode.Name, len(dirs), time.Since(started).Seconds())
	return nil
}

// sampleIDs returns up to limit ids in sorted order, so reports stay small
// and diffable no matter how broken a feed is.
func sampleIDs(set map[string]struct{}, limit int) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
