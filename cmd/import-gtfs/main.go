// Command import-gtfs canonicalizes the static GTFS feeds of every
// configured transit mode and loads them into the database: one atomic
// replace per single-dataset mode, merge upserts for multi-dataset bus
// bundles. It prints a JSON report of row counts and feed warnings when done.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/Commute-Live/Server/internal/config"
	"github.com/Commute-Live/Server/internal/db"
	"github.com/Commute-Live/Server/internal/importer"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, defaults apply without one)")
	sourceDir := flag.String("source", "", "Override the GTFS source directory")
	driver := flag.String("driver", "", "Override the database driver (postgres or sqlite)")
	flag.Parse()

	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sourceDir != "" {
		cfg.SourceDir = *sourceDir
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}

	ctx := context.Background()
	started := time.Now()

	modes := make([]importer.Mode, 0, len(cfg.Modes))
	modeNames := make([]string, 0, len(cfg.Modes))
	for _, m := range cfg.Modes {
		modes = append(modes, importer.Mode{
			Name:             m.Name,
			Path:             m.Path,
			DefaultRouteType: m.DefaultRouteType,
			MultiDataset:     m.MultiDataset,
			ClusterStations:  m.ClustersStations(),
		})
		modeNames = append(modeNames, m.Name)
	}

	var sink importer.Sink
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := db.NewPostgres(ctx, cfg.Database.PostgresURL(), cfg.TablePrefix)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx, modeNames); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		sink = pg
	case "sqlite":
		sq, err := db.NewSQLite(cfg.Database.Path, cfg.TablePrefix)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer sq.Close()
		if err := sq.EnsureSchema(ctx, modeNames); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		sink = sq
	default:
		log.Fatalf("Unknown database driver: %s", cfg.Database.Driver)
	}

	log.Printf("Connected to %s database, importing from %s", cfg.Database.Driver, cfg.SourceDir)

	report, err := importer.Run(ctx, sink, importer.Options{
		SourceDir:   cfg.SourceDir,
		Modes:       modes,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	fmt.Println(string(out))

	log.Printf("Import complete in %.1fs", time.Since(started).Seconds())
}
