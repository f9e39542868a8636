// Package config holds the importer configuration: where the source feeds
// live, which transit modes to import, and how to reach the database. A YAML
// file may override any of it; with no file the MTA defaults apply.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Mode configures one transit mode.
type Mode struct {
	Name             string `yaml:"name" validate:"required,alphanum,lowercase"`
	Path             string `yaml:"path"`
	DefaultRouteType int    `yaml:"default_route_type" validate:"gte=0"`
	MultiDataset     bool   `yaml:"multi_dataset"`
	// ClusterStations defaults to true for single-dataset modes and false
	// for multi-dataset ones; set it explicitly to override.
	ClusterStations *bool `yaml:"cluster_stations"`
}

// ClustersStations resolves the clustering default.
func (m Mode) ClustersStations() bool {
	if m.ClusterStations != nil {
		return *m.ClusterStations
	}
	return !m.MultiDataset
}

// Database selects and configures the sink backend.
type Database struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is the full Postgres connection URL. When empty it is assembled
	// from the POSTGRES_* environment variables.
	URL string `yaml:"url"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// Config is the root configuration.
type Config struct {
	SourceDir   string   `yaml:"source_dir" validate:"required"`
	TablePrefix string   `yaml:"table_prefix" validate:"required,alphanum,lowercase"`
	Concurrency int      `yaml:"concurrency" validate:"gte=0"`
	Database    Database `yaml:"database"`
	Modes       []Mode   `yaml:"modes" validate:"required,min=1,dive"`
}

// Default returns the stock MTA configuration: subway, LIRR, and Metro-North
// as single-dataset modes, bus as a multi-dataset mode.
func Default() *Config {
	return &Config{
		SourceDir:   "./mta",
		TablePrefix: "mta",
		Concurrency: 1,
		Database: Database{
			Driver: "postgres",
		},
		Modes: []Mode{
			{Name: "subway", Path: "subway", DefaultRouteType: 1},
			{Name: "bus", Path: "bus", DefaultRouteType: 3, MultiDataset: true},
			{Name: "lirr", Path: "lirr", DefaultRouteType: 2},
			{Name: "mnr", Path: "mnr", DefaultRouteType: 2},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// given), then environment fallbacks, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = getEnv("SQLITE_DATABASE", "./data/transit.db")
	}
	for i := range cfg.Modes {
		if cfg.Modes[i].Path == "" {
			cfg.Modes[i].Path = cfg.Modes[i].Name
		}
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// PostgresURL returns the configured connection URL, assembling one from
// POSTGRES_HOST/PORT/DB/USER/PASSWORD when none is set. POSTGRES_PORT_BIND
// may carry a compose-style "host:port" publish spec; its last segment is
// used when POSTGRES_PORT itself is absent.
func (d Database) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}

	host := getEnv("POSTGRES_HOST", "127.0.0.1")
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		if bind := strings.TrimSpace(os.Getenv("POSTGRES_PORT_BIND")); bind != "" {
			parts := strings.Split(bind, ":")
			port = parts[len(parts)-1]
		}
	}
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("POSTGRES_USER", "postgres"), os.Getenv("POSTGRES_PASSWORD")),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + getEnv("POSTGRES_DB", "commutelive"),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
