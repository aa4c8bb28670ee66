package config

import (
	"fmt"
	"net/url"
)

// Config holds all CLI configuration options.
type Config struct {
	SQLDir       string `koanf:"sql_dir"`
	OutputFile   string `koanf:"output_file"`
	ReportSchema string `koanf:"report_schema"`
	DBSearch     bool   `koanf:"db_search"`
	Workers      int    `koanf:"workers"`
	Verbose      bool   `koanf:"verbose"`
	Output       string `koanf:"output"`

	Warehouse WarehouseConfig `koanf:"warehouse"`
	Target    TargetConfig    `koanf:"target"`
}

// WarehouseConfig holds warehouse connection settings. Either a full
// DSN or discrete fields.
type WarehouseConfig struct {
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"sslmode"`
}

// ConnString returns the pgx connection string for the warehouse.
func (w WarehouseConfig) ConnString() string {
	if w.DSN != "" {
		return w.DSN
	}
	port := w.Port
	if port == 0 {
		port = 5439 // Redshift default
	}
	sslmode := w.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(w.User), url.QueryEscape(w.Password), w.Host, port, w.Database, sslmode)
}

// Configured reports whether any warehouse connection info is present.
func (w WarehouseConfig) Configured() bool {
	return w.DSN != "" || w.Host != ""
}

// TargetConfig names the default table and columns for usage tracing.
type TargetConfig struct {
	Schema  string   `koanf:"schema"`
	Table   string   `koanf:"table"`
	Columns []string `koanf:"columns"`
}
