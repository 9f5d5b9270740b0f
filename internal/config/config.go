// Package config centralizes process configuration. All tunables live
// outside the code and are sourced from command-line flags with
// environment-variable fallbacks, so `-help` documents every knob.
//
// Typical usage:
//
//	cfg := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg := config.LoadFromArgs(fs, getenv, []string{"-max_workers=4"})
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process configuration derived from flags and environment
// variables. All fields are plain values so the struct can be copied and read
// from multiple goroutines after construction.
type Config struct {
	// IO describes the input dataset.
	InputPath  string // Path to the delimited input file.
	ExpectRows int64  // Expected row count for the drop-warning check (0 disables).

	// DB describes the destination. For MSSQL a full DSN is required.
	// For Postgres, DSN is optional (it can be built from discrete parts).
	Driver     string // Database driver: "mssql" or "postgres".
	DSN        string // Full DSN (required for mssql; optional for postgres).
	DBUser     string // Database username (Postgres convenience).
	DBPassword string // Database password (Postgres convenience).
	DBHost     string // Database host (Postgres convenience).
	DBPort     string // Database port (Postgres convenience).
	DBName     string // Database name (Postgres convenience).
	Table      string // Destination table name.
	Columns    string // Optional comma-separated column names; positional c1..cN when empty.

	// Load tunables control the batch pipeline.
	BatchSize    int           // Rows per bulk-copy batch.
	MinWorkers   int           // Workers started up front.
	MaxWorkers   int           // Upper bound on concurrently active workers.
	TableLock    bool          // Take an exclusive table lock per bulk operation.
	Stream       bool          // Hint the transport to stream rows instead of materializing.
	ExposeErrors bool          // Collect per-batch errors and return them to the caller.
	BatchTimeout time.Duration // Per-batch commit timeout for pooled batches (0 = unbounded).

	// Schema toggles for the optional provisioning step.
	EnsureTable     bool // Create the destination table when missing.
	Truncate        bool // Truncate the destination table before loading.
	MemoryOptimized bool   // MSSQL only: create the table memory-optimized.
	MemOptPath      string // MSSQL only: container path for the memory-optimized filegroup.
	UnloggedTables  bool // Postgres only: create UNLOGGED tables for speed.

	// Misc.
	Yes     bool // Skip the interactive confirmation prompt.
	Verbose bool // Log per-batch outcomes including discarded errors.
}

// LoadFromArgs builds a Config by defining flags on fs, wiring each flag to
// an environment-variable fallback via getenv, and then parsing args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
//
// The returned Config is fully populated; no further mutation occurs.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) *Config {
	cfg := &Config{}

	// Inline helpers use the provided getenv to avoid touching process env.
	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
		}
		return d
	}

	// Input
	fs.StringVar(&cfg.InputPath, "input", envOrDefaultFn("INPUT_FILE", "customers.tsv"), "Path to the tab-delimited input file")
	var expectRows int
	fs.IntVar(&expectRows, "expect_rows", intEnvOrDefaultFn("EXPECT_ROWS", 0), "Expected total row count; mismatch after the load logs a drop warning (0 disables)")

	// DB connectivity
	fs.StringVar(&cfg.Driver, "driver", envOrDefaultFn("DB_DRIVER", "mssql"), "Database driver: 'mssql' or 'postgres'.")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for mssql).")
	fs.StringVar(&cfg.DBUser, "db_user", envOrDefaultFn("DB_USER", "user"), "DB user (postgres DSN builder)")
	fs.StringVar(&cfg.DBPassword, "db_password", envOrDefaultFn("DB_PASSWORD", "password"), "DB password (postgres DSN builder)")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefaultFn("DB_HOST", "localhost"), "DB host (postgres DSN builder)")
	fs.StringVar(&cfg.DBPort, "db_port", envOrDefaultFn("DB_PORT", "5432"), "DB port (postgres DSN builder)")
	fs.StringVar(&cfg.DBName, "db_name", envOrDefaultFn("DB_NAME", "testdb"), "DB name (postgres DSN builder)")
	fs.StringVar(&cfg.Table, "table", envOrDefaultFn("DB_TABLE", "speedtest"), "Destination table name")
	fs.StringVar(&cfg.Columns, "columns", envOrDefaultFn("DB_COLUMNS", ""), "Comma-separated destination column names (default positional c1..cN)")

	// Throughput & toggles
	fs.IntVar(&cfg.BatchSize, "batch_size", intEnvOrDefaultFn("BATCH_SIZE", 2000), "Rows per bulk-copy batch")
	fs.IntVar(&cfg.MinWorkers, "min_workers", intEnvOrDefaultFn("MIN_WORKERS", 1), "Workers started up front")
	fs.IntVar(&cfg.MaxWorkers, "max_workers", intEnvOrDefaultFn("MAX_WORKERS", 5), "Upper bound on concurrent workers")
	fs.BoolVar(&cfg.TableLock, "tablock", boolEnvOrDefaultFn("TABLOCK", false), "Take an exclusive table lock per bulk operation")
	fs.BoolVar(&cfg.Stream, "stream", boolEnvOrDefaultFn("STREAM", false), "Hint the transport to stream rows instead of materializing")
	fs.BoolVar(&cfg.ExposeErrors, "expose_errors", boolEnvOrDefaultFn("EXPOSE_ERRORS", false), "Collect per-batch errors and print them after the run")
	var timeoutSec int
	fs.IntVar(&timeoutSec, "batch_timeout", intEnvOrDefaultFn("BATCH_TIMEOUT", 30), "Per-batch commit timeout in seconds for pooled batches (0 = unbounded)")

	// Schema
	fs.BoolVar(&cfg.EnsureTable, "ensure_table", boolEnvOrDefaultFn("ENSURE_TABLE", true), "Create the destination table when missing")
	fs.BoolVar(&cfg.Truncate, "truncate", boolEnvOrDefaultFn("TRUNCATE", false), "Truncate the destination table before loading")
	fs.BoolVar(&cfg.MemoryOptimized, "memopt", boolEnvOrDefaultFn("MEMOPT", false), "MSSQL only: create the table memory-optimized")
	fs.StringVar(&cfg.MemOptPath, "memopt_path", envOrDefaultFn("MEMOPT_PATH", ""), "MSSQL only: filesystem path for the memory-optimized filegroup container")
	fs.BoolVar(&cfg.UnloggedTables, "pg_unlogged", boolEnvOrDefaultFn("PG_UNLOGGED", true), "Postgres only: set UNLOGGED for load speed")

	// Misc
	fs.BoolVar(&cfg.Yes, "y", boolEnvOrDefaultFn("ASSUME_YES", false), "Skip the confirmation prompt")
	fs.BoolVar(&cfg.Verbose, "v", boolEnvOrDefaultFn("VERBOSE", false), "Log per-batch outcomes including discarded errors")

	if args == nil {
		args = []string{}
	}
	_ = fs.Parse(args)

	cfg.ExpectRows = int64(expectRows)
	cfg.BatchTimeout = time.Duration(timeoutSec) * time.Second
	return cfg
}

// LoadFrom is a compatibility wrapper around LoadFromArgs for call-sites
// that don't need to pass args explicitly (useful in some tests).
func LoadFrom(fs *flag.FlagSet, getenv func(string) string) *Config {
	return LoadFromArgs(fs, getenv, nil)
}

// Load is the production entry point. It wires the loader to the process
// flag set (flag.CommandLine), reads environment variables via os.Getenv,
// and parses os.Args[1:] as the CLI arguments.
func Load() *Config {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// Validate performs the pre-flight checks that must abort before any work
// starts: concurrency bounds, batch size, and connectivity inputs.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.MinWorkers < 1 {
		return fmt.Errorf("min_workers must be >= 1, got %d", c.MinWorkers)
	}
	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("max_workers (%d) must be >= min_workers (%d)", c.MaxWorkers, c.MinWorkers)
	}
	if c.Table == "" {
		return fmt.Errorf("table must not be empty")
	}
	switch strings.ToLower(c.Driver) {
	case "mssql":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for the mssql driver")
		}
	case "postgres":
		// DSN optional; discrete parts suffice.
	default:
		return fmt.Errorf("unknown driver: %s", c.Driver)
	}
	return nil
}

// ResolveDSN returns the connection string for the configured driver. For
// Postgres an explicit DSN wins; otherwise one is assembled from the
// discrete parts.
func (c *Config) ResolveDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if strings.ToLower(c.Driver) == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
			c.DBHost, c.DBPort, c.DBName)
	}
	return ""
}
