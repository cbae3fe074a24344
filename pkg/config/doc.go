// Package config provides configuration management for pivotal.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("pivotal.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("pivotal.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PIVOTAL_SECTION_FIELD.
// For example:
//
//   - PIVOTAL_STORE_PATH overrides store.path
//   - PIVOTAL_EXPORT_WORKERS overrides export.workers
//   - PIVOTAL_EXPORT_PRIORITY overrides export.priority (comma separated)
//   - PIVOTAL_OUTPUT_POSTGRES_DSN overrides output.postgres.dsn
//
// A variable that cannot be parsed fails the load.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// When no output is enabled the CSV output is switched on, so a bare
// configuration still produces a file.
//
// # Reloading
//
// Commands load the configuration once and pass it down explicitly.
// "pivotal watch" wraps it in a Source and reloads the file before each
// run; a reload that fails to parse or validate keeps the previous one:
//
//	src := config.NewSource(path, cfg, nil)
//	cfg, err := src.Reload()
//
// # Example Configuration
//
//	store:
//	  path: "data/staging.db"
//
//	ingest:
//	  path: "data/facts.csv"
//
//	export:
//	  chunk_size: 1000
//	  workers: 4
//	  priority: ["name", "price"]
//
//	output:
//	  csv:
//	    enabled: true
//	    path: "data/export.csv"
//	  sqlite:
//	    enabled: true
//	    path: "data/export.db"
//	    table: "products"
//
//	schedule:
//	  cron: "*/15 * * * *"
//	  watch_input: true
package config
