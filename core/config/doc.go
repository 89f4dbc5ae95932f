// Package config provides configuration management for treesync.
//
// It utilizes Viper for loading configuration from an optional config.yaml,
// a .env file and environment variables. Defaults come from the `default`
// struct tags of each section.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: inspection API port and API key
//   - Database: tree store driver (SQLite or MySQL)
//   - Storage: S3/MinIO credentials and the mirrored bucket
//   - Log: logging level and format
//   - Engine: pass concurrency and scheduling
//   - Local: the synced directory and its watcher
//   - Remote: bucket prefix, node id metadata and notifications
//
// Nested keys map to environment variables with underscores, so
// ENGINE_CONCURRENCY sets engine.concurrency.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Local.Path)
package config
