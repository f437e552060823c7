// Package config provides configuration management for table-sync.
//
// It utilizes Viper for loading configuration from environment variables, an
// optional config file (config.yaml) and a .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Log: Logging level and format
//   - Database: run history database (sqlite or MySQL)
//   - Storage: MinIO/S3 snapshot archive
//   - Coda, Sheets: API endpoints and credentials
//   - Sync: propagation polling defaults and history recording
//   - Pipelines: the configured pipelines (config file only)
//
// Scalar settings can be overridden from the environment, e.g. CODA_API_TOKEN or
// SYNC_POLL_TIMEOUT_SECONDS.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
