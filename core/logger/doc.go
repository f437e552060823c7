// Package logger builds the zap logger shared by the CLI, the HTTP server and the
// sync engine.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (default) or console
//
// # Request Correlation
//
// WithRayID attaches the ray_id set by the rayid middleware, so every log line of a
// triggered sync can be tied to the request that started it.
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log.Info("Sync pass started", zap.String("pipeline", name))
package logger
