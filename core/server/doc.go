// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber app from it; the API key protects every route
// that can trigger a sync.
package server
