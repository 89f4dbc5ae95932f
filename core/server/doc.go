// Package server holds the HTTP server configuration.
//
// The server exposes the read-only inspect surface over the running engines.
// It is started by the start command when Enabled is set.
package server
