// Package logger builds the zap logger shared by the CLI, the sync engines
// and the HTTP surface.
//
// New reads the log section of the configuration: Level selects the minimum
// level and Format picks json or console encoding.
//
// Each engine logs through a child logger from Named, which sets both the
// logger name and a "side" field (local or remote), so lines from the two
// sides of one process can be told apart. HTTP handlers use WithRayID to add
// the request's ray_id set by the rayid middleware.
//
//	root, _ := logger.New(&cfg.Log)
//	local := logger.Named(root, "local")
//	local.Info("Pass committed", zap.Int("created", n))
package logger
