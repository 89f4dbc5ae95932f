// Package integrity provides health checks for the resources treesync needs.
//
// # Checks Provided
//
//   - Store: Validates that the tree store tables carry every column of their GORM models.
//   - Bucket: Checks that the mirrored bucket exists and counts its sync roots.
//   - Local: Checks that the synced directory exists and counts its sync roots.
//
// Each check can repair what it reports: migrating the tables, creating the
// bucket or creating the directory.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks (supports ?fix=true).
//   - GET /integrity/store : Runs the store schema check (supports ?fix=true).
//   - GET /integrity/bucket : Runs the bucket check (supports ?fix=true).
//   - GET /integrity/local : Runs the local directory check (supports ?fix=true).
//
// The doctor command runs the same checks from the CLI.
package integrity
