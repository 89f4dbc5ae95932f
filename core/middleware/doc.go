// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting the inspect endpoints.
//   - rayid: a unique request id per incoming request, stored in the
//     context and echoed in the response headers for tracing.
//
// Both are registered globally in the start command, rayid first.
package middleware
