// Package api implements the HTTP REST API and WebSocket server for StayFlow Core.
//
// This package provides:
//   - REST endpoints for stays, cabins, housekeeping tasks and automation
//   - WebSocket hub pushing committed domain events to live panels
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, rate limit)
//
// # Properties
//
// Every request acts on one property, named by the X-Property-ID header
// and defaulting to the configured site. The property must be served by
// this instance and granted by the caller's token.
//
// # Conflicts
//
// Operations that lose an optimistic-concurrency race (store.ErrConflict)
// are retried a few times with exponential backoff before a 409 is returned.
// Domain operations re-read their documents on every attempt, so a retry
// never applies a stale decision.
package api
