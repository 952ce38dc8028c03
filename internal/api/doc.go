// Package api implements the HTTP REST API and WebSocket server for Homepanel.
//
// This package provides:
//   - REST endpoints for devices, rooms and moods, members and the audit trail
//   - A WebSocket hub that delivers house events to subscribed clients
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging and metrics, recovery, CORS, rate limits)
//
// # Architecture
//
// Handlers are thin: they decode the request, take the principal resolved
// by authMiddleware and call one domain service. Domain errors are mapped to
// HTTP statuses by their fault kind in writeServiceError.
//
// # Security
//
// Every protected request re-reads the caller's account, so role changes and
// approvals apply immediately. WebSocket connections redeem a single-use
// ticket that binds the connection to the caller's house; events from other
// houses are never delivered to it.
package api
