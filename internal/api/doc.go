// Package api implements the HTTP control API and WebSocket push for ledtube.
//
// This package provides:
//   - REST endpoints to start and stop discovery and streaming, select the
//     active show and inspect the device registry
//   - WebSocket hub for live spectrum, stream stats and engine events
//   - JWT authentication (when security.auth.enabled) with ticket-based
//     WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// Device discovery and frame traffic never pass through this package; the
// API only drives the engine that owns those loops.
package api
