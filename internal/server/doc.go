// Package server exposes the permission engine over HTTP: permission
// queries and mutations, datasite listings, change-feed replay, health
// and Prometheus endpoints. API routes are rate limited with a token
// bucket; shutdown is graceful and bounded by a configurable timeout.
package server
