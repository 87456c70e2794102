// Package internal documents the EventHub server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, pagination, problem documents and routing
// - domain: accounts, events, registrations and admin services with their storage ports
// - storage: PostgreSQL (pgx) and SQLite repositories implementing those ports
// - email, notify: post-commit confirmation email and SMS
// - auth, audit, config, metrics, sanitize, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
