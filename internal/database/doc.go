// Package database provides the PostgreSQL connection pool and schema for
// the optional mail archive.
//
// Tables:
//   - emails: one row per id, upgraded in place when a full body arrives
//   - calendar_events: keyed by (email_id, starts_at), insert-only
//   - notifications: every raised alert, keyed by its UUID
package database
