// Package writer implements the batched archive writer.
//
// Merge deltas and notification records are queued without blocking and
// written to PostgreSQL in pgx batches, flushed on size or interval:
//   - emails are upserted; an existing row only changes when a full body
//     replaces a partial one
//   - calendar events use ON CONFLICT DO NOTHING (first writer wins)
//   - notifications are inserted by UUID
package writer
