// Package model defines the data types shared by the synchronization client.
//
// All types mirror the JSON payloads pushed by the summarizer backend.
//
// Conventions:
//   - Importance: ordered integers, 1 = low, 2 = medium, 3 = high (0 = unknown)
//   - Timestamps: time.Time, zero when the server sent no parseable date
//   - IDs: server-assigned strings for emails, uuid.UUID for notifications
package model
