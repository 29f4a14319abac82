// Package notify implements the Notification Trigger.
//
// The trigger inspects merge deltas and raises aggregate alerts when the
// user has granted permission. Records are delivered asynchronously to one
// or more sinks: structured logs, an in-process channel for the dashboard
// and Redis pub/sub.
package notify
