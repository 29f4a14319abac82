// Package session wires the Connection Manager, Message Router, State
// Merger and Notification Trigger into one processing pipeline.
//
// Frames from the push stream and updates submitted over REST are handled
// one at a time on a single goroutine: each merge completes and its delta
// is evaluated for notifications before the next input is taken. Readers
// use Snapshot, which copies under the store's read lock.
package session
