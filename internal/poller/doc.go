// Package poller implements the Reconciler component.
//
// The Reconciler:
//   - Lists recent emails and upcoming events over REST on an interval
//   - Fetches full bodies for important partial emails, bounded by a semaphore
//   - Submits each cycle to the session as a single update
//   - Is disabled when the interval is zero
package poller
