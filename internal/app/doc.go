// Package app assembles the mailboard pipeline from a loaded Config.
//
// Build order follows the data flow: archive pool and writer, notification
// sinks and trigger, connection manager, session, then the REST reconciler.
// Start and Stop walk the same list forwards and backwards.
package app
