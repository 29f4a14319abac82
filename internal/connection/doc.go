// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains one WebSocket connection to the push server
//   - Runs an explicit Connecting/Open/Closed state machine on a single event loop
//   - Reconnects forever with exponential backoff, min(base*growth^attempt, max)
//   - Sends an application keep-alive ping while open
//   - Forwards inbound frames to the Message Router
package connection
