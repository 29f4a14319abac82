// Package router implements the Message Classifier and Dispatcher.
//
// The router:
//   - Decodes frames and classifies them by their "type" field
//   - Dispatches typed payloads to a Handler
//   - Logs and drops malformed frames, skips unknown types
//   - Keeps a bounded history of decoded messages for debugging
package router
