// Package state implements the State Merger.
//
// The store owns the canonical email and event collections. Emails are keyed
// by server id and upgraded only when a fuller record arrives. Events are
// keyed by (email id, timestamp) and the first writer wins.
package state
