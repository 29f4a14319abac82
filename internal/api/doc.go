// Package api provides the REST client for the mail backend.
//
// Endpoints:
//   - GET /emails?limit=N        recent summaries, most important first
//   - GET /emails/{id}           one email with its full body
//   - GET /events?days_ahead=N   events extracted from recent mail
//
// Requests are retried with jittered exponential backoff on 5xx and 429.
package api
