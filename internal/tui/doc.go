// Package tui is the terminal dashboard. It polls a session snapshot once a
// second and listens on a notification feed for immediate alerts.
package tui
