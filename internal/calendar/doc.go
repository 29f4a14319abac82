// Package calendar renders canonical events as an iCalendar feed.
package calendar
