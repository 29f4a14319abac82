package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/mailboard/internal/model"
)

// maxBottomRows bounds the events and notifications panes.
const maxBottomRows = 5

func (m Model) View() string {
	w, _ := m.size()
	if !m.loaded {
		return StatusNormalStyle.Width(w).Render("Connecting to mailboard...")
	}

	listW := w * 2 / 5
	upper := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderEmails(listW),
		m.renderPreview(w-listW),
	)
	lower := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderEvents(w/2),
		m.renderNotifications(w-w/2),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusBar(w),
		upper,
		lower,
		HelpStyle.Render(" j/k move · f fetch full · r reconnect · q quit"),
	)
}

func (m Model) renderStatusBar(width int) string {
	var conn string
	style := StatusConnectedStyle
	switch {
	case m.snap.Connected:
		conn = "● connected"
	case m.snap.Attempt > 0:
		style = StatusReconnectingStyle
		conn = fmt.Sprintf("○ reconnecting (attempt %d)", m.snap.Attempt)
		if !m.snap.NextRetryAt.IsZero() {
			if d := m.snap.NextRetryAt.Sub(m.now()).Round(time.Second); d > 0 {
				conn += fmt.Sprintf(", retry in %s", d)
			}
		}
	default:
		style = StatusReconnectingStyle
		conn = "○ connecting"
	}

	left := style.Render(conn)

	counts := fmt.Sprintf("%d emails · %d today · %d upcoming",
		len(m.snap.Emails), len(m.snap.Today), len(m.snap.Upcoming))
	if m.status != "" {
		counts = m.status + " | " + counts
	}
	rightStyle := StatusNormalStyle
	if m.statusIsErr {
		rightStyle = StatusErrorStyle
	}
	rest := width - lipgloss.Width(left)
	if rest < 0 {
		rest = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, rightStyle.Width(rest).Render(truncate(counts, rest-2)))
}

func (m Model) renderEmails(width int) string {
	rows := m.listRows()
	inner := width - 4
	loc := m.snap.TakenAt.Location()

	var lines []string
	if len(m.snap.Emails) == 0 {
		lines = append(lines, SecondaryStyle.Render("No emails yet"))
	}
	end := m.top + rows
	if end > len(m.snap.Emails) {
		end = len(m.snap.Emails)
	}
	for i := m.top; i < end; i++ {
		e := m.snap.Emails[i]
		text := fmt.Sprintf("%s %-5s %s",
			importanceBadge(e.Importance),
			formatDate(e.Timestamp, m.snap.TakenAt, loc),
			truncate(emailTitle(e), inner-8),
		)
		if i == m.selected {
			lines = append(lines, SelectedRowStyle.Width(inner).Render(text))
		} else {
			lines = append(lines, NormalRowStyle.Render(text))
		}
	}
	return pane("Emails", lines, width, rows)
}

func (m Model) renderPreview(width int) string {
	rows := m.listRows()
	inner := width - 4

	e, ok := m.selectedEmail()
	if !ok {
		return pane("Preview", []string{SecondaryStyle.Render("Nothing selected")}, width, rows)
	}

	header := func(k, v string) string {
		return HeaderKeyStyle.Render(k+": ") + truncate(v, inner-len(k)-2)
	}
	lines := []string{
		header("Subject", e.Subject),
		header("From", e.Sender),
	}
	if !e.Timestamp.IsZero() {
		lines = append(lines, header("Date", e.Timestamp.In(m.snap.TakenAt.Location()).Format("Mon Jan 2 15:04")))
	}
	meta := e.Importance.String()
	if e.Category != "" {
		meta += " · " + e.Category
	}
	lines = append(lines, header("Importance", meta))

	text := e.Summary
	if text == "" {
		text = e.Snippet
	}
	if e.IsFull && e.Body != "" {
		text = e.Body
	} else {
		text += "\n\n" + SecondaryStyle.Render("(press f for the full email)")
	}
	body := BodyStyle.Width(inner).Render(strings.ReplaceAll(text, "\r\n", "\n"))
	lines = append(lines, body)

	return pane("Preview", lines, width, rows)
}

func (m Model) renderEvents(width int) string {
	inner := width - 4
	loc := m.snap.TakenAt.Location()

	today := make(map[model.EventKey]bool, len(m.snap.Today))
	for _, ev := range m.snap.Today {
		today[ev.Key()] = true
	}

	var lines []string
	for i, ev := range m.snap.Upcoming {
		if i == maxBottomRows {
			break
		}
		marker := " "
		if today[ev.Key()] {
			marker = "•"
		}
		when := ev.Timestamp.In(loc).Format("Mon Jan 2 15:04")
		lines = append(lines, truncate(fmt.Sprintf("%s %s  %s", marker, when, eventTitle(ev)), inner))
	}
	if len(lines) == 0 {
		lines = append(lines, SecondaryStyle.Render("No upcoming events"))
	}
	return pane("Upcoming events", lines, width, maxBottomRows)
}

func (m Model) renderNotifications(width int) string {
	inner := width - 4
	loc := m.snap.TakenAt.Location()

	var lines []string
	for i, rec := range m.snap.Notifications {
		if i == maxBottomRows {
			break
		}
		line := fmt.Sprintf("%s %s: %s", rec.CreatedAt.In(loc).Format("15:04"), rec.Title, rec.Message)
		lines = append(lines, truncate(line, inner))
	}
	if len(lines) == 0 {
		lines = append(lines, SecondaryStyle.Render("No notifications"))
	}
	return pane("Notifications", lines, width, maxBottomRows)
}

// pane draws a bordered box with a title and at most rows content lines.
func pane(title string, lines []string, width, rows int) string {
	content := PaneTitleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return PaneStyle.Width(width - 2).Height(rows + 1).MaxHeight(rows + 3).Render(content)
}

func importanceBadge(i model.Importance) string {
	switch i {
	case model.ImportanceHigh:
		return HighStyle.Render("H")
	case model.ImportanceMedium:
		return MediumStyle.Render("M")
	case model.ImportanceLow:
		return LowStyle.Render("L")
	}
	return LowStyle.Render("-")
}

func emailTitle(e model.EmailSummary) string {
	switch {
	case e.Sender != "" && e.Subject != "":
		return e.Sender + " · " + e.Subject
	case e.Subject != "":
		return e.Subject
	case e.Sender != "":
		return e.Sender
	}
	return "(no subject)"
}

func eventTitle(ev model.CalendarEvent) string {
	if ev.Description != "" {
		return ev.Description
	}
	if ev.EventType != "" {
		return ev.EventType
	}
	return "event"
}

// formatDate shows the time for today and the date otherwise.
func formatDate(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "?"
	}
	if model.SameDay(t, now, loc) {
		return t.In(loc).Format("15:04")
	}
	return t.In(loc).Format("Jan02")
}

// truncate shortens s to n runes, ending in an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
