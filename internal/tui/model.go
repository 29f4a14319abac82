package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/session"
)

const (
	refreshInterval = time.Second
	fetchTimeout    = 30 * time.Second
	statusHold      = 4 * time.Second

	defaultWidth  = 100
	defaultHeight = 30
)

// Source is what the dashboard reads from and acts on. *session.Session
// satisfies it.
type Source interface {
	Snapshot() session.Snapshot
	FetchFull(ctx context.Context, id string) error
	Reconnect()
}

var _ Source = (*session.Session)(nil)

// Model is the bubbletea model of the dashboard.
type Model struct {
	src  Source
	feed <-chan model.NotificationRecord
	now  func() time.Time

	snap     session.Snapshot
	loaded   bool
	selected int
	top      int // First visible email row

	width, height int

	status      string
	statusIsErr bool
	statusUntil time.Time
}

// New creates a dashboard over src. feed may be nil.
func New(src Source, feed <-chan model.NotificationRecord) Model {
	return Model{
		src:  src,
		feed: feed,
		now:  time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{refreshCmd(m.src), tickCmd(refreshInterval)}
	if m.feed != nil {
		cmds = append(cmds, waitForNotificationCmd(m.feed))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureSelectedVisible()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if !m.statusUntil.IsZero() && time.Time(msg).After(m.statusUntil) {
			m.clearStatus()
		}
		return m, tea.Batch(refreshCmd(m.src), tickCmd(refreshInterval))

	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))

	case notificationMsg:
		rec := model.NotificationRecord(msg)
		m.setStatus(fmt.Sprintf("%s: %s", rec.Title, rec.Message), false)
		return m, tea.Batch(waitForNotificationCmd(m.feed), refreshCmd(m.src))

	case feedClosedMsg:
		m.feed = nil

	case fetchDoneMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Fetch failed: %v", msg.Err), true)
			return m, nil
		}
		m.setStatus("Fetched full email "+msg.ID, false)
		return m, refreshCmd(m.src)

	case reconnectMsg:
		m.setStatus("Reconnecting...", false)
		return m, refreshCmd(m.src)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "down", "j":
		if m.selected < len(m.snap.Emails)-1 {
			m.selected++
			m.ensureSelectedVisible()
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.ensureSelectedVisible()
		}
	case "f":
		e, ok := m.selectedEmail()
		if !ok {
			return m, nil
		}
		if e.IsFull {
			m.setStatus("Already showing the full email", false)
			return m, nil
		}
		m.setStatus("Fetching "+truncate(e.Subject, 40)+"...", false)
		return m, fetchCmd(m.src, e.ID)
	case "r":
		return m, reconnectCmd(m.src)
	}
	return m, nil
}

// applySnapshot replaces the view data, keeping the selection on the same
// email when it is still listed.
func (m *Model) applySnapshot(s session.Snapshot) {
	prev, hadPrev := m.selectedEmail()

	m.snap = s
	m.loaded = true

	m.selected = 0
	if hadPrev {
		for i, e := range s.Emails {
			if e.ID == prev.ID {
				m.selected = i
				break
			}
		}
	}
	m.ensureSelectedVisible()
}

func (m Model) selectedEmail() (model.EmailSummary, bool) {
	if m.selected < 0 || m.selected >= len(m.snap.Emails) {
		return model.EmailSummary{}, false
	}
	return m.snap.Emails[m.selected], true
}

func (m *Model) ensureSelectedVisible() {
	rows := m.listRows()
	if m.selected < m.top {
		m.top = m.selected
	}
	if m.selected >= m.top+rows {
		m.top = m.selected - rows + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusIsErr = isErr
	m.statusUntil = m.now().Add(statusHold)
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusIsErr = false
	m.statusUntil = time.Time{}
}

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// listRows is the number of email rows that fit in the list pane.
func (m Model) listRows() int {
	_, h := m.size()
	// Status bar, help line, bottom panes and borders.
	rows := h - 2 - (maxBottomRows + 3) - 3
	if rows < 3 {
		rows = 3
	}
	return rows
}
