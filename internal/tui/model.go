// Package tui is the interactive terminal front end of the dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/render"
)

// actionTimeout bounds engine calls issued from key presses.
const actionTimeout = 10 * time.Second

// --- Messages ---

type snapshotMsg struct{ snap *model.Snapshot }

type chainMsg struct{ view *chain.View }

type pollFailedMsg struct{ err error }

type chainResultMsg struct {
	view *chain.View
	err  error
}

type compareResultMsg struct {
	cmp *compare.Comparison
	err error
}

type actionResultMsg struct{ err error }

// notifyMsg only forces a redraw.
type notifyMsg struct{}

type tickMsg struct{}

// --- Views ---

type viewID int

const (
	viewDashboard viewID = iota
	viewChain
	viewCompare
	viewCount
)

func (v viewID) String() string {
	switch v {
	case viewDashboard:
		return "Dashboard"
	case viewChain:
		return "Version chain"
	case viewCompare:
		return "Split view"
	}
	return "?"
}

// --- Model ---

type uiModel struct {
	be backend.Backend

	snap  *model.Snapshot
	chain *chain.View
	cmp   *compare.Comparison

	activeView  viewID
	width       int
	height      int
	selectedRow int
	left, right int
	lastErr     error
	lastRefresh time.Time

	help     help.Model
	showHelp bool
}

func newModel(be backend.Backend) uiModel {
	m := uiModel{
		be:    be,
		chain: be.Chain(),
		cmp:   be.Comparison(),
		right: 1,
		help:  help.New(),
	}
	m.setSnapshot(be.Snapshot())
	return m
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case snapshotMsg:
		m.setSnapshot(msg.snap)
		m.lastErr = nil

	case chainMsg:
		m.chain = msg.view

	case pollFailedMsg:
		m.lastErr = msg.err

	case chainResultMsg:
		switch {
		case msg.err == nil:
			m.chain = msg.view
			m.activeView = viewChain
		case errors.Is(msg.err, chain.ErrStale):
		default:
			m.lastErr = msg.err
		}

	case compareResultMsg:
		switch {
		case msg.err == nil:
			m.cmp = msg.cmp
			m.activeView = viewCompare
		case errors.Is(msg.err, compare.ErrStale):
		default:
			m.lastErr = msg.err
		}

	case actionResultMsg:
		m.lastErr = msg.err
		m.setSnapshot(m.be.Snapshot())
		m.chain = m.be.Chain()
		m.cmp = m.be.Comparison()

	case notifyMsg:

	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

func (m uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v, ok := viewKeys[msg.String()]; ok {
		m.activeView = v
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		m.activeView = (m.activeView + 1) % viewCount

	case key.Matches(msg, keys.Esc):
		if m.activeView == viewChain {
			m.be.ClearFocus()
			m.chain = nil
		}
		m.activeView = viewDashboard

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Refresh):
		return m, m.poll()

	case key.Matches(msg, keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}

	case key.Matches(msg, keys.Down):
		if m.snap != nil && m.selectedRow < len(m.snap.Rows)-1 {
			m.selectedRow++
		}

	case key.Matches(msg, keys.Enter):
		if row, ok := m.selected(); ok {
			return m, m.showChain(row)
		}

	case key.Matches(msg, keys.Left):
		m.left = m.cycle(m.left)

	case key.Matches(msg, keys.Right):
		m.right = m.cycle(m.right)

	case key.Matches(msg, keys.Compare):
		return m, m.compare()

	case key.Matches(msg, keys.Read):
		row, rowOK := m.selected()
		trx, trxOK := m.leftTrx()
		if rowOK && trxOK {
			return m, m.action(func(ctx context.Context, be backend.Backend) error {
				_, err := be.Read(ctx, trx, row)
				return err
			})
		}

	case key.Matches(msg, keys.BeginRC):
		return m, m.action(func(ctx context.Context, be backend.Backend) error {
			_, err := be.Begin(ctx, model.ReadCommitted)
			return err
		})

	case key.Matches(msg, keys.BeginRR):
		return m, m.action(func(ctx context.Context, be backend.Backend) error {
			_, err := be.Begin(ctx, model.RepeatableRead)
			return err
		})

	case key.Matches(msg, keys.Commit):
		if trx, ok := m.leftTrx(); ok {
			return m, m.action(func(ctx context.Context, be backend.Backend) error {
				return be.Commit(ctx, trx)
			})
		}

	case key.Matches(msg, keys.Rollback):
		if trx, ok := m.leftTrx(); ok {
			return m, m.action(func(ctx context.Context, be backend.Backend) error {
				return be.Rollback(ctx, trx)
			})
		}

	case key.Matches(msg, keys.Reset):
		return m, m.action(func(ctx context.Context, be backend.Backend) error {
			return be.Reset(ctx)
		})
	}

	return m, nil
}

// setSnapshot stores snap and clamps selections that may now be out of range.
func (m *uiModel) setSnapshot(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	m.snap = snap
	m.lastRefresh = snap.FetchedAt
	if n := len(snap.Rows); m.selectedRow >= n {
		m.selectedRow = max(0, n-1)
	}
	n := len(snap.Transactions.Active)
	if m.left >= n {
		m.left = 0
	}
	if m.right >= n {
		m.right = min(1, max(0, n-1))
	}
}

func (m uiModel) selected() (model.RowID, bool) {
	if m.snap == nil || m.selectedRow >= len(m.snap.Rows) {
		return 0, false
	}
	return m.snap.Rows[m.selectedRow].ID, true
}

func (m uiModel) leftTrx() (model.TrxID, bool) {
	if m.snap == nil || m.left >= len(m.snap.Transactions.Active) {
		return 0, false
	}
	return m.snap.Transactions.Active[m.left].ID, true
}

// pair returns the transactions picked for comparison. A pick that is out
// of range falls back to the first active transaction.
func (m uiModel) pair() (model.TrxID, model.TrxID, bool) {
	if m.snap == nil || len(m.snap.Transactions.Active) == 0 {
		return 0, 0, false
	}
	active := m.snap.Transactions.Active
	at := func(i int) model.TrxID {
		if i < 0 || i >= len(active) {
			i = 0
		}
		return active[i].ID
	}
	return at(m.left), at(m.right), true
}

func (m uiModel) cycle(i int) int {
	if m.snap == nil || len(m.snap.Transactions.Active) == 0 {
		return 0
	}
	return (i + 1) % len(m.snap.Transactions.Active)
}

// --- Commands ---

func (m uiModel) poll() tea.Cmd {
	be := m.be
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		res, err := be.Poll(ctx)
		if err != nil {
			return pollFailedMsg{err: err}
		}
		return snapshotMsg{snap: res.Snapshot}
	}
}

func (m uiModel) showChain(row model.RowID) tea.Cmd {
	be := m.be
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		view, err := be.ShowChain(ctx, row)
		return chainResultMsg{view: view, err: err}
	}
}

func (m uiModel) compare() tea.Cmd {
	be := m.be
	a, b, pick := m.pair()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if !pick {
			cmp, err := be.CompareDefault(ctx)
			return compareResultMsg{cmp: cmp, err: err}
		}
		cmp, err := be.Compare(ctx, a, b)
		return compareResultMsg{cmp: cmp, err: err}
	}
}

func (m uiModel) action(fn func(context.Context, backend.Backend) error) tea.Cmd {
	be := m.be
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionResultMsg{err: fn(ctx, be)}
	}
}

// --- Rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	r := render.New(m.width)

	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	var content string
	switch m.activeView {
	case viewDashboard:
		content = m.renderSelection() + "\n" + r.Dashboard(m.be.Dashboard())
	case viewChain:
		if m.chain == nil {
			content = dimStyle.Render("select a row and press enter")
		} else {
			content = r.Chain(m.chain)
		}
	case viewCompare:
		content = m.renderPair() + "\n\n" + r.Comparison(m.cmp)
	}

	contentHeight := m.height - 6
	if m.showHelp {
		contentHeight -= 3
	}
	lines := strings.Split(content, "\n")
	if contentHeight > 0 && len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}
	for i, line := range lines {
		if lipgloss.Width(line) > m.width {
			lines[i] = ansi.Truncate(line, m.width, "")
		}
	}
	b.WriteString(strings.Join(lines, "\n"))

	rendered := strings.Count(b.String(), "\n")
	notes := r.Notifications(m.be.Notifications())
	noteLines := 0
	if notes != "" {
		noteLines = strings.Count(notes, "\n") + 1
	}
	for rendered < m.height-2-noteLines {
		b.WriteRune('\n')
		rendered++
	}
	if notes != "" {
		b.WriteString(notes)
		b.WriteRune('\n')
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}
	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("mvccview")
	stats := "waiting for first poll"
	if m.snap != nil {
		stats = fmt.Sprintf("%d active | %d rows | %d undo logs",
			len(m.snap.Transactions.Active), len(m.snap.Rows), len(m.snap.UndoLogs))
	}
	stats = dimStyle.Render(stats)
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-2))
	return title + gap + stats
}

func (m uiModel) renderTabBar() string {
	var tabs []string
	for i := viewID(0); i < viewCount; i++ {
		if i == m.activeView {
			tabs = append(tabs, tabActiveStyle.Render(i.String()))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(i.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m uiModel) renderSelection() string {
	row, ok := m.selected()
	if !ok {
		return dimStyle.Render("no rows")
	}
	return dimStyle.Render(fmt.Sprintf("selected row %d", row))
}

func (m uiModel) renderPair() string {
	a, b, ok := m.pair()
	if !ok {
		return dimStyle.Render("no active transactions")
	}
	return dimStyle.Render(fmt.Sprintf("left T%d  right T%d  (press v to compare)", a, b))
}

func (m uiModel) renderStatusBar() string {
	left := " " + contextHelp(m.activeView)
	right := ""
	switch {
	case m.lastErr != nil:
		right = errorStyle.Render(m.lastErr.Error()) + " "
	case !m.lastRefresh.IsZero():
		right = fmt.Sprintf("polled %s ago ", time.Since(m.lastRefresh).Truncate(time.Second))
	}
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return statusBarStyle.Render(left + gap + right)
}
