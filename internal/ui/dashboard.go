package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pybill/pbdash/internal/query"
)

const dashboardMaxCodes = 8

func (m Model) openDashboard() (tea.Model, tea.Cmd) {
	m.showDashboard = true
	m.dashboardFetched = false
	m.fetchDashboardQuotes()
	return m, m.markDashboardCmd()
}

// dashboardCodes lists the configured codes, or the first saved stocks.
func (m Model) dashboardCodes() []string {
	if m.config != nil && len(m.config.Dashboard.Codes) > 0 {
		return m.config.Dashboard.Codes
	}
	var codes []string
	for _, item := range m.snapshot.Stocks {
		if len(codes) == dashboardMaxCodes {
			break
		}
		codes = append(codes, item.Code)
	}
	return codes
}

func (m *Model) fetchDashboardQuotes() {
	if m.facade == nil {
		return
	}
	codes := m.dashboardCodes()
	if len(codes) == 0 {
		return
	}
	m.dashboardFetched = true
	store := m.store
	for _, code := range codes {
		m.facade.RecentQuote(m.ctx, code, func(q query.RecentSecurity) {
			if store != nil {
				store.SetQuote(code, q)
			}
		})
	}
}

// markDashboardCmd records the dashboard as shown, persisting the time when a
// session store is configured.
func (m Model) markDashboardCmd() tea.Cmd {
	g, session, now := m.gate, m.session, m.now()
	if g == nil {
		return nil
	}
	return func() tea.Msg {
		if session == nil {
			g.MarkShown(now)
			return dashboardMarkedMsg{}
		}
		return dashboardMarkedMsg{err: session.MarkShown(g, now)}
	}
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Dashboard),
		key.Matches(msg, m.keys.Quote), msg.String() == "q":
		m.showDashboard = false
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) renderDashboard() string {
	styles := m.theme.Styles()
	width := min(max(m.width-8, 40), 72)

	var lines []string
	lines = append(lines, styles.Logo.Render("pbdash")+styles.MutedText.Render("  market overview"), "")

	codes := m.dashboardCodes()
	if len(codes) == 0 {
		lines = append(lines, styles.MutedText.Render("No stocks saved yet"))
	}
	names := make(map[string]string, len(m.snapshot.Stocks))
	for _, item := range m.snapshot.Stocks {
		names[item.Code] = item.Name
	}
	for _, code := range codes {
		name := truncate(names[code], 20)
		row := fmt.Sprintf("%-8s %-20s ", code, name)
		q, ok := m.snapshot.Quote(code)
		if !ok {
			lines = append(lines, styles.Text.Render(row)+styles.FaintText.Render("loading"))
			continue
		}
		trend := priceTrend(q.PrevClosingPrice, q.TradePrice)
		change := fmt.Sprintf("%12s %s %s%%", formatNumber(q.TradePrice.String()), trendArrow(trend), q.ChangePriceRate.String())
		lines = append(lines, styles.Text.Render(row)+styles.TrendStyle(trend).Render(change))
	}

	lines = append(lines, "")
	if m.snapshot.IsOffline() {
		lines = append(lines, styles.DangerText.Render("API unreachable, showing cached data"))
	}
	if m.gate != nil {
		lines = append(lines, styles.FaintText.Render(fmt.Sprintf("Shown at most once every %s", m.gate.MinInterval())))
	}
	lines = append(lines, styles.MutedText.Render("esc to continue"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 2).
		Width(width).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
