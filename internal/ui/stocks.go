package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/pybill/pbdash/internal/notify"
	"github.com/pybill/pbdash/internal/query"
)

const historyDays = 72

var historyColumns = []string{"stamp", "start", "high", "low", "end", "volume"}

func newStockTable() table.Model {
	t := table.New(
		table.WithColumns(stockColumns(60)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return t
}

// stockColumns sizes the table for width, giving the name column the rest.
func stockColumns(width int) []table.Column {
	const code, price, change = 8, 12, 9
	name := max(width-code-price-change-8, 8) // 2 cells of padding per column
	return []table.Column{
		{Title: "Code", Width: code},
		{Title: "Name", Width: name},
		{Title: "Price", Width: price},
		{Title: "Change", Width: change},
	}
}

func (m Model) tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Muted)).
		Bold(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(m.theme.Text))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(m.theme.SelectionText)).
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Bold(false)
	return s
}

func (m Model) tableWidth() int {
	if m.sidebar && m.width >= 80 {
		return m.width * 55 / 100
	}
	return m.width
}

// refreshRows rebuilds the visible rows, keeping the selection on the same code.
func (m *Model) refreshRows() {
	selected, hadSelection := m.selectedStock()

	m.visible = filterStocks(m.snapshot.Stocks, m.searchQuery)
	rows := make([]table.Row, 0, len(m.visible))
	for _, item := range m.visible {
		price, change := "", ""
		if q, ok := m.snapshot.Quote(item.Code); ok {
			trend := priceTrend(q.PrevClosingPrice, q.TradePrice)
			price = formatNumber(q.TradePrice.String())
			change = trendArrow(trend) + " " + formatNumber(strings.TrimPrefix(q.ChangePrice.String(), "-"))
		}
		rows = append(rows, table.Row{item.Code, item.Name, price, change})
	}
	m.table.SetStyles(m.tableStyles())
	m.table.SetRows(rows)

	if hadSelection {
		for i, item := range m.visible {
			if item.Code == selected.Code {
				m.table.SetCursor(i)
				return
			}
		}
	}
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) selectedStock() (query.StockItem, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return query.StockItem{}, false
	}
	return m.visible[i], true
}

func (m Model) handleStocksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Search) {
		m.searching = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, textinput.Blink
	}
	if key.Matches(msg, m.keys.Export) {
		return m, m.exportCmd()
	}
	if key.Matches(msg, m.keys.Refresh) {
		m.refreshStocks()
		return m, nil
	}

	item, ok := m.selectedStock()
	switch {
	case !ok || m.facade == nil:
	case key.Matches(msg, m.keys.Quote):
		m.fetchQuote(item.Code)
		return m, nil
	case key.Matches(msg, m.keys.Columns):
		m.fetchHistory(item.Code)
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if m.pendingDelete != item.Code {
			m.pendingDelete = item.Code
			m.notify(fmt.Sprintf("Press d again to delete %s %s", item.Code, item.Name), notify.CategoryWarning)
			return m, nil
		}
		m.pendingDelete = ""
		m.deleteStock(item.Code)
		return m, nil
	}

	m.pendingDelete = ""
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) notify(text string, c notify.Category) {
	if m.notifier != nil {
		m.notifier.Show(text, c)
	}
}

func (m Model) refreshStocks() {
	if m.facade == nil {
		return
	}
	store := m.store
	m.facade.ListStocks(m.ctx, func(items []query.StockItem) {
		if store != nil {
			store.UpdateStocks(items, nil)
		}
	})
}

func (m Model) fetchQuote(code string) {
	store := m.store
	m.facade.RecentQuote(m.ctx, code, func(q query.RecentSecurity) {
		if store != nil {
			store.SetQuote(code, q)
		}
	})
}

func (m Model) fetchHistory(code string) {
	store := m.store
	m.facade.StockColumns(m.ctx, code, historyDays, query.ColumnQuery{ColNames: historyColumns}, func(data query.QueryData) {
		if store != nil {
			store.SetColumns(code, historyDays, data)
		}
	})
}

func (m Model) deleteStock(code string) {
	store := m.store
	m.facade.DeleteStock(m.ctx, code, func() {
		if store != nil {
			store.RemoveStock(code)
		}
	})
}

// exportCmd writes the loaded history of the selected stock as CSV.
func (m Model) exportCmd() tea.Cmd {
	item, ok := m.selectedStock()
	cols := m.snapshot.Columns
	if !m.snapshot.HasColumns || (ok && cols.Code != item.Code) {
		code := cols.Code
		if ok {
			code = item.Code
		}
		m.notify(fmt.Sprintf("No history loaded for %s, press c first", code), notify.CategoryWarning)
		return nil
	}

	title := cols.Code
	if ok && item.Name != "" {
		title = fmt.Sprintf("%s (%s)", item.Name, item.Code)
	}
	exporter, notifier, logger := m.exporter, m.notifier, m.logger
	return func() tea.Msg {
		path, err := exporter.Save(fmt.Sprintf("%s_%d", cols.Code, cols.Days), title, cols.Data)
		if err != nil {
			logger.Warn("export failed", zap.String("code", cols.Code), zap.Error(err))
			if notifier != nil {
				notifier.Show("Export failed: "+err.Error(), notify.CategoryDanger)
			}
			return flashMsg{}
		}
		logger.Info("exported history", zap.String("code", cols.Code), zap.String("path", path))
		if notifier != nil {
			notifier.Show("Saved "+path, notify.CategorySuccess)
		}
		return flashMsg{}
	}
}

func (m Model) renderStocks() string {
	styles := m.theme.Styles()
	contentHeight := max(m.height-3, 3)

	if len(m.snapshot.Stocks) == 0 {
		msg := "No saved stocks"
		if m.snapshot.LastError != nil {
			msg = "Waiting for the API..."
		}
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	tableWidth := m.tableWidth()
	tablePane := m.renderTitledBox(m.stocksTitle(), m.table.View(), tableWidth, contentHeight, true)
	if tableWidth >= m.width {
		return tablePane
	}
	sideWidth := m.width - tableWidth
	sidePane := m.renderTitledBox("Quote", m.renderSidebar(sideWidth-4), sideWidth, contentHeight, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, sidePane)
}

func (m Model) stocksTitle() string {
	total := len(m.snapshot.Stocks)
	if m.searchQuery == "" {
		return fmt.Sprintf("Stocks (%d)", total)
	}
	return fmt.Sprintf("Stocks (%d/%d) /%s", len(m.visible), total, truncate(m.searchQuery, 12))
}

func (m Model) renderSidebar(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	item, ok := m.selectedStock()
	if !ok {
		return styles.MutedText.Render("Select a stock")
	}

	label := func(s string) string { return styles.MutedText.Render(fmt.Sprintf("%-10s", s)) }
	lines := []string{
		styles.AccentText.Bold(true).Render(truncate(item.Name, width)),
		styles.FaintText.Render(strings.TrimSpace(item.Code + " " + item.Market)),
		"",
	}

	q, hasQuote := m.snapshot.Quote(item.Code)
	if !hasQuote {
		lines = append(lines, styles.MutedText.Render("press enter for a quote"))
	} else {
		trend := priceTrend(q.PrevClosingPrice, q.TradePrice)
		ts := styles.TrendStyle(trend)
		lines = append(lines,
			label("Price")+ts.Render(formatNumber(q.TradePrice.String())+" "+trendArrow(trend)),
			label("Prev")+styles.Text.Render(formatNumber(q.PrevClosingPrice.String())),
			label("Change")+ts.Render(formatNumber(q.ChangePrice.String())+" ("+q.ChangePriceRate.String()+"%)"),
			label("Volume")+styles.Text.Render(formatNumber(q.AccTradeVolume.String())),
		)
		if q.TradeTime != "" {
			lines = append(lines, label("Traded")+styles.FaintText.Render(q.TradeTime))
		}
	}

	lines = append(lines, "")
	if cols := m.snapshot.Columns; m.snapshot.HasColumns && cols.Code == item.Code {
		lines = append(lines,
			label("History")+styles.Text.Render(fmt.Sprintf("%s rows, %dd", formatInt(int64(len(cols.Data.Fields))), cols.Days)),
			label("Fetched")+styles.FaintText.Render(cols.Fetched.Format("15:04:05")),
			styles.MutedText.Render("x exports CSV"),
		)
	} else {
		lines = append(lines, styles.MutedText.Render("c loads history"))
	}
	return strings.Join(lines, "\n")
}

// renderTitledBox renders content in a box with the title in the top border.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌"+strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad)+"┐", borderStyle)
	bottom := bg.Render("└"+strings.Repeat("─", innerWidth)+"┘", borderStyle)

	side := bg.Render("│", borderStyle)
	contentLines := strings.Split(content, "\n")
	body := make([]string, 0, max(height-2, 0))
	for i := 0; i < height-2; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		body = append(body, side+bg.FillLine(line, innerWidth)+side)
	}
	return top + "\n" + strings.Join(body, "\n") + "\n" + bottom
}
