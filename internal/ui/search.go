package ui

import (
	"strings"

	"github.com/agnivade/levenshtein"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pybill/pbdash/internal/query"
)

// Queries of at least this many runes tolerate a single typo.
const fuzzyMinRunes = 3

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.searchInput.Blur()
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		m.refreshRows()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.refreshRows()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.searchQuery = strings.TrimSpace(m.searchInput.Value())
	m.refreshRows()
	return m, cmd
}

func filterStocks(items []query.StockItem, q string) []query.StockItem {
	if q == "" {
		return items
	}
	out := make([]query.StockItem, 0, len(items))
	for _, item := range items {
		if matchStock(item, q) {
			out = append(out, item)
		}
	}
	return out
}

// matchStock reports whether item matches q by substring on code or name,
// or by a one-edit typo against the start of the name.
func matchStock(item query.StockItem, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	code := strings.ToLower(item.Code)
	name := strings.ToLower(item.Name)
	if strings.Contains(code, q) || strings.Contains(name, q) {
		return true
	}

	qr := []rune(q)
	if len(qr) < fuzzyMinRunes {
		return false
	}
	for _, word := range strings.Fields(name) {
		wr := []rune(word)
		if len(wr) > len(qr) {
			wr = wr[:len(qr)]
		}
		if levenshtein.ComputeDistance(q, string(wr)) <= 1 {
			return true
		}
	}
	return false
}
