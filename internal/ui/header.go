package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("pbdash", styles.Logo)}
	if m.config != nil {
		parts = append(parts, bg.Render(truncateMiddle(m.config.APIURL, 40), styles.MutedText))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	} else if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	}

	parts = append(parts,
		bg.Render("Stocks:", styles.MutedText)+bg.Spaces(1)+
			bg.Render(fmt.Sprintf("%d", len(m.snapshot.Stocks)), styles.Text),
	)

	if ts := m.formatUpdated(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil {
		maxErr := 60
		if m.width < 100 {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Spaces(1)+
				bg.Render(truncate(err.Error(), maxErr), styles.DangerText.Bold(false)),
		)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, " ") + sep)
}

func (m Model) formatUpdated() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}
	ago := m.now().Sub(last).Truncate(time.Second)
	if ago < time.Second {
		return last.Format("15:04:05")
	}
	return fmt.Sprintf("%s (%s ago)", last.Format("15:04:05"), ago)
}

// renderCommandBar renders the key hints, or the search prompt while typing.
func (m Model) renderCommandBar() string {
	if m.searching {
		return m.searchInput.View()
	}
	styles := m.theme.Styles()
	var prefix string
	if m.currentView == ViewLogs {
		prefix = styles.AccentText.Render("logs") + "  "
	} else if m.searchQuery != "" {
		prefix = styles.AccentText.Render("/"+m.searchQuery) + "  "
	}
	return prefix + m.help.ShortHelpView(m.keys.ShortHelp())
}

// renderFlash renders the current notification, or an empty line.
func (m Model) renderFlash() string {
	if m.notifier == nil {
		return ""
	}
	n, ok := m.notifier.Current()
	if !ok {
		return ""
	}
	style := m.theme.Styles().CategoryStyle(n.Category)
	text := strings.ReplaceAll(n.Text, "\n", " ")
	return style.Render(truncate(text, max(m.width, 1)))
}
