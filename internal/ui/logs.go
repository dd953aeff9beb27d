package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zapcore"

	"github.com/pybill/pbdash/internal/logtail"
)

const logTailLines = 400

var logLevels = []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}

type logState struct {
	follow   bool
	minLevel zapcore.Level
	lines    []string
	err      error
}

func newLogState() logState {
	return logState{follow: true, minLevel: zapcore.DebugLevel}
}

type logLinesMsg struct {
	lines []string
	err   error
}

func (m Model) refreshLogs() tea.Cmd {
	if m.config == nil || m.config.Log.File == "" {
		return nil
	}
	path := m.config.Log.File
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.lines = msg.lines
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	styles := m.theme.Styles()
	filtered := logtail.FilterLevel(m.logState.lines, m.logState.minLevel)

	rendered := make([]string, 0, len(filtered))
	for _, line := range filtered {
		line = truncate(line, max(m.logViewport.Width, 1))
		switch logtail.Parse(line).Level {
		case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			rendered = append(rendered, styles.DangerText.Render(line))
		case zapcore.WarnLevel:
			rendered = append(rendered, styles.WarningText.Render(line))
		case zapcore.DebugLevel:
			rendered = append(rendered, styles.FaintText.Render(line))
		default:
			rendered = append(rendered, styles.Text.Render(line))
		}
	}
	m.logViewport.SetContent(strings.Join(rendered, "\n"))
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.LogLevel):
		m.logState.minLevel = nextLogLevel(m.logState.minLevel)
		m.updateLogViewport()
		return m, nil
	case key.Matches(msg, m.keys.Follow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshLogs()
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	if !m.logViewport.AtBottom() {
		m.logState.follow = false
	}
	return m, cmd
}

func nextLogLevel(current zapcore.Level) zapcore.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	follow := "paused"
	if m.logState.follow {
		follow = "following"
	}
	status := fmt.Sprintf("Logs  level>=%s  %s", m.logState.minLevel.CapitalString(), follow)
	if m.config != nil {
		status += "  " + truncateMiddle(m.config.Log.File, 40)
	}
	header := styles.AccentText.Render(status)
	if m.logState.err != nil {
		header += "  " + styles.DangerText.Render(m.logState.err.Error())
	}
	if len(m.logState.lines) == 0 {
		return header + "\n" + styles.MutedText.Render("No log lines yet")
	}
	return header + "\n" + m.logViewport.View()
}
