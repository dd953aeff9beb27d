package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/pybill/pbdash/internal/config"
	"github.com/pybill/pbdash/internal/dispatch"
	"github.com/pybill/pbdash/internal/export"
	"github.com/pybill/pbdash/internal/gate"
	"github.com/pybill/pbdash/internal/notify"
	"github.com/pybill/pbdash/internal/prefs"
	"github.com/pybill/pbdash/internal/query"
	"github.com/pybill/pbdash/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewStocks View = iota
	ViewLogs
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Dispatcher *dispatch.Dispatcher
	Facade     *query.Facade
	Notifier   *notify.Controller
	Store      *state.Store
	Config     *config.Config
	Exporter   export.Exporter
	Gate       *gate.Gate
	Session    *gate.SessionStore
	Prefs      prefs.Prefs
	PrefsPath  string
	Logger     *zap.Logger
	UITick     time.Duration
	Now        func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	facade    *query.Facade
	notifier  *notify.Controller
	store     *state.Store
	config    *config.Config
	exporter  export.Exporter
	gate      *gate.Gate
	session   *gate.SessionStore
	prefsPath string
	logger    *zap.Logger
	uiTick    time.Duration
	now       func() time.Time

	keys        keyMap
	help        help.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	table         table.Model
	visible       []query.StockItem
	sidebar       bool
	pendingDelete string

	searching   bool
	searchInput textinput.Model
	searchQuery string

	showHelp bool

	showDashboard    bool
	dashboardFetched bool

	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tick := opts.UITick
	if tick <= 0 {
		tick = time.Second
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "code or name"
	search.CharLimit = 40

	m := Model{
		ctx:         ctx,
		facade:      opts.Facade,
		notifier:    opts.Notifier,
		store:       opts.Store,
		config:      opts.Config,
		exporter:    opts.Exporter,
		gate:        opts.Gate,
		session:     opts.Session,
		prefsPath:   prefsPath,
		logger:      logger,
		uiTick:      tick,
		now:         now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: ViewStocks,
		table:       newStockTable(),
		sidebar:     opts.Prefs.Sidebar,
		searchInput: search,
		logViewport: viewport.New(0, 0),
		logState:    newLogState(),
	}
	if m.gate != nil && m.gate.IsDue(now()) {
		m.showDashboard = true
	}
	if m.store != nil {
		m.applySnapshot(m.store.Snapshot())
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.uiTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.showDashboard {
		cmds = append(cmds, m.markDashboardCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case runMsg:
		// Dispatcher continuations run here, on the event loop.
		msg()
		if m.store != nil {
			m.applySnapshot(m.store.Snapshot())
		}
		return m, nil

	case flashMsg:
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case dashboardMarkedMsg:
		if msg.err != nil {
			m.logger.Warn("persist dashboard gate", zap.Error(msg.err))
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showDashboard {
		return m.renderDashboard()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showDashboard {
		return m.handleDashboardKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(m.tableStyles())
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.dismiss()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.toggleSidebar()
		return m, nil

	case key.Matches(msg, m.keys.Dashboard):
		return m.openDashboard()

	case key.Matches(msg, m.keys.Logs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleStocksKey(msg)
	}
}

// dismiss clears the flash and returns to the stock list.
func (m *Model) dismiss() {
	if m.notifier != nil {
		m.notifier.Clear()
	}
	m.pendingDelete = ""
	if m.currentView != ViewStocks {
		m.currentView = ViewStocks
		return
	}
	if m.searchQuery != "" {
		m.searchQuery = ""
		m.searchInput.SetValue("")
		m.refreshRows()
	}
}

// toggleSidebar shows or hides the detail pane, clearing any visible flash.
func (m *Model) toggleSidebar() {
	if m.notifier != nil {
		m.notifier.Clear()
	}
	m.sidebar = !m.sidebar
	m.resize()
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Sidebar: m.sidebar}); err != nil {
		m.logger.Warn("save prefs", zap.Error(err))
	}
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.uiTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.lastUpdated = m.now()
	m.refreshRows()
	if m.showDashboard && !m.dashboardFetched {
		m.fetchDashboardQuotes()
	}
}

// resize lays out components for the current window.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	contentHeight := max(m.height-3, 3) // header, command bar, flash line
	m.table.SetWidth(m.tableWidth())
	m.table.SetHeight(max(contentHeight-2, 1))
	m.table.SetColumns(stockColumns(m.tableWidth() - 2))
	m.logViewport.Width = m.width
	m.logViewport.Height = max(contentHeight-1, 1)
	m.updateLogViewport()
}

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderStocks())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFlash())
	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// runMsg carries a dispatcher continuation onto the event loop.
type runMsg func()

// flashMsg asks for a redraw after the notification changed.
type flashMsg struct{}

type dashboardMarkedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program. Dispatcher continuations and
// notification changes are routed through the program so the model is only
// ever touched from its own loop.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Dispatcher != nil {
		opts.Dispatcher.SetScheduler(func(fn func()) { p.Send(runMsg(fn)) })
		defer opts.Dispatcher.SetScheduler(nil)
	}
	if opts.Notifier != nil {
		// Listeners may fire from inside Update, where Send would block.
		cancel := opts.Notifier.Subscribe(func(notify.Notification, bool) {
			go p.Send(flashMsg{})
		})
		defer cancel()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
