package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: values only, no graphs
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns: cards wrap, graphs stacked
	LayoutCompact
	// LayoutWide is for terminals 120+ columns: graphs side by side
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointCompact = 80
	BreakpointWide    = 120
)

// HeightMinimal is the smallest height that still shows the footer.
const HeightMinimal = 24

// Options configures the dashboard.
type Options struct {
	Nodes       telemetry.Nodes
	DefaultNode string
	// Interval between automatic refreshes.
	Interval time.Duration
	// AutoRefresh starts the dashboard with automatic refresh on.
	AutoRefresh bool
	// Thresholds colors readings per metric. Missing metrics use their base color.
	Thresholds map[telemetry.Metric]Thresholds
}

// Model is the Bubble Tea model for the node dashboard.
type Model struct {
	ctx        context.Context
	session    *session.Session
	nodes      telemetry.Nodes
	node       string
	interval   time.Duration
	thresholds map[telemetry.Metric]Thresholds

	frame     session.Frame
	haveFrame bool

	// At most one refresh is in flight. Requests made meanwhile collapse into
	// refreshPending and run when it lands.
	refreshing     bool
	refreshPending bool

	auto   bool
	tickID int

	nightMode bool
	sending   int
	status    statusLine

	width    int
	height   int
	quitting bool
	showHelp bool
	viewMode ViewMode

	// Raw frame viewer
	rawViewport   viewport.Model
	viewportReady bool

	// Active command form, nil unless viewMode is ViewForm
	form   *huh.Form
	inputs *formInputs
}

// statusLine is the last command outcome shown under the graphs.
type statusLine struct {
	text    string
	success bool
	at      time.Time
}

// tickMsg signals a periodic refresh. id ties it to one auto-refresh run.
type tickMsg struct {
	id   int
	time time.Time
}

// frameMsg carries the result of one refresh.
type frameMsg struct {
	frame session.Frame
}

// outcomeMsg carries the result of one dispatched command.
type outcomeMsg struct {
	node    string
	cmd     string
	outcome relay.Outcome
	at      time.Time
}

// NewModel creates a dashboard bound to one session. ctx bounds every fetch and
// dispatch the dashboard starts; cancel it on teardown.
func NewModel(ctx context.Context, s *session.Session, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = session.DefaultInterval
	}

	node := opts.Nodes.Default(opts.DefaultNode)

	thresholds := opts.Thresholds
	if thresholds == nil {
		thresholds = map[telemetry.Metric]Thresholds{}
	}

	return Model{
		ctx:        ctx,
		session:    s,
		nodes:      opts.Nodes,
		node:       node,
		interval:   interval,
		thresholds: thresholds,
		auto:       opts.AutoRefresh,
		refreshing: true,
		inputs:     newFormInputs(),
	}
}

// Init triggers the first refresh and, when enabled, the refresh timer.
// NewModel marks that first refresh as in flight.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{refreshCmd(m.ctx, m.session, m.node)}
	if m.auto {
		cmds = append(cmds, m.tickCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Forms own the keyboard while open.
	if m.viewMode == ViewForm && m.form != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}
		if m.viewMode == ViewRaw {
			var vpCmd tea.Cmd
			m.rawViewport, vpCmd = m.rawViewport.Update(msg)
			return m, vpCmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve space for header and footer
		headerHeight := 3
		footerHeight := 2
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.viewportReady {
			m.rawViewport = viewport.New(m.width, viewportHeight)
			m.rawViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.rawViewport.Width = m.width
			m.rawViewport.Height = viewportHeight
		}
		if m.viewMode == ViewRaw {
			m.updateRawViewportContent()
		}
		if m.form != nil {
			m.form = m.form.WithWidth(formWidth(m.width))
		}

	case tickMsg:
		if !m.auto || msg.id != m.tickID {
			return m, nil
		}
		return m, tea.Batch(m.tickCmd(), m.startRefresh())

	case frameMsg:
		m.refreshing = false
		// A frame for a node that is no longer selected is dropped.
		if msg.frame.Node == m.node {
			m.frame = msg.frame
			m.haveFrame = true
			if m.viewMode == ViewRaw {
				m.updateRawViewportContent()
			}
		}
		if m.refreshPending {
			m.refreshPending = false
			return m, m.startRefresh()
		}

	case outcomeMsg:
		if m.sending > 0 {
			m.sending--
		}
		m.status = statusLine{
			text:    msg.cmd + " → " + msg.node + ": " + msg.outcome.Message,
			success: msg.outcome.Success,
			at:      msg.at,
		}
	}

	if m.viewMode == ViewForm && m.form != nil {
		return m.updateForm(msg)
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// SelectedNode returns the node currently shown.
func (m Model) SelectedNode() string {
	return m.node
}

// Frame returns the last frame received for the selected node.
func (m Model) Frame() (session.Frame, bool) {
	return m.frame, m.haveFrame
}

// AutoRefresh reports whether the refresh timer is running.
func (m Model) AutoRefresh() bool {
	return m.auto
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter returns true if the terminal is tall enough to show the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// tickCmd returns a command that sends a tick after the refresh interval.
func (m Model) tickCmd() tea.Cmd {
	id := m.tickID
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg{id: id, time: t}
	})
}

// startRefresh begins a refresh of the selected node unless one is already in
// flight, in which case a follow-up refresh is queued.
func (m *Model) startRefresh() tea.Cmd {
	if m.refreshing {
		m.refreshPending = true
		return nil
	}
	m.refreshing = true
	return refreshCmd(m.ctx, m.session, m.node)
}

// selectNode switches the dashboard to node and refreshes it.
func (m *Model) selectNode(node string) tea.Cmd {
	if node == "" || node == m.node {
		return nil
	}
	m.node = node
	m.frame = session.Frame{}
	m.haveFrame = false
	return m.startRefresh()
}

// dispatch sends payload to the selected node as its own command.
func (m *Model) dispatch(payload relay.Payload) tea.Cmd {
	m.sending++
	m.status = statusLine{text: "sending " + payload.Name() + " to " + m.node + "…", success: true}
	return dispatchCmd(m.ctx, m.session, m.node, payload)
}

func refreshCmd(ctx context.Context, s *session.Session, node string) tea.Cmd {
	return func() tea.Msg {
		return frameMsg{frame: s.Refresh(ctx, node)}
	}
}

func dispatchCmd(ctx context.Context, s *session.Session, node string, payload relay.Payload) tea.Cmd {
	return func() tea.Msg {
		out := s.Dispatch(ctx, node, payload)
		return outcomeMsg{node: node, cmd: payload.Name(), outcome: out, at: time.Now()}
	}
}
