// Package tui provides the BubbleTea-based terminal toast renderer.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/toast"
)

// styles are cycled with tab. The empty style renders a neutral toast without an icon.
var styles = []string{"", model.ClassSuccess, model.ClassWarning, model.ClassDanger}

// row is a rendered toast.
type row struct {
	toast   *model.Toast
	element *dom.Element
	visible bool
	shownAt time.Time
}

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg     *config.Config
	manager *toast.Manager
	queue   *store.Queue
	doc     *dom.Document
	widgets *WidgetFactory
	logger  *slog.Logger
	ctx     context.Context
	client  *http.Client

	// Components
	input textinput.Model
	help  help.Model
	keys  KeyMap

	// State
	rows       []row
	styleIdx   int
	persistent bool
	lastToast  time.Time
	width      int
	height     int

	// Status message
	statusMsg string
	statusErr bool

	// Queue change subscription
	changes <-chan store.ChangeEvent
}

// RunOptions configures the TUI.
type RunOptions struct {
	Context  context.Context
	Config   *config.Config
	Manager  *toast.Manager
	Document *dom.Document
	Widgets  *WidgetFactory
	Logger   *slog.Logger
}

type (
	// renderMsg requests a render pass without waiting for further changes.
	renderMsg        struct{}
	// queueChangedMsg is a render pass triggered by the queue subscription.
	queueChangedMsg  struct{ event store.ChangeEvent }
	queueClosedMsg   struct{}
	autohideMsg      struct{ elementID string }
	pollMsg          struct{}
	pollResultMsg    struct{ err error }
	submitResultMsg  struct{ err error }
	dismissResultMsg struct{ err error }
)

// New creates a new TUI model.
func New(opts RunOptions) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.Placeholder = "Type a message and press enter..."
	input.CharLimit = 500
	input.Focus()

	h := help.New()

	m := Model{
		cfg:     cfg,
		manager: opts.Manager,
		queue:   opts.Manager.Queue(),
		doc:     opts.Document,
		widgets: opts.Widgets,
		logger:  logger,
		ctx:     ctx,
		client:  &http.Client{Timeout: 10 * time.Second},
		input:   input,
		help:    h,
		keys:    DefaultKeyMap(),
	}
	m.changes = m.queue.Subscribe()

	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		func() tea.Msg { return renderMsg{} },
		m.waitForChange,
	}
	if m.cfg.TUI.PollURL != "" {
		cmds = append(cmds, m.schedulePoll())
	}
	return tea.Batch(cmds...)
}

// waitForChange waits for the next queue change.
func (m Model) waitForChange() tea.Msg {
	event, ok := <-m.changes
	if !ok {
		return queueClosedMsg{}
	}
	return queueChangedMsg{event: event}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-20, 10)
		m.help.Width = msg.Width
		return m, nil

	case renderMsg:
		return m.render(), nil

	case queueChangedMsg:
		return m.render(), m.waitForChange

	case queueClosedMsg:
		return m, nil

	case showMsg:
		return m.show(msg.elementID)

	case hideMsg:
		return m.hide(msg.elementID, msg.reason), nil

	case autohideMsg:
		if i := m.rowIndex(msg.elementID); i >= 0 && m.rows[i].visible {
			return m.hide(msg.elementID, dom.ReasonExpired), nil
		}
		return m, nil

	case pollMsg:
		return m, m.poll()

	case pollResultMsg:
		if msg.err != nil {
			m.logger.Debug("poll failed", "url", m.cfg.TUI.PollURL, "error", msg.err)
			m.statusMsg = fmt.Sprintf("Poll failed: %v", msg.err)
			m.statusErr = true
		}
		return m, m.schedulePoll()

	case submitResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Toast failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil

	case dismissResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Dismiss failed: %v", msg.err)
			m.statusErr = true
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.submit(text, styles[m.styleIdx], m.persistent)

	case key.Matches(msg, m.keys.CycleStyle):
		m.styleIdx = (m.styleIdx + 1) % len(styles)
		return m, nil

	case key.Matches(msg, m.keys.TogglePersistent):
		m.persistent = !m.persistent
		return m, nil

	case key.Matches(msg, m.keys.DismissNewest):
		for i := len(m.rows) - 1; i >= 0; i-- {
			if m.rows[i].visible {
				return m, m.dismiss(m.rows[i].toast)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.DismissAll):
		mgr := m.manager
		return m, func() tea.Msg {
			mgr.DismissAll()
			return dismissResultMsg{}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// render mounts an element for every queued toast, unmounts the rest and acknowledges
// the queue version it rendered.
func (m Model) render() Model {
	items, version := m.queue.Snapshot()

	prev := make(map[*model.Toast]row, len(m.rows))
	for _, r := range m.rows {
		prev[r.toast] = r
	}

	rows := make([]row, 0, len(items))
	live := make(map[string]bool, len(items))
	for _, t := range items {
		id := t.ElementID()
		live[id] = true
		if r, ok := prev[t]; ok {
			rows = append(rows, r)
			continue
		}
		el, err := m.doc.GetElementByID(id)
		if err != nil {
			el = dom.NewElement(id)
			m.doc.Mount(el)
		}
		rows = append(rows, row{toast: t, element: el})
	}

	for _, id := range m.doc.IDs() {
		if !live[id] {
			m.doc.Unmount(id)
			m.widgets.release(id)
		}
	}

	m.rows = rows
	m.queue.MarkRendered(version)
	return m
}

func (m Model) rowIndex(elementID string) int {
	for i, r := range m.rows {
		if r.element.ID() == elementID {
			return i
		}
	}
	return -1
}

// show makes a row visible and arms its autohide timer.
func (m Model) show(elementID string) (tea.Model, tea.Cmd) {
	i := m.rowIndex(elementID)
	if i < 0 {
		return m, nil
	}

	now := time.Now()
	rows := append([]row(nil), m.rows...)
	rows[i].visible = true
	rows[i].shownAt = now
	m.rows = rows
	m.lastToast = now

	el := rows[i].element
	el.Dispatch(dom.EventShown)

	if !el.Autohide() {
		return m, nil
	}
	return m, tea.Tick(m.cfg.Timeouts.Autohide.Duration(), func(time.Time) tea.Msg {
		return autohideMsg{elementID: elementID}
	})
}

// hide hides a row and reports it through the element's hidden event.
func (m Model) hide(elementID, reason string) Model {
	el, err := m.doc.GetElementByID(elementID)
	if err != nil {
		return m
	}

	if i := m.rowIndex(elementID); i >= 0 {
		rows := append([]row(nil), m.rows...)
		rows[i].visible = false
		m.rows = rows
	}

	el.SetAttribute(dom.AttrHideReason, reason)
	el.Dispatch(dom.EventHidden)
	return m
}

func (m Model) submit(text, style string, persistent bool) tea.Cmd {
	mgr, ctx := m.manager, m.ctx
	return func() tea.Msg {
		return submitResultMsg{err: mgr.SubmitMessage(ctx, text, style, persistent, "")}
	}
}

func (m Model) dismiss(t *model.Toast) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return dismissResultMsg{err: mgr.Dismiss(t)}
	}
}

func (m Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.cfg.TUI.PollInterval.Duration(), func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// poll fetches a toast payload from the configured URL and submits it.
func (m Model) poll() tea.Cmd {
	mgr, ctx, client, url := m.manager, m.ctx, m.client, m.cfg.TUI.PollURL
	return func() tea.Msg {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return pollResultMsg{err: err}
		}
		resp, err := client.Do(req)
		if err != nil {
			return pollResultMsg{err: err}
		}
		if resp.StatusCode == http.StatusNoContent {
			_ = resp.Body.Close()
			return pollResultMsg{}
		}
		return pollResultMsg{err: mgr.SubmitFromResponse(ctx, resp)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Toasts"))
	b.WriteString("\n")

	visible := 0
	for _, r := range m.rows {
		if !r.visible {
			continue
		}
		visible++
		b.WriteString(m.renderToast(r))
		b.WriteString("\n")
	}
	if visible == 0 {
		b.WriteString(dimStyle.Render("No toasts"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderComposer())
	b.WriteString("\n")
	b.WriteString(m.renderStatus(visible))

	if m.cfg.TUI.ShowHelp {
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	}

	return b.String()
}

func (m Model) renderToast(r row) string {
	style := toastStyle.BorderForeground(classColor(r.toast.Class))
	if m.width > 0 {
		style = style.Width(min(m.width-2, 60))
	}

	text := r.toast.Message
	if glyph := iconGlyph(r.toast.DisplayIcon()); glyph != "" {
		text = lipgloss.NewStyle().Foreground(classColor(r.toast.Class)).Render(glyph) + " " + text
	}
	if !r.element.Autohide() {
		text += dimStyle.Render("  (pinned)")
	}
	if !r.shownAt.IsZero() {
		text += dimStyle.Render("  " + humanize.Time(r.shownAt))
	}
	return style.Render(text)
}

func (m Model) renderComposer() string {
	style := styles[m.styleIdx]
	label := style
	if label == "" {
		label = "plain"
	}
	badge := lipgloss.NewStyle().Foreground(classColor(style)).Render("[" + strings.TrimSuffix(label, "-subtle") + "]")
	if m.persistent {
		badge += dimStyle.Render("[pinned]")
	}
	return badge + " " + m.input.View()
}

func (m Model) renderStatus(visible int) string {
	if m.statusMsg != "" {
		style := statusStyle
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		return style.Render(m.statusMsg)
	}

	status := fmt.Sprintf("%d active", visible)
	if !m.lastToast.IsZero() {
		status += " · last toast " + humanize.Time(m.lastToast)
	}
	if m.cfg.TUI.PollURL != "" {
		status += " · polling " + m.cfg.TUI.PollURL
	}
	return dimStyle.Render(status)
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts.Context = ctx

	m := New(opts)
	defer m.queue.Unsubscribe(m.changes)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	opts.Widgets.Bind(p)

	_, err := p.Run()
	return err
}
