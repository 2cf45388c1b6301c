// Package app is the bubbletea front end of AI Studio. It renders studio
// snapshots and turns key presses into studio events; every network call
// runs in a tea.Cmd so the UI never blocks.
package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"aistudio/cmd/studio/config"
	"aistudio/cmd/studio/ui"
	"aistudio/internal/backend"
	"aistudio/internal/logging"
	"aistudio/internal/router"
	"aistudio/internal/session"
	"aistudio/internal/studio"
	"aistudio/internal/tools"
	"aistudio/internal/types"
	"aistudio/internal/usage"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Deps wires the model to the studio core.
type Deps struct {
	Studio *studio.Studio
	API    *backend.Client

	BootTimeout  time.Duration
	RobotTimeout time.Duration

	Prefs     config.Prefs
	SavePrefs func(config.Prefs) error

	Styles       ui.Styles
	CompactWidth int

	// Usage counts finished tool runs; nil disables counting.
	Usage *usage.Tracker
}

// =============================================================================
// MESSAGES
// =============================================================================

type bootMsg struct {
	snap studio.Snapshot
	err  error
}

type authMsg struct {
	mode  session.Mode
	creds types.Credentials
	snap  studio.Snapshot
	err   error
}

type logoutMsg struct {
	snap studio.Snapshot
}

type chatMsg struct {
	public  bool
	epoch   int
	reply   string
	errText string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root bubbletea model.
type Model struct {
	deps   Deps
	styles ui.Styles
	layout ui.LayoutConfig

	snap studio.Snapshot
	// epoch changes on every fresh dashboard entry; replies that belong to
	// an earlier session are dropped.
	epoch int

	spinner spinner.Model
	ticking bool
	busy    bool // auth or logout in flight
	status  string

	loginForm  form
	signupForm form

	publicChat *chatPanel
	chat       *chatPanel
	panels     map[tools.ToolID]*toolPanel
	retail     *retailState
	robot      *robotState
	cursor     int

	renderer *glamour.TermRenderer
}

// New builds the model. Call Init (or run it under tea.NewProgram) to boot.
func New(deps Deps) Model {
	if deps.BootTimeout <= 0 {
		deps.BootTimeout = 10 * time.Second
	}
	if deps.Styles.Theme.Primary == "" {
		deps.Styles = ui.NewStyles(ui.ThemeByName(deps.Prefs.Theme))
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner

	m := Model{
		deps:       deps,
		styles:     deps.Styles,
		spinner:    sp,
		ticking:    true,
		loginForm:  newLoginForm(),
		signupForm: newSignupForm(),
		publicChat: newChatPanel(types.Guest.DisplayName()),
		snap:       deps.Studio.Snapshot(),
	}
	m.resetDashboard(types.Guest)
	m.resize(ui.CompactModeWidth, ui.MinimumTerminalHeight*2)
	return m
}

// Init starts the spinner and restores the session.
func (m Model) Init() tea.Cmd {
	st, timeout := m.deps.Studio, m.deps.BootTimeout
	boot := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := st.Boot(ctx)
		return bootMsg{snap: snap, err: err}
	}
	return tea.Batch(m.spinner.Tick, boot)
}

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.spinning() {
			m.ticking = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootMsg:
		m.apply(msg.snap)
		if msg.err != nil {
			logging.UI("boot: %v", msg.err)
		}
		return m, nil

	case authMsg:
		m.busy = false
		m.apply(msg.snap)
		if msg.err != nil {
			m.loginForm.clear(loginPassword)
			m.signupForm.clear(signupPassword)
			if msg.mode == session.ModeSignup && m.snap.View == router.Login {
				m.loginForm.set(loginUsername, msg.creds.Username)
				m.loginForm.setFocus(loginPassword)
			}
		}
		return m, nil

	case logoutMsg:
		m.busy = false
		m.apply(msg.snap)
		return m, nil

	case chatMsg:
		p := m.publicChat
		if !msg.public {
			if msg.epoch != m.epoch {
				return m, nil
			}
			p = m.chat
		}
		if msg.errText != "" {
			p.receive(msg.errText)
		} else {
			p.receive(msg.reply)
		}
		m.refreshChat(p)
		return m, nil

	case toolMsg:
		p := m.panels[msg.id]
		if msg.epoch != m.epoch || p == nil {
			return m, nil
		}
		p.running = false
		p.err, p.result = msg.errText, msg.text
		m.trackRun(msg.id, msg.errText == "")
		return m, nil

	case uploadMsg:
		p := m.panels[tools.Retail]
		if msg.epoch != m.epoch {
			return m, nil
		}
		p.running = false
		m.trackRun(tools.Retail, msg.errText == "")
		if msg.errText != "" {
			p.err = msg.errText
			return m, nil
		}
		m.retail.files = append(m.retail.files, msg.files...)
		p.form.reset()
		p.err, p.result = "", "Uploaded "+strconv.Itoa(len(msg.files))+" file(s). Press ctrl+a to analyze or ctrl+t to train."
		return m, nil

	case robotMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		if msg.err != nil {
			m.robot.status = "Connection Error"
		} else {
			m.robot.status = "Sent " + string(msg.cmd)
		}
		m.trackRun(tools.Robot, msg.err == nil)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) trackRun(id tools.ToolID, ok bool) {
	if m.deps.Usage == nil {
		return
	}
	m.deps.Usage.Track(m.snap.Session.Profile.Username, id.String(), ok)
}

// apply installs a studio snapshot and mirrors the dispatcher reset on a
// fresh dashboard entry.
func (m *Model) apply(snap studio.Snapshot) {
	prev := m.snap.View
	m.snap = snap
	if snap.View == prev {
		return
	}
	m.status = ""
	switch snap.View {
	case router.Dashboard:
		m.resetDashboard(snap.Session.Profile)
	case router.Login:
		m.loginForm.setFocus(loginUsername)
	case router.Signup:
		m.signupForm.setFocus(signupUsername)
	}
}

func (m *Model) resetDashboard(profile types.UserProfile) {
	m.epoch++
	m.chat = newChatPanel(profile.DisplayName())
	m.panels = newToolPanels(m.deps.Prefs.RobotAddress)
	m.retail = &retailState{}
	m.robot = &robotState{}
	m.cursor = 0
	m.sizePanels()
}

func (m *Model) resize(width, height int) {
	m.layout = ui.NewLayoutConfig(width, height, m.deps.CompactWidth)

	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.layout.PanelWidth()-4),
	)
	if err != nil {
		logging.UIDebug("glamour renderer: %v", err)
		r = nil
	}
	m.renderer = r

	for _, p := range []*chatPanel{m.publicChat, m.chat} {
		for i := range p.lines {
			p.lines[i].rendered = ""
		}
	}
	m.sizePanels()
}

func (m *Model) sizePanels() {
	width := m.layout.PanelWidth()
	for _, p := range []*chatPanel{m.publicChat, m.chat} {
		p.viewport.Width = width
		p.viewport.Height = m.layout.ChatViewportHeight()
		p.input.Width = width - 4
		m.refreshChat(p)
	}
	for _, p := range m.panels {
		p.form.setWidth(width - ui.SidebarWidth/2)
	}
	m.loginForm.setWidth(40)
	m.signupForm.setWidth(40)
}

func (m *Model) refreshChat(p *chatPanel) {
	var b strings.Builder
	for i := range p.lines {
		l := &p.lines[i]
		if l.rendered == "" {
			if l.fromUser {
				l.rendered = m.styles.UserMessage.Render("You: " + l.text)
			} else {
				l.rendered = m.renderMarkdown(l.text)
			}
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(l.rendered)
	}
	if p.waiting {
		b.WriteString("\n" + m.styles.Muted.Render("AI is typing..."))
	}
	p.viewport.SetContent(b.String())
	p.viewport.GotoBottom()
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return m.styles.BotMessage.Render(text)
}

func (m Model) spinning() bool {
	if m.snap.View == router.Loading || m.busy || m.publicChat.waiting || m.chat.waiting {
		return true
	}
	for _, p := range m.panels {
		if p.running {
			return true
		}
	}
	return false
}

func (m *Model) startSpinner() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.spinner.Tick
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch m.snap.View {
	case router.PublicChat:
		return m.publicKeys(msg)
	case router.Login:
		return m.authKeys(msg, session.ModeLogin)
	case router.Signup:
		return m.authKeys(msg, session.ModeSignup)
	case router.Dashboard:
		return m.dashboardKeys(msg)
	}
	// Loading accepts nothing.
	return m, nil
}

func (m *Model) navigate(intent router.Intent) {
	snap, err := m.deps.Studio.Navigate(intent)
	m.apply(snap)
	if err != nil {
		m.status = err.Error()
	}
}

func (m *Model) toolEvent(fn func() (studio.Snapshot, error)) {
	snap, err := fn()
	m.apply(snap)
	if err != nil {
		m.status = err.Error()
	}
}

func (m Model) publicKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+g":
		m.navigate(router.GoLogin)
		return m, nil
	case "ctrl+n":
		m.navigate(router.GoSignup)
		return m, nil
	case "ctrl+d":
		m.navigate(router.GoDashboard)
		return m, nil
	case "ctrl+x":
		m.publicChat.clear()
		m.refreshChat(m.publicChat)
		return m, nil
	case "enter":
		cmd := m.sendChat(m.publicChat, true)
		return m, cmd
	}
	var cmd tea.Cmd
	m.publicChat.input, cmd = m.publicChat.input.Update(msg)
	return m, cmd
}

func (m *Model) sendChat(p *chatPanel, public bool) tea.Cmd {
	text, ok := p.take()
	if !ok {
		return nil
	}
	m.refreshChat(p)

	// Signed-in users chat with their token on either screen.
	token := m.deps.Studio.Sessions().Token()
	api, epoch := m.deps.API, m.epoch
	call := func() tea.Msg {
		reply, err := api.SendChat(context.Background(), token, text)
		if err != nil {
			return chatMsg{public: public, epoch: epoch, errText: backend.UserMessage(err, backend.MsgChatNetwork)}
		}
		return chatMsg{public: public, epoch: epoch, reply: reply.Response}
	}
	return tea.Batch(call, m.startSpinner())
}

func (m Model) authKeys(msg tea.KeyMsg, mode session.Mode) (tea.Model, tea.Cmd) {
	f := &m.loginForm
	if mode == session.ModeSignup {
		f = &m.signupForm
	}

	switch msg.String() {
	case "esc":
		m.navigate(router.GoPublicChat)
		return m, nil
	case "ctrl+n":
		m.navigate(router.GoSignup)
		return m, nil
	case "ctrl+g":
		m.navigate(router.GoLogin)
		return m, nil
	case "tab", "down":
		f.next(1)
		return m, nil
	case "shift+tab", "up":
		f.next(-1)
		return m, nil
	case "enter":
		if !f.onLast() {
			f.next(1)
			return m, nil
		}
		cmd := m.submitAuth(mode)
		return m, cmd
	}
	return m, f.update(msg)
}

func (m *Model) submitAuth(mode session.Mode) tea.Cmd {
	var creds types.Credentials
	if mode == session.ModeLogin {
		creds = types.Credentials{
			Username: m.loginForm.value(loginUsername),
			Password: m.loginForm.raw(loginPassword),
		}
	} else {
		creds = types.Credentials{
			Username: m.signupForm.value(signupUsername),
			Email:    m.signupForm.value(signupEmail),
			Password: m.signupForm.raw(signupPassword),
		}
	}
	if creds.Username == "" || creds.Password == "" || (mode == session.ModeSignup && creds.Email == "") {
		m.status = "Please fill in all fields"
		return nil
	}

	m.busy = true
	m.status = ""
	st := m.deps.Studio
	call := func() tea.Msg {
		var snap studio.Snapshot
		var err error
		if mode == session.ModeLogin {
			snap, err = st.SubmitLogin(context.Background(), creds)
		} else {
			snap, err = st.SubmitSignup(context.Background(), creds)
		}
		return authMsg{mode: mode, creds: creds, snap: snap, err: err}
	}
	return tea.Batch(call, m.startSpinner())
}

func (m *Model) logout() tea.Cmd {
	m.busy = true
	st := m.deps.Studio
	call := func() tea.Msg {
		return logoutMsg{snap: st.Logout(context.Background())}
	}
	return tea.Batch(call, m.startSpinner())
}

func (m Model) dashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+o":
		m.toolEvent(m.deps.Studio.ToggleMobileOverlay)
		m.syncCursor()
		return m, nil
	case "ctrl+p":
		m.toolEvent(m.deps.Studio.OpenProfile)
		return m, nil
	case "ctrl+l":
		cmd := m.logout()
		return m, cmd
	case "ctrl+b":
		m.navigate(router.GoPublicChat)
		return m, nil
	}

	if n, ok := strings.CutPrefix(key, "alt+"); ok {
		if i, err := strconv.Atoi(n); err == nil {
			m.selectListed(i - 1)
			return m, nil
		}
	}

	sel := m.snap.Selection
	if sel.MobileOverlayOpen {
		return m.drawerKeys(key)
	}
	if sel.ProfileOpen {
		if key == "esc" || key == "enter" {
			m.toolEvent(m.deps.Studio.CloseProfile)
		}
		return m, nil
	}
	return m.panelKeys(msg)
}

func (m *Model) selectListed(i int) {
	listed := m.deps.Studio.Registry().Listed()
	if i < 0 || i >= len(listed) {
		return
	}
	id := listed[i].ID
	m.toolEvent(func() (studio.Snapshot, error) { return m.deps.Studio.SelectTool(id) })
}

// syncCursor puts the drawer cursor on the active tool.
func (m *Model) syncCursor() {
	for i, t := range m.deps.Studio.Registry().Listed() {
		if t.ID == m.snap.Selection.Active {
			m.cursor = i
			return
		}
	}
	m.cursor = 0
}

func (m Model) drawerKeys(key string) (tea.Model, tea.Cmd) {
	n := len(m.deps.Studio.Registry().Listed())
	switch key {
	case "up", "k":
		m.cursor = (m.cursor - 1 + n) % n
	case "down", "j":
		m.cursor = (m.cursor + 1) % n
	case "enter":
		m.selectListed(m.cursor)
	case "esc":
		m.toolEvent(m.deps.Studio.ToggleMobileOverlay)
	}
	return m, nil
}

func (m Model) panelKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	id := m.snap.Selection.Active

	switch id {
	case tools.Chat:
		switch key {
		case "enter":
			cmd := m.sendChat(m.chat, false)
			return m, cmd
		case "ctrl+x":
			m.chat.clear()
			m.refreshChat(m.chat)
			return m, nil
		}
		var cmd tea.Cmd
		m.chat.input, cmd = m.chat.input.Update(msg)
		return m, cmd

	case tools.Retail:
		return m.retailKeys(msg)

	case tools.Robot:
		return m.robotKeys(msg)
	}

	p := m.panels[id]
	if p == nil {
		return m, nil
	}
	switch key {
	case "tab", "down":
		p.form.next(1)
		return m, nil
	case "shift+tab", "up":
		p.form.next(-1)
		return m, nil
	case "ctrl+e":
		if id == tools.Weather {
			loadWeatherSample(p)
		}
		return m, nil
	case "enter":
		if !p.form.onLast() {
			p.form.next(1)
			return m, nil
		}
		cmd := m.submitTool(id)
		return m, cmd
	}
	return m, p.form.update(msg)
}

func (m *Model) submitTool(id tools.ToolID) tea.Cmd {
	p := m.panels[id]
	if p == nil || p.running {
		return nil
	}
	run, fallback, errText := prepareTool(id, p, m.deps.API)
	if errText != "" {
		p.err, p.result = errText, ""
		return nil
	}
	return m.startTool(id, run, fallback)
}

func (m *Model) startTool(id tools.ToolID, run toolRun, fallback string) tea.Cmd {
	p := m.panels[id]
	p.err, p.result, p.running = "", "", true
	token, epoch := m.deps.Studio.Sessions().Token(), m.epoch
	call := func() tea.Msg {
		text, err := run(context.Background(), token)
		if err != nil {
			return toolMsg{id: id, epoch: epoch, errText: backend.UserMessage(err, fallback)}
		}
		return toolMsg{id: id, epoch: epoch, text: text}
	}
	return tea.Batch(call, m.startSpinner())
}

func (m Model) retailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.panels[tools.Retail]
	if p.running {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		paths := splitPaths(p.form.value(0))
		if len(paths) == 0 {
			p.err = "Please choose one or more CSV files"
			return m, nil
		}
		p.err, p.running = "", true
		upload := uploadCmd(m.deps.API, m.deps.Studio.Sessions().Token(), m.epoch, paths)
		cmd := tea.Batch(upload, m.startSpinner())
		return m, cmd
	case "ctrl+a", "ctrl+t":
		if len(m.retail.files) == 0 {
			p.err, p.result = "Please upload sales data first", ""
			return m, nil
		}
		var cmd tea.Cmd
		if msg.String() == "ctrl+a" {
			cmd = m.startTool(tools.Retail, analyzeRun(m.deps.API, m.retail.ids()), backend.MsgAnalyzeNetwork)
		} else {
			cmd = m.startTool(tools.Retail, trainRun(m.deps.API, m.retail.ids()), backend.MsgTrainNetwork)
		}
		return m, cmd
	}
	return m, p.form.update(msg)
}

func (m Model) robotKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.panels[tools.Robot]
	key := msg.String()

	if m.robot.connected() {
		if key == "x" {
			m.robot.client = nil
			m.robot.status = "Disconnected"
			return m, nil
		}
		if cmd, ok := robotKeys[key]; ok {
			return m, robotCmd(m.robot.client, m.epoch, cmd)
		}
		return m, nil
	}

	if key != "enter" {
		return m, p.form.update(msg)
	}
	addr := p.form.value(0)
	if addr == "" {
		p.err = "Please enter robot IP address"
		return m, nil
	}
	p.err = ""
	m.robot.client = backend.NewRobotClient(addr, m.deps.RobotTimeout)
	m.robot.status = "Connected"

	m.deps.Prefs.RobotAddress = addr
	if m.deps.SavePrefs != nil {
		if err := m.deps.SavePrefs(m.deps.Prefs); err != nil {
			logging.UI("saving robot address: %v", err)
		}
	}
	return m, nil
}
