package app

import (
	"fmt"
	"strconv"
	"strings"

	"aistudio/cmd/studio/ui"
	"aistudio/internal/backend"
	"aistudio/internal/router"
	"aistudio/internal/tools"

	"github.com/charmbracelet/lipgloss"
)

// View renders the whole screen.
func (m Model) View() string {
	var body string
	switch m.snap.View {
	case router.Loading:
		body = m.styles.Content.Render(m.spinner.View() + " Restoring your session...")
	case router.PublicChat:
		body = m.chatView(m.publicChat, "Chat with AI Studio. Sign in to unlock the tools.")
	case router.Login:
		body = m.authView("Welcome back", m.loginForm, "enter next/submit • ctrl+n create account • esc back to chat")
	case router.Signup:
		body = m.authView("Create your account", m.signupForm, "enter next/submit • ctrl+g sign in instead • esc back to chat")
	case router.Dashboard:
		body = m.dashboardView()
	}

	parts := []string{m.headerView()}
	if line := m.flashView(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, body, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) headerView() string {
	title := ui.Logo(m.styles) + " · " + m.snap.View.String()
	user := "👤 " + m.snap.Session.Profile.DisplayName()
	if !m.snap.Session.Authenticated() {
		user = "👤 Guest"
	}
	gap := m.layout.TerminalWidth - lipgloss.Width(title) - lipgloss.Width(user) - 4
	if gap < 1 {
		gap = 1
	}
	return m.styles.Header.Width(m.layout.TerminalWidth).Render(title + strings.Repeat(" ", gap) + user)
}

func (m Model) flashView() string {
	switch m.snap.Flash.Kind {
	case router.FlashError:
		return m.styles.Error.Render("✗ " + m.snap.Flash.Text)
	case router.FlashNotice:
		return m.styles.Info.Render("ℹ " + m.snap.Flash.Text)
	}
	if m.status != "" {
		return m.styles.Warning.Render("⚠ " + m.status)
	}
	return ""
}

func (m Model) footerView() string {
	var hints string
	switch m.snap.View {
	case router.Loading:
		hints = "ctrl+c quit"
	case router.PublicChat:
		hints = "enter send • ctrl+g sign in • ctrl+n sign up • ctrl+d dashboard • ctrl+x clear • ctrl+c quit"
	case router.Login, router.Signup:
		hints = "tab/↑/↓ move • ctrl+c quit"
	case router.Dashboard:
		hints = "alt+1-9 tools • ctrl+o menu • ctrl+p profile • ctrl+b public chat • ctrl+l logout • ctrl+c quit"
	}
	return m.styles.RenderDivider(m.layout.TerminalWidth) + "\n" +
		m.styles.Footer.Width(m.layout.TerminalWidth).Render(hints)
}

// =============================================================================
// CHAT AND AUTH
// =============================================================================

func (m Model) chatView(p *chatPanel, subtitle string) string {
	var quick strings.Builder
	for i, q := range quickQuestions {
		fmt.Fprintf(&quick, "%d %s   ", i+1, q)
	}
	status := ""
	if p.waiting {
		status = m.spinner.View() + " "
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Subtitle.Render(subtitle),
		p.viewport.View(),
		m.styles.Muted.Render(strings.TrimSpace(quick.String())),
		status+p.input.View(),
	)
}

func (m Model) authView(title string, f form, hints string) string {
	content := []string{
		m.styles.Title.Render(title),
		f.view(m.styles),
	}
	if m.busy {
		content = append(content, m.spinner.View()+" Signing in...")
	}
	content = append(content, m.styles.Muted.Render(hints))
	card := m.styles.Card.Render(strings.Join(content, "\n\n"))
	return lipgloss.Place(m.layout.TerminalWidth, m.layout.BodyHeight(), lipgloss.Center, lipgloss.Center, card)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (m Model) dashboardView() string {
	sel := m.snap.Selection
	if m.layout.IsCompact {
		if sel.MobileOverlayOpen {
			return m.styles.Drawer.Render(m.toolList(true))
		}
		return m.panelView()
	}
	sidebar := m.styles.Sidebar.Width(ui.SidebarWidth).Render(m.toolList(sel.MobileOverlayOpen))
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.panelView())
}

func (m Model) toolList(showCursor bool) string {
	sel := m.snap.Selection
	var rows []string
	for i, t := range m.deps.Studio.Registry().Listed() {
		label := fmt.Sprintf("%d %s %s", i+1, t.Icon, t.Name)
		if !t.Available {
			label += " (soon)"
		}
		switch {
		case showCursor && i == m.cursor:
			rows = append(rows, m.styles.ToolCursor.Render("› "+label))
		case t.ID == sel.Active && !sel.ProfileOpen:
			rows = append(rows, m.styles.ToolActive.Render("  "+label))
		case !t.Available:
			rows = append(rows, m.styles.ToolDisabled.Render("  "+label))
		default:
			rows = append(rows, m.styles.ToolItem.Render("  "+label))
		}
	}
	profile := m.styles.Avatar.Render(m.snap.Session.Profile.Initial()) + " " + m.snap.Session.Profile.DisplayName()
	rows = append(rows, "", m.styles.Muted.Render(profile))
	return strings.Join(rows, "\n")
}

func (m Model) panelView() string {
	width := m.layout.PanelWidth()
	if m.snap.Selection.ProfileOpen {
		return m.styles.Content.Width(width).Render(m.profileView())
	}

	var body string
	panel := m.snap.Panel
	switch {
	case !panel.Available:
		body = m.comingSoonView()
	case panel.ID == tools.Chat:
		body = m.chatView(m.chat, panel.Description)
	case panel.ID == tools.Retail:
		body = m.retailView()
	case panel.ID == tools.Robot:
		body = m.robotView()
	case panel.ID == tools.Weather:
		body = m.formPanelView(panel.ID, "ctrl+e load sample • tab move • enter predict")
	case panel.ID == tools.Salary:
		body = m.formPanelView(panel.ID, "Roles: "+strings.Join(backend.SalaryRoles, ", ")+
			"\nLocations: "+strings.Join(backend.SalaryLocations, ", ")+"\ntab move • enter predict")
	case panel.ID == tools.Car:
		body = m.formPanelView(panel.ID, "enter recognize")
	default:
		body = m.formPanelView(panel.ID, "enter analyze")
	}
	if panel.ID != tools.Chat {
		body = m.panelTitle() + "\n\n" + body
	}
	return m.styles.Content.Width(width).Render(body)
}

func (m Model) panelTitle() string {
	p := m.snap.Panel
	return m.styles.Title.Render(p.Icon+" "+p.Name) + "\n" + m.styles.Subtitle.Render(p.Description)
}

func (m Model) formPanelView(id tools.ToolID, hints string) string {
	p := m.panels[id]
	if p == nil {
		return ""
	}
	parts := []string{p.form.view(m.styles)}
	parts = append(parts, m.outcomeView(p)...)
	parts = append(parts, m.styles.Muted.Render(hints))
	return strings.Join(parts, "\n\n")
}

func (m Model) outcomeView(p *toolPanel) []string {
	var parts []string
	if p.running {
		parts = append(parts, m.spinner.View()+" Working...")
	}
	if p.err != "" {
		parts = append(parts, m.styles.Error.Render("✗ "+p.err))
	}
	if p.result != "" {
		parts = append(parts, m.styles.Card.Render(p.result))
	}
	return parts
}

func (m Model) retailView() string {
	p := m.panels[tools.Retail]
	parts := []string{p.form.view(m.styles)}
	if len(m.retail.files) > 0 {
		var b strings.Builder
		b.WriteString(m.styles.Bold.Render("Uploaded files"))
		for _, f := range m.retail.files {
			fmt.Fprintf(&b, "\n📄 %s (%s)", f.Name, f.Size.Or("?"))
		}
		parts = append(parts, b.String())
	}
	parts = append(parts, m.outcomeView(p)...)
	parts = append(parts, m.styles.Muted.Render("enter upload • ctrl+a analyze • ctrl+t train model"))
	return strings.Join(parts, "\n\n")
}

func (m Model) robotView() string {
	p := m.panels[tools.Robot]
	if !m.robot.connected() {
		parts := []string{p.form.view(m.styles)}
		parts = append(parts, m.outcomeView(p)...)
		parts = append(parts, m.styles.Muted.Render("enter connect"))
		return strings.Join(parts, "\n\n")
	}

	c := m.robot.client
	lines := []string{
		m.styles.Success.Render("● Connected to " + c.Address()),
		"Camera stream: " + c.StreamURL(),
		"Status: " + m.robot.status,
		"",
		"        ↑ forward",
		"  ← left   ␣ stop   right →",
		"        ↓ back",
		"",
		m.styles.Muted.Render("l LED on • o LED off • x disconnect"),
	}
	return strings.Join(lines, "\n")
}

func (m Model) profileView() string {
	profile := m.snap.Session.Profile
	email := profile.Email
	if email == "" {
		email = "Not provided"
	}
	rows := []string{
		m.styles.Avatar.Render(" " + profile.Initial() + " "),
		m.styles.Title.Render(profile.DisplayName()),
		m.styles.Label.Render("Username") + profile.Username,
		m.styles.Label.Render("Email") + email,
		m.styles.Label.Render("Session") + m.snap.Session.Status.String(),
	}
	if m.deps.Usage != nil {
		runs := m.deps.Usage.User(profile.Username)
		line := strconv.FormatInt(runs.Runs, 10)
		if runs.Failures > 0 {
			line += " (" + strconv.FormatInt(runs.Failures, 10) + " failed)"
		}
		rows = append(rows, m.styles.Label.Render("Tool runs")+line)
	}
	rows = append(rows, "", m.styles.Muted.Render("esc back to dashboard • ctrl+l logout"))
	return m.styles.Card.Render(strings.Join(rows, "\n"))
}

func (m Model) comingSoonView() string {
	return m.styles.Card.Render("🚧 Coming soon!\n\n" + m.snap.Panel.Name + " is under construction.")
}
