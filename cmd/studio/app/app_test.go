package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"aistudio/internal/backend"
	"aistudio/internal/devserver"
	"aistudio/internal/router"
	"aistudio/internal/tools"
	"aistudio/internal/usage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BOOT AND NAVIGATION
// =============================================================================

func TestBootWithoutCredentialOpensPublicChat(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()

	assert.Equal(t, router.PublicChat, m.snap.View)
	assert.Contains(t, m.publicChat.lines[0].text, "Hello Guest!")
	assert.Contains(t, m.View(), "Guest")
}

func TestLoadingIgnoresKeys(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.unbooted(140)

	m = press(t, m, key(tea.KeyCtrlG))
	assert.Equal(t, router.Loading, m.snap.View)
	assert.Contains(t, m.View(), "Restoring your session")
}

func TestCtrlCQuits(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.unbooted(140)

	_, cmd := m.Update(key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestDashboardRequiresLogin(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()

	m = press(t, m, key(tea.KeyCtrlD))
	assert.Equal(t, router.Login, m.snap.View)
	assert.Equal(t, router.FlashNotice, m.snap.Flash.Kind)
	assert.Contains(t, m.View(), "Please sign in to open the dashboard.")
}

func TestAuthFormsNavigate(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()

	m = press(t, m, key(tea.KeyCtrlN))
	assert.Equal(t, router.Signup, m.snap.View)
	m = press(t, m, key(tea.KeyCtrlG))
	assert.Equal(t, router.Login, m.snap.View)
	m = press(t, m, key(tea.KeyEsc))
	assert.Equal(t, router.PublicChat, m.snap.View)
}

// =============================================================================
// AUTH
// =============================================================================

func TestLoginReachesDashboard(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()

	require.Equal(t, router.Dashboard, m.snap.View)
	assert.Equal(t, tools.Chat, m.snap.Selection.Active)
	assert.Contains(t, m.chat.lines[0].text, "Hello ann!")
	assert.False(t, m.busy)

	// A fresh model over the same store resumes the session.
	again := h.model()
	assert.Equal(t, router.Dashboard, again.snap.View)
	assert.Equal(t, "ann", again.snap.Session.Profile.Username)
}

func TestLoginRequiresAllFields(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()
	m = press(t, m, key(tea.KeyCtrlG))
	m.loginForm.set(loginUsername, "ann")
	m.loginForm.setFocus(loginPassword)

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, router.Login, m.snap.View)
	assert.Equal(t, "Please fill in all fields", m.status)
}

func TestEnterAdvancesBeforeSubmitting(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()
	m = press(t, m, key(tea.KeyCtrlN))

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, signupEmail, m.signupForm.focus)
	m = press(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, signupUsername, m.signupForm.focus)
}

func TestWrongPasswordShowsErrorAndClearsPassword(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	h.register(annCreds)
	m := h.model()
	m = press(t, m, key(tea.KeyCtrlG))
	m.loginForm.set(loginUsername, "ann")
	m.loginForm.set(loginPassword, "wrong-password")
	m.loginForm.setFocus(loginPassword)

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, router.Login, m.snap.View)
	assert.Equal(t, router.FlashError, m.snap.Flash.Kind)
	assert.Equal(t, "Invalid username or password", m.snap.Flash.Text)
	assert.Empty(t, m.loginForm.raw(loginPassword))
	assert.Equal(t, "ann", m.loginForm.value(loginUsername))
}

func TestSignupWithoutSessionRedirectsToLogin(t *testing.T) {
	h := newHarness(t, devserver.Options{DegradedAuth: true})
	m := h.model()
	m = press(t, m, key(tea.KeyCtrlN))
	m.signupForm.set(signupUsername, annCreds.Username)
	m.signupForm.set(signupEmail, annCreds.Email)
	m.signupForm.set(signupPassword, annCreds.Password)
	m.signupForm.setFocus(signupPassword)

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, router.Login, m.snap.View)
	assert.Equal(t, router.FlashNotice, m.snap.Flash.Kind)
	assert.Equal(t, "Account created! Please login with your credentials.", m.snap.Flash.Text)
	assert.Equal(t, "ann", m.loginForm.value(loginUsername))
	assert.Equal(t, loginPassword, m.loginForm.focus)
	assert.Equal(t, 0, h.kv.Len())
}

func TestLogoutReturnsToPublicChat(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	require.Equal(t, router.Dashboard, m.snap.View)

	m = press(t, m, key(tea.KeyCtrlL))
	assert.Equal(t, router.PublicChat, m.snap.View)
	assert.False(t, m.snap.Session.Authenticated())
	assert.Equal(t, 0, h.kv.Len())
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestAltNumberSelectsListedTool(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()

	listed := m.deps.Studio.Registry().Listed()
	m = press(t, m, alt("3"))
	assert.Equal(t, listed[2].ID, m.snap.Selection.Active)

	m = press(t, m, alt("0"))
	assert.Equal(t, listed[2].ID, m.snap.Selection.Active, "out of range is ignored")

	m = press(t, m, alt("9"))
	assert.Equal(t, tools.CodeHelper, m.snap.Selection.Active)
	assert.Contains(t, m.View(), "Coming soon!")
}

func TestDrawerSelectsAndCloses(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	listed := m.deps.Studio.Registry().Listed()

	m = press(t, m, key(tea.KeyCtrlO))
	require.True(t, m.snap.Selection.MobileOverlayOpen)
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, key(tea.KeyDown))
	m = press(t, m, key(tea.KeyEnter))
	assert.False(t, m.snap.Selection.MobileOverlayOpen)
	assert.Equal(t, listed[1].ID, m.snap.Selection.Active)

	m = press(t, m, key(tea.KeyCtrlO))
	assert.Equal(t, 1, m.cursor, "cursor starts on the active tool")
	m = press(t, m, key(tea.KeyUp))
	m = press(t, m, key(tea.KeyUp))
	assert.Equal(t, len(listed)-1, m.cursor, "cursor wraps")
	m = press(t, m, key(tea.KeyEsc))
	assert.False(t, m.snap.Selection.MobileOverlayOpen)
	assert.Equal(t, listed[1].ID, m.snap.Selection.Active)
}

func TestCompactDrawerReplacesPanel(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)
	require.True(t, m.layout.IsCompact)

	assert.NotContains(t, m.View(), "Sentiment Analyzer")
	m = press(t, m, key(tea.KeyCtrlO))
	assert.Contains(t, m.View(), "Sentiment Analyzer")
}

func TestProfilePanel(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	m = press(t, m, alt("2"))
	before := m.snap.Selection.Active

	m = press(t, m, key(tea.KeyCtrlP))
	require.True(t, m.snap.Selection.ProfileOpen)
	assert.Equal(t, tools.Profile, m.snap.Panel.ID)
	view := m.View()
	assert.Contains(t, view, "ann@example.com")
	assert.Contains(t, view, "Username")

	m = press(t, m, key(tea.KeyEsc))
	assert.False(t, m.snap.Selection.ProfileOpen)
	assert.Equal(t, before, m.snap.Selection.Active)
}

func TestDashboardReentryResetsPanels(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	epoch := m.epoch
	m.panels[tools.Sentiment].result = "stale"

	m = press(t, m, key(tea.KeyCtrlB))
	require.Equal(t, router.PublicChat, m.snap.View)
	m = press(t, m, key(tea.KeyCtrlD))
	require.Equal(t, router.Dashboard, m.snap.View)

	assert.Equal(t, epoch+1, m.epoch)
	assert.Empty(t, m.panels[tools.Sentiment].result)
	assert.Equal(t, tools.Chat, m.snap.Selection.Active)
}

func TestStaleRepliesAreDropped(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()

	next, _ := m.Update(toolMsg{id: tools.Sentiment, epoch: m.epoch - 1, text: "old"})
	m = next.(Model)
	assert.Empty(t, m.panels[tools.Sentiment].result)

	lines := len(m.chat.lines)
	next, _ = m.Update(chatMsg{epoch: m.epoch - 1, reply: "old"})
	m = next.(Model)
	assert.Len(t, m.chat.lines, lines)
}

// =============================================================================
// CHAT
// =============================================================================

func TestPublicChatQuickQuestion(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()
	m.publicChat.input.SetValue("1")

	m = press(t, m, key(tea.KeyEnter))
	require.Len(t, m.publicChat.lines, 3)
	asked := m.publicChat.lines[1]
	assert.True(t, asked.fromUser)
	assert.Equal(t, "What is your name?", asked.text)
	assert.Equal(t, "I'm the **AI Studio** assistant.", lastLine(m.publicChat).text)
	assert.False(t, m.publicChat.waiting)
	assert.Empty(t, m.publicChat.input.Value())
}

func TestPublicChatSendsTokenOnlyWhenSignedIn(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	guest := h.model()
	guest.publicChat.input.SetValue("hello")
	press(t, guest, key(tea.KeyEnter))

	m := h.signedIn()
	token := m.deps.Studio.Sessions().Token()
	require.NotEmpty(t, token)
	m = press(t, m, key(tea.KeyCtrlB))
	require.Equal(t, router.PublicChat, m.snap.View)
	m.publicChat.input.SetValue("hello again")
	m = press(t, m, key(tea.KeyEnter))

	assert.Equal(t, []string{"", token}, h.sentChatTokens())
	assert.Contains(t, lastLine(m.publicChat).text, `You said: "hello again"`)
}

func TestDashboardChatAndClear(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.signedIn()
	m.chat.input.SetValue("can you help?")

	m = press(t, m, key(tea.KeyEnter))
	assert.Contains(t, lastLine(m.chat).text, "I can chat")

	m = press(t, m, key(tea.KeyCtrlX))
	require.Len(t, m.chat.lines, 1)
	assert.Equal(t, "Chat cleared! Hello ann, how can I help you?", m.chat.lines[0].text)
}

func TestBlankChatSendsNothing(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := h.model()
	m.publicChat.input.SetValue("   ")

	next, cmd := m.Update(key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Len(t, next.(Model).publicChat.lines, 1)
}

// =============================================================================
// TOOLS
// =============================================================================

func selectTool(t *testing.T, m Model, id tools.ToolID) Model {
	t.Helper()
	for i, tool := range m.deps.Studio.Registry().Listed() {
		if tool.ID == id {
			return press(t, m, alt(string(rune('1'+i))))
		}
	}
	t.Fatalf("%s is not listed", id)
	return m
}

func TestSentimentPanel(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Sentiment)

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Please enter some text to analyze", m.panels[tools.Sentiment].err)

	m.panels[tools.Sentiment].form.set(0, "I love this, it is great")
	m = press(t, m, key(tea.KeyEnter))
	p := m.panels[tools.Sentiment]
	assert.Empty(t, p.err)
	assert.False(t, p.running)
	assert.Contains(t, p.result, "Sentiment: POSITIVE")
}

func TestToolRunsAreCounted(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	tracker, err := usage.NewTracker(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })
	h.usage = tracker

	m := selectTool(t, h.signedIn(), tools.Sentiment)
	m.panels[tools.Sentiment].form.set(0, "I love this, it is great")
	m = press(t, m, key(tea.KeyEnter))

	runs := tracker.User("ann")
	assert.Equal(t, int64(1), runs.Runs)
	assert.Equal(t, int64(0), runs.Failures)
	assert.Equal(t, int64(1), tracker.Stats().ByTool[tools.Sentiment.String()].Runs)

	m = press(t, m, key(tea.KeyCtrlP))
	assert.Contains(t, m.View(), "Tool runs")
}

func TestSalaryPanel(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Salary)
	p := m.panels[tools.Salary]
	p.form.setFocus(salaryLocation)

	p.form.set(salaryExperience, "-1")
	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Please enter valid years of experience", p.err)

	p.form.set(salaryExperience, "10")
	p.form.set(salaryRole, "data scientist")
	m = press(t, m, key(tea.KeyEnter))
	assert.Empty(t, p.err)
	assert.Contains(t, p.result, "Predicted salary: NZD 152,000")
}

func TestWeatherSample(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Weather)
	p := m.panels[tools.Weather]

	p.form.setFocus(weatherRainfall)
	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Please fill in all weather parameters", p.err)

	m = press(t, m, key(tea.KeyCtrlE))
	assert.Equal(t, "75", p.form.value(weatherHumidity))
	m = press(t, m, key(tea.KeyEnter))
	assert.Empty(t, p.err)
	assert.Contains(t, p.result, "Auckland, New Zealand")
}

func TestCarPanel(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Car)
	p := m.panels[tools.Car]

	p.form.set(0, filepath.Join(t.TempDir(), "missing.jpg"))
	m = press(t, m, key(tea.KeyEnter))
	assert.Contains(t, p.err, "Could not open image")

	img := filepath.Join(t.TempDir(), "car.jpg")
	require.NoError(t, os.WriteFile(img, []byte("not really a jpeg"), 0644))
	p.form.set(0, img)
	m = press(t, m, key(tea.KeyEnter))
	assert.Empty(t, p.err)
	assert.Contains(t, p.result, "Brand: ")
}

func TestRetailFlow(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Retail)
	p := m.panels[tools.Retail]

	m = press(t, m, key(tea.KeyCtrlA))
	assert.Equal(t, "Please upload sales data first", p.err)

	csv := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(csv, []byte("product,amount,date\nWidget,120,2024-01-05\nGizmo,80,2024-02-10\n"), 0644))
	p.form.set(0, csv)
	m = press(t, m, key(tea.KeyEnter))
	require.Empty(t, p.err)
	require.Len(t, m.retail.files, 1)
	assert.Equal(t, "sales.csv", m.retail.files[0].Name)
	assert.Contains(t, m.View(), "sales.csv")

	m = press(t, m, key(tea.KeyCtrlA))
	assert.Empty(t, p.err)
	assert.Contains(t, p.result, "Top product: Widget")

	m = press(t, m, key(tea.KeyCtrlT))
	assert.Contains(t, p.result, "Status: queued")
}

func TestRobotPanel(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	robot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	defer robot.Close()
	addr := strings.TrimPrefix(robot.URL, "http://")

	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Robot)
	p := m.panels[tools.Robot]

	m = press(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Please enter robot IP address", p.err)

	p.form.set(0, addr)
	m = press(t, m, key(tea.KeyEnter))
	require.True(t, m.robot.connected())
	require.Len(t, h.saved, 1)
	assert.Equal(t, addr, h.saved[0].RobotAddress)
	assert.Contains(t, m.View(), "Connected to "+addr)

	m = press(t, m, key(tea.KeyUp))
	m = press(t, m, runes("l"))
	assert.Equal(t, "Sent ledon", m.robot.status)
	mu.Lock()
	assert.Equal(t, []string{"/go", "/ledon"}, paths)
	mu.Unlock()

	m = press(t, m, runes("x"))
	assert.False(t, m.robot.connected())
}

func TestToolsNeedSession(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	m := selectTool(t, h.signedIn(), tools.Sentiment)
	h.srv.Revoke("ann")

	m.panels[tools.Sentiment].form.set(0, "good")
	m = press(t, m, key(tea.KeyEnter))
	assert.NotEmpty(t, m.panels[tools.Sentiment].err)
	assert.Empty(t, m.panels[tools.Sentiment].result)
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestGroupThousands(t *testing.T) {
	cases := map[float64]string{0: "0", 999: "999", 1000: "1,000", 152000: "152,000", 1234567: "1,234,567", -45000: "-45,000", 999.5: "1,000", -1234.6: "-1,235"}
	for in, want := range cases {
		if got := groupThousands(in); got != want {
			t.Errorf("groupThousands(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "87.0%", percent(0.87))
	assert.Equal(t, "87.0%", percent(87))
	assert.Equal(t, "0.0%", percent(0))
}

func TestFormatAnalysisFallsBack(t *testing.T) {
	got := formatAnalysis(backend.SalesAnalysis{})
	assert.Contains(t, got, "Total sales: n/a")
	assert.Contains(t, got, "Top product: n/a")
}

func TestWeatherIcon(t *testing.T) {
	assert.Equal(t, "🌧️", weatherIcon("Rainy"))
	assert.Equal(t, "🌤️", weatherIcon("Tornado"))
}
