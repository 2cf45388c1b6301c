package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"aistudio/internal/backend"
	"aistudio/internal/logging"
	"aistudio/internal/tools"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CHAT
// =============================================================================

var quickQuestions = []string{
	"What is your name?",
	"what are you studying",
	"what is your interests",
	"what projects have you worked on",
	"What can you help me with?",
}

type chatLine struct {
	fromUser bool
	text     string
	rendered string // cleared on resize
}

type chatPanel struct {
	name     string
	lines    []chatLine
	input    textinput.Model
	viewport viewport.Model
	waiting  bool
}

func newChatPanel(name string) *chatPanel {
	in := textinput.New()
	in.Placeholder = "Type your message... (1-5 sends a quick question)"
	in.CharLimit = 1000
	in.Width = 60
	in.Focus()
	return &chatPanel{
		name:     name,
		lines:    []chatLine{{text: fmt.Sprintf("Hello %s! 👋 I'm your AI assistant. How can I help you today?", name)}},
		input:    in,
		viewport: viewport.New(60, 10),
	}
}

func (p *chatPanel) clear() {
	p.lines = []chatLine{{text: fmt.Sprintf("Chat cleared! Hello %s, how can I help you?", p.name)}}
}

// take returns the message to send, expanding a lone digit into the quick
// question it numbers. ok is false for blank input or a pending reply.
func (p *chatPanel) take() (string, bool) {
	if p.waiting {
		return "", false
	}
	text := strings.TrimSpace(p.input.Value())
	if text == "" {
		return "", false
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(quickQuestions) {
		text = quickQuestions[n-1]
	}
	p.input.Reset()
	p.lines = append(p.lines, chatLine{fromUser: true, text: text})
	p.waiting = true
	return text, true
}

func (p *chatPanel) receive(text string) {
	p.waiting = false
	p.lines = append(p.lines, chatLine{text: text})
}

// =============================================================================
// TOOL PANELS
// =============================================================================

// toolPanel is the state of one form-driven tool.
type toolPanel struct {
	form    form
	result  string
	err     string
	running bool
}

// Field indexes of the tool forms.
const (
	salaryExperience = iota
	salaryRole
	salaryLocation
)

const (
	weatherTemperature = iota
	weatherHumidity
	weatherWindSpeed
	weatherPressure
	weatherRainfall
)

func newToolPanels(robotAddress string) map[tools.ToolID]*toolPanel {
	salary := newForm(
		fieldSpec{label: "Years of experience", placeholder: "e.g., 3"},
		fieldSpec{label: "Role", placeholder: strings.Join(backend.SalaryRoles[:3], ", ") + ", ..."},
		fieldSpec{label: "Location", placeholder: strings.Join(backend.SalaryLocations[:3], ", ") + ", ..."},
	)
	salary.set(salaryRole, "ML Engineer")
	salary.set(salaryLocation, "New Zealand")

	robot := newForm(fieldSpec{label: "Robot IP", placeholder: "e.g., 192.168.1.100"})
	robot.set(0, robotAddress)

	return map[tools.ToolID]*toolPanel{
		tools.Sentiment: {form: newForm(fieldSpec{label: "Text", placeholder: "reviews, comments, tweets, feedback..."})},
		tools.Salary:    {form: salary},
		tools.Weather: {form: newForm(
			fieldSpec{label: "Temperature (°C)", placeholder: "e.g., 21.5"},
			fieldSpec{label: "Humidity (%)", placeholder: "e.g., 75"},
			fieldSpec{label: "Wind speed (km/h)", placeholder: "e.g., 15.0"},
			fieldSpec{label: "Pressure (hPa)", placeholder: "e.g., 1012.0"},
			fieldSpec{label: "Rainfall (mm)", placeholder: "e.g., 0.5"},
		)},
		tools.Car:    {form: newForm(fieldSpec{label: "Image file", placeholder: "path/to/car.jpg"})},
		tools.Retail: {form: newForm(fieldSpec{label: "Sales CSV files", placeholder: "q1.csv, q2.csv"})},
		tools.Robot:  {form: robot},
	}
}

// loadWeatherSample fills the weather form with a typical Auckland day.
func loadWeatherSample(p *toolPanel) {
	for i, v := range []string{"21.5", "75", "15.0", "1012.0", "0.5"} {
		p.form.set(i, v)
	}
	p.err = ""
}

// toolMsg carries a finished tool call. text is the rendered result, or
// errText the user-facing failure.
type toolMsg struct {
	id      tools.ToolID
	epoch   int
	text    string
	errText string
}

type toolRun func(ctx context.Context, token string) (string, error)

// prepareTool validates the panel form and returns the call to make, the
// fallback message for transport failures, and a local validation error.
func prepareTool(id tools.ToolID, p *toolPanel, api *backend.Client) (toolRun, string, string) {
	switch id {
	case tools.Sentiment:
		text := p.form.value(0)
		if text == "" {
			return nil, "", "Please enter some text to analyze"
		}
		return func(ctx context.Context, token string) (string, error) {
			res, err := api.AnalyzeSentiment(ctx, token, text)
			if err != nil {
				return "", err
			}
			return formatSentiment(res), nil
		}, backend.MsgToolNetwork, ""

	case tools.Salary:
		req, errText := salaryRequest(p.form)
		if errText != "" {
			return nil, "", errText
		}
		return func(ctx context.Context, token string) (string, error) {
			res, err := api.PredictSalary(ctx, token, req)
			if err != nil {
				return "", err
			}
			return formatSalary(res), nil
		}, backend.MsgToolNetwork, ""

	case tools.Weather:
		req, errText := weatherRequest(p.form)
		if errText != "" {
			return nil, "", errText
		}
		return func(ctx context.Context, token string) (string, error) {
			res, err := api.PredictWeather(ctx, token, req)
			if err != nil {
				return "", err
			}
			return formatWeather(res), nil
		}, backend.MsgToolNetwork, ""

	case tools.Car:
		path := p.form.value(0)
		if path == "" {
			return nil, "", "Please select an image first"
		}
		return func(ctx context.Context, token string) (string, error) {
			f, err := os.Open(path)
			if err != nil {
				return "", &backend.APIError{Message: fmt.Sprintf("Could not open image: %v", err)}
			}
			defer f.Close()
			res, err := api.RecognizeCar(ctx, token, filepath.Base(path), f)
			if err != nil {
				return "", err
			}
			return formatCar(res), nil
		}, backend.MsgCarNetwork, ""
	}
	return nil, "", "This tool has no form"
}

func salaryRequest(f form) (backend.SalaryRequest, string) {
	exp, err := strconv.Atoi(f.value(salaryExperience))
	if err != nil || exp < 0 {
		return backend.SalaryRequest{}, "Please enter valid years of experience"
	}
	role, ok := matchChoice(f.value(salaryRole), backend.SalaryRoles)
	if !ok {
		return backend.SalaryRequest{}, "Role must be one of: " + strings.Join(backend.SalaryRoles, ", ")
	}
	location, ok := matchChoice(f.value(salaryLocation), backend.SalaryLocations)
	if !ok {
		return backend.SalaryRequest{}, "Location must be one of: " + strings.Join(backend.SalaryLocations, ", ")
	}
	return backend.SalaryRequest{Experience: exp, Role: role, Location: location}, ""
}

func matchChoice(v string, choices []string) (string, bool) {
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return c, true
		}
	}
	return "", false
}

func weatherRequest(f form) (backend.WeatherRequest, string) {
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(f.value(i), 64)
		if err != nil {
			return backend.WeatherRequest{}, "Please fill in all weather parameters"
		}
		vals[i] = v
	}
	if vals[weatherHumidity] < 0 || vals[weatherHumidity] > 100 {
		return backend.WeatherRequest{}, "Humidity must be between 0 and 100"
	}
	if vals[weatherRainfall] < 0 {
		return backend.WeatherRequest{}, "Rainfall cannot be negative"
	}
	return backend.WeatherRequest{
		Temperature: vals[weatherTemperature],
		Humidity:    vals[weatherHumidity],
		WindSpeed:   vals[weatherWindSpeed],
		Pressure:    vals[weatherPressure],
		Rainfall:    vals[weatherRainfall],
	}, ""
}

// =============================================================================
// RETAIL
// =============================================================================

type retailState struct {
	files []backend.UploadedFile
}

func (r *retailState) ids() []string {
	ids := make([]string, len(r.files))
	for i, f := range r.files {
		ids[i] = f.ID
	}
	return ids
}

type uploadMsg struct {
	epoch   int
	files   []backend.UploadedFile
	errText string
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func uploadCmd(api *backend.Client, token string, epoch int, paths []string) tea.Cmd {
	return func() tea.Msg {
		uploads := make([]backend.Upload, 0, len(paths))
		var opened []*os.File
		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()
		for _, p := range paths {
			f, err := os.Open(p)
			if err != nil {
				return uploadMsg{epoch: epoch, errText: fmt.Sprintf("Could not open %s: %v", p, err)}
			}
			opened = append(opened, f)
			uploads = append(uploads, backend.Upload{Name: filepath.Base(p), Content: f})
		}
		files, err := api.UploadSalesData(context.Background(), token, uploads)
		if err != nil {
			return uploadMsg{epoch: epoch, errText: backend.UserMessage(err, backend.MsgUploadNetwork)}
		}
		return uploadMsg{epoch: epoch, files: files}
	}
}

func analyzeRun(api *backend.Client, ids []string) toolRun {
	return func(ctx context.Context, token string) (string, error) {
		res, err := api.AnalyzeSales(ctx, token, ids)
		if err != nil {
			return "", err
		}
		return formatAnalysis(res), nil
	}
}

func trainRun(api *backend.Client, ids []string) toolRun {
	return func(ctx context.Context, token string) (string, error) {
		res, err := api.TrainModel(ctx, token, ids)
		if err != nil {
			return "", err
		}
		return formatTraining(res), nil
	}
}

// =============================================================================
// ROBOT
// =============================================================================

type robotState struct {
	client *backend.RobotClient
	status string
}

func (r *robotState) connected() bool {
	return r.client != nil
}

type robotMsg struct {
	epoch int
	cmd   backend.RobotCommand
	err   error
}

var robotKeys = map[string]backend.RobotCommand{
	"up":    backend.RobotForward,
	"down":  backend.RobotBack,
	"left":  backend.RobotLeft,
	"right": backend.RobotRight,
	" ":     backend.RobotStop,
	"l":     backend.RobotLEDOn,
	"o":     backend.RobotLEDOff,
}

func robotCmd(client *backend.RobotClient, epoch int, cmd backend.RobotCommand) tea.Cmd {
	return func() tea.Msg {
		err := client.Send(context.Background(), cmd)
		if err != nil {
			logging.ToolsWarn("robot %s: %v", cmd, err)
		}
		return robotMsg{epoch: epoch, cmd: cmd, err: err}
	}
}

// =============================================================================
// RESULT FORMATTING
// =============================================================================

var weatherIcons = map[string]string{
	"Sunny":         "☀️",
	"Partly Cloudy": "⛅",
	"Cloudy":        "☁️",
	"Light Rain":    "🌦️",
	"Heavy Rain":    "🌧️",
	"Rainy":         "🌧️",
	"Drizzle":       "💧",
	"Foggy":         "🌫️",
	"Windy":         "💨",
	"Cold":          "❄️",
}

func weatherIcon(condition string) string {
	if icon, ok := weatherIcons[condition]; ok {
		return icon
	}
	return "🌤️"
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("\n• ")
		b.WriteString(it)
	}
	return b.String()
}

// groupThousands renders 152000 as 152,000.
func groupThousands(v float64) string {
	s := strconv.FormatInt(int64(math.Round(v)), 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// percent accepts both 0..1 ratios and 0..100 percentages.
func percent(v float64) string {
	if v > 0 && v <= 1 {
		v *= 100
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatSentiment(r backend.SentimentResult) string {
	s := fmt.Sprintf("Sentiment: %s (%s confidence)\nWords: %d • Characters: %d",
		r.Sentiment, percent(r.Confidence), r.WordCount, r.TextLength)
	if r.Analysis != "" {
		s += "\n\n" + r.Analysis
	}
	return s
}

func formatSalary(r backend.SalaryPrediction) string {
	s := fmt.Sprintf("Predicted salary: %s %s\nConfidence: %s", r.Currency, groupThousands(r.PredictedSalary), percent(r.Confidence))
	if len(r.Factors) > 0 {
		s += "\n\nFactors:" + bullets(r.Factors)
	}
	return s
}

func formatWeather(r backend.WeatherPrediction) string {
	s := fmt.Sprintf("Tomorrow in %s\n%s %s\nTemperature: %.1f °C\nRainfall: %.1f mm\nConfidence: %s",
		r.Location, weatherIcon(r.WeatherCondition), r.WeatherCondition,
		r.PredictedTemperature, r.PredictedRainfall, percent(r.Confidence))
	if len(r.Factors) > 0 {
		s += "\n\nFactors:" + bullets(r.Factors)
	}
	return s
}

func formatCar(r backend.CarPrediction) string {
	return fmt.Sprintf("Brand: %s\nConfidence: %s", r.PredictedBrand, percent(r.Confidence))
}

func formatAnalysis(r backend.SalesAnalysis) string {
	s := fmt.Sprintf("Total sales: %s\nTop product: %s\nAverage transaction: %s\nSeasonal trend: %s",
		r.TotalSales.Or("n/a"), orNA(r.TopProduct), r.AvgTransaction.Or("n/a"), orNA(r.SeasonalTrend))
	if len(r.Insights) > 0 {
		s += "\n\nInsights:" + bullets(r.Insights)
	}
	return s
}

func formatTraining(r backend.TrainingResult) string {
	s := orNA(r.Message)
	if r.ModelID != "" {
		s += "\nModel: " + r.ModelID
	}
	if r.Accuracy > 0 {
		s += "\nAccuracy: " + percent(r.Accuracy)
	}
	if r.Status != "" {
		s += "\nStatus: " + r.Status
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
