package devserver

import (
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"unicode"
)

var positiveWords = map[string]bool{
	"good": true, "great": true, "love": true, "excellent": true, "happy": true,
	"amazing": true, "awesome": true, "fantastic": true, "nice": true, "best": true,
	"wonderful": true, "enjoy": true, "like": true, "glad": true, "brilliant": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "hate": true, "awful": true, "sad": true,
	"worst": true, "horrible": true, "poor": true, "angry": true, "disappointed": true,
	"boring": true, "broken": true, "slow": true, "ugly": true, "annoying": true,
}

// classifySentiment is a lexicon count; both polarities present is MIXED.
func classifySentiment(text string) (sentiment string, confidence float64, analysis string, words int) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	var pos, neg int
	for _, w := range fields {
		switch {
		case positiveWords[w]:
			pos++
		case negativeWords[w]:
			neg++
		}
	}
	words = len(fields)
	hits := pos + neg

	switch {
	case hits == 0:
		return "NEUTRAL", 60, "No strongly emotional language detected.", words
	case pos > 0 && neg > 0 && math.Abs(float64(pos-neg)) <= 1:
		return "MIXED", 55 + 5*float64(hits), fmt.Sprintf("Found %d positive and %d negative cues.", pos, neg), words
	case pos > neg:
		return "POSITIVE", math.Min(99, 65+8*float64(pos-neg)), fmt.Sprintf("Found %d positive cues.", pos), words
	default:
		return "NEGATIVE", math.Min(99, 65+8*float64(neg-pos)), fmt.Sprintf("Found %d negative cues.", neg), words
	}
}

var roleBase = map[string]float64{
	"Software Developer":   85000,
	"Data Scientist":       95000,
	"ML Engineer":          105000,
	"DevOps Engineer":      92000,
	"Frontend Developer":   80000,
	"Backend Developer":    88000,
	"Full Stack Developer": 90000,
}

var locationFactor = map[string]struct {
	factor   float64
	currency string
}{
	"New Zealand":    {1.0, "NZD"},
	"United States":  {1.35, "USD"},
	"India":          {12.0, "INR"},
	"United Kingdom": {0.62, "GBP"},
	"Germany":        {0.68, "EUR"},
	"Canada":         {1.05, "CAD"},
	"Australia":      {1.1, "AUD"},
}

func predictSalary(experience int, role, location string) (salary float64, currency string, confidence float64, factors []string, err error) {
	base, ok := roleBase[role]
	if !ok {
		return 0, "", 0, nil, fmt.Errorf("unsupported role %q", role)
	}
	loc, ok := locationFactor[location]
	if !ok {
		return 0, "", 0, nil, fmt.Errorf("unsupported location %q", location)
	}

	growth := 1 + 0.06*math.Min(float64(experience), 20)
	salary = math.Round(base*loc.factor*growth/1000) * 1000
	confidence = math.Max(70, 92-float64(experience)/2)
	factors = []string{
		fmt.Sprintf("%s base rate", role),
		fmt.Sprintf("%d years of experience", experience),
		fmt.Sprintf("%s market adjustment", location),
	}
	return salary, loc.currency, confidence, factors, nil
}

type weatherReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Pressure    float64 `json:"pressure"`
	Rainfall    float64 `json:"rainfall"`
}

func predictWeather(in weatherReading) (temp float64, condition string, rain float64, confidence float64, factors []string) {
	pressureDelta := (in.Pressure - 1013) / 10
	temp = math.Round((in.Temperature+0.3*pressureDelta-0.05*in.WindSpeed)*10) / 10
	rain = math.Max(0, math.Round((in.Rainfall*0.6+(in.Humidity-70)*0.1-pressureDelta)*10)/10)

	switch {
	case rain > 5:
		condition = "Rainy"
	case in.Humidity > 80 || rain > 0:
		condition = "Cloudy"
	case in.WindSpeed > 40:
		condition = "Windy"
	default:
		condition = "Sunny"
	}
	confidence = math.Max(60, 90-math.Abs(pressureDelta)*2)
	factors = []string{
		fmt.Sprintf("Humidity %.0f%%", in.Humidity),
		fmt.Sprintf("Pressure %.0f hPa", in.Pressure),
		fmt.Sprintf("Wind %.0f km/h", in.WindSpeed),
	}
	return temp, condition, rain, confidence, factors
}

var carBrands = []string{"Toyota", "Honda", "Ford", "BMW", "Mercedes", "Audi", "Tesla", "Mazda", "Nissan", "Hyundai"}

// recognizeCar hashes the image so the same photo always gets the same brand.
func recognizeCar(image []byte) (brand string, confidence float64) {
	h := fnv.New32a()
	_, _ = h.Write(image)
	sum := h.Sum32()
	return carBrands[sum%uint32(len(carBrands))], 70 + float64(sum%300)/10
}

var chatAnswers = []struct {
	keywords []string
	answer   string
}{
	{[]string{"name"}, "I'm the **AI Studio** assistant."},
	{[]string{"study", "studying"}, "I'm studying machine learning and software engineering."},
	{[]string{"interest", "interests"}, "My interests are *applied AI*, robotics and data analysis."},
	{[]string{"project", "projects"}, "Projects include:\n\n- a sentiment analyzer\n- a salary predictor\n- an ESP32 robot car"},
	{[]string{"help"}, "I can chat, analyze sentiment, predict salaries and weather, recognize cars and crunch retail sales data."},
}

func chatReply(message string) string {
	lower := strings.ToLower(message)
	for _, a := range chatAnswers {
		for _, k := range a.keywords {
			if strings.Contains(lower, k) {
				return a.answer
			}
		}
	}
	return fmt.Sprintf("You said: %q. Ask me what I can help you with!", strings.TrimSpace(message))
}

// SendChat answers anonymous and signed-in users alike. A token that is
// present but unknown is an error.
func (s *Server) SendChat(w http.ResponseWriter, r *http.Request) {
	if token := r.Header.Get("Authorization"); token != "" {
		if _, ok := s.lookupSession(token); !ok {
			JSON(w, http.StatusOK, map[string]any{"error": "Invalid or expired session"})
			return
		}
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		JSON(w, http.StatusBadRequest, map[string]any{"error": "Message is required"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"response": chatReply(req.Message)})
}

// SentimentAnalysis classifies text.
func (s *Server) SentimentAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		toolError(w, http.StatusBadRequest, "Text is required")
		return
	}
	sentiment, confidence, analysis, words := classifySentiment(req.Text)
	JSON(w, http.StatusOK, map[string]any{
		"error":      false,
		"sentiment":  sentiment,
		"confidence": confidence,
		"analysis":   analysis,
		"textLength": len([]rune(req.Text)),
		"wordCount":  words,
	})
}

// SalaryPrediction estimates a salary.
func (s *Server) SalaryPrediction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Experience int    `json:"experience"`
		Role       string `json:"role"`
		Location   string `json:"location"`
	}
	if err := decode(r, &req); err != nil {
		toolError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Experience < 0 {
		toolError(w, http.StatusBadRequest, "Experience cannot be negative")
		return
	}
	salary, currency, confidence, factors, err := predictSalary(req.Experience, req.Role, req.Location)
	if err != nil {
		toolError(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"error":           false,
		"predictedSalary": salary,
		"currency":        currency,
		"confidence":      confidence,
		"factors":         factors,
	})
}

// WeatherPrediction forecasts from readings.
func (s *Server) WeatherPrediction(w http.ResponseWriter, r *http.Request) {
	var req weatherReading
	if err := decode(r, &req); err != nil {
		toolError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	temp, condition, rain, confidence, factors := predictWeather(req)
	JSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"predictedTemperature": temp,
		"weatherCondition":     condition,
		"predictedRainfall":    rain,
		"confidence":           confidence,
		"factors":              factors,
		"location":             "Auckland, New Zealand",
	})
}

// CarRecognition reads the multipart "image" field.
func (s *Server) CarRecognition(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No image provided"})
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No image provided"})
		return
	}
	defer file.Close()

	data, err := readAll(file)
	if err != nil || len(data) == 0 {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Image is empty"})
		return
	}
	brand, confidence := recognizeCar(data)
	JSON(w, http.StatusOK, map[string]any{"success": true, "predicted_brand": brand, "confidence": confidence})
}
