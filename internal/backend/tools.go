package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Fallback messages shown when the backend gives none.
const (
	MsgChatAuth        = "Authentication error. Please login again."
	MsgChatNetwork     = "Sorry, I'm having trouble connecting to the server. Please try again."
	MsgToolNetwork     = "Network error. Please check if backend is running."
	MsgSentimentFailed = "Analysis failed"
	MsgSalaryFailed    = "Prediction failed"
	MsgWeatherFailed   = "Weather prediction failed"
	MsgWeatherRetry    = "Weather prediction failed. Please try again."
	MsgCarFailed       = "Recognition failed"
	MsgCarNetwork      = "Network error. Please try again."
	MsgUploadFailed    = "Upload failed"
	MsgUploadNetwork   = "Upload failed. Please try again."
	MsgAnalyzeFailed   = "Analysis failed"
	MsgAnalyzeNetwork  = "Analysis failed. Please try again."
	MsgTrainFailed     = "Model training failed"
	MsgTrainNetwork    = "Model training failed. Please try again."
)

// Figure is a display value the backend sends either as a number or as a
// preformatted string.
type Figure string

// UnmarshalJSON accepts strings, numbers and null.
func (f *Figure) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = Figure(str)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("figure %s is neither string nor number", s)
	}
	*f = Figure(s)
	return nil
}

// Or returns f, or def when f is empty.
func (f Figure) Or(def string) string {
	if f == "" {
		return def
	}
	return string(f)
}

// =============================================================================
// CHAT
// =============================================================================

// ChatReply is the assistant's answer.
type ChatReply struct {
	Response string `json:"response"`
}

// SendChat posts one user message. Anonymous callers pass an empty token.
func (c *Client) SendChat(ctx context.Context, token, message string) (ChatReply, error) {
	var out struct {
		envelope
		ChatReply
	}
	if err := c.postJSON(ctx, "/api/chat/send", token, map[string]string{"message": message}, &out); err != nil {
		return ChatReply{}, err
	}
	if _, failed := out.failure(MsgChatAuth); failed {
		return ChatReply{}, &APIError{Message: MsgChatAuth}
	}
	return out.ChatReply, nil
}

// =============================================================================
// PREDICTIVE TOOLS
// =============================================================================

// SentimentResult is the sentiment-analysis reply.
type SentimentResult struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Analysis   string  `json:"analysis"`
	TextLength int     `json:"textLength"`
	WordCount  int     `json:"wordCount"`
}

// AnalyzeSentiment classifies text as POSITIVE, NEGATIVE, NEUTRAL or MIXED.
func (c *Client) AnalyzeSentiment(ctx context.Context, token, text string) (SentimentResult, error) {
	var out struct {
		envelope
		SentimentResult
	}
	if err := c.postJSON(ctx, "/api/ai-tools/sentiment-analysis", token, map[string]string{"text": text}, &out); err != nil {
		return SentimentResult{}, err
	}
	if err := out.check(MsgSentimentFailed, false); err != nil {
		return SentimentResult{}, err
	}
	return out.SentimentResult, nil
}

// SalaryRequest is the salary-prediction input.
type SalaryRequest struct {
	Experience int    `json:"experience"`
	Role       string `json:"role"`
	Location   string `json:"location"`
}

// SalaryRoles and SalaryLocations are the inputs the salary model knows.
var (
	SalaryRoles = []string{
		"Software Developer", "Data Scientist", "ML Engineer", "DevOps Engineer",
		"Frontend Developer", "Backend Developer", "Full Stack Developer",
	}
	SalaryLocations = []string{
		"New Zealand", "United States", "India", "United Kingdom", "Germany", "Canada", "Australia",
	}
)

// SalaryPrediction is the salary-prediction reply.
type SalaryPrediction struct {
	PredictedSalary float64  `json:"predictedSalary"`
	Currency        string   `json:"currency"`
	Confidence      float64  `json:"confidence"`
	Factors         []string `json:"factors"`
}

// PredictSalary estimates a salary for a role, location and experience.
func (c *Client) PredictSalary(ctx context.Context, token string, req SalaryRequest) (SalaryPrediction, error) {
	var out struct {
		envelope
		SalaryPrediction
	}
	if err := c.postJSON(ctx, "/api/ai-tools/salary-prediction", token, req, &out); err != nil {
		return SalaryPrediction{}, err
	}
	if err := out.check(MsgSalaryFailed, false); err != nil {
		return SalaryPrediction{}, err
	}
	return out.SalaryPrediction, nil
}

// WeatherRequest is the weather-prediction input.
type WeatherRequest struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Pressure    float64 `json:"pressure"`
	Rainfall    float64 `json:"rainfall"`
}

// WeatherPrediction is the weather-prediction reply.
type WeatherPrediction struct {
	PredictedTemperature float64  `json:"predictedTemperature"`
	WeatherCondition     string   `json:"weatherCondition"`
	PredictedRainfall    float64  `json:"predictedRainfall"`
	Confidence           float64  `json:"confidence"`
	Factors              []string `json:"factors"`
	Location             string   `json:"location"`
}

// PredictWeather forecasts from current readings.
func (c *Client) PredictWeather(ctx context.Context, token string, req WeatherRequest) (WeatherPrediction, error) {
	var out struct {
		envelope
		WeatherPrediction
	}
	if err := c.postJSON(ctx, "/api/ai-tools/weather-prediction", token, req, &out); err != nil {
		return WeatherPrediction{}, err
	}
	if msg, failed := out.failure(MsgWeatherFailed); failed {
		return WeatherPrediction{}, &APIError{Message: msg}
	}
	if out.Success == nil || !*out.Success {
		return WeatherPrediction{}, &APIError{Message: MsgWeatherRetry}
	}
	if out.Location == "" {
		out.Location = "Auckland, New Zealand"
	}
	return out.WeatherPrediction, nil
}

// CarPrediction is the car-recognition reply.
type CarPrediction struct {
	PredictedBrand string  `json:"predicted_brand"`
	Confidence     float64 `json:"confidence"`
}

// RecognizeCar uploads one image as the multipart field "image".
func (c *Client) RecognizeCar(ctx context.Context, token, filename string, image io.Reader) (CarPrediction, error) {
	body, contentType, err := multipartBody("image", []Upload{{Name: filename, Content: image}})
	if err != nil {
		return CarPrediction{}, err
	}
	var out struct {
		envelope
		CarPrediction
	}
	if err := c.do(ctx, http.MethodPost, "/api/ai-tools/car-recognition", token, body, contentType, &out); err != nil {
		return CarPrediction{}, err
	}
	if err := out.check(MsgCarFailed, true); err != nil {
		return CarPrediction{}, err
	}
	return out.CarPrediction, nil
}

// =============================================================================
// RETAIL
// =============================================================================

// Upload is one file to send.
type Upload struct {
	Name    string
	Content io.Reader
}

// UploadedFile is the backend's handle for an uploaded sales file.
type UploadedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size Figure `json:"size"`
}

// SalesAnalysis is the analyze-sales reply.
type SalesAnalysis struct {
	TotalSales     Figure   `json:"totalSales"`
	TopProduct     string   `json:"topProduct"`
	AvgTransaction Figure   `json:"avgTransaction"`
	SeasonalTrend  string   `json:"seasonalTrend"`
	Insights       []string `json:"insights"`
}

// TrainingResult is the train-model reply.
type TrainingResult struct {
	Message  string  `json:"message"`
	ModelID  string  `json:"modelId"`
	Accuracy float64 `json:"accuracy"`
	Status   string  `json:"status"`
}

// UploadSalesData sends files as repeated multipart "files" fields.
func (c *Client) UploadSalesData(ctx context.Context, token string, files []Upload) ([]UploadedFile, error) {
	body, contentType, err := multipartBody("files", files)
	if err != nil {
		return nil, err
	}
	var out struct {
		envelope
		UploadedFiles []UploadedFile `json:"uploadedFiles"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/retail/upload-sales-data", token, body, contentType, &out); err != nil {
		return nil, err
	}
	if err := out.check(MsgUploadFailed, true); err != nil {
		return nil, err
	}
	return out.UploadedFiles, nil
}

// AnalyzeSales analyzes previously uploaded files.
func (c *Client) AnalyzeSales(ctx context.Context, token string, fileIDs []string) (SalesAnalysis, error) {
	var out struct {
		envelope
		SalesAnalysis
	}
	if err := c.postJSON(ctx, "/api/retail/analyze-sales", token, map[string][]string{"fileIds": fileIDs}, &out); err != nil {
		return SalesAnalysis{}, err
	}
	if err := out.check(MsgAnalyzeFailed, true); err != nil {
		return SalesAnalysis{}, err
	}
	return out.SalesAnalysis, nil
}

// TrainModel starts model training on previously uploaded files.
func (c *Client) TrainModel(ctx context.Context, token string, fileIDs []string) (TrainingResult, error) {
	// Both shapes carry "message", so decode the body twice instead of
	// embedding.
	var raw json.RawMessage
	if err := c.postJSON(ctx, "/api/retail/train-model", token, map[string][]string{"fileIds": fileIDs}, &raw); err != nil {
		return TrainingResult{}, err
	}
	var env envelope
	var out TrainingResult
	if err := json.Unmarshal(raw, &env); err != nil {
		return TrainingResult{}, fmt.Errorf("%w: train-model: %v", ErrProtocol, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return TrainingResult{}, fmt.Errorf("%w: train-model: %v", ErrProtocol, err)
	}
	if err := env.check(MsgTrainFailed, true); err != nil {
		return TrainingResult{}, err
	}
	return out, nil
}

func multipartBody(field string, files []Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
