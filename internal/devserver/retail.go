package devserver

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 10<<20))
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// UploadSalesData stores every multipart "files" part.
func (s *Server) UploadSalesData(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		toolError(w, http.StatusBadRequest, "Upload failed: expected multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		toolError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	uploaded := make([]map[string]any, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			toolError(w, http.StatusBadRequest, "Could not read "+h.Filename)
			return
		}
		data, err := readAll(f)
		f.Close()
		if err != nil {
			toolError(w, http.StatusBadRequest, "Could not read "+h.Filename)
			return
		}

		sf := &salesFile{id: uuid.NewString(), name: h.Filename, data: data}
		s.mu.Lock()
		s.files[sf.id] = sf
		s.mu.Unlock()

		uploaded = append(uploaded, map[string]any{"id": sf.id, "name": sf.name, "size": humanSize(len(data))})
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "uploadedFiles": uploaded})
}

type fileIDsRequest struct {
	FileIDs []string `json:"fileIds"`
}

func (s *Server) filesFor(ids []string) ([]*salesFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*salesFile, 0, len(ids))
	for _, id := range ids {
		f, ok := s.files[id]
		if !ok {
			return nil, fmt.Errorf("unknown file %s", id)
		}
		out = append(out, f)
	}
	return out, nil
}

type salesSummary struct {
	total        float64
	transactions int
	byProduct    map[string]float64
	byMonth      map[string]float64
}

// summarize reads CSVs with a header row. Columns named product, amount
// (or total/sales) and date are used when present; other columns are ignored.
func summarize(files []*salesFile) salesSummary {
	sum := salesSummary{byProduct: map[string]float64{}, byMonth: map[string]float64{}}
	for _, f := range files {
		rows, err := csv.NewReader(bytes.NewReader(f.data)).ReadAll()
		if err != nil || len(rows) < 2 {
			continue
		}
		col := map[string]int{}
		for i, name := range rows[0] {
			col[strings.ToLower(strings.TrimSpace(name))] = i
		}
		amountCol := -1
		for _, name := range []string{"amount", "total", "sales"} {
			if i, ok := col[name]; ok {
				amountCol = i
				break
			}
		}
		if amountCol < 0 {
			continue
		}
		productCol, hasProduct := col["product"]
		dateCol, hasDate := col["date"]

		for _, row := range rows[1:] {
			if amountCol >= len(row) {
				continue
			}
			amount, err := strconv.ParseFloat(strings.TrimSpace(row[amountCol]), 64)
			if err != nil {
				continue
			}
			sum.total += amount
			sum.transactions++
			if hasProduct && productCol < len(row) {
				sum.byProduct[strings.TrimSpace(row[productCol])] += amount
			}
			if hasDate && dateCol < len(row) && len(row[dateCol]) >= 7 {
				sum.byMonth[row[dateCol][:7]] += amount
			}
		}
	}
	return sum
}

func (sum salesSummary) topProduct() string {
	best, bestAmount := "", -1.0
	for p, a := range sum.byProduct {
		if a > bestAmount || (a == bestAmount && p < best) {
			best, bestAmount = p, a
		}
	}
	return best
}

func (sum salesSummary) trend() string {
	if len(sum.byMonth) < 2 {
		return "Stable"
	}
	months := make([]string, 0, len(sum.byMonth))
	for m := range sum.byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	first, last := sum.byMonth[months[0]], sum.byMonth[months[len(months)-1]]
	switch {
	case last > first*1.1:
		return "Growing"
	case last < first*0.9:
		return "Declining"
	default:
		return "Stable"
	}
}

// AnalyzeSales summarizes previously uploaded files.
func (s *Server) AnalyzeSales(w http.ResponseWriter, r *http.Request) {
	var req fileIDsRequest
	if err := decode(r, &req); err != nil || len(req.FileIDs) == 0 {
		toolError(w, http.StatusBadRequest, "Please upload sales data first")
		return
	}
	files, err := s.filesFor(req.FileIDs)
	if err != nil {
		toolError(w, http.StatusNotFound, err.Error())
		return
	}

	sum := summarize(files)
	avg := 0.0
	if sum.transactions > 0 {
		avg = sum.total / float64(sum.transactions)
	}
	insights := []string{fmt.Sprintf("%d transactions across %d file(s)", sum.transactions, len(files))}
	if top := sum.topProduct(); top != "" {
		insights = append(insights, fmt.Sprintf("%s drives the most revenue; consider bundling deals around it", top))
	}
	if trend := sum.trend(); trend != "Stable" {
		insights = append(insights, "Sales are "+strings.ToLower(trend)+" month over month")
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"totalSales":     fmt.Sprintf("$%.2f", sum.total),
		"topProduct":     sum.topProduct(),
		"avgTransaction": fmt.Sprintf("$%.2f", avg),
		"seasonalTrend":  sum.trend(),
		"insights":       insights,
	})
}

// TrainModel pretends to queue a training job.
func (s *Server) TrainModel(w http.ResponseWriter, r *http.Request) {
	var req fileIDsRequest
	if err := decode(r, &req); err != nil || len(req.FileIDs) == 0 {
		toolError(w, http.StatusBadRequest, "Please upload sales data first")
		return
	}
	if _, err := s.filesFor(req.FileIDs); err != nil {
		toolError(w, http.StatusNotFound, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Training started on %d file(s)", len(req.FileIDs)),
		"modelId":  uuid.NewString(),
		"accuracy": 0.87,
		"status":   "queued",
	})
}
