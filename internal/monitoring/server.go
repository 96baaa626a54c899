package monitoring

import (
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Handlers serves the monitoring endpoints of a MetricsCollector.
type Handlers struct {
	collector *MetricsCollector
	started   time.Time
}

// NewHandlers creates monitoring handlers for collector.
func NewHandlers(collector *MetricsCollector) *Handlers {
	return &Handlers{collector: collector, started: time.Now()}
}

// Register mounts /metrics, /health and /dashboard on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/dashboard", h.handleDashboard)
}

// metricsResponse is the body of GET /metrics.
type metricsResponse struct {
	Enabled    bool               `json:"enabled"`
	Summary    MetricsSummary     `json:"summary"`
	Operations []OperationMetrics `json:"operations"`
}

// handleMetrics serves the collected metrics on GET and discards them on
// DELETE.
func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		h.collector.Clear()
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	response := metricsResponse{
		Enabled:    h.collector.IsEnabled(),
		Summary:    h.collector.GetSummary(),
		Operations: h.collector.GetMetrics(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode metrics", http.StatusInternalServerError)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"metrics":   h.collector.IsEnabled(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode health status", http.StatusInternalServerError)
	}
}

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html")

	if err := dashboardTemplate.Execute(w, newDashboardData(h.collector)); err != nil {
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
	}
}

type operationCount struct {
	Operation string
	Count     int
}

type dashboardData struct {
	Enabled    bool
	Summary    MetricsSummary
	Operations []OperationMetrics
	Counts     []operationCount
}

func newDashboardData(collector *MetricsCollector) dashboardData {
	summary := collector.GetSummary()
	counts := make([]operationCount, 0, len(summary.OperationCounts))
	for op, n := range summary.OperationCounts {
		counts = append(counts, operationCount{Operation: op, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Operation < counts[j].Operation })

	return dashboardData{
		Enabled:    collector.IsEnabled(),
		Summary:    summary,
		Operations: collector.GetMetrics(),
		Counts:     counts,
	}
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>datafilter Monitoring</title>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        .summary { background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .metrics-table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        .metrics-table th, .metrics-table td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        .metrics-table th { background-color: #f2f2f2; }
        .failed { color: #721c24; }
    </style>
</head>
<body>
    <h1 class="header">datafilter Monitoring Dashboard</h1>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Status:</strong> {{if .Enabled}}Enabled{{else}}Disabled{{end}}</p>
        <p><strong>Total Operations:</strong> {{.Summary.TotalOperations}}</p>
        <p><strong>Failed Operations:</strong> {{.Summary.FailedOperations}}</p>
        <p><strong>Total Duration:</strong> {{.Summary.TotalDuration}}</p>
        <p><strong>Average Duration:</strong> {{.Summary.AverageDuration}}</p>
        <p><strong>Total Rows Processed:</strong> {{.Summary.TotalRows}}</p>
    </div>

    <h2>Recent Operations</h2>
    <table class="metrics-table">
        <thead>
            <tr><th>Operation</th><th>Duration</th><th>Memory Used</th><th>Rows Processed</th><th>Error</th></tr>
        </thead>
        <tbody>
        {{range .Operations}}
            <tr{{if .Failed}} class="failed"{{end}}>
                <td>{{.Operation}}</td><td>{{.Duration}}</td><td>{{.MemoryUsed}}</td><td>{{.RowsProcessed}}</td><td>{{.Error}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>

    <h2>Operations by Type</h2>
    <ul>
    {{range .Counts}}<li><strong>{{.Operation}}:</strong> {{.Count}} operations</li>
    {{end}}
    </ul>
</body>
</html>
`))
