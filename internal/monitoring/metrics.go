// Package monitoring collects per-operation metrics for dataset sessions and
// serves them over HTTP.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// DefaultMaxRecords bounds the number of operations a collector retains.
const DefaultMaxRecords = 1000

// OperationMetrics represents performance metrics for a single dataset operation.
type OperationMetrics struct {
	Operation     string        `json:"operation"`
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	MemoryUsed    int64         `json:"memory_used"`
	Failed        bool          `json:"failed"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}

// MetricsCollector collects and stores performance metrics for dataset operations.
type MetricsCollector struct {
	mu         sync.RWMutex
	metrics    []OperationMetrics
	enabled    bool
	maxRecords int
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics:    make([]OperationMetrics, 0),
		enabled:    enabled,
		maxRecords: DefaultMaxRecords,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	if mc == nil {
		return false
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// SetMaxRecords changes how many operations are retained. Older records are
// dropped first. Values below one are ignored.
func (mc *MetricsCollector) SetMaxRecords(n int) {
	if n < 1 {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.maxRecords = n
	mc.trim()
}

// RecordOperation executes fn and records its duration, the number of rows it
// reports and the heap allocated while it ran. A nil or disabled collector
// just runs fn.
func (mc *MetricsCollector) RecordOperation(operation string, fn func() (int, error)) error {
	if !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	rows, err := fn()

	duration := time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	m := OperationMetrics{
		Operation:     operation,
		Duration:      duration,
		RowsProcessed: int64(rows),
		MemoryUsed:    int64(memAfter.TotalAlloc - memBefore.TotalAlloc), //nolint:gosec // TotalAlloc is monotonic
		StartedAt:     start,
	}
	if err != nil {
		m.Failed = true
		m.Error = err.Error()
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, m)
	mc.trim()
	mc.mu.Unlock()

	return err
}

// trim drops the oldest records beyond maxRecords. Callers hold mu.
func (mc *MetricsCollector) trim() {
	if excess := len(mc.metrics) - mc.maxRecords; excess > 0 {
		mc.metrics = append(mc.metrics[:0], mc.metrics[excess:]...)
	}
}

// GetMetrics returns a copy of all collected metrics, oldest first.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{OperationCounts: map[string]int{}}
	}

	var totalDuration time.Duration
	var totalMemory int64
	var totalRows int64
	failed := 0
	operationCounts := make(map[string]int)

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalMemory += metric.MemoryUsed
		totalRows += metric.RowsProcessed
		operationCounts[metric.Operation]++
		if metric.Failed {
			failed++
		}
	}

	return MetricsSummary{
		TotalOperations:  len(mc.metrics),
		FailedOperations: failed,
		TotalDuration:    totalDuration,
		TotalMemory:      totalMemory,
		TotalRows:        totalRows,
		OperationCounts:  operationCounts,
		AverageDuration:  totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations  int            `json:"total_operations"`
	FailedOperations int            `json:"failed_operations"`
	TotalDuration    time.Duration  `json:"total_duration"`
	TotalMemory      int64          `json:"total_memory"`
	TotalRows        int64          `json:"total_rows"`
	OperationCounts  map[string]int `json:"operation_counts"`
	AverageDuration  time.Duration  `json:"average_duration"`
}
