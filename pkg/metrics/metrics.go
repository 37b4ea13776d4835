package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

const (
	metricDispatchTotal   = "dispatch_total"
	metricDispatchLatency = "dispatch_latency_ms"
)

var (
	storage tstorage.Storage
	mu      sync.RWMutex
)

// InitMetrics opens the embedded time-series storage under the workdir.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(6*time.Hour),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// RecordDispatch stores one dispatch outcome with its provider latency.
func RecordDispatch(status string, latency time.Duration) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return
	}
	now := time.Now().Unix()
	_ = s.InsertRows([]tstorage.Row{
		{
			Metric:    metricDispatchTotal,
			Labels:    []tstorage.Label{{Name: "status", Value: status}},
			DataPoint: tstorage.DataPoint{Timestamp: now, Value: 1},
		},
		{
			Metric:    metricDispatchLatency,
			DataPoint: tstorage.DataPoint{Timestamp: now, Value: float64(latency.Milliseconds())},
		},
	})
}

// DispatchSummary aggregates counts and latency percentiles over a range.
type DispatchSummary struct {
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyAvg float64 `json:"latency_avg_ms"`
}

func Summary(start, end int64) (DispatchSummary, error) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	out := DispatchSummary{Start: start, End: end}
	if s == nil {
		return out, errors.New("metrics storage not initialized")
	}

	out.Sent = countPoints(s, "sent", start, end)
	out.Failed = countPoints(s, "failed", start, end)

	points, err := s.Select(metricDispatchLatency, nil, start, end)
	if err != nil && !errors.Is(err, tstorage.ErrNoDataPoints) {
		return out, errors.Wrap(err, "select latency")
	}
	if len(points) == 0 {
		return out, nil
	}
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	out.LatencyP50, _ = stats.Percentile(values, 50)
	out.LatencyP95, _ = stats.Percentile(values, 95)
	out.LatencyAvg, _ = stats.Mean(values)
	return out, nil
}

func countPoints(s tstorage.Storage, status string, start, end int64) int {
	points, err := s.Select(metricDispatchTotal,
		[]tstorage.Label{{Name: "status", Value: status}}, start, end)
	if err != nil {
		return 0
	}
	return len(points)
}
