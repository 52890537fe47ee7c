// Package report summarizes settled batches for operators. Reporting never
// influences scheduling.
package report

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
)

// Report is a derived view of one BatchResult.
type Report struct {
	BatchID       string                     `json:"batch_id"`
	Total         int                        `json:"total"`
	Succeeded     int                        `json:"succeeded"`
	Failed        int                        `json:"failed"`
	TimedOut      int                        `json:"timed_out"`
	SuccessRate   float64                    `json:"success_rate"`
	AvgLatency    time.Duration              `json:"avg_latency"`
	MedianLatency time.Duration              `json:"median_latency"`
	Duration      time.Duration              `json:"duration"`
	Failures      map[domain.FailureKind]int `json:"failures"`
}

// Summarize computes the report for a settled batch. Pure: calling it twice
// on the same result yields identical reports.
func Summarize(res *domain.BatchResult) Report {
	r := Report{
		BatchID:   res.BatchID,
		Total:     len(res.Handles),
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		TimedOut:  res.TimedOut,
		Duration:  res.Duration,
		Failures:  make(map[domain.FailureKind]int),
	}
	if r.Total > 0 {
		r.SuccessRate = float64(r.Succeeded) / float64(r.Total)
	}

	var latencies []time.Duration
	for _, h := range res.Handles {
		if h.State == domain.StateSucceeded {
			latencies = append(latencies, h.SettleLatency())
			continue
		}
		if h.FailureKind != domain.FailureNone {
			r.Failures[h.FailureKind]++
		}
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		r.AvgLatency = sum / time.Duration(len(latencies))
		r.MedianLatency = median(latencies)
	}
	return r
}

// Log writes the report as one structured line.
func (r Report) Log(logger *zap.Logger) {
	logger.Info("Batch report",
		zap.String("batch_id", r.BatchID),
		zap.Int("total", r.Total),
		zap.Int("succeeded", r.Succeeded),
		zap.Int("failed", r.Failed),
		zap.Int("timed_out", r.TimedOut),
		zap.Float64("success_rate", r.SuccessRate),
		zap.Duration("avg_latency", r.AvgLatency),
		zap.Duration("median_latency", r.MedianLatency),
		zap.Duration("duration", r.Duration),
		zap.Int("submission_failures", r.Failures[domain.FailureSubmission]),
		zap.Int("remote_failures", r.Failures[domain.FailureRemote]),
		zap.Int("timeouts", r.Failures[domain.FailureTimeout]),
		zap.Int("cancelled", r.Failures[domain.FailureCancelled]),
	)
}

// median of a sorted slice; even lengths average the middle pair.
func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
