package importjob

import (
	"math"
	"time"
)

// Percentage returns completion in [0, 100], or 0 while the total is unknown.
func Percentage(job ImportJob) int {
	if job.TotalRows <= 0 || job.ProcessedRows <= 0 {
		return 0
	}
	pct := math.Round(100 * float64(job.ProcessedRows) / float64(job.TotalRows))
	return int(min(max(pct, 0), 100))
}

// ProcessingRate returns rows per second rounded to one decimal. Terminal jobs
// measure up to their completion time, so the value stops moving once done.
func ProcessingRate(job ImportJob, now time.Time) float64 {
	if job.StartedAt == nil || job.ProcessedRows <= 0 {
		return 0
	}
	elapsed := rateEnd(job, now).Sub(*job.StartedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	rate := math.Round(float64(job.ProcessedRows)/elapsed*10) / 10
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	return rate
}

func rateEnd(job ImportJob, now time.Time) time.Time {
	if job.CompletedAt != nil {
		return *job.CompletedAt
	}
	if job.Status.Terminal() && job.UpdatedAt != nil {
		return *job.UpdatedAt
	}
	return now
}

// EstimatedTimeRemaining returns seconds left, or nil when the job is terminal
// or no throughput has been observed.
func EstimatedTimeRemaining(job ImportJob, rate float64) *int64 {
	if job.Status.Terminal() || rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil
	}
	var seconds int64
	if remaining := job.TotalRows - job.ProcessedRows; remaining > 0 {
		seconds = int64(math.Ceil(float64(remaining) / rate))
	}
	return &seconds
}

// DurationMs is the time spent since processing began, up to completion.
func DurationMs(job ImportJob, now time.Time) int64 {
	if job.StartedAt == nil {
		return 0
	}
	end := now
	if job.CompletedAt != nil {
		end = *job.CompletedAt
	}
	return max(end.Sub(*job.StartedAt).Milliseconds(), 0)
}
