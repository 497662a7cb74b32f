package importjob

import (
	"time"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type ProgressOutput struct {
	RowsTotal     int64 `json:"rowsTotal"`
	RowsProcessed int64 `json:"rowsProcessed"`
	RowsValid     int64 `json:"rowsValid"`
	RowsInvalid   int64 `json:"rowsInvalid"`
	RowsSkipped   int64 `json:"rowsSkipped"`
	Percentage    int   `json:"percentage"`
}

type PerformanceOutput struct {
	ProcessingRate         float64    `json:"processingRate"`
	EstimatedTimeRemaining *int64     `json:"estimatedTimeRemaining"`
	StartedAt              *time.Time `json:"startedAt"`
	UpdatedAt              *time.Time `json:"updatedAt"`
	CompletedAt            *time.Time `json:"completedAt"`
	DurationMs             int64      `json:"durationMs"`
}

type ErrorOutput struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusProjection is the payload served to polling clients. Error stays nil,
// and its key absent, unless the job failed with a recorded error.
type StatusProjection struct {
	ID             string                         `json:"id"`
	TraceID        string                         `json:"traceId"`
	IdempotencyKey string                         `json:"idempotencyKey"`
	Status         domain.Status                  `json:"status"`
	Phase          domain.Phase                   `json:"phase"`
	Progress       ProgressOutput                 `json:"progress"`
	Performance    PerformanceOutput              `json:"performance"`
	Artifacts      map[domain.ArtifactKind]string `json:"artifacts"`
	Options        domain.Options                 `json:"options"`
	Error          *ErrorOutput                   `json:"error,omitempty"`
}

// Project builds the status payload for job as of now. It never mutates job.
func Project(job domain.ImportJob, now time.Time) StatusProjection {
	job = job.Sanitized()

	percentage := domain.Percentage(job)
	rate := domain.ProcessingRate(job, now)

	traceID := job.TraceID
	if traceID == "" {
		traceID = job.ID
	}

	artifacts := make(map[domain.ArtifactKind]string, len(job.Artifacts))
	for kind, ref := range job.Artifacts {
		artifacts[kind] = ref
	}

	out := StatusProjection{
		ID:             job.ID,
		TraceID:        traceID,
		IdempotencyKey: job.IdempotencyKey,
		Status:         job.Status,
		Phase:          domain.DerivePhase(job.Status, percentage),
		Progress: ProgressOutput{
			RowsTotal:     job.TotalRows,
			RowsProcessed: job.ProcessedRows,
			RowsValid:     job.ValidRows,
			RowsInvalid:   job.InvalidRows,
			RowsSkipped:   job.SkippedRows,
			Percentage:    percentage,
		},
		Performance: PerformanceOutput{
			ProcessingRate:         rate,
			EstimatedTimeRemaining: domain.EstimatedTimeRemaining(job, rate),
			StartedAt:              job.StartedAt,
			UpdatedAt:              job.UpdatedAt,
			CompletedAt:            job.CompletedAt,
			DurationMs:             domain.DurationMs(job, now),
		},
		Artifacts: artifacts,
		Options:   job.Options,
	}

	if job.Error != nil {
		details := make(map[string]any, len(job.Error.Details))
		for k, v := range job.Error.Details {
			details[k] = v
		}
		out.Error = &ErrorOutput{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Details: details,
		}
	}

	return out
}
